// Package recorder turns engine evaluation traces into audit records and
// writes them to an audit.Storage in the background.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/pricelist/pkg/audit"
	"mercator-hq/pricelist/pkg/extraction/engine"
)

// Config contains configuration for the audit recorder.
type Config struct {
	// Enabled enables recording. A disabled recorder accepts and drops
	// every row.
	Enabled bool

	// AsyncBuffer is the size of the write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// BatchSize is the maximum number of records written per transaction.
	// Default: 100
	BatchSize int

	// WriteTimeout bounds one batch write and how long Record waits for
	// buffer space.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// Backend names the storage backend in metrics and logs.
	Backend string
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		BatchSize:    100,
		WriteTimeout: 5 * time.Second,
		Backend:      "memory",
	}
}

// Run describes the extraction run every record of a recorder belongs to.
type Run struct {
	// ID groups the records. A UUID is generated when empty.
	ID string

	Source        string
	Sheet         string
	ConfigName    string
	ConfigVersion string
}

// Observer is notified after every batch write.
type Observer interface {
	RecordAuditWrite(backend string, count int, err error)
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithObserver reports batch writes to o.
func WithObserver(o Observer) Option {
	return func(r *Recorder) {
		r.observer = o
	}
}

// WithLogger sets the recorder logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger.With("component", "audit.recorder")
		}
	}
}

// Recorder records one audit record per parsed row. Record never blocks on
// storage; records are written in batches by a background worker.
type Recorder struct {
	storage    audit.Storage
	config     *Config
	run        Run
	observer   Observer
	recordChan chan *audit.Record
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	// mu is held shared by senders and exclusively by Close, so no send
	// lands after the worker's final drain.
	mu     sync.RWMutex
	closed bool
	logger     *slog.Logger

	written atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// NewRecorder creates a recorder for one run and starts its worker.
func NewRecorder(storage audit.Storage, config *Config, run Run, opts ...Option) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1000
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		run:        run,
		recordChan: make(chan *audit.Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "audit.recorder"),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Debug("audit recorder started",
		"run_id", run.ID,
		"source", run.Source,
		"config_name", run.ConfigName,
		"config_version", run.ConfigVersion,
		"async_buffer", config.AsyncBuffer,
	)

	return r
}

// RunID returns the run identifier shared by all records.
func (r *Recorder) RunID() string {
	return r.run.ID
}

// Record enqueues the audit record of one parsed row. The OpenTelemetry
// trace id of ctx, if any, is stored with the record.
func (r *Recorder) Record(ctx context.Context, rowNumber int, bag engine.ResultBag, tr *engine.EvaluationTrace) error {
	if !r.config.Enabled {
		return nil
	}

	record := r.newRecord(ctx, rowNumber, bag, tr)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return &audit.RecorderError{RunID: r.run.ID, RowNumber: rowNumber, Cause: context.Canceled}
	}

	select {
	case r.recordChan <- record:
		return nil
	case <-time.After(r.config.WriteTimeout):
		r.dropped.Add(1)
		r.logger.Error("audit channel full, dropping record",
			"record_id", record.ID,
			"row", rowNumber,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return &audit.RecorderError{RunID: r.run.ID, RowNumber: rowNumber, Cause: context.DeadlineExceeded}
	case <-ctx.Done():
		r.dropped.Add(1)
		return &audit.RecorderError{RunID: r.run.ID, RowNumber: rowNumber, Cause: ctx.Err()}
	}
}

func (r *Recorder) newRecord(ctx context.Context, rowNumber int, bag engine.ResultBag, tr *engine.EvaluationTrace) *audit.Record {
	record := &audit.Record{
		ID:            uuid.New().String(),
		RunID:         r.run.ID,
		Source:        r.run.Source,
		Sheet:         r.run.Sheet,
		RowNumber:     rowNumber,
		ConfigName:    r.run.ConfigName,
		ConfigVersion: r.run.ConfigVersion,
		Bag:           bag.Clone(),
		Entries:       audit.EntriesFromTrace(tr),
		Timestamp:     time.Now(),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		record.TraceID = sc.TraceID().String()
	}
	return record
}

// Close stops accepting records, writes everything still buffered and
// waits for the worker. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.done)
		r.mu.Unlock()
		r.wg.Wait()
		r.logger.Info("audit recorder closed",
			"run_id", r.run.ID,
			"written", r.written.Load(),
			"failed", r.failed.Load(),
			"dropped", r.dropped.Load(),
		)
	})
	return nil
}

// Stats returns how many records were written, failed to write, or were
// dropped before reaching the worker.
func (r *Recorder) Stats() (written, failed, dropped int64) {
	return r.written.Load(), r.failed.Load(), r.dropped.Load()
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]*audit.Record, 0, r.config.BatchSize)
	for {
		select {
		case record := <-r.recordChan:
			batch = append(batch[:0], record)
			batch = r.fill(batch)
			r.writeBatch(batch)

		case <-r.done:
			for {
				batch = r.fill(batch[:0])
				if len(batch) == 0 {
					return
				}
				r.writeBatch(batch)
			}
		}
	}
}

// fill appends buffered records without blocking until the batch is full.
func (r *Recorder) fill(batch []*audit.Record) []*audit.Record {
	for len(batch) < r.config.BatchSize {
		select {
		case record := <-r.recordChan:
			batch = append(batch, record)
		default:
			return batch
		}
	}
	return batch
}

func (r *Recorder) writeBatch(batch []*audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	err := r.storage.StoreBatch(ctx, batch)
	if r.observer != nil {
		r.observer.RecordAuditWrite(r.config.Backend, len(batch), err)
	}
	if err != nil {
		r.failed.Add(int64(len(batch)))
		r.logger.Error("failed to store audit records",
			"run_id", r.run.ID,
			"count", len(batch),
			"error", err,
		)
		return
	}

	r.written.Add(int64(len(batch)))
	r.logger.Debug("audit records written",
		"run_id", r.run.ID,
		"count", len(batch),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
