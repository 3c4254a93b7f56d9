package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/pricelist/pkg/audit"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to keep records.
	// 0 keeps records forever.
	RetentionDays int

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64

	// PruneSchedule is a cron expression for scheduled pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
	}
}

// Result reports what one pruning pass deleted.
type Result struct {
	ByAge   int64
	ByCount int64
}

// Total returns the number of deleted records.
func (r Result) Total() int64 {
	return r.ByAge + r.ByCount
}

// Observer is notified after every successful pruning pass.
type Observer interface {
	RecordAuditPrune(byAge, byCount int64)
}

// Pruner enforces retention policies on audit records.
type Pruner struct {
	storage  audit.Storage
	config   *Config
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// NewPruner creates a new retention pruner.
func NewPruner(storage audit.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	return &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "audit.retention"),
		now:     time.Now,
	}
}

// SetObserver reports pruning results to o.
func (p *Pruner) SetObserver(o Observer) {
	p.observer = o
}

// Prune deletes records older than the retention period, then the oldest
// records above the max record count.
func (p *Pruner) Prune(ctx context.Context) (Result, error) {
	var result Result

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return result, &audit.RetentionError{Phase: "age", Cause: err}
		}
		result.ByAge = deleted
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return result, &audit.RetentionError{Phase: "count", Cause: err}
		}
		result.ByCount = deleted
	}

	if p.observer != nil {
		p.observer.RecordAuditPrune(result.ByAge, result.ByCount)
	}

	if result.Total() == 0 {
		p.logger.Debug("no audit records pruned",
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Info("audit pruning completed",
			"by_age", result.ByAge,
			"by_count", result.ByCount,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return result, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)

	p.logger.Debug("pruning by age",
		"cutoff_time", cutoff,
		"retention_days", p.config.RetentionDays,
	)

	return p.storage.Delete(ctx, &audit.Query{EndTime: &cutoff})
}

// pruneByCount deletes every record up to and including the timestamp of
// the newest record that falls outside the limit.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &audit.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	toDelete := count - p.config.MaxRecords
	p.logger.Info("record count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", toDelete,
	)

	last, err := p.storage.Query(ctx, &audit.Query{
		Limit:     1,
		Offset:    int(toDelete - 1),
		SortOrder: "asc",
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query records: %w", err)
	}
	if len(last) == 0 {
		return 0, nil
	}

	cutoff := last[0].Timestamp
	deleted, err := p.storage.Delete(ctx, &audit.Query{EndTime: &cutoff})
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return deleted, nil
}
