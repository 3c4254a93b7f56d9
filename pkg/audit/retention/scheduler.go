package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a Pruner on its cron schedule. A pass still running when
// the next one is due makes the next one skip.
type Scheduler struct {
	pruner *Pruner
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	running bool
	last    Pass
}

// Pass is the outcome of the latest scheduled pruning pass.
type Pass struct {
	At     time.Time
	Result Result
	Err    error
}

// NewScheduler returns a stopped Scheduler for pruner.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner: pruner,
		logger: slog.Default().With("component", "audit.scheduler"),
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start schedules pruning on PruneSchedule, a standard five-field cron
// expression. An empty schedule leaves the Scheduler stopped. Cancelling ctx
// stops it.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec := s.pruner.config.PruneSchedule
	if spec == "" {
		s.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}

	id, err := s.cron.AddFunc(spec, func() { s.pass(ctx) })
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	s.entry = id
	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", spec,
		"retention_days", s.pruner.config.RetentionDays,
		"max_records", s.pruner.config.MaxRecords,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) pass(ctx context.Context) {
	result, err := s.pruner.Prune(ctx)
	if err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
	}

	s.mu.Lock()
	s.last = Pass{At: time.Now(), Result: result, Err: err}
	s.mu.Unlock()
}

// Stop unschedules pruning and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cron.Remove(s.entry)
	s.mu.Unlock()

	// pass takes s.mu, so wait without holding it.
	<-s.cron.Stop().Done()
	s.logger.Info("retention scheduler stopped")
}

// IsRunning reports whether pruning is scheduled.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns when the next pass is due, or nil when nothing is
// scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	next := s.cron.Entry(s.entry).Next
	if next.IsZero() {
		return nil
	}
	return &next
}

// LastPass returns the outcome of the latest pass; At is zero before the
// first one.
func (s *Scheduler) LastPass() Pass {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
