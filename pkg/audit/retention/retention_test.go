package retention

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mercator-hq/pricelist/pkg/audit"
	"mercator-hq/pricelist/pkg/audit/storage"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, s audit.Storage, ages ...time.Duration) {
	t.Helper()
	for i, age := range ages {
		r := &audit.Record{
			ID:         fmt.Sprintf("rec-%d", i),
			RunID:      "run",
			RowNumber:  i + 1,
			ConfigName: "perfume",
			Timestamp:  now.Add(-age),
		}
		if err := s.Store(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
}

type pruneObserver struct {
	byAge, byCount int64
	calls          int
}

func (o *pruneObserver) RecordAuditPrune(byAge, byCount int64) {
	o.calls++
	o.byAge += byAge
	o.byCount += byCount
}

func TestPruner_Prune(t *testing.T) {
	day := 24 * time.Hour

	tests := []struct {
		name          string
		config        Config
		ages          []time.Duration
		wantByAge     int64
		wantByCount   int64
		wantRemaining []string
	}{
		{
			name:          "by age",
			config:        Config{RetentionDays: 30},
			ages:          []time.Duration{day, 10 * day, 31 * day, 100 * day},
			wantByAge:     2,
			wantRemaining: []string{"rec-0", "rec-1"},
		},
		{
			name:          "by count keeps newest",
			config:        Config{MaxRecords: 2},
			ages:          []time.Duration{day, 2 * day, 3 * day, 4 * day},
			wantByCount:   2,
			wantRemaining: []string{"rec-1", "rec-0"},
		},
		{
			name:          "age then count",
			config:        Config{RetentionDays: 30, MaxRecords: 1},
			ages:          []time.Duration{day, 2 * day, 40 * day},
			wantByAge:     1,
			wantByCount:   1,
			wantRemaining: []string{"rec-0"},
		},
		{
			name:          "within limits",
			config:        Config{RetentionDays: 30, MaxRecords: 10},
			ages:          []time.Duration{day, 2 * day},
			wantRemaining: []string{"rec-1", "rec-0"},
		},
		{
			name:          "disabled",
			config:        Config{},
			ages:          []time.Duration{1000 * day},
			wantRemaining: []string{"rec-0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStorage()
			seed(t, store, tt.ages...)

			cfg := tt.config
			pruner := NewPruner(store, &cfg)
			pruner.now = func() time.Time { return now }
			obs := &pruneObserver{}
			pruner.SetObserver(obs)

			result, err := pruner.Prune(context.Background())
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if result.ByAge != tt.wantByAge || result.ByCount != tt.wantByCount {
				t.Errorf("Prune() = %+v, want by_age=%d by_count=%d", result, tt.wantByAge, tt.wantByCount)
			}
			if obs.calls != 1 || obs.byAge != tt.wantByAge || obs.byCount != tt.wantByCount {
				t.Errorf("observer = %+v", obs)
			}

			remaining, err := store.Query(context.Background(), &audit.Query{SortOrder: "asc"})
			if err != nil {
				t.Fatal(err)
			}
			if len(remaining) != len(tt.wantRemaining) {
				t.Fatalf("remaining = %d records, want %d", len(remaining), len(tt.wantRemaining))
			}
			for i, id := range tt.wantRemaining {
				if remaining[i].ID != id {
					t.Errorf("remaining[%d] = %s, want %s", i, remaining[i].ID, id)
				}
			}
		})
	}
}

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{name: "daily", schedule: "0 3 * * *", wantRunning: true},
		{name: "hourly", schedule: "0 * * * *", wantRunning: true},
		{name: "empty schedule", schedule: "", wantRunning: false},
		{name: "invalid schedule", schedule: "invalid cron", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pruner := NewPruner(storage.NewMemoryStorage(), &Config{
				RetentionDays: 90,
				PruneSchedule: tt.schedule,
			})
			scheduler := NewScheduler(pruner)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := scheduler.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Fatalf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if scheduler.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", scheduler.IsRunning(), tt.wantRunning)
			}
			if tt.wantRunning {
				next := scheduler.NextRun()
				if next == nil || !next.After(time.Now()) {
					t.Errorf("NextRun() = %v, want a future time", next)
				}
			}
			scheduler.Stop()
			if scheduler.IsRunning() {
				t.Error("IsRunning() after Stop() = true")
			}
		})
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStorage(), DefaultConfig())
	scheduler := NewScheduler(pruner)

	ctx, cancel := context.WithCancel(context.Background())
	if err := scheduler.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for scheduler.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if scheduler.IsRunning() {
		t.Error("scheduler still running after context cancel")
	}
}

func TestScheduler_LastPass(t *testing.T) {
	store := storage.NewMemoryStorage()
	seed(t, store, time.Hour, 200*24*time.Hour)

	pruner := NewPruner(store, &Config{RetentionDays: 90, PruneSchedule: "0 3 * * *"})
	pruner.now = func() time.Time { return now }
	scheduler := NewScheduler(pruner)

	if !scheduler.LastPass().At.IsZero() {
		t.Fatal("LastPass() before any pass should be zero")
	}

	scheduler.pass(context.Background())

	last := scheduler.LastPass()
	if last.At.IsZero() || last.Err != nil {
		t.Fatalf("LastPass() = %+v", last)
	}
	if last.Result.ByAge != 1 {
		t.Errorf("ByAge = %d, want 1", last.Result.ByAge)
	}
}
