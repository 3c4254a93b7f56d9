package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	if c := New(0); c.timeout != DefaultCheckTimeout {
		t.Errorf("default timeout = %v, want %v", c.timeout, DefaultCheckTimeout)
	}
	if c := New(time.Second); c.timeout != time.Second {
		t.Errorf("timeout = %v, want 1s", c.timeout)
	}
}

func TestListChecks(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("rules", func(context.Context) error { return nil })
	c.RegisterOptional("metrics_textfile", func(context.Context) error { return nil })
	c.RegisterCheck("audit", func(context.Context) error { return nil })
	c.RegisterCheck("rules", func(context.Context) error { return nil })

	names := c.ListChecks()
	want := []string{"audit", "metrics_textfile", "rules"}
	if len(names) != len(want) {
		t.Fatalf("ListChecks() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ListChecks()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRun(t *testing.T) {
	ok := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errors.New("3 errors") }
	hang := func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return nil
	}

	tests := []struct {
		name       string
		required   map[string]CheckFunc
		optional   map[string]CheckFunc
		wantStatus string
		wantFailed []string
		wantWarned []string
	}{
		{
			name:       "no checks",
			wantStatus: StatusReady,
		},
		{
			name:       "all healthy",
			required:   map[string]CheckFunc{"rules": ok, "audit": ok},
			optional:   map[string]CheckFunc{"metrics_textfile": ok},
			wantStatus: StatusReady,
		},
		{
			name:       "optional failure degrades",
			required:   map[string]CheckFunc{"rules": ok},
			optional:   map[string]CheckFunc{"metrics_textfile": fail},
			wantStatus: StatusDegraded,
			wantWarned: []string{"metrics_textfile"},
		},
		{
			name:       "required failure",
			required:   map[string]CheckFunc{"rules": fail, "audit": ok},
			optional:   map[string]CheckFunc{"metrics_textfile": fail},
			wantStatus: StatusUnready,
			wantFailed: []string{"rules"},
			wantWarned: []string{"metrics_textfile"},
		},
		{
			name:       "timeout",
			required:   map[string]CheckFunc{"git": hang},
			wantStatus: StatusUnready,
			wantFailed: []string{"git"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(50 * time.Millisecond)
			for name, fn := range tt.required {
				c.RegisterCheck(name, fn)
			}
			for name, fn := range tt.optional {
				c.RegisterOptional(name, fn)
			}

			report := c.Run(context.Background())
			if report.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", report.Status, tt.wantStatus)
			}
			if report.Healthy() != (tt.wantStatus != StatusUnready) {
				t.Errorf("Healthy() = %v", report.Healthy())
			}
			if want := len(tt.required) + len(tt.optional); len(report.Checks) != want {
				t.Fatalf("got %d results, want %d", len(report.Checks), want)
			}

			var failed, warned []string
			for i, r := range report.Checks {
				if i > 0 && report.Checks[i-1].Name > r.Name {
					t.Error("results not sorted by name")
				}
				switch r.Status {
				case StatusFailed:
					failed = append(failed, r.Name)
				case StatusWarning:
					warned = append(warned, r.Name)
				}
				if r.Status != StatusOK && r.Message == "" {
					t.Errorf("%s: %s result without message", r.Name, r.Status)
				}
			}
			if len(failed) != len(tt.wantFailed) {
				t.Errorf("failed = %v, want %v", failed, tt.wantFailed)
			}
			if len(warned) != len(tt.wantWarned) {
				t.Errorf("warned = %v, want %v", warned, tt.wantWarned)
			}
		})
	}
}

func TestRun_TimeoutMessage(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		return nil
	})

	report := c.Run(context.Background())
	if report.Checks[0].Message != ErrCheckTimeout.Error() {
		t.Errorf("Message = %q, want %q", report.Checks[0].Message, ErrCheckTimeout.Error())
	}
}
