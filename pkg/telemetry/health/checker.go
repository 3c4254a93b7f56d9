package health

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// CheckFunc returns nil when the component is usable.
type CheckFunc func(ctx context.Context) error

// Check result statuses.
const (
	StatusOK      = "ok"
	StatusWarning = "warning" // optional check failed
	StatusFailed  = "failed"  // required check failed
)

// Report statuses.
const (
	StatusReady    = "ready"
	StatusDegraded = "degraded" // only optional checks failed
	StatusUnready  = "unready"
)

// DefaultCheckTimeout bounds a check when New is given zero.
const DefaultCheckTimeout = 5 * time.Second

// ErrCheckTimeout is the message of a check that outlived its timeout.
var ErrCheckTimeout = errors.New("health check timeout")

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Optional bool          `json:"optional,omitempty"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Report aggregates every check of one Run, sorted by name.
type Report struct {
	Status    string        `json:"status"`
	Checks    []CheckResult `json:"checks"`
	Timestamp time.Time     `json:"timestamp"`
}

// Healthy reports whether every required check passed.
func (r Report) Healthy() bool {
	return r.Status != StatusUnready
}

type check struct {
	fn       CheckFunc
	optional bool
}

// Checker runs named checks concurrently, each bounded by its own timeout.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]check
	timeout time.Duration
}

// New returns a Checker whose checks time out after timeout, or after
// DefaultCheckTimeout when timeout is zero.
func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &Checker{checks: make(map[string]check), timeout: timeout}
}

// RegisterCheck adds a required check, replacing one of the same name.
func (c *Checker) RegisterCheck(name string, fn CheckFunc) {
	c.register(name, check{fn: fn})
}

// RegisterOptional adds a check whose failure only degrades the report.
func (c *Checker) RegisterOptional(name string, fn CheckFunc) {
	c.register(name, check{fn: fn, optional: true})
}

func (c *Checker) register(name string, ch check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = ch
}

// ListChecks returns the registered check names, sorted.
func (c *Checker) ListChecks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes every check and aggregates the results.
func (c *Checker) Run(ctx context.Context) Report {
	names := c.ListChecks()

	c.mu.RLock()
	checks := make([]check, len(names))
	for i, name := range names {
		checks[i] = c.checks[name]
	}
	c.mu.RUnlock()

	results := make([]CheckResult, len(names))
	var wg sync.WaitGroup
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.run(ctx, names[i], checks[i])
		}(i)
	}
	wg.Wait()

	status := StatusReady
	for _, r := range results {
		switch r.Status {
		case StatusFailed:
			status = StatusUnready
		case StatusWarning:
			if status == StatusReady {
				status = StatusDegraded
			}
		}
	}

	return Report{Status: status, Checks: results, Timestamp: time.Now()}
}

func (c *Checker) run(ctx context.Context, name string, ch check) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result := CheckResult{Name: name, Status: StatusOK, Optional: ch.optional}
	start := time.Now()

	done := make(chan error, 1)
	go func() { done <- ch.fn(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ErrCheckTimeout
	}
	result.Duration = time.Since(start)

	if err != nil {
		result.Message = err.Error()
		result.Status = StatusFailed
		if ch.optional {
			result.Status = StatusWarning
		}
	}
	return result
}
