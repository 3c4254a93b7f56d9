package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports how far an extraction run has come.
type ProgressReporter interface {
	Start(totalRows int)
	Row(ruleErrors int)
	Finish()
	Fail(err error)
}

// RowProgress renders a single status line, rewritten in place with \r.
// Redraws are throttled to one per interval; Start and Finish always draw.
type RowProgress struct {
	mu         sync.Mutex
	w          io.Writer
	interval   time.Duration
	total      int
	done       int
	ruleErrors int
	started    time.Time
	lastDraw   time.Time
}

// NewProgressReporter returns a RowProgress writing to w, or to os.Stderr
// when w is nil.
func NewProgressReporter(w io.Writer) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &RowProgress{w: w, interval: 100 * time.Millisecond}
}

// Start resets the counters for a run of totalRows rows.
func (p *RowProgress) Start(totalRows int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = totalRows
	p.done = 0
	p.ruleErrors = 0
	p.started = time.Now()
	p.draw()
}

// Row counts one evaluated row and the rule errors its trace carried.
func (p *RowProgress) Row(ruleErrors int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	p.ruleErrors += ruleErrors
	if time.Since(p.lastDraw) >= p.interval {
		p.draw()
	}
}

// Finish draws the final line and ends it.
func (p *RowProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.draw()
	fmt.Fprintln(p.w)
}

// Fail ends the status line with err.
func (p *RowProgress) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "\n✗ stopped after %d row(s): %v\n", p.done, err)
}

func (p *RowProgress) draw() {
	p.lastDraw = time.Now()
	if p.total <= 0 {
		return
	}

	const width = 30
	filled := p.done * width / p.total
	if filled > width {
		filled = width
	}

	var perSecond float64
	if elapsed := time.Since(p.started).Seconds(); elapsed > 0 {
		perSecond = float64(p.done) / elapsed
	}

	fmt.Fprintf(p.w, "\rRows [%s%s] %d/%d, %d rule error(s), %.0f rows/s",
		strings.Repeat("=", filled), strings.Repeat(" ", width-filled),
		p.done, p.total, p.ruleErrors, perSecond)
}
