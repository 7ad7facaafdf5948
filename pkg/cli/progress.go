package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports progress for commands that walk many items.
type ProgressReporter interface {
	Start(total int)
	Update(current int, item string)
	Finish()
	Error(item string, err error)
}

// SimpleProgress is a single-line text progress bar.
type SimpleProgress struct {
	mu      sync.Mutex
	total   int
	current int
	item    string
	failed  int
	started time.Time
	writer  io.Writer
}

// NewProgressReporter creates a new progress reporter that writes to w.
// If w is nil, it defaults to os.Stderr so piped results stay clean.
func NewProgressReporter(w io.Writer) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &SimpleProgress{
		writer: w,
	}
}

// Start resets the reporter for total items.
func (p *SimpleProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.failed = 0
	p.item = ""
	p.started = time.Now()

	p.render()
}

// Update records that current items are done, the last being item.
func (p *SimpleProgress) Update(current int, item string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	p.item = item
	p.render()
}

// Finish completes the bar and prints a summary line.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	p.item = ""
	p.render()
	if p.total > 0 {
		fmt.Fprintln(p.writer)
	}
	fmt.Fprintf(p.writer, "Done: %d processed, %d failed in %s\n",
		p.total-p.failed, p.failed, time.Since(p.started).Round(time.Millisecond))
}

// Error reports a failed item. The bar continues.
func (p *SimpleProgress) Error(item string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failed++
	fmt.Fprintf(p.writer, "\n✗ %s: %v\n", item, err)
}

func (p *SimpleProgress) render() {
	if p.total == 0 {
		return
	}

	percent := float64(p.current) / float64(p.total) * 100
	barWidth := 30
	filled := int(float64(barWidth) * percent / 100)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(p.writer, "\r[%s] %5.1f%% (%d/%d) %s",
		bar, percent, p.current, p.total, p.item)
}
