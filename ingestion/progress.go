package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress reports how many breakdowns an import run has written.
type Progress struct {
	writer         io.Writer
	total          int
	written        int
	failed         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// Summary is the final state of a Progress.
type Summary struct {
	Written int
	Failed  int
	Elapsed time.Duration
}

// NewProgress creates a progress reporter for total breakdowns. A line is
// written every reportInterval breakdowns. A nil writer discards output.
func NewProgress(writer io.Writer, total, reportInterval int) *Progress {
	if writer == nil {
		writer = io.Discard
	}
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &Progress{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins timing the run.
func (p *Progress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.written = 0
	p.failed = 0
	p.lastReported = 0
}

// Written records n breakdowns stored.
func (p *Progress) Written(n int) {
	p.advance(n, 0)
}

// Failed records n breakdowns that could not be stored.
func (p *Progress) Failed(n int) {
	p.advance(0, n)
}

func (p *Progress) advance(written, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.written += written
	p.failed += failed
	if done := p.written + p.failed; done > p.total {
		p.written = p.total - p.failed
	}

	if p.written+p.failed-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.written + p.failed
	}
}

// Finish prints the final line and returns the run summary.
func (p *Progress) Finish() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return Summary{}
	}

	p.report()
	fmt.Fprintln(p.writer)
	return Summary{
		Written: p.written,
		Failed:  p.failed,
		Elapsed: time.Since(p.startTime),
	}
}

// report must be called with the lock held.
func (p *Progress) report() {
	done := p.written + p.failed
	rate := float64(done) / time.Since(p.startTime).Seconds()

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(done) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rImported %d/%d breakdowns (%.1f%%), %d failed - %.1f breakdowns/s",
		done, p.total, percentage, p.failed, rate)
}
