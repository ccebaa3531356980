// Package metrics provides the instrumentation surface of the search service
// with a no-op default and a Prometheus-backed implementation.
package metrics

import (
	"sync"
	"time"
)

// Recorder defines the metrics surface used across the codebase.
type Recorder interface {
	IncSearchTotal(endpoint string, success bool)
	ObserveSearchSeconds(endpoint string, success bool, seconds float64)
	ObserveCorpusSize(endpoint string, size int)
	AddSkipped(endpoint string, n int)
	IncAllocationLookup(success bool)
}

// noopRecorder implements Recorder with no-ops.
type noopRecorder struct{}

func (n *noopRecorder) IncSearchTotal(string, bool)                {}
func (n *noopRecorder) ObserveSearchSeconds(string, bool, float64) {}
func (n *noopRecorder) ObserveCorpusSize(string, int)              {}
func (n *noopRecorder) AddSkipped(string, int)                     {}
func (n *noopRecorder) IncAllocationLookup(bool)                   {}

var (
	recMu    sync.RWMutex
	recorder Recorder = &noopRecorder{}
)

// Default returns the current recorder.
func Default() Recorder {
	recMu.RLock()
	defer recMu.RUnlock()
	return recorder
}

// SetRecorder swaps the global recorder implementation.
// A nil recorder restores the no-op default.
func SetRecorder(r Recorder) {
	recMu.Lock()
	defer recMu.Unlock()
	if r == nil {
		r = &noopRecorder{}
	}
	recorder = r
}

// TimeSearch is a helper to time one search request.
func TimeSearch(endpoint string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		dur := time.Since(start).Seconds()
		Default().IncSearchTotal(endpoint, success)
		Default().ObserveSearchSeconds(endpoint, success, dur)
	}
}
