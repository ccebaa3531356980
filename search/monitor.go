package search

import (
	"github.com/poiesic/obsim/core"
	"github.com/poiesic/obsim/metrics"
	"github.com/poiesic/obsim/ranking"
)

// metricsMonitor reports ranking passes to the metrics recorder and forwards
// every hook to an optional caller monitor.
type metricsMonitor struct {
	endpoint string
	next     ranking.RankMonitor
}

var _ ranking.RankMonitor = (*metricsMonitor)(nil)

func newMetricsMonitor(endpoint string, next ranking.RankMonitor) *metricsMonitor {
	return &metricsMonitor{endpoint: endpoint, next: next}
}

func (m *metricsMonitor) Start(corpusSize int) {
	metrics.Default().ObserveCorpusSize(m.endpoint, corpusSize)
	if m.next != nil {
		m.next.Start(corpusSize)
	}
}

func (m *metricsMonitor) Scored(result *core.SimilarityResult) {
	if m.next != nil {
		m.next.Scored(result)
	}
}

func (m *metricsMonitor) Skipped(scoreErr *core.ScoreError) {
	if m.next != nil {
		m.next.Skipped(scoreErr)
	}
}

func (m *metricsMonitor) Finish(r *ranking.Ranking) {
	if n := len(r.Skipped); n > 0 {
		metrics.Default().AddSkipped(m.endpoint, n)
	}
	if m.next != nil {
		m.next.Finish(r)
	}
}
