package ranking

import "github.com/poiesic/obsim/core"

// RankMonitor provides hooks to observe a ranking pass.
// Scored and Skipped are called from the collecting goroutine, never
// concurrently.
type RankMonitor interface {
	Start(corpusSize int)
	Scored(result *core.SimilarityResult)
	Skipped(scoreErr *core.ScoreError)
	Finish(ranking *Ranking)
}

// noopMonitor is a no-op implementation of RankMonitor
type noopMonitor struct{}

var _ RankMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ int)                      {}
func (n *noopMonitor) Scored(_ *core.SimilarityResult) {}
func (n *noopMonitor) Skipped(_ *core.ScoreError)      {}
func (n *noopMonitor) Finish(_ *Ranking)                {}
