package ranking

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"strings"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/obsim/core"
	"github.com/poiesic/obsim/similarity"
)

// Ranking is the outcome of one ranking pass.
type Ranking struct {
	Results []core.SimilarityResult
	Skipped []core.ScoreError
}

// SkippedIDs returns the layout ids of the skipped records.
func (r *Ranking) SkippedIDs() []int64 {
	ids := make([]int64, len(r.Skipped))
	for i, s := range r.Skipped {
		ids[i] = s.LayoutID
	}
	return ids
}

// Ranker scores corpora against queries on a shared worker pool.
// It is safe for concurrent use.
type Ranker struct {
	pool   *ants.Pool
	score  similarity.ScoreFunc
	logger *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker) error

// WithPoolSize sets the worker pool size.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(r *Ranker) error {
		if size < 1 {
			size = 1
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		if r.pool != nil {
			r.pool.Release()
		}
		r.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithScoreFunc replaces the scoring function.
// Default is similarity.Score.
func WithScoreFunc(fn similarity.ScoreFunc) Option {
	return func(r *Ranker) error {
		if fn == nil {
			return ErrScoreFuncRequired
		}
		r.score = fn
		return nil
	}
}

// NewRanker creates a Ranker. Call Release when done.
func NewRanker(opts ...Option) (*Ranker, error) {
	poolSize := runtime.NumCPU()
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	r := &Ranker{
		pool:   pool,
		score:  similarity.Score,
		logger: slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(r); optErr != nil {
			r.Release()
			return nil, optErr
		}
	}

	return r, nil
}

// Release stops the worker pool.
func (r *Ranker) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}

// PoolSize returns the worker pool capacity.
func (r *Ranker) PoolSize() int {
	return r.pool.Cap()
}

type outcome struct {
	result   core.SimilarityResult
	scoreErr *core.ScoreError
}

// Rank scores every breakdown in corpus against query and returns the
// results sorted by total score descending.
func (r *Ranker) Rank(ctx context.Context, query core.NormalizedSequence, corpus []core.Breakdown) (*Ranking, error) {
	return r.RankWithMonitor(ctx, query, corpus, nil)
}

// RankWithMonitor is Rank with progress callbacks.
func (r *Ranker) RankWithMonitor(ctx context.Context, query core.NormalizedSequence, corpus []core.Breakdown, monitor RankMonitor) (*Ranking, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	monitor.Start(len(corpus))

	ranking := &Ranking{
		Results: make([]core.SimilarityResult, 0, len(corpus)),
	}
	if len(corpus) == 0 {
		monitor.Finish(ranking)
		return ranking, nil
	}

	// Sized so no task ever blocks on send, even after the collector has
	// given up on a cancelled context.
	outcomes := make(chan outcome, len(corpus))
	submitted := 0
	for i := range corpus {
		b := &corpus[i]
		err := r.pool.Submit(func() {
			outcomes <- r.scoreOne(ctx, query, b)
		})
		if err != nil {
			r.logger.Error("error submitting scoring task", "layoutID", b.LayoutID, "err", err)
			return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
		}
		submitted++
	}

	for received := 0; received < submitted; received++ {
		select {
		case <-ctx.Done():
			r.logger.Warn("ranking abandoned", "received", received, "submitted", submitted, "err", ctx.Err())
			return nil, ctx.Err()
		case o := <-outcomes:
			if o.scoreErr != nil {
				r.logger.Warn("skipping breakdown", "layoutID", o.scoreErr.LayoutID, "layoutCode", o.scoreErr.LayoutCode, "err", o.scoreErr.Err)
				ranking.Skipped = append(ranking.Skipped, *o.scoreErr)
				monitor.Skipped(o.scoreErr)
				continue
			}
			ranking.Results = append(ranking.Results, o.result)
			monitor.Scored(&ranking.Results[len(ranking.Results)-1])
		}
	}

	// Tasks that saw a cancelled context report it as a skip; the pass as a
	// whole still failed.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	SortResults(ranking.Results)
	slices.SortFunc(ranking.Skipped, func(a, b core.ScoreError) int {
		return cmp.Compare(a.LayoutID, b.LayoutID)
	})

	r.logger.Debug("ranking complete", "scored", len(ranking.Results), "skipped", len(ranking.Skipped))
	monitor.Finish(ranking)
	return ranking, nil
}

// scoreOne scores a single breakdown, converting panics and invalid data
// into a ScoreError.
func (r *Ranker) scoreOne(ctx context.Context, query core.NormalizedSequence, b *core.Breakdown) (o outcome) {
	fail := func(err error) outcome {
		return outcome{scoreErr: &core.ScoreError{LayoutID: b.LayoutID, LayoutCode: b.LayoutCode, Err: err}}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	defer func() {
		if p := recover(); p != nil {
			o = fail(fmt.Errorf("%w: %v", ErrScorePanic, p))
		}
	}()

	if err := core.ValidateBreakdown(b); err != nil {
		return fail(err)
	}

	scores := r.score(query, b.Normalized())
	if !inRange(scores.Operation) || !inRange(scores.Machine) {
		return fail(fmt.Errorf("%w: operation=%v machine=%v", ErrInvalidScore, scores.Operation, scores.Machine))
	}

	return outcome{result: core.NewSimilarityResult(b, scores.Operation, scores.Machine)}
}

func inRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}

// SortResults orders results by total score descending, then layout code
// ascending, then layout id ascending.
func SortResults(results []core.SimilarityResult) {
	slices.SortFunc(results, func(a, b core.SimilarityResult) int {
		if c := cmp.Compare(b.TotalSimilarityScore, a.TotalSimilarityScore); c != 0 {
			return c
		}
		if c := strings.Compare(a.LayoutCode, b.LayoutCode); c != 0 {
			return c
		}
		return cmp.Compare(a.LayoutID, b.LayoutID)
	})
}

// TopK returns the first k results. The input must already be sorted.
func TopK(results []core.SimilarityResult, k int) []core.SimilarityResult {
	if k <= 0 {
		return []core.SimilarityResult{}
	}
	if k >= len(results) {
		return results
	}
	return results[:k]
}
