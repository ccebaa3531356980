package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/obsim/core"
	"github.com/poiesic/obsim/corpus"
	"github.com/poiesic/obsim/enrich"
	"github.com/poiesic/obsim/metrics"
	"github.com/poiesic/obsim/ranking"
	"github.com/poiesic/obsim/storage"
)

const (
	endpointSearch     = "search"
	endpointDataSource = "search-ds"
)

// Ranker scores a corpus against a normalized query.
type Ranker interface {
	RankWithMonitor(ctx context.Context, query core.NormalizedSequence, corpus []core.Breakdown, monitor ranking.RankMonitor) (*ranking.Ranking, error)
}

// Searcher answers similarity queries against a stored corpus or a caller
// supplied dataset.
type Searcher struct {
	corpus      storage.CorpusSource
	allocations storage.AllocationSource
	ranker      Ranker
	monitor     ranking.RankMonitor
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithTimeout bounds the ranking pass of every search.
// Default is no timeout beyond the caller's context.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Searcher) error {
		if timeout < 0 {
			timeout = 0
		}
		s.timeout = timeout
		return nil
	}
}

// WithMonitor receives the hooks of every ranking pass.
func WithMonitor(monitor ranking.RankMonitor) Option {
	return func(s *Searcher) error {
		s.monitor = monitor
		return nil
	}
}

// NewSearcher creates a new searcher. allocations may be nil, in which case
// requests asking for allocation data are answered without it.
func NewSearcher(
	corpusSource storage.CorpusSource,
	allocations storage.AllocationSource,
	ranker Ranker,
	opts ...Option,
) (*Searcher, error) {
	if corpusSource == nil {
		return nil, ErrCorpusSourceRequired
	}
	if ranker == nil {
		return nil, ErrRankerRequired
	}

	s := &Searcher{
		corpus:      corpusSource,
		allocations: allocations,
		ranker:      ranker,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search ranks the tenant's stored breakdowns of the requested style type
// against the query and returns the best NoOfResults of them.
func (s *Searcher) Search(ctx context.Context, req Request) (resp *Response, err error) {
	done := metrics.TimeSearch(endpointSearch)
	defer func() { done(err == nil) }()

	start := time.Now()
	req.normalize()
	if err := req.validate(true); err != nil {
		return nil, err
	}

	breakdowns, err := s.corpus.Breakdowns(ctx, req.TenantID, req.StyleType)
	if err != nil {
		s.logger.Error("error fetching corpus", "tenantID", req.TenantID, "styleType", req.StyleType, "err", err)
		return nil, err
	}
	if len(breakdowns) == 0 {
		return nil, fmt.Errorf("%w: no breakdowns for tenant %d and style type %q", ErrNoData, req.TenantID, req.StyleType)
	}

	resp, err = s.rank(ctx, endpointSearch, &req, breakdowns)
	if err != nil {
		return nil, err
	}

	if req.AllocationData {
		resp.Results, resp.AllocationData = s.enrichFromSource(ctx, resp.Results, req.NoOfAllocations)
	}

	resp.ProcessTime = time.Since(start).Seconds()
	return resp, nil
}

// SearchDataSource ranks the breakdowns carried by the request. A positive
// tenant id scopes the rows to that tenant; rows without a tenant always
// count. Allocation data, when asked for, comes from the request's
// allocation dataset.
func (s *Searcher) SearchDataSource(ctx context.Context, req DataSourceRequest) (resp *Response, err error) {
	done := metrics.TimeSearch(endpointDataSource)
	defer func() { done(err == nil) }()

	start := time.Now()
	req.normalize()
	if err := req.validate(false); err != nil {
		return nil, err
	}

	filter := corpus.Filter{StyleType: req.StyleType}
	if req.TenantID > 0 {
		filter.TenantIDs = []int64{req.TenantID}
	}
	breakdowns := corpus.FilterAndGroup(req.OBDatasource, filter)
	if len(breakdowns) == 0 {
		err := fmt.Errorf("%w: no breakdowns of style type %q in datasource", ErrNoData, req.StyleType)
		tenantRows := corpus.Filter{TenantIDs: filter.TenantIDs}.Apply(req.OBDatasource)
		if closest, ok := corpus.ClosestStyleType(tenantRows, req.StyleType); ok {
			s.logger.Info("datasource has no rows of requested style type", "styleType", req.StyleType, "closest", closest)
			err = fmt.Errorf("%w (did you mean %q?)", err, closest)
		}
		return nil, err
	}

	resp, err = s.rank(ctx, endpointDataSource, &req.Request, breakdowns)
	if err != nil {
		return nil, err
	}

	if req.AllocationData {
		allocations := enrich.Filter(req.AllocationDatasource, enrich.LayoutIDs(resp.Results))
		resp.Results = enrich.Enrich(resp.Results, allocations, req.NoOfAllocations)
		resp.AllocationData = true
	}

	resp.ProcessTime = time.Since(start).Seconds()
	return resp, nil
}

// StyleTypes returns the style types a tenant has breakdowns for.
func (s *Searcher) StyleTypes(ctx context.Context, tenantID int64) ([]string, error) {
	if tenantID <= 0 {
		return nil, fmt.Errorf("%w: tenant_id must be positive", ErrInvalidRequest)
	}
	styles, err := s.corpus.StyleTypes(ctx, tenantID)
	if err != nil {
		s.logger.Error("error fetching style types", "tenantID", tenantID, "err", err)
		return nil, err
	}
	if len(styles) == 0 {
		return nil, fmt.Errorf("%w: no style types for tenant %d", ErrNoData, tenantID)
	}
	return styles, nil
}

// Breakdowns returns the grouped corpus a search with the same tenant and
// style type would rank.
func (s *Searcher) Breakdowns(ctx context.Context, tenantID int64, styleType string) ([]core.Breakdown, error) {
	if tenantID <= 0 {
		return nil, fmt.Errorf("%w: tenant_id must be positive", ErrInvalidRequest)
	}
	breakdowns, err := s.corpus.Breakdowns(ctx, tenantID, styleType)
	if err != nil {
		s.logger.Error("error fetching corpus", "tenantID", tenantID, "styleType", styleType, "err", err)
		return nil, err
	}
	if len(breakdowns) == 0 {
		return nil, fmt.Errorf("%w: no breakdowns for tenant %d and style type %q", ErrNoData, tenantID, styleType)
	}
	return breakdowns, nil
}

// BreakdownByLayoutCode returns one stored breakdown.
func (s *Searcher) BreakdownByLayoutCode(ctx context.Context, tenantID int64, layoutCode string) (*core.Breakdown, error) {
	if tenantID <= 0 || layoutCode == "" {
		return nil, fmt.Errorf("%w: tenant_id and layout_code are required", ErrInvalidRequest)
	}
	b, err := s.corpus.BreakdownByLayoutCode(ctx, tenantID, layoutCode)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: layout %q not found for tenant %d", ErrNoData, layoutCode, tenantID)
	}
	return b, err
}

// rank runs one ranking pass and trims it to the requested size.
func (s *Searcher) rank(ctx context.Context, endpoint string, req *Request, breakdowns []core.Breakdown) (*Response, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	query := core.Normalize(req.OperationData)
	result, err := s.ranker.RankWithMonitor(ctx, query, breakdowns, newMetricsMonitor(endpoint, s.monitor))
	if err != nil {
		s.logger.Error("error ranking corpus", "corpusSize", len(breakdowns), "err", err)
		return nil, err
	}

	top := ranking.TopK(result.Results, req.NoOfResults)
	s.logger.Debug("search ranked",
		"endpoint", endpoint,
		"corpusSize", len(breakdowns),
		"scored", len(result.Results),
		"skipped", len(result.Skipped),
		"returned", len(top))

	resp := &Response{
		Message:     SuccessMessage,
		TotalObs:    len(result.Results),
		NoOfResults: len(top),
		Results:     top,
	}
	if len(result.Skipped) > 0 {
		resp.Skipped = result.SkippedIDs()
	}
	return resp, nil
}

// enrichFromSource attaches stored allocations. On failure it returns the
// results untouched and false.
func (s *Searcher) enrichFromSource(ctx context.Context, results []core.SimilarityResult, n int) ([]core.SimilarityResult, bool) {
	if s.allocations == nil {
		s.logger.Warn("allocation data requested but no allocation source is configured")
		metrics.Default().IncAllocationLookup(false)
		return results, false
	}

	allocations, err := s.allocations.Allocations(ctx, enrich.LayoutIDs(results))
	if err != nil {
		s.logger.Warn("error fetching allocations, returning results without them", "err", err)
		metrics.Default().IncAllocationLookup(false)
		return results, false
	}
	metrics.Default().IncAllocationLookup(true)
	return enrich.Enrich(results, allocations, n), true
}
