package storage

import (
	"context"

	"github.com/poiesic/obsim/core"
)

// CorpusSource provides the breakdowns a query is ranked against.
// Implementations must be safe for concurrent use.
type CorpusSource interface {
	// Breakdowns returns every breakdown of a tenant with the given style
	// type, each with its operations in sequence order. An empty result is
	// not an error.
	Breakdowns(ctx context.Context, tenantID int64, styleType string) ([]core.Breakdown, error)

	// StyleTypes returns the distinct style types a tenant has breakdowns for.
	StyleTypes(ctx context.Context, tenantID int64) ([]string, error)

	// BreakdownByLayoutCode returns one breakdown by its layout code.
	// Returns ErrNotFound if no such layout exists for the tenant.
	BreakdownByLayoutCode(ctx context.Context, tenantID int64, layoutCode string) (*core.Breakdown, error)
}

// AllocationSource provides production-line allocations.
type AllocationSource interface {
	// Allocations returns all allocations whose layout id is in layoutIDs.
	// Order is unspecified.
	Allocations(ctx context.Context, layoutIDs []int64) ([]core.AllocationRecord, error)
}

// CorpusStore is a writable corpus and allocation store.
type CorpusStore interface {
	CorpusSource
	AllocationSource

	// PutBreakdowns inserts or replaces breakdowns keyed by tenant and layout id.
	PutBreakdowns(ctx context.Context, breakdowns ...core.Breakdown) error

	// PutAllocations inserts or replaces allocations keyed by layout and allocation id.
	PutAllocations(ctx context.Context, allocations ...core.AllocationRecord) error

	// DeleteBreakdowns removes breakdowns and their indexes.
	// Returns ErrNotFound if any breakdown doesn't exist.
	DeleteBreakdowns(ctx context.Context, tenantID int64, layoutIDs ...int64) error

	// Close releases resources held by the store.
	Close() error
}

// ImportRepository records completed imports so unchanged sources can be
// skipped.
type ImportRepository interface {
	// SaveImport persists the record for its source, stamping UpdatedAt.
	SaveImport(ctx context.Context, record *core.ImportRecord) error

	// LoadImport returns the last record for source, or nil, nil if none.
	LoadImport(ctx context.Context, source string) (*core.ImportRecord, error)
}
