package badger

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/obsim/core"
	"github.com/poiesic/obsim/storage"
)

// CorpusRepository implements storage.CorpusStore for BadgerDB.
type CorpusRepository struct {
	backend *Backend
}

var _ storage.CorpusStore = (*CorpusRepository)(nil)

// NewCorpusRepository creates a new CorpusRepository.
func NewCorpusRepository(backend *Backend) (*CorpusRepository, error) {
	if backend == nil {
		return nil, storage.ErrStorageClosed
	}
	return &CorpusRepository{
		backend: backend,
	}, nil
}

// Close releases resources. The backend is owned by the caller.
func (r *CorpusRepository) Close() error {
	return nil
}

// PutBreakdowns inserts or replaces breakdowns and maintains the style and
// layout code indexes. Operations are stored in sequence order.
func (r *CorpusRepository) PutBreakdowns(ctx context.Context, breakdowns ...core.Breakdown) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for i := range breakdowns {
			b := breakdowns[i]
			b.StyleType = strings.TrimSpace(b.StyleType)
			b.Operations = slices.Clone(b.Operations)
			slices.SortStableFunc(b.Operations, func(x, y core.OperationStep) int {
				return cmp.Compare(x.SequenceNumber, y.SequenceNumber)
			})

			key := makeBreakdownKey(b.TenantID, b.LayoutID)
			old, err := readBreakdown(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				if err := deleteBreakdownIndexes(tx, old); err != nil {
					return err
				}
			}

			value, err := storage.MarshalBreakdown(&b)
			if err != nil {
				return err
			}
			if err := tx.Set(key, value); err != nil {
				return err
			}
			if err := tx.Set(makeStyleKey(b.TenantID, b.StyleType, b.LayoutID), nil); err != nil {
				return err
			}
			if b.LayoutCode != "" {
				if err := tx.Set(makeLayoutCodeKey(b.TenantID, b.LayoutCode), storage.MarshalID(b.LayoutID)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteBreakdowns removes breakdowns and their indexes.
func (r *CorpusRepository) DeleteBreakdowns(ctx context.Context, tenantID int64, layoutIDs ...int64) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range layoutIDs {
			key := makeBreakdownKey(tenantID, id)
			b, err := readBreakdown(tx, key)
			if err != nil {
				return err
			}
			if b == nil {
				return storage.ErrNotFound
			}
			if err := deleteBreakdownIndexes(tx, b); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Breakdowns returns a tenant's breakdowns of one style type, ordered by
// layout id.
func (r *CorpusRepository) Breakdowns(ctx context.Context, tenantID int64, styleType string) ([]core.Breakdown, error) {
	result := []core.Breakdown{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, makeStylePrefix(tenantID, styleType), true, func(key, _ []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, layoutID, ok := parseStyleKey(key)
			if !ok {
				return nil
			}
			b, err := readBreakdown(tx, makeBreakdownKey(tenantID, layoutID))
			if err != nil {
				return err
			}
			if b != nil {
				result = append(result, *b)
			}
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StyleTypes returns the sorted distinct style types of a tenant.
func (r *CorpusRepository) StyleTypes(ctx context.Context, tenantID int64) ([]string, error) {
	var styles []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, makeTenantStylePrefix(tenantID), true, func(key, _ []byte) error {
			style, _, ok := parseStyleKey(key)
			if !ok || style == "" {
				return nil
			}
			// keys are sorted, so duplicates are adjacent
			if n := len(styles); n == 0 || styles[n-1] != style {
				styles = append(styles, style)
			}
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	if styles == nil {
		styles = []string{}
	}
	return styles, nil
}

// BreakdownByLayoutCode looks up one breakdown through the layout code index.
func (r *CorpusRepository) BreakdownByLayoutCode(ctx context.Context, tenantID int64, layoutCode string) (*core.Breakdown, error) {
	var result *core.Breakdown
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeLayoutCodeKey(tenantID, layoutCode))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		var layoutID int64
		err = item.Value(func(val []byte) error {
			var err error
			layoutID, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return err
		}

		result, err = readBreakdown(tx, makeBreakdownKey(tenantID, layoutID))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// PutAllocations inserts or replaces allocations.
func (r *CorpusRepository) PutAllocations(ctx context.Context, allocations ...core.AllocationRecord) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for i := range allocations {
			a := &allocations[i]
			if err := core.ValidateAllocation(a); err != nil {
				return err
			}
			value, err := storage.MarshalAllocation(a)
			if err != nil {
				return err
			}
			if err := tx.Set(makeAllocationKey(a.LayoutID, a.AllocationID), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Allocations returns the allocations of the given layouts.
func (r *CorpusRepository) Allocations(ctx context.Context, layoutIDs []int64) ([]core.AllocationRecord, error) {
	result := []core.AllocationRecord{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range layoutIDs {
			err := scanPrefix(tx, makeLayoutAllocationPrefix(id), false, func(_, val []byte) error {
				a, err := storage.UnmarshalAllocation(val)
				if err != nil {
					return err
				}
				result = append(result, *a)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// readBreakdown reads a breakdown by key. Returns nil, nil if absent.
func readBreakdown(tx *badger.Txn, key []byte) (*core.Breakdown, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var b *core.Breakdown
	err = item.Value(func(val []byte) error {
		var err error
		b, err = storage.UnmarshalBreakdown(val)
		return err
	})
	return b, err
}

func deleteBreakdownIndexes(tx *badger.Txn, b *core.Breakdown) error {
	if err := tx.Delete(makeStyleKey(b.TenantID, b.StyleType, b.LayoutID)); err != nil {
		return err
	}
	if b.LayoutCode == "" {
		return nil
	}
	return tx.Delete(makeLayoutCodeKey(b.TenantID, b.LayoutCode))
}
