// Package mock provides test double implementations of the storage source
// interfaces.
//
// The mocks serve a fixed in-memory corpus by default and accept function
// fields to inject custom behavior, such as failures:
//
//	corpus := mock.NewMockCorpusSource(breakdowns...)
//	allocations := mock.NewMockAllocationSource().
//	    WithAllocationsFunc(func(ctx context.Context, ids []int64) ([]core.AllocationRecord, error) {
//	        return nil, errors.New("down")
//	    })
package mock
