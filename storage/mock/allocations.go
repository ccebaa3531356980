package mock

import (
	"context"
	"slices"

	"github.com/poiesic/obsim/core"
	"github.com/poiesic/obsim/storage"
)

// MockAllocationSource is a test double for storage.AllocationSource.
type MockAllocationSource struct {
	// Data is the allocation table served by the default behavior.
	Data []core.AllocationRecord

	// AllocationsFunc is called by Allocations if set.
	AllocationsFunc func(ctx context.Context, layoutIDs []int64) ([]core.AllocationRecord, error)

	callCount int
}

var _ storage.AllocationSource = (*MockAllocationSource)(nil)

// NewMockAllocationSource creates a mock serving the given allocations.
func NewMockAllocationSource(data ...core.AllocationRecord) *MockAllocationSource {
	return &MockAllocationSource{Data: data}
}

// WithAllocationsFunc sets custom Allocations behavior.
func (m *MockAllocationSource) WithAllocationsFunc(fn func(ctx context.Context, layoutIDs []int64) ([]core.AllocationRecord, error)) *MockAllocationSource {
	m.AllocationsFunc = fn
	return m
}

// Allocations returns the records of Data whose layout id is requested.
func (m *MockAllocationSource) Allocations(ctx context.Context, layoutIDs []int64) ([]core.AllocationRecord, error) {
	m.callCount++

	if m.AllocationsFunc != nil {
		return m.AllocationsFunc(ctx, layoutIDs)
	}

	result := []core.AllocationRecord{}
	for _, a := range m.Data {
		if slices.Contains(layoutIDs, a.LayoutID) {
			result = append(result, a)
		}
	}
	return result, nil
}

// CallCount returns the number of calls made to the mock.
func (m *MockAllocationSource) CallCount() int {
	return m.callCount
}
