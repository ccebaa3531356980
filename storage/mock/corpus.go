package mock

import (
	"context"
	"slices"
	"strings"

	"github.com/poiesic/obsim/core"
	"github.com/poiesic/obsim/storage"
)

// MockCorpusSource is a test double for storage.CorpusSource.
type MockCorpusSource struct {
	// Data is the corpus served by the default behavior.
	Data []core.Breakdown

	// BreakdownsFunc is called by Breakdowns if set.
	BreakdownsFunc func(ctx context.Context, tenantID int64, styleType string) ([]core.Breakdown, error)

	// StyleTypesFunc is called by StyleTypes if set.
	StyleTypesFunc func(ctx context.Context, tenantID int64) ([]string, error)

	// BreakdownByLayoutCodeFunc is called by BreakdownByLayoutCode if set.
	BreakdownByLayoutCodeFunc func(ctx context.Context, tenantID int64, layoutCode string) (*core.Breakdown, error)

	callCount int
}

var _ storage.CorpusSource = (*MockCorpusSource)(nil)

// NewMockCorpusSource creates a mock serving the given breakdowns.
func NewMockCorpusSource(data ...core.Breakdown) *MockCorpusSource {
	return &MockCorpusSource{Data: data}
}

// WithBreakdownsFunc sets custom Breakdowns behavior.
func (m *MockCorpusSource) WithBreakdownsFunc(fn func(ctx context.Context, tenantID int64, styleType string) ([]core.Breakdown, error)) *MockCorpusSource {
	m.BreakdownsFunc = fn
	return m
}

// Breakdowns filters Data by tenant and trimmed style type.
func (m *MockCorpusSource) Breakdowns(ctx context.Context, tenantID int64, styleType string) ([]core.Breakdown, error) {
	m.callCount++

	if m.BreakdownsFunc != nil {
		return m.BreakdownsFunc(ctx, tenantID, styleType)
	}

	result := []core.Breakdown{}
	style := strings.TrimSpace(styleType)
	for _, b := range m.Data {
		if b.TenantID == tenantID && strings.TrimSpace(b.StyleType) == style {
			result = append(result, b)
		}
	}
	return result, nil
}

// StyleTypes returns the sorted distinct style types of a tenant in Data.
func (m *MockCorpusSource) StyleTypes(ctx context.Context, tenantID int64) ([]string, error) {
	m.callCount++

	if m.StyleTypesFunc != nil {
		return m.StyleTypesFunc(ctx, tenantID)
	}

	styles := []string{}
	for _, b := range m.Data {
		style := strings.TrimSpace(b.StyleType)
		if b.TenantID == tenantID && !slices.Contains(styles, style) {
			styles = append(styles, style)
		}
	}
	slices.Sort(styles)
	return styles, nil
}

// BreakdownByLayoutCode finds a breakdown in Data.
// Returns storage.ErrNotFound if absent.
func (m *MockCorpusSource) BreakdownByLayoutCode(ctx context.Context, tenantID int64, layoutCode string) (*core.Breakdown, error) {
	m.callCount++

	if m.BreakdownByLayoutCodeFunc != nil {
		return m.BreakdownByLayoutCodeFunc(ctx, tenantID, layoutCode)
	}

	for i := range m.Data {
		if m.Data[i].TenantID == tenantID && m.Data[i].LayoutCode == layoutCode {
			b := m.Data[i]
			return &b, nil
		}
	}
	return nil, storage.ErrNotFound
}

// CallCount returns the number of calls made to the mock.
func (m *MockCorpusSource) CallCount() int {
	return m.callCount
}

// ResetCallCount resets the call counter.
func (m *MockCorpusSource) ResetCallCount() {
	m.callCount = 0
}
