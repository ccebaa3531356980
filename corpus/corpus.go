// Package corpus reshapes flat operation rows into breakdowns.
package corpus

import (
	"slices"
	"strings"

	"github.com/xrash/smetrics"

	"github.com/poiesic/obsim/core"
)

// closestStyleThreshold is the Jaro-Winkler similarity a style type needs to
// be offered as a correction.
const closestStyleThreshold = 0.85

// GroupByBreakdown groups rows sharing a layout id into one Breakdown.
// Groups appear in the order their layout id is first seen and rows keep
// their relative order within a group. Every row lands in exactly one group.
// The layout code, style type and tenant of a group come from its first row.
func GroupByBreakdown(rows []core.FlatOperationRow) []core.Breakdown {
	index := make(map[int64]int)
	var groups []core.Breakdown

	for _, row := range rows {
		i, ok := index[row.LayoutID]
		if !ok {
			i = len(groups)
			index[row.LayoutID] = i
			groups = append(groups, core.Breakdown{
				LayoutID:   row.LayoutID,
				LayoutCode: row.LayoutCode,
				StyleType:  row.StyleType,
				TenantID:   row.TenantID,
			})
		}
		groups[i].Operations = append(groups[i].Operations, core.OperationStep{
			OperationName:  row.OperationName,
			MachineName:    row.MachineName,
			SequenceNumber: row.SequenceNumber,
		})
	}

	if groups == nil {
		return []core.Breakdown{}
	}
	return groups
}

// Flatten is the inverse of GroupByBreakdown.
func Flatten(breakdowns []core.Breakdown) []core.FlatOperationRow {
	var rows []core.FlatOperationRow
	for _, b := range breakdowns {
		for _, op := range b.Operations {
			rows = append(rows, core.FlatOperationRow{
				LayoutID:       b.LayoutID,
				LayoutCode:     b.LayoutCode,
				StyleType:      b.StyleType,
				TenantID:       b.TenantID,
				OperationName:  op.OperationName,
				MachineName:    op.MachineName,
				SequenceNumber: op.SequenceNumber,
			})
		}
	}
	return rows
}

// Filter selects rows by style type and tenant. A zero-valued criterion
// matches everything. Rows carrying no tenant match any tenant criterion.
type Filter struct {
	StyleType string
	TenantIDs []int64
}

// Match reports whether a row satisfies the filter. Style types compare
// after trimming surrounding whitespace.
func (f Filter) Match(row *core.FlatOperationRow) bool {
	if style := strings.TrimSpace(f.StyleType); style != "" {
		if strings.TrimSpace(row.StyleType) != style {
			return false
		}
	}
	if len(f.TenantIDs) > 0 && row.TenantID != 0 && !slices.Contains(f.TenantIDs, row.TenantID) {
		return false
	}
	return true
}

// Apply returns the rows matching the filter, preserving order.
func (f Filter) Apply(rows []core.FlatOperationRow) []core.FlatOperationRow {
	out := make([]core.FlatOperationRow, 0, len(rows))
	for i := range rows {
		if f.Match(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}

// FilterAndGroup applies f and groups the surviving rows.
func FilterAndGroup(rows []core.FlatOperationRow, f Filter) []core.Breakdown {
	return GroupByBreakdown(f.Apply(rows))
}

// StyleTypes returns the distinct trimmed style types in rows, sorted.
func StyleTypes(rows []core.FlatOperationRow) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		if st := strings.TrimSpace(row.StyleType); st != "" {
			seen[st] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for st := range seen {
		out = append(out, st)
	}
	slices.Sort(out)
	return out
}

// ClosestStyleType returns the style type in rows most similar to want,
// compared case-insensitively with Jaro-Winkler. It returns false when
// nothing is close enough.
func ClosestStyleType(rows []core.FlatOperationRow, want string) (string, bool) {
	want = strings.ToLower(strings.TrimSpace(want))
	if want == "" {
		return "", false
	}

	best, bestScore := "", 0.0
	for _, st := range StyleTypes(rows) {
		score := smetrics.JaroWinkler(want, strings.ToLower(st), 0.7, 4)
		if score > bestScore {
			best, bestScore = st, score
		}
	}
	if bestScore < closestStyleThreshold {
		return "", false
	}
	return best, true
}
