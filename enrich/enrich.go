// Package enrich attaches production-line allocations to ranked results.
package enrich

import (
	"cmp"
	"slices"

	"github.com/poiesic/obsim/core"
)

// LayoutIDs returns the distinct layout ids of results in result order.
// It scopes an allocation lookup to exactly the layouts being returned.
func LayoutIDs(results []core.SimilarityResult) []int64 {
	seen := make(map[int64]struct{}, len(results))
	ids := make([]int64, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.LayoutID]; ok {
			continue
		}
		seen[r.LayoutID] = struct{}{}
		ids = append(ids, r.LayoutID)
	}
	return ids
}

// GroupAllocations groups allocations by layout id. Within a group records
// are ordered by run efficiency descending with missing efficiencies last;
// equal efficiencies keep their input order.
func GroupAllocations(allocations []core.AllocationRecord) map[int64][]core.AllocationRecord {
	groups := make(map[int64][]core.AllocationRecord)
	for _, a := range allocations {
		groups[a.LayoutID] = append(groups[a.LayoutID], a)
	}
	for _, g := range groups {
		SortByEfficiency(g)
	}
	return groups
}

// SortByEfficiency orders allocations by run efficiency descending, nil last.
func SortByEfficiency(allocations []core.AllocationRecord) {
	slices.SortStableFunc(allocations, func(a, b core.AllocationRecord) int {
		switch {
		case a.RunEfficiency == nil && b.RunEfficiency == nil:
			return 0
		case a.RunEfficiency == nil:
			return 1
		case b.RunEfficiency == nil:
			return -1
		}
		return cmp.Compare(*b.RunEfficiency, *a.RunEfficiency)
	})
}

// Enrich returns a copy of results where each result carries at most n of
// its own layout's allocations, best run efficiency first. Results without
// allocations get an empty list. Input results are not modified.
func Enrich(results []core.SimilarityResult, allocations []core.AllocationRecord, n int) []core.SimilarityResult {
	groups := GroupAllocations(allocations)

	out := make([]core.SimilarityResult, len(results))
	for i, r := range results {
		group := groups[r.LayoutID]
		if n < len(group) {
			group = group[:max(n, 0)]
		}
		r.AllocationData = slices.Clone(group)
		if r.AllocationData == nil {
			r.AllocationData = []core.AllocationRecord{}
		}
		out[i] = r
	}
	return out
}

// Filter keeps only allocations belonging to one of layoutIDs. It applies
// the lookup scoping to a caller-supplied allocation dataset.
func Filter(allocations []core.AllocationRecord, layoutIDs []int64) []core.AllocationRecord {
	want := make(map[int64]struct{}, len(layoutIDs))
	for _, id := range layoutIDs {
		want[id] = struct{}{}
	}
	out := make([]core.AllocationRecord, 0, len(allocations))
	for _, a := range allocations {
		if _, ok := want[a.LayoutID]; ok {
			out = append(out, a)
		}
	}
	return out
}
