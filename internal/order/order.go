package order

import (
	"github.com/whitphx/tlanislide/internal/ir"
)

// ComputeOrder turns a flat cue collection into its canonical sequence of
// groups.
//
// The input is not modified. For a fixed set of (id, track, index) triples
// the result has the same groups in the same order regardless of input
// order; inside a group, cues keep their relative input order.
//
// The steps are:
//  1. Stable sort by GlobalIndex
//  2. Reject duplicate ids and same-track cues sharing an index
//  3. Build the precedence relation (a before b iff a.GlobalIndex < b.GlobalIndex)
//  4. Topologically sort it with Kahn's algorithm
//  5. Cut the order into groups wherever GlobalIndex changes
//
// Any failure returns a *ConflictError and no groups.
func ComputeOrder[T any](items []ir.Item[T]) ([]ir.Group[T], error) {
	if len(items) == 0 {
		return []ir.Group[T]{}, nil
	}

	sorted := sortByIndex(items)

	if err := checkConflicts(sorted); err != nil {
		return nil, err
	}

	g := buildPrecedence(sorted)
	ranks, unresolved := g.topoSort()
	if unresolved != nil {
		ids := make([]string, len(unresolved))
		for i, r := range unresolved {
			ids[i] = sorted[r].ID
		}
		return nil, newUnresolvedError(ids)
	}

	var groups []ir.Group[T]
	for i, r := range ranks {
		item := sorted[r]
		if i == 0 || item.GlobalIndex != sorted[ranks[i-1]].GlobalIndex {
			groups = append(groups, ir.Group[T]{})
		}
		last := len(groups) - 1
		groups[last] = append(groups[last], item)
	}
	return groups, nil
}

// checkConflicts rejects duplicate ids anywhere and duplicate tracks inside
// a run of equal GlobalIndex. sorted must be ordered by GlobalIndex, so
// every same-track collision lies inside a single run.
func checkConflicts[T any](sorted []ir.Item[T]) error {
	seenIDs := make(map[string]struct{}, len(sorted))
	for _, item := range sorted {
		if _, dup := seenIDs[item.ID]; dup {
			return newDuplicateIDError(item.ID)
		}
		seenIDs[item.ID] = struct{}{}
	}

	for _, run := range equalIndexRuns(sorted) {
		occupant := make(map[string]string, run[1]-run[0])
		for _, item := range sorted[run[0]:run[1]] {
			if other, taken := occupant[item.TrackID]; taken {
				return newSamePositionError(item.TrackID, item.GlobalIndex, other, item.ID)
			}
			occupant[item.TrackID] = item.ID
		}
	}
	return nil
}

// Flatten concatenates groups in order. Empty groups contribute nothing.
func Flatten[T any](groups []ir.Group[T]) []ir.Item[T] {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	out := make([]ir.Item[T], 0, n)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Normalize derives the canonical order of items and returns them flattened
// with dense GlobalIndex values. Sparse or provisional indices are replaced
// by group ranks.
func Normalize[T any](items []ir.Item[T]) ([]ir.Item[T], error) {
	groups, err := ComputeOrder(items)
	if err != nil {
		return nil, err
	}
	Reindex(groups)
	return Flatten(groups), nil
}

// GroupIndexOf returns the index of the group holding id, or -1.
func GroupIndexOf[T any](groups []ir.Group[T], id string) int {
	for i, g := range groups {
		if g.Contains(id) {
			return i
		}
	}
	return -1
}
