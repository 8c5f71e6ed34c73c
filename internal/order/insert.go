package order

import (
	"slices"

	"github.com/whitphx/tlanislide/internal/ir"
)

// Insert adds newItem as a new solitary group at position dest.
//
// The group currently at dest and everything after it shift one position
// later. dest is clamped to [0, len(groups)], so any dest past the end
// appends. newItem's own GlobalIndex is ignored and may be a placeholder
// such as ir.SentinelIndex. A solitary group cannot collide with any track,
// so no displacement is needed; an id already present in items is a
// CodeDuplicateID conflict.
func Insert[T any](items []ir.Item[T], newItem ir.Item[T], dest int) ([]ir.Item[T], error) {
	groups, err := ComputeOrder(items)
	if err != nil {
		return nil, err
	}
	if GroupIndexOf(groups, newItem.ID) >= 0 {
		return nil, newDuplicateIDError(newItem.ID)
	}

	dest = max(0, min(dest, len(groups)))
	groups = slices.Insert(groups, dest, ir.Group[T]{newItem})

	Reindex(groups)
	return Flatten(groups), nil
}
