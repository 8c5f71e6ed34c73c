package order

import (
	"fmt"
	"slices"

	"github.com/whitphx/tlanislide/internal/ir"
)

// Move relocates the cue targetID to destination group dest.
//
// With ir.PlacementAt the cue joins the group currently at dest. With
// ir.PlacementAfter it becomes a new solitary group right after that group.
// A dest of -1 (after) or len(groups) and beyond (either placement) address
// an empty phantom group before the first or after the last group, so the
// cue becomes a new initial or terminal group.
//
// Cues on the target's track that it slides past are pushed out into
// solitary groups: after the target when moving forward, before it when
// moving backward. A track's cues therefore keep their relative order, and
// the result never holds two same-track cues at one position.
//
// The input is returned unchanged (as a copy) when it has fewer than two
// cues, when targetID is unknown, or when placement is "at" and dest is the
// target's current group. Any *ConflictError raised while ordering the input
// is returned as is.
func Move[T any](items []ir.Item[T], targetID string, dest int, placement ir.Placement) ([]ir.Item[T], error) {
	if !placement.Valid() {
		return nil, fmt.Errorf("move %q: invalid placement %q", targetID, placement)
	}
	if len(items) < 2 {
		return slices.Clone(items), nil
	}

	groups, err := ComputeOrder(items)
	if err != nil {
		return nil, err
	}

	old := GroupIndexOf(groups, targetID)
	if old < 0 {
		return slices.Clone(items), nil
	}
	if placement == ir.PlacementAt && dest == old {
		return slices.Clone(items), nil
	}

	var target ir.Item[T]
	for _, item := range groups[old] {
		if item.ID == targetID {
			target = item
			break
		}
	}

	dest, placement = resolveDestination(dest, placement, len(groups))

	var moved []ir.Group[T]
	if old <= dest {
		moved = moveForward(groups, target, old, dest, placement)
	} else {
		moved = moveBackward(groups, target, old, dest, placement)
	}

	Reindex(moved)
	return Flatten(moved), nil
}

// resolveDestination maps out-of-range destinations onto the phantom empty
// groups at either end. Both become "after" placements: after -1 for the
// head, after n-1 for the tail.
func resolveDestination(dest int, placement ir.Placement, n int) (int, ir.Placement) {
	switch {
	case dest >= n:
		return n - 1, ir.PlacementAfter
	case dest < 0:
		return -1, ir.PlacementAfter
	default:
		return dest, placement
	}
}

// moveForward handles old <= dest.
//
//	groups[:old] | groups[old]-target | groups[old+1..dest]-track (+target if at)
//	| [target] if after | pushed... | groups[dest+1:]
func moveForward[T any](groups []ir.Group[T], target ir.Item[T], old, dest int, placement ir.Placement) []ir.Group[T] {
	out := make([]ir.Group[T], 0, len(groups)+dest-old+2)
	out = append(out, groups[:old]...)
	out = append(out, without(groups[old], target.ID))

	var pushed []ir.Item[T]
	for i := old + 1; i <= dest; i++ {
		kept, displaced := splitTrack(groups[i], target.TrackID)
		pushed = append(pushed, displaced...)
		out = append(out, kept)
	}

	if placement == ir.PlacementAt {
		last := len(out) - 1
		out[last] = append(out[last], target)
	} else {
		out = append(out, ir.Group[T]{target})
	}

	for _, item := range pushed {
		out = append(out, ir.Group[T]{item})
	}
	return append(out, groups[dest+1:]...)
}

// moveBackward handles dest < old. The traversed range is dest..old-1 for
// "at" and dest+1..old-1 for "after"; it is walked from its end toward the
// front, and the displaced cues are re-inserted in their original order in
// front of the target.
//
//	groups[:lo] | pushed... | [target] if after | groups[lo..old-1]-track
//	(+target into the first if at) | groups[old]-target | groups[old+1:]
func moveBackward[T any](groups []ir.Group[T], target ir.Item[T], old, dest int, placement ir.Placement) []ir.Group[T] {
	lo := dest + 1
	if placement == ir.PlacementAt {
		lo = dest
	}

	kept := make([]ir.Group[T], old-lo)
	var pushed []ir.Item[T]
	for i := old - 1; i >= lo; i-- {
		k, displaced := splitTrack(groups[i], target.TrackID)
		kept[i-lo] = k
		pushed = append(pushed, displaced...)
	}
	slices.Reverse(pushed)

	out := make([]ir.Group[T], 0, len(groups)+len(pushed)+1)
	out = append(out, groups[:lo]...)
	for _, item := range pushed {
		out = append(out, ir.Group[T]{item})
	}

	if placement == ir.PlacementAt {
		kept[0] = append(kept[0], target)
	} else {
		out = append(out, ir.Group[T]{target})
	}

	out = append(out, kept...)
	out = append(out, without(groups[old], target.ID))
	return append(out, groups[old+1:]...)
}

// without returns a copy of g minus the cue with the given id.
func without[T any](g ir.Group[T], id string) ir.Group[T] {
	out := make(ir.Group[T], 0, len(g))
	for _, item := range g {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}

// splitTrack separates the cues of trackID from the rest of g.
// Both results are fresh slices.
func splitTrack[T any](g ir.Group[T], trackID string) (kept ir.Group[T], displaced []ir.Item[T]) {
	kept = make(ir.Group[T], 0, len(g))
	for _, item := range g {
		if item.TrackID == trackID {
			displaced = append(displaced, item)
		} else {
			kept = append(kept, item)
		}
	}
	return kept, displaced
}
