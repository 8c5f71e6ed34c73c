package engine

import (
	"fmt"

	"github.com/whitphx/tlanislide/internal/ir"
	"github.com/whitphx/tlanislide/internal/order"
)

// Revision args keys. Every mutating command is recorded as (op, args) and
// replayed from the same pair, so live execution and replay share applyOp.
const (
	argTarget    = "target"
	argDest      = "dest"
	argPlacement = "placement"
	argCue       = "cue"
	argTitle     = "title"
	argCount     = "count"
)

// applyOp derives the next snapshot from the current one.
//
// items must be the current dense snapshot. The result is reindexed and
// re-checked with order.ComputeOrder before it is returned, so a
// non-nil result is always a conflict-free timeline.
func applyOp(timelineID string, items []ir.Cue, op ir.Op, args ir.Object) ([]ir.Cue, error) {
	var next []ir.Cue
	var err error

	switch op {
	case ir.OpImport:
		next, err = order.Normalize(items)

	case ir.OpMove:
		next, err = applyMove(timelineID, items, args)

	case ir.OpInsert:
		next, err = applyInsert(items, args)

	case ir.OpRemove:
		next, err = applyRemove(timelineID, items, args)

	default:
		return nil, NewInvalidCommandError(timelineID, fmt.Sprintf("unknown op %q", op))
	}
	if err != nil {
		return nil, err
	}

	if _, err := order.ComputeOrder(next); err != nil {
		return nil, fmt.Errorf("verify %s result: %w", op, err)
	}
	return next, nil
}

func applyMove(timelineID string, items []ir.Cue, args ir.Object) ([]ir.Cue, error) {
	target, err := argString(timelineID, args, argTarget)
	if err != nil {
		return nil, err
	}
	dest, err := argInt(timelineID, args, argDest)
	if err != nil {
		return nil, err
	}
	raw, err := argString(timelineID, args, argPlacement)
	if err != nil {
		return nil, err
	}
	placement, err := ir.ParsePlacement(raw)
	if err != nil {
		return nil, NewInvalidCommandError(timelineID, err.Error())
	}
	if !containsCue(items, target) {
		return nil, NewUnknownCueError(timelineID, target)
	}
	return order.Move(items, target, int(dest), placement)
}

func applyInsert(items []ir.Cue, args ir.Object) ([]ir.Cue, error) {
	cueObj, ok := args[argCue].(ir.Object)
	if !ok {
		return nil, NewInvalidCommandError("", "insert: missing cue")
	}
	newCue, err := cueFromObject(cueObj)
	if err != nil {
		return nil, err
	}
	dest, err := argInt("", args, argDest)
	if err != nil {
		return nil, err
	}
	return order.Insert(items, newCue, int(dest))
}

func applyRemove(timelineID string, items []ir.Cue, args ir.Object) ([]ir.Cue, error) {
	target, err := argString(timelineID, args, argTarget)
	if err != nil {
		return nil, err
	}
	if !containsCue(items, target) {
		return nil, NewUnknownCueError(timelineID, target)
	}

	rest := make([]ir.Cue, 0, len(items)-1)
	for _, c := range items {
		if c.ID != target {
			rest = append(rest, c)
		}
	}
	return order.Normalize(rest)
}

// cueObject encodes a cue to insert. Its GlobalIndex is not recorded; the
// insert destination decides it.
func cueObject(c ir.Cue) ir.Object {
	data := c.Data
	if data == nil {
		data = ir.Object{}
	}
	return ir.NewObject(
		ir.O("id", ir.String(c.ID)),
		ir.O("track_id", ir.String(c.TrackID)),
		ir.O("data", data),
	)
}

func cueFromObject(obj ir.Object) (ir.Cue, error) {
	id, err := argString("", obj, "id")
	if err != nil {
		return ir.Cue{}, err
	}
	track, err := argString("", obj, "track_id")
	if err != nil {
		return ir.Cue{}, err
	}
	data, _ := obj["data"].(ir.Object)
	if data == nil {
		data = ir.Object{}
	}
	return ir.Cue{ID: id, TrackID: track, GlobalIndex: ir.SentinelIndex, Data: data}, nil
}

func argString(timelineID string, args ir.Object, key string) (string, error) {
	v, ok := args[key].(ir.String)
	if !ok {
		return "", NewInvalidCommandError(timelineID, fmt.Sprintf("missing string arg %q", key))
	}
	return string(v), nil
}

func argInt(timelineID string, args ir.Object, key string) (int64, error) {
	v, ok := args[key].(ir.Int)
	if !ok {
		return 0, NewInvalidCommandError(timelineID, fmt.Sprintf("missing int arg %q", key))
	}
	return int64(v), nil
}

func containsCue(items []ir.Cue, id string) bool {
	for _, c := range items {
		if c.ID == id {
			return true
		}
	}
	return false
}
