package store

import (
	"encoding/json"
	"fmt"

	"github.com/whitphx/tlanislide/internal/ir"
)

// marshalObject converts an Object to canonical JSON TEXT for storage.
// A nil object is stored as {}.
func marshalObject(obj ir.Object) (string, error) {
	if obj == nil {
		obj = ir.Object{}
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal object: %w", err)
	}
	return string(data), nil
}

// unmarshalObject parses canonical JSON TEXT to an Object.
// Uses ir.Object.UnmarshalJSON, which keeps integers exact via json.Number.
func unmarshalObject(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal object: %w", err)
	}
	return obj, nil
}

// marshalSnapshot encodes a cue list as canonical JSON, in list order.
func marshalSnapshot(cues []ir.Cue) (string, error) {
	arr := make(ir.Array, len(cues))
	for i, c := range cues {
		arr[i] = ir.CueObject(c)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return string(data), nil
}

// unmarshalSnapshot decodes a snapshot written by marshalSnapshot.
func unmarshalSnapshot(data string) ([]ir.Cue, error) {
	var cues []ir.Cue
	if err := json.Unmarshal([]byte(data), &cues); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if cues == nil {
		cues = []ir.Cue{}
	}
	return cues, nil
}
