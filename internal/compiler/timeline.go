package compiler

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"

	"github.com/whitphx/tlanislide/internal/ir"
)

// CompileTimelines compiles every timeline under the top-level "timeline"
// field of a CUE document, in declaration order. It stops at the first
// error. A document without the field yields no timelines.
func CompileTimelines(root cue.Value) ([]*ir.Timeline, error) {
	if err := root.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	tlsVal := root.LookupPath(cue.ParsePath("timeline"))
	if !tlsVal.Exists() {
		return nil, nil
	}

	iter, err := tlsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var timelines []*ir.Timeline
	for iter.Next() {
		tl, err := CompileTimeline(iter.Value())
		if err != nil {
			return nil, err
		}
		timelines = append(timelines, tl)
	}
	return timelines, nil
}

// CompileTimeline parses a CUE value into a Timeline.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is one timeline struct; its id is the last path selector:
//
//	timeline: intro: {
//		title: "Intro"
//		tracks: {
//			circle: [{id: "k1", index: 0, data: {duration: 500}}, {id: "k2"}]
//			camera: [{id: "c1", index: 0}]
//		}
//	}
//
// Cues are emitted track by track in declaration order. A cue without an
// index takes its position in its track's list. Payload numbers must be
// integers.
func CompileTimeline(v cue.Value) (*ir.Timeline, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	tl := &ir.Timeline{Cues: []ir.Cue{}}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		tl.ID = unquoteLabel(labels[len(labels)-1].String())
	}

	titleVal := v.LookupPath(cue.ParsePath("title"))
	if titleVal.Exists() {
		title, err := titleVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		tl.Title = title
	}

	tracksVal := v.LookupPath(cue.ParsePath("tracks"))
	if !tracksVal.Exists() {
		return nil, &CompileError{
			Field:   "tracks",
			Message: "tracks is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := tracksVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		trackID := iter.Label()
		cues, err := parseTrack(trackID, iter.Value())
		if err != nil {
			return nil, err
		}
		tl.Cues = append(tl.Cues, cues...)
	}

	return tl, nil
}

// parseTrack extracts the cues of one track list.
func parseTrack(trackID string, v cue.Value) ([]ir.Cue, error) {
	list, err := v.List()
	if err != nil {
		return nil, &CompileError{
			Field:   "tracks." + trackID,
			Message: "track must be a list of cues",
			Pos:     v.Pos(),
		}
	}

	var cues []ir.Cue
	for pos := int64(0); list.Next(); pos++ {
		c, err := parseCue(trackID, pos, list.Value())
		if err != nil {
			return nil, err
		}
		cues = append(cues, c)
	}
	return cues, nil
}

// parseCue parses {id, index?, data?}.
func parseCue(trackID string, pos int64, v cue.Value) (ir.Cue, error) {
	field := fmt.Sprintf("tracks.%s[%d]", trackID, pos)

	idVal := v.LookupPath(cue.ParsePath("id"))
	if !idVal.Exists() {
		return ir.Cue{}, &CompileError{
			Field:   field + ".id",
			Message: "id is required",
			Pos:     v.Pos(),
		}
	}
	id, err := idVal.String()
	if err != nil {
		return ir.Cue{}, formatCUEError(err)
	}

	c := ir.Cue{ID: id, TrackID: trackID, GlobalIndex: pos, Data: ir.Object{}}

	indexVal := v.LookupPath(cue.ParsePath("index"))
	if indexVal.Exists() {
		if indexVal.Kind() != cue.IntKind {
			return ir.Cue{}, &CompileError{
				Field:   field + ".index",
				Message: fmt.Sprintf("index must be an integer, got %v", indexVal.Kind()),
				Pos:     indexVal.Pos(),
			}
		}
		index, err := indexVal.Int64()
		if err != nil {
			return ir.Cue{}, formatCUEError(err)
		}
		c.GlobalIndex = index
	}

	dataVal := v.LookupPath(cue.ParsePath("data"))
	if dataVal.Exists() {
		payload, err := payloadValue(field+".data", dataVal)
		if err != nil {
			return ir.Cue{}, err
		}
		obj, ok := payload.(ir.Object)
		if !ok {
			return ir.Cue{}, &CompileError{
				Field:   field + ".data",
				Message: "data must be a struct",
				Pos:     dataVal.Pos(),
			}
		}
		c.Data = obj
	}

	return c, nil
}

// payloadValue converts a concrete CUE value into an ir.Value.
// Floats are forbidden - use int instead.
func payloadValue(field string, v cue.Value) (ir.Value, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil

	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(n), nil

	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil

	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.Array{}
		for i := 0; iter.Next(); i++ {
			elem, err := payloadValue(fmt.Sprintf("%s[%d]", field, i), iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil

	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.Object{}
		for iter.Next() {
			elem, err := payloadValue(field+"."+iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil

	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float values are forbidden - use int instead",
			Pos:     v.Pos(),
		}

	case cue.NullKind:
		return nil, &CompileError{
			Field:   field,
			Message: "null values are forbidden in cue data",
			Pos:     v.Pos(),
		}

	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// unquoteLabel strips the quotes CUE keeps on labels that are not
// identifiers, such as "intro-2".
func unquoteLabel(label string) string {
	if s, err := strconv.Unquote(label); err == nil {
		return s
	}
	return label
}
