package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whitphx/tlanislide/internal/ir"
)

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("test.cue"))
	require.NoError(t, v.Err())
	return v
}

func TestCompileTimeline_Basic(t *testing.T) {
	v := compileString(t, `
timeline: intro: {
	title: "Intro"
	tracks: {
		circle: [
			{id: "k1", index: 0, data: {duration: 500, label: "in"}},
			{id: "k2", index: 2},
		]
		camera: [{id: "c1", index: 2}]
	}
}
`)

	tl, err := CompileTimeline(v.LookupPath(cue.ParsePath("timeline.intro")))
	require.NoError(t, err)

	assert.Equal(t, "intro", tl.ID)
	assert.Equal(t, "Intro", tl.Title)
	require.Len(t, tl.Cues, 3)

	assert.Equal(t, ir.Cue{
		ID:          "k1",
		TrackID:     "circle",
		GlobalIndex: 0,
		Data:        ir.Object{"duration": ir.Int(500), "label": ir.String("in")},
	}, tl.Cues[0])
	assert.Equal(t, "k2", tl.Cues[1].ID)
	assert.Equal(t, int64(2), tl.Cues[1].GlobalIndex)
	assert.Equal(t, ir.Object{}, tl.Cues[1].Data)
	assert.Equal(t, "camera", tl.Cues[2].TrackID)

	assert.Equal(t, []string{"circle", "camera"}, tl.Tracks())
}

func TestCompileTimeline_IndexDefaultsToListPosition(t *testing.T) {
	v := compileString(t, `
timeline: t: tracks: {
	a: [{id: "a0"}, {id: "a1"}, {id: "a2", index: 7}]
	b: [{id: "b0"}]
}
`)
	tl, err := CompileTimeline(v.LookupPath(cue.ParsePath("timeline.t")))
	require.NoError(t, err)

	got := map[string]int64{}
	for _, c := range tl.Cues {
		got[c.ID] = c.GlobalIndex
	}
	assert.Equal(t, map[string]int64{"a0": 0, "a1": 1, "a2": 7, "b0": 0}, got)
}

func TestCompileTimeline_QuotedLabel(t *testing.T) {
	v := compileString(t, `timeline: "intro-2": tracks: a: [{id: "x"}]`)
	tl, err := CompileTimeline(v.LookupPath(cue.ParsePath(`timeline."intro-2"`)))
	require.NoError(t, err)
	assert.Equal(t, "intro-2", tl.ID)
}

func TestCompileTimeline_NestedPayload(t *testing.T) {
	v := compileString(t, `
timeline: t: tracks: a: [{
	id: "k1"
	data: {
		easing: "linear"
		loop: true
		points: [1, 2, 3]
		target: {shape: "s1", props: {x: 10}}
	}
}]
`)
	tl, err := CompileTimeline(v.LookupPath(cue.ParsePath("timeline.t")))
	require.NoError(t, err)
	require.Len(t, tl.Cues, 1)

	assert.Equal(t, ir.Object{
		"easing": ir.String("linear"),
		"loop":   ir.Bool(true),
		"points": ir.Array{ir.Int(1), ir.Int(2), ir.Int(3)},
		"target": ir.Object{
			"shape": ir.String("s1"),
			"props": ir.Object{"x": ir.Int(10)},
		},
	}, tl.Cues[0].Data)
}

func TestCompileTimeline_FloatForbidden(t *testing.T) {
	v := compileString(t, `timeline: t: tracks: a: [{id: "k1", data: {duration: 0.5}}]`)
	_, err := CompileTimeline(v.LookupPath(cue.ParsePath("timeline.t")))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "tracks.a[0].data.duration", ce.Field)
	assert.Contains(t, ce.Message, "float")
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "test.cue:")
}

func TestCompileTimeline_FloatIndexForbidden(t *testing.T) {
	v := compileString(t, `timeline: t: tracks: a: [{id: "k1", index: 1.5}]`)
	_, err := CompileTimeline(v.LookupPath(cue.ParsePath("timeline.t")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index must be an integer")
}

func TestCompileTimeline_NullForbidden(t *testing.T) {
	v := compileString(t, `timeline: t: tracks: a: [{id: "k1", data: {x: null}}]`)
	_, err := CompileTimeline(v.LookupPath(cue.ParsePath("timeline.t")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null values are forbidden")
}

func TestCompileTimeline_MissingTracks(t *testing.T) {
	v := compileString(t, `timeline: t: title: "x"`)
	_, err := CompileTimeline(v.LookupPath(cue.ParsePath("timeline.t")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tracks is required")
}

func TestCompileTimeline_MissingCueID(t *testing.T) {
	v := compileString(t, `timeline: t: tracks: a: [{index: 0}]`)
	_, err := CompileTimeline(v.LookupPath(cue.ParsePath("timeline.t")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tracks.a[0].id")
}

func TestCompileTimeline_TrackNotList(t *testing.T) {
	v := compileString(t, `timeline: t: tracks: a: {id: "k1"}`)
	_, err := CompileTimeline(v.LookupPath(cue.ParsePath("timeline.t")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "track must be a list")
}

func TestCompileTimeline_Incomplete(t *testing.T) {
	v := compileString(t, `timeline: t: tracks: a: [{id: string}]`)
	_, err := CompileTimeline(v.LookupPath(cue.ParsePath("timeline.t")))
	require.Error(t, err)
}

func TestCompileTimelines_DeclarationOrder(t *testing.T) {
	v := compileString(t, `
timeline: second: tracks: a: [{id: "x"}]
timeline: first: tracks: a: [{id: "y"}]
`)
	tls, err := CompileTimelines(v)
	require.NoError(t, err)
	require.Len(t, tls, 2)
	assert.Equal(t, "second", tls[0].ID)
	assert.Equal(t, "first", tls[1].ID)
}

func TestCompileTimelines_NoTimelineField(t *testing.T) {
	v := compileString(t, `other: 1`)
	tls, err := CompileTimelines(v)
	require.NoError(t, err)
	assert.Empty(t, tls)
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "tracks", Message: "tracks is required"}
	assert.Equal(t, "tracks: tracks is required", err.Error())
}
