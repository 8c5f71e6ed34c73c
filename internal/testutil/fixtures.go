package testutil

import (
	"path/filepath"
	"testing"

	"github.com/whitphx/tlanislide/internal/ir"
	"github.com/whitphx/tlanislide/internal/store"
)

// OpenStore opens a store in t.TempDir() and closes it on cleanup.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Cue builds a cue whose payload records its id, so payload round trips
// are easy to assert.
func Cue(id, track string, index int64) ir.Cue {
	return ir.Cue{
		ID:          id,
		TrackID:     track,
		GlobalIndex: index,
		Data:        ir.NewObject(ir.O("label", ir.String(id))),
	}
}

// Timeline builds a timeline from cues.
func Timeline(id string, cues ...ir.Cue) *ir.Timeline {
	return &ir.Timeline{ID: id, Title: id, Cues: cues}
}
