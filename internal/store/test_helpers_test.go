package store

import (
	"path/filepath"
	"testing"

	"github.com/whitphx/tlanislide/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// cue builds a cue with a small payload.
func cue(id, track string, index int64) ir.Cue {
	return ir.Cue{
		ID:          id,
		TrackID:     track,
		GlobalIndex: index,
		Data:        ir.NewObject(ir.O("label", ir.String(id))),
	}
}

// createTestRevision builds a revision whose hash matches its snapshot.
func createTestRevision(timelineID string, seq int64, op ir.Op, snapshot ...ir.Cue) ir.Revision {
	return ir.Revision{
		TimelineID: timelineID,
		Seq:        seq,
		Op:         op,
		Args:       ir.Object{},
		OrderHash:  ir.MustOrderHash(snapshot),
		Snapshot:   snapshot,
	}
}
