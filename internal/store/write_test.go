package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whitphx/tlanislide/internal/ir"
)

func TestCreateTimeline(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	snapshot := []ir.Cue{cue("k1", "A", 0), cue("b1", "B", 0), cue("k2", "A", 1)}
	err := s.CreateTimeline(ctx, ir.Timeline{ID: "intro", Title: "Intro"},
		createTestRevision("", 1, ir.OpImport, snapshot...))
	require.NoError(t, err)

	tl, err := s.ReadTimeline(ctx, "intro")
	require.NoError(t, err)
	assert.Equal(t, "Intro", tl.Title)
	assert.Len(t, tl.Cues, 3)

	revs, err := s.ReadRevisions(ctx, "intro")
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, "intro", revs[0].TimelineID)
	assert.Equal(t, ir.OpImport, revs[0].Op)
}

func TestCreateTimeline_DuplicateID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTimeline(ctx, ir.Timeline{ID: "intro"}, createTestRevision("", 1, ir.OpImport)))

	err := s.CreateTimeline(ctx, ir.Timeline{ID: "intro"}, createTestRevision("", 2, ir.OpImport))
	require.ErrorIs(t, err, ErrTimelineExists)
}

func TestCreateTimeline_RollsBackOnBadSnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Two cues of track A at index 0 violate the cues UNIQUE constraint.
	bad := createTestRevision("", 1, ir.OpImport, cue("k1", "A", 0), cue("k2", "A", 0))
	err := s.CreateTimeline(ctx, ir.Timeline{ID: "intro"}, bad)
	require.Error(t, err)

	_, err = s.ReadTimeline(ctx, "intro")
	assert.ErrorIs(t, err, ErrTimelineNotFound)
}

func TestCommitRevision_ReplacesSnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTimeline(ctx, ir.Timeline{ID: "intro"},
		createTestRevision("", 1, ir.OpImport, cue("k1", "A", 0), cue("k2", "A", 1))))

	next := createTestRevision("intro", 2, ir.OpMove, cue("k2", "A", 0), cue("k1", "A", 1))
	next.Args = ir.NewObject(ir.O("target", ir.String("k2")), ir.O("dest", ir.Int(0)))
	require.NoError(t, s.CommitRevision(ctx, next))

	cues, err := s.ReadCues(ctx, "intro")
	require.NoError(t, err)
	require.Len(t, cues, 2)
	assert.Equal(t, "k2", cues[0].ID)
	assert.Equal(t, "k1", cues[1].ID)

	revs, err := s.ReadRevisions(ctx, "intro")
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, next.Args, revs[1].Args)
	assert.Equal(t, next.OrderHash, revs[1].OrderHash)
}

func TestCommitRevision_UnknownTimeline(t *testing.T) {
	s := createTestStore(t)

	err := s.CommitRevision(context.Background(), createTestRevision("ghost", 1, ir.OpMove))
	require.ErrorIs(t, err, ErrTimelineNotFound)
}

func TestCommitRevision_DuplicateSeqLeavesStoreUnchanged(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTimeline(ctx, ir.Timeline{ID: "intro"},
		createTestRevision("", 1, ir.OpImport, cue("k1", "A", 0))))

	err := s.CommitRevision(ctx, createTestRevision("intro", 1, ir.OpRemove))
	require.ErrorIs(t, err, ErrRevisionExists)

	cues, err := s.ReadCues(ctx, "intro")
	require.NoError(t, err)
	assert.Len(t, cues, 1)
}

func TestCommitRevision_EmptySnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTimeline(ctx, ir.Timeline{ID: "intro"},
		createTestRevision("", 1, ir.OpImport, cue("k1", "A", 0))))
	require.NoError(t, s.CommitRevision(ctx, createTestRevision("intro", 2, ir.OpRemove)))

	cues, err := s.ReadCues(ctx, "intro")
	require.NoError(t, err)
	assert.NotNil(t, cues)
	assert.Empty(t, cues)

	revs, err := s.ReadRevisions(ctx, "intro")
	require.NoError(t, err)
	assert.Empty(t, revs[1].Snapshot)
}
