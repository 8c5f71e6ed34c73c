package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whitphx/tlanislide/internal/ir"
	"github.com/whitphx/tlanislide/internal/order"
	"github.com/whitphx/tlanislide/internal/store"
	"github.com/whitphx/tlanislide/internal/testutil"
)

// startEngine runs an engine with deterministic clock and ids until the
// test ends.
func startEngine(t *testing.T, s *store.Store, opts ...EngineOption) *Engine {
	t.Helper()
	defaults := []EngineOption{
		WithClock(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequentialIDGenerator("new")),
	}
	e := New(s, append(defaults, opts...)...)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	t.Cleanup(func() {
		e.Stop()
		require.NoError(t, <-done)
	})
	return e
}

func submit(t *testing.T, e *Engine, cmd Command) Outcome {
	t.Helper()
	out, err := e.Submit(context.Background(), cmd)
	require.NoError(t, err)
	return out
}

func importCues(t *testing.T, e *Engine, id string, cues ...ir.Cue) Outcome {
	t.Helper()
	return submit(t, e, Command{Op: ir.OpImport, Timeline: testutil.Timeline(id, cues...)})
}

func groupIDs(groups []ir.CueGroup) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		out[i] = g.IDs()
	}
	return out
}

func TestEngine_ImportNormalizesIndices(t *testing.T) {
	s := testutil.OpenStore(t)
	e := startEngine(t, s)

	out := importCues(t, e, "intro",
		testutil.Cue("k2", "A", 40),
		testutil.Cue("k1", "A", 10),
		testutil.Cue("b1", "B", 10),
	)
	assert.True(t, out.Changed)
	assert.Equal(t, int64(1), out.Seq)
	assert.Equal(t, [][]string{{"k1", "b1"}, {"k2"}}, groupIDs(out.Groups))

	cues, err := s.ReadCues(context.Background(), "intro")
	require.NoError(t, err)
	assert.Equal(t, out.Cues, cues)
	assert.Equal(t, int64(1), cues[2].GlobalIndex)
}

func TestEngine_ImportConflictRejected(t *testing.T) {
	s := testutil.OpenStore(t)
	e := startEngine(t, s)

	_, err := e.Submit(context.Background(), Command{
		Op:       ir.OpImport,
		Timeline: testutil.Timeline("intro", testutil.Cue("k1", "A", 2), testutil.Cue("k2", "A", 2)),
	})
	require.Error(t, err)
	assert.True(t, order.IsConflict(err))

	_, err = s.ReadTimeline(context.Background(), "intro")
	assert.ErrorIs(t, err, store.ErrTimelineNotFound)
}

func TestEngine_ImportDuplicateTimeline(t *testing.T) {
	e := startEngine(t, testutil.OpenStore(t))
	importCues(t, e, "intro", testutil.Cue("k1", "A", 0))

	_, err := e.Submit(context.Background(), Command{Op: ir.OpImport, Timeline: testutil.Timeline("intro")})
	assert.ErrorIs(t, err, store.ErrTimelineExists)
}

func TestEngine_ImportRequiresIdentity(t *testing.T) {
	e := startEngine(t, testutil.OpenStore(t))

	_, err := e.Submit(context.Background(), Command{Op: ir.OpImport})
	assert.Error(t, err)

	_, err = e.Submit(context.Background(), Command{
		Op:       ir.OpImport,
		Timeline: testutil.Timeline("intro", testutil.Cue("k1", "", 0)),
	})
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeInvalidCommand, re.Code)
}

func TestEngine_Order(t *testing.T) {
	e := startEngine(t, testutil.OpenStore(t))
	imported := importCues(t, e, "intro", testutil.Cue("k1", "A", 0), testutil.Cue("b1", "B", 1))

	out := submit(t, e, Command{Op: OpOrder, TimelineID: "intro"})
	assert.False(t, out.Changed)
	assert.Zero(t, out.Seq)
	assert.Equal(t, imported.OrderHash, out.OrderHash)
	assert.Equal(t, [][]string{{"k1"}, {"b1"}}, groupIDs(out.Groups))
}

func TestEngine_UnknownTimeline(t *testing.T) {
	e := startEngine(t, testutil.OpenStore(t))

	_, err := e.Submit(context.Background(), Command{Op: OpOrder, TimelineID: "ghost"})
	assert.ErrorIs(t, err, store.ErrTimelineNotFound)

	_, err = e.Submit(context.Background(), Command{Op: ir.OpMove, TimelineID: "ghost", Target: "k1"})
	assert.ErrorIs(t, err, store.ErrTimelineNotFound)
}

func TestEngine_MoveCommitsRevision(t *testing.T) {
	s := testutil.OpenStore(t)
	e := startEngine(t, s)
	importCues(t, e, "intro", testutil.Cue("a1", "A", 0), testutil.Cue("b1", "B", 1))

	out := submit(t, e, Command{Op: ir.OpMove, TimelineID: "intro", Target: "b1", Dest: 0})
	assert.True(t, out.Changed)
	assert.Equal(t, int64(2), out.Seq)
	assert.Equal(t, [][]string{{"a1", "b1"}}, groupIDs(out.Groups))

	revs, err := s.ReadRevisions(context.Background(), "intro")
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, ir.OpMove, revs[1].Op)
	assert.Equal(t, ir.String("at"), revs[1].Args[argPlacement])
	assert.Equal(t, out.OrderHash, revs[1].OrderHash)
}

func TestEngine_MoveWithinTrackIsNoop(t *testing.T) {
	s := testutil.OpenStore(t)
	e := startEngine(t, s)
	imported := importCues(t, e, "intro",
		testutil.Cue("k1", "A", 0), testutil.Cue("k2", "A", 1), testutil.Cue("k3", "A", 2))

	// Sliding along a single track pushes the others ahead of the target,
	// so the track order cannot change.
	out := submit(t, e, Command{Op: ir.OpMove, TimelineID: "intro", Target: "k3", Dest: 0})
	assert.False(t, out.Changed)
	assert.Zero(t, out.Seq)
	assert.Equal(t, imported.OrderHash, out.OrderHash)

	revs, err := s.ReadRevisions(context.Background(), "intro")
	require.NoError(t, err)
	assert.Len(t, revs, 1)
}

func TestEngine_MoveAfterCreatesGroup(t *testing.T) {
	e := startEngine(t, testutil.OpenStore(t))
	importCues(t, e, "intro",
		testutil.Cue("a1", "A", 0), testutil.Cue("b1", "B", 0), testutil.Cue("a2", "A", 1))

	out := submit(t, e, Command{
		Op: ir.OpMove, TimelineID: "intro", Target: "b1", Dest: 1, Placement: ir.PlacementAfter,
	})
	assert.Equal(t, [][]string{{"a1"}, {"a2"}, {"b1"}}, groupIDs(out.Groups))
}

func TestEngine_MoveUnknownCue(t *testing.T) {
	e := startEngine(t, testutil.OpenStore(t))
	importCues(t, e, "intro", testutil.Cue("k1", "A", 0), testutil.Cue("k2", "A", 1))

	_, err := e.Submit(context.Background(), Command{Op: ir.OpMove, TimelineID: "intro", Target: "zz"})
	assert.True(t, IsUnknownCueError(err))
}

func TestEngine_InsertGeneratesID(t *testing.T) {
	s := testutil.OpenStore(t)
	e := startEngine(t, s)
	importCues(t, e, "intro", testutil.Cue("k1", "A", 0), testutil.Cue("k2", "A", 1))

	out := submit(t, e, Command{
		Op: ir.OpInsert, TimelineID: "intro", Dest: 1,
		Cue: ir.Cue{TrackID: "A", Data: ir.NewObject(ir.O("duration", ir.Int(250)))},
	})
	assert.Equal(t, "new-1", out.CueID)
	assert.Equal(t, [][]string{{"k1"}, {"new-1"}, {"k2"}}, groupIDs(out.Groups))

	tl, err := s.ReadTimeline(context.Background(), "intro")
	require.NoError(t, err)
	assert.Len(t, tl.Cues, 3)
}

func TestEngine_InsertKeepsGivenID(t *testing.T) {
	e := startEngine(t, testutil.OpenStore(t))
	importCues(t, e, "intro", testutil.Cue("k1", "A", 0))

	out := submit(t, e, Command{Op: ir.OpInsert, TimelineID: "intro", Dest: 99, Cue: testutil.Cue("tail", "B", 0)})
	assert.Equal(t, "tail", out.CueID)
	assert.Equal(t, [][]string{{"k1"}, {"tail"}}, groupIDs(out.Groups))

	_, err := e.Submit(context.Background(), Command{Op: ir.OpInsert, TimelineID: "intro", Cue: testutil.Cue("tail", "C", 0)})
	assert.True(t, order.IsConflict(err))
}

func TestEngine_InsertRequiresTrack(t *testing.T) {
	e := startEngine(t, testutil.OpenStore(t))
	importCues(t, e, "intro", testutil.Cue("k1", "A", 0))

	_, err := e.Submit(context.Background(), Command{Op: ir.OpInsert, TimelineID: "intro"})
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeInvalidCommand, re.Code)
}

func TestEngine_MaxCuesOption(t *testing.T) {
	s := testutil.OpenStore(t)
	assert.Equal(t, DefaultMaxCues, New(s).quota.MaxCues())
	assert.Equal(t, 2, New(s, WithMaxCues(2)).quota.MaxCues())
	assert.Equal(t, 0, New(s, WithMaxCues(0)).quota.MaxCues())
}

func TestEngine_QuotaExceeded(t *testing.T) {
	e := startEngine(t, testutil.OpenStore(t), WithMaxCues(2))
	importCues(t, e, "intro", testutil.Cue("k1", "A", 0), testutil.Cue("k2", "A", 1))

	_, err := e.Submit(context.Background(), Command{Op: ir.OpInsert, TimelineID: "intro", Cue: ir.Cue{TrackID: "A"}})
	assert.True(t, IsQuotaError(err))

	_, err = e.Submit(context.Background(), Command{
		Op:       ir.OpImport,
		Timeline: testutil.Timeline("big", testutil.Cue("a", "A", 0), testutil.Cue("b", "A", 1), testutil.Cue("c", "A", 2)),
	})
	assert.True(t, IsQuotaError(err))
}

func TestEngine_RemoveReindexes(t *testing.T) {
	s := testutil.OpenStore(t)
	e := startEngine(t, s)
	importCues(t, e, "intro",
		testutil.Cue("k1", "A", 0), testutil.Cue("k2", "A", 1), testutil.Cue("b1", "B", 2))

	out := submit(t, e, Command{Op: ir.OpRemove, TimelineID: "intro", Target: "k2"})
	assert.True(t, out.Changed)
	assert.Equal(t, [][]string{{"k1"}, {"b1"}}, groupIDs(out.Groups))

	cues, err := s.ReadCues(context.Background(), "intro")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cues[1].GlobalIndex)

	_, err = e.Submit(context.Background(), Command{Op: ir.OpRemove, TimelineID: "intro", Target: "k2"})
	assert.True(t, IsUnknownCueError(err))
}

func TestEngine_UnknownOp(t *testing.T) {
	e := startEngine(t, testutil.OpenStore(t))

	_, err := e.Submit(context.Background(), Command{Op: ir.Op("shuffle")})
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeInvalidCommand, re.Code)
}

func TestEngine_ConcurrentSubmitsSerialize(t *testing.T) {
	s := testutil.OpenStore(t)
	e := startEngine(t, s)
	importCues(t, e, "intro", testutil.Cue("k1", "A", 0))

	const writers = 20
	var wg sync.WaitGroup
	seqs := make(chan int64, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := e.Submit(context.Background(), Command{
				Op: ir.OpInsert, TimelineID: "intro", Dest: i,
				Cue: ir.Cue{TrackID: fmt.Sprintf("T%d", i%3)},
			})
			assert.NoError(t, err)
			seqs <- out.Seq
		}(i)
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for seq := range seqs {
		assert.False(t, seen[seq], "seq %d committed twice", seq)
		seen[seq] = true
	}
	assert.Len(t, seen, writers)

	out := submit(t, e, Command{Op: OpOrder, TimelineID: "intro"})
	assert.Len(t, out.Cues, writers+1)
	assert.Len(t, out.Groups, writers+1)
}

func TestEngine_SubmitAfterStop(t *testing.T) {
	e := New(testutil.OpenStore(t))
	e.Stop()

	_, err := e.Submit(context.Background(), Command{Op: OpOrder, TimelineID: "intro"})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	e := New(testutil.OpenStore(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)

	_, err := e.Submit(context.Background(), Command{Op: OpOrder})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestExec_ResumesClockFromStore(t *testing.T) {
	s := testutil.OpenStore(t)
	ctx := context.Background()

	out, err := Exec(ctx, s, Command{Op: ir.OpImport, Timeline: testutil.Timeline("intro",
		testutil.Cue("a1", "A", 0), testutil.Cue("b1", "B", 1))})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Seq)

	out, err = Exec(ctx, s, Command{Op: ir.OpMove, TimelineID: "intro", Target: "b1", Dest: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Seq)

	_, err = Exec(ctx, s, Command{Op: OpOrder, TimelineID: "missing"})
	assert.ErrorIs(t, err, store.ErrTimelineNotFound)
}
