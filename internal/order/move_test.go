package order

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whitphx/tlanislide/internal/ir"
)

func mustGroups(t *testing.T, items []ir.Item[string]) [][]string {
	t.Helper()
	groups, err := ComputeOrder(items)
	require.NoError(t, err)
	return groupIDs(groups)
}

func TestMove_FewerThanTwoCuesUnchanged(t *testing.T) {
	single := []ir.Item[string]{item("k1", "A", 4)}
	got, err := Move(single, "k1", 3, ir.PlacementAt)
	require.NoError(t, err)
	assert.Equal(t, single, got)

	got, err = Move([]ir.Item[string]{}, "k1", 0, ir.PlacementAfter)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMove_UnknownTargetUnchanged(t *testing.T) {
	items := []ir.Item[string]{item("k1", "A", 0), item("k2", "A", 1)}
	got, err := Move(items, "nope", 0, ir.PlacementAt)
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestMove_AtCurrentGroupIsNoop(t *testing.T) {
	items := []ir.Item[string]{item("k1", "A", 5), item("b1", "B", 5), item("k2", "A", 9)}
	got, err := Move(items, "k2", 1, ir.PlacementAt)
	require.NoError(t, err)
	assert.Equal(t, items, got)

	// Indices stay as given; no reindex happens on a no-op.
	assert.Equal(t, int64(9), got[2].GlobalIndex)
}

// A forward move pushes same-track cues in its path to just after the target,
// so a track keeps its relative order. Moving k1 onto k3's group therefore
// leaves the order unchanged instead of producing [k2] [k3] [k1].
func TestMove_ForwardPushesSameTrackCuesAfterTarget(t *testing.T) {
	items := []ir.Item[string]{
		item("k1", "A", 0),
		item("k2", "A", 1),
		item("k3", "A", 2),
	}
	got, err := Move(items, "k1", 2, ir.PlacementAt)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"k1"}, {"k2"}, {"k3"}}, mustGroups(t, got))
	assert.Equal(t, map[string]int64{"k1": 0, "k2": 1, "k3": 2}, indexByID(got))
}

func TestMove_ForwardAtJoinsDestinationGroup(t *testing.T) {
	items := []ir.Item[string]{
		item("k1", "A", 0),
		item("b1", "B", 1),
		item("k2", "A", 2),
		item("b2", "B", 3),
	}
	got, err := Move(items, "k1", 3, ir.PlacementAt)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"b1"}, {"b2", "k1"}, {"k2"}}, mustGroups(t, got))
	assert.Equal(t, map[string]int64{"b1": 0, "b2": 1, "k1": 1, "k2": 2}, indexByID(got))
}

func TestMove_ForwardAfterCreatesSolitaryGroup(t *testing.T) {
	items := []ir.Item[string]{
		item("k1", "A", 0),
		item("b1", "B", 1),
		item("k2", "A", 2),
		item("b2", "B", 3),
	}
	got, err := Move(items, "k1", 1, ir.PlacementAfter)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"b1"}, {"k1"}, {"k2"}, {"b2"}}, mustGroups(t, got))
}

func TestMove_BackwardPushesSameTrackCuesBeforeTarget(t *testing.T) {
	items := []ir.Item[string]{
		item("k1", "A", 0),
		item("b1", "B", 0),
		item("b2", "B", 1),
		item("k2", "A", 2),
	}
	got, err := Move(items, "k2", 0, ir.PlacementAt)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"k1"}, {"b1", "k2"}, {"b2"}}, mustGroups(t, got))
}

func TestMove_AfterMinusOneBecomesHead(t *testing.T) {
	items := []ir.Item[string]{
		item("a", "A", 0),
		item("b", "B", 1),
		item("c", "C", 2),
	}
	got, err := Move(items, "c", -1, ir.PlacementAfter)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"c"}, {"a"}, {"b"}}, mustGroups(t, got))

	// Any negative destination resolves the same way.
	got, err = Move(items, "c", -5, ir.PlacementAt)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"c"}, {"a"}, {"b"}}, mustGroups(t, got))
}

func TestMove_PastEndBecomesTail(t *testing.T) {
	items := []ir.Item[string]{
		item("a", "A", 0),
		item("b", "B", 1),
		item("c", "C", 2),
	}
	for _, placement := range []ir.Placement{ir.PlacementAt, ir.PlacementAfter} {
		got, err := Move(items, "a", 99, placement)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"b"}, {"c"}, {"a"}}, mustGroups(t, got), "placement %s", placement)
	}
}

func TestMove_SplitsTargetOutOfSharedGroup(t *testing.T) {
	items := []ir.Item[string]{
		item("a", "A", 0),
		item("b", "B", 0),
		item("c", "C", 1),
	}
	got, err := Move(items, "a", 0, ir.PlacementAfter)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"b"}, {"a"}, {"c"}}, mustGroups(t, got))
}

func TestMove_InvalidPlacement(t *testing.T) {
	items := []ir.Item[string]{item("k1", "A", 0), item("k2", "A", 1)}
	_, err := Move(items, "k1", 1, ir.Placement("before"))
	require.Error(t, err)
	assert.False(t, IsConflict(err))
	assert.Contains(t, err.Error(), "invalid placement")
}

func TestMove_ConflictingInputRejected(t *testing.T) {
	items := []ir.Item[string]{item("k1", "A", 2), item("k2", "A", 2)}
	_, err := Move(items, "k1", 0, ir.PlacementAt)
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestMove_DoesNotMutateInput(t *testing.T) {
	items := []ir.Item[string]{
		item("k1", "A", 10),
		item("b1", "B", 20),
		item("k2", "A", 30),
	}
	snapshot := slices.Clone(items)

	_, err := Move(items, "k1", 2, ir.PlacementAt)
	require.NoError(t, err)
	assert.Equal(t, snapshot, items)
}

func TestMove_PreservesPayload(t *testing.T) {
	items := []ir.Item[string]{item("k1", "A", 0), item("b1", "B", 1)}
	got, err := Move(items, "k1", 1, ir.PlacementAt)
	require.NoError(t, err)
	for _, it := range got {
		assert.Equal(t, "payload-"+it.ID, it.Data)
	}
}

// Every move over a set of fixtures must yield a conflict-free,
// densely indexed collection with the same cues and the same per-track order.
func TestMove_AlwaysConflictFree(t *testing.T) {
	fixtures := [][]ir.Item[string]{
		{item("k1", "A", 0), item("k2", "A", 1), item("k3", "A", 2)},
		{item("k1", "A", 0), item("b1", "B", 0), item("b2", "B", 1), item("k2", "A", 2)},
		{
			item("a1", "A", 0), item("b1", "B", 0), item("c1", "C", 0),
			item("a2", "A", 3), item("c2", "C", 3),
			item("b2", "B", 7),
			item("a3", "A", 8), item("b3", "B", 8), item("c3", "C", 8),
		},
		{item("x", "A", -3), item("y", "B", 4), item("z", "A", 40), item("w", "B", 41)},
	}

	for fi, items := range fixtures {
		groups, err := ComputeOrder(items)
		require.NoError(t, err)
		n := len(groups)

		for _, target := range items {
			for dest := -2; dest <= n+1; dest++ {
				for _, placement := range []ir.Placement{ir.PlacementAt, ir.PlacementAfter} {
					name := fmt.Sprintf("fixture%d/%s/%s/%d", fi, target.ID, placement, dest)
					t.Run(name, func(t *testing.T) {
						got, err := Move(items, target.ID, dest, placement)
						require.NoError(t, err)

						assert.ElementsMatch(t, ids(items), ids(got))

						_, err = ComputeOrder(got)
						require.NoError(t, err)

						assert.Equal(t, trackOrder(items), trackOrder(got))
					})
				}
			}
		}
	}
}

func ids[T any](items []ir.Item[T]) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// trackOrder lists each track's cue ids in GlobalIndex order.
func trackOrder[T any](items []ir.Item[T]) map[string][]string {
	out := make(map[string][]string)
	for _, it := range sortByIndex(items) {
		out[it.TrackID] = append(out[it.TrackID], it.ID)
	}
	return out
}
