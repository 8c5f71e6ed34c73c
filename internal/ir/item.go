package ir

import (
	"fmt"
	"math"
)

// SentinelIndex is the provisional GlobalIndex given to items whose final
// position has not been derived yet. Reindexing overwrites it.
const SentinelIndex int64 = math.MinInt64

// Item is one cue point placed on a track.
//
// Items on the same track never share a GlobalIndex. Items on different
// tracks with equal GlobalIndex are simultaneous. Data is opaque to the
// ordering engine.
type Item[T any] struct {
	ID          string `json:"id"`
	GlobalIndex int64  `json:"global_index"`
	TrackID     string `json:"track_id"`
	Data        T      `json:"data"`
}

// Group is the set of items occupying one resolved order position.
// It holds at most one item per track.
type Group[T any] []Item[T]

// Contains reports whether the group holds an item with the given id.
func (g Group[T]) Contains(id string) bool {
	for _, item := range g {
		if item.ID == id {
			return true
		}
	}
	return false
}

// IDs returns the ids of the group members in group order.
func (g Group[T]) IDs() []string {
	ids := make([]string, len(g))
	for i, item := range g {
		ids[i] = item.ID
	}
	return ids
}

// Placement selects how a moved item lands relative to the destination group.
type Placement string

const (
	// PlacementAt merges the item into the destination group.
	PlacementAt Placement = "at"
	// PlacementAfter creates a new solitary group right after the destination group.
	PlacementAfter Placement = "after"
)

// Valid reports whether p is a known placement.
func (p Placement) Valid() bool {
	return p == PlacementAt || p == PlacementAfter
}

// ParsePlacement converts a flag or document string into a Placement.
func ParsePlacement(s string) (Placement, error) {
	p := Placement(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid placement %q: must be %q or %q", s, PlacementAt, PlacementAfter)
	}
	return p, nil
}

// Cue is the concrete item type persisted and exchanged by the host layers.
// Its payload is a constrained JSON object.
type Cue = Item[Object]

// CueGroup is a Group of Cues.
type CueGroup = Group[Object]

// Timeline is a named collection of cues, as loaded from a timeline document
// or from the store.
type Timeline struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Cues  []Cue  `json:"cues"`
}

// Tracks returns the distinct track ids in first-appearance order.
func (t *Timeline) Tracks() []string {
	seen := make(map[string]bool)
	var tracks []string
	for _, c := range t.Cues {
		if !seen[c.TrackID] {
			seen[c.TrackID] = true
			tracks = append(tracks, c.TrackID)
		}
	}
	return tracks
}

// Op names a recorded timeline mutation.
type Op string

const (
	OpImport Op = "import"
	OpMove   Op = "move"
	OpInsert Op = "insert"
	OpRemove Op = "remove"
)

// Revision is one entry of a timeline's append-only history.
// Snapshot holds the full reindexed cue collection after the operation.
type Revision struct {
	TimelineID string `json:"timeline_id"`
	Seq        int64  `json:"seq"` // Logical clock
	Op         Op     `json:"op"`
	Args       Object `json:"args"`
	OrderHash  string `json:"order_hash"`
	Snapshot   []Cue  `json:"snapshot"`
}
