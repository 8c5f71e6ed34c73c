package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/whitphx/tlanislide/internal/ir"
	"github.com/whitphx/tlanislide/internal/store"
)

// ReplayResult reports a replay of one timeline's history.
type ReplayResult struct {
	TimelineID string `json:"timeline_id"`
	Revisions  int    `json:"revisions"`
	FinalHash  string `json:"final_hash"`

	// SnapshotMatches is false if the stored current cues differ from the
	// last revision.
	SnapshotMatches bool `json:"snapshot_matches"`

	// DriftedCues lists the ids of cues whose stored content differs from
	// the last revision, sorted. Empty when SnapshotMatches.
	DriftedCues []string `json:"drifted_cues,omitempty"`

	Mismatches []Mismatch `json:"mismatches"`
}

// Mismatch is a revision whose replay diverged from the recorded hash.
type Mismatch struct {
	Seq      int64  `json:"seq"`
	Op       ir.Op  `json:"op"`
	Recorded string `json:"recorded"`
	Replayed string `json:"replayed,omitempty"`
	Error    string `json:"error,omitempty"`
}

// OK reports whether replay reproduced the recorded history exactly.
func (r ReplayResult) OK() bool {
	return len(r.Mismatches) == 0 && r.SnapshotMatches
}

// Err returns a REPLAY_MISMATCH RuntimeError for the first divergence,
// or nil if replay matched.
func (r ReplayResult) Err() error {
	if len(r.Mismatches) > 0 {
		m := r.Mismatches[0]
		return NewReplayMismatchError(r.TimelineID, m.Seq, m.Recorded, m.Replayed)
	}
	if !r.SnapshotMatches {
		return NewReplayMismatchError(r.TimelineID, 0, r.FinalHash, "current snapshot")
	}
	return nil
}

// Replay re-applies a timeline's recorded operations from its import and
// checks every recorded order hash.
//
// Each revision is replayed through applyOp, the path live commands take,
// starting from the previous recorded snapshot. A divergent revision is
// reported and replay continues from its recorded snapshot, so one bad
// revision does not mask later ones.
func Replay(ctx context.Context, s *store.Store, timelineID string) (ReplayResult, error) {
	revs, err := s.ReadRevisions(ctx, timelineID)
	if err != nil {
		return ReplayResult{}, err
	}
	if len(revs) == 0 {
		return ReplayResult{}, fmt.Errorf("replay %q: %w", timelineID, store.ErrTimelineNotFound)
	}
	if revs[0].Op != ir.OpImport {
		return ReplayResult{}, NewInvalidCommandError(timelineID,
			fmt.Sprintf("history starts with %q, not import", revs[0].Op))
	}

	res := ReplayResult{TimelineID: timelineID, Revisions: len(revs), Mismatches: []Mismatch{}}

	var prev []ir.Cue
	for _, rev := range revs {
		if err := ctx.Err(); err != nil {
			return ReplayResult{}, err
		}

		input := prev
		if rev.Op == ir.OpImport {
			input = rev.Snapshot
		}

		replayed, err := replayRevision(timelineID, input, rev)
		if err != nil {
			res.Mismatches = append(res.Mismatches, Mismatch{
				Seq: rev.Seq, Op: rev.Op, Recorded: rev.OrderHash, Error: err.Error(),
			})
		} else if replayed != rev.OrderHash {
			res.Mismatches = append(res.Mismatches, Mismatch{
				Seq: rev.Seq, Op: rev.Op, Recorded: rev.OrderHash, Replayed: replayed,
			})
		}
		prev = rev.Snapshot
	}

	last := revs[len(revs)-1]
	res.FinalHash = last.OrderHash

	current, err := s.ReadCues(ctx, timelineID)
	if err != nil {
		return ReplayResult{}, err
	}
	currentHash, err := ir.OrderHash(current)
	if err != nil {
		return ReplayResult{}, err
	}
	res.SnapshotMatches = currentHash == last.OrderHash
	if !res.SnapshotMatches {
		res.DriftedCues, err = driftedCues(last.Snapshot, current)
		if err != nil {
			return ReplayResult{}, err
		}
	}

	slog.Debug("replay finished",
		"timeline", timelineID,
		"revisions", res.Revisions,
		"mismatches", len(res.Mismatches),
		"hash", res.FinalHash,
	)
	return res, nil
}

func replayRevision(timelineID string, input []ir.Cue, rev ir.Revision) (string, error) {
	next, err := applyOp(timelineID, input, rev.Op, rev.Args)
	if err != nil {
		return "", err
	}
	return ir.OrderHash(next)
}

// driftedCues returns the ids of cues that differ between recorded and
// current, including cues present in only one of them.
func driftedCues(recorded, current []ir.Cue) ([]string, error) {
	hashes := make(map[string]string, len(recorded))
	for _, c := range recorded {
		h, err := ir.CueHash(c)
		if err != nil {
			return nil, err
		}
		hashes[c.ID] = h
	}

	var drifted []string
	for _, c := range current {
		h, err := ir.CueHash(c)
		if err != nil {
			return nil, err
		}
		if recordedHash, ok := hashes[c.ID]; !ok || recordedHash != h {
			drifted = append(drifted, c.ID)
		}
		delete(hashes, c.ID)
	}
	for id := range hashes {
		drifted = append(drifted, id)
	}
	slices.Sort(drifted)
	return drifted, nil
}
