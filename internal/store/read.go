package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/whitphx/tlanislide/internal/ir"
)

// TimelineSummary is one row of ListTimelines.
type TimelineSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	CreatedSeq int64  `json:"created_seq"`
	CueCount   int    `json:"cue_count"`
	LatestSeq  int64  `json:"latest_seq"`
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadTimeline returns a timeline with its current cues in canonical order.
// An unknown id returns ErrTimelineNotFound.
func (s *Store) ReadTimeline(ctx context.Context, id string) (ir.Timeline, error) {
	tl := ir.Timeline{ID: id}
	err := s.db.QueryRowContext(ctx, `SELECT title FROM timelines WHERE id = ?`, id).Scan(&tl.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Timeline{}, fmt.Errorf("read timeline %q: %w", id, ErrTimelineNotFound)
	}
	if err != nil {
		return ir.Timeline{}, fmt.Errorf("read timeline: %w", err)
	}

	cues, err := s.ReadCues(ctx, id)
	if err != nil {
		return ir.Timeline{}, err
	}
	tl.Cues = cues
	return tl, nil
}

// ListTimelines returns every timeline ordered by id.
func (s *Store) ListTimelines(ctx context.Context) ([]TimelineSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.created_seq,
		       (SELECT COUNT(*) FROM cues c WHERE c.timeline_id = t.id),
		       (SELECT COALESCE(MAX(r.seq), 0) FROM revisions r WHERE r.timeline_id = t.id)
		FROM timelines t
		ORDER BY t.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query timelines: %w", err)
	}
	defer rows.Close()

	summaries := []TimelineSummary{}
	for rows.Next() {
		var ts TimelineSummary
		if err := rows.Scan(&ts.ID, &ts.Title, &ts.CreatedSeq, &ts.CueCount, &ts.LatestSeq); err != nil {
			return nil, fmt.Errorf("scan timeline: %w", err)
		}
		summaries = append(summaries, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timelines: %w", err)
	}
	return summaries, nil
}

// ReadCues returns the current cues of a timeline.
// Results are ordered deterministically: global_index, then track_id and id
// by binary collation. Returns an empty slice (not nil) if there are none.
func (s *Store) ReadCues(ctx context.Context, timelineID string) ([]ir.Cue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, track_id, global_index, data
		FROM cues
		WHERE timeline_id = ?
		ORDER BY global_index ASC, track_id COLLATE BINARY ASC, id COLLATE BINARY ASC
	`, timelineID)
	if err != nil {
		return nil, fmt.Errorf("query cues: %w", err)
	}
	defer rows.Close()

	cues := []ir.Cue{}
	for rows.Next() {
		c, err := scanCue(rows)
		if err != nil {
			return nil, err
		}
		cues = append(cues, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cues: %w", err)
	}
	return cues, nil
}

// ReadRevisions returns a timeline's history ordered by seq.
func (s *Store) ReadRevisions(ctx context.Context, timelineID string) ([]ir.Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timeline_id, seq, op, args, order_hash, snapshot
		FROM revisions
		WHERE timeline_id = ?
		ORDER BY seq ASC
	`, timelineID)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	revs := []ir.Revision{}
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return revs, nil
}

// FindRevisionByHash returns the earliest revision of a timeline whose
// order hash matches. found is false if none does.
func (s *Store) FindRevisionByHash(ctx context.Context, timelineID, orderHash string) (rev ir.Revision, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT timeline_id, seq, op, args, order_hash, snapshot
		FROM revisions
		WHERE timeline_id = ? AND order_hash = ?
		ORDER BY seq ASC
		LIMIT 1
	`, timelineID, orderHash)

	rev, err = scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Revision{}, false, nil
	}
	if err != nil {
		return ir.Revision{}, false, err
	}
	return rev, true, nil
}

// LatestSeq returns the highest seq recorded across all timelines, or 0.
// The engine resumes its logical clock from it.
func (s *Store) LatestSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM revisions`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("latest seq: %w", err)
	}
	return seq, nil
}

func scanCue(row rowScanner) (ir.Cue, error) {
	var c ir.Cue
	var dataJSON string
	if err := row.Scan(&c.ID, &c.TrackID, &c.GlobalIndex, &dataJSON); err != nil {
		return ir.Cue{}, fmt.Errorf("scan cue: %w", err)
	}
	data, err := unmarshalObject(dataJSON)
	if err != nil {
		return ir.Cue{}, fmt.Errorf("cue %q: %w", c.ID, err)
	}
	c.Data = data
	return c, nil
}

func scanRevision(row rowScanner) (ir.Revision, error) {
	var rev ir.Revision
	var op, argsJSON, snapshotJSON string
	if err := row.Scan(&rev.TimelineID, &rev.Seq, &op, &argsJSON, &rev.OrderHash, &snapshotJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Revision{}, err
		}
		return ir.Revision{}, fmt.Errorf("scan revision: %w", err)
	}
	rev.Op = ir.Op(op)

	args, err := unmarshalObject(argsJSON)
	if err != nil {
		return ir.Revision{}, fmt.Errorf("revision %d: %w", rev.Seq, err)
	}
	rev.Args = args

	snapshot, err := unmarshalSnapshot(snapshotJSON)
	if err != nil {
		return ir.Revision{}, fmt.Errorf("revision %d: %w", rev.Seq, err)
	}
	rev.Snapshot = snapshot
	return rev, nil
}
