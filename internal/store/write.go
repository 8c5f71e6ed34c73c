package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/whitphx/tlanislide/internal/ir"
)

var (
	// ErrTimelineExists is returned by CreateTimeline for a taken id.
	ErrTimelineExists = errors.New("timeline already exists")

	// ErrTimelineNotFound is returned when a timeline id is unknown.
	ErrTimelineNotFound = errors.New("timeline not found")

	// ErrRevisionExists is returned when a revision seq is already recorded
	// for the timeline.
	ErrRevisionExists = errors.New("revision already recorded")
)

// CreateTimeline inserts a new timeline together with its first revision.
//
// created_seq is taken from rev.Seq. Both rows and the snapshot cues are
// written in one transaction; an existing id returns ErrTimelineExists.
func (s *Store) CreateTimeline(ctx context.Context, tl ir.Timeline, rev ir.Revision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create timeline: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO timelines (id, title, created_seq)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, tl.ID, tl.Title, rev.Seq)
	if err != nil {
		return fmt.Errorf("create timeline: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("create timeline %q: %w", tl.ID, ErrTimelineExists)
	}

	rev.TimelineID = tl.ID
	if err := commitTx(ctx, tx, rev); err != nil {
		return fmt.Errorf("create timeline: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create timeline: commit: %w", err)
	}
	return nil
}

// CommitRevision replaces the timeline's current snapshot with
// rev.Snapshot and appends rev to its history, atomically.
//
// rev.Snapshot must already be reindexed; the cues table rejects two cues
// of one track at one position. A seq already recorded for the timeline
// returns ErrRevisionExists and leaves the store unchanged.
func (s *Store) CommitRevision(ctx context.Context, rev ir.Revision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit revision: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM timelines WHERE id = ?`, rev.TimelineID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("commit revision %q: %w", rev.TimelineID, ErrTimelineNotFound)
	}
	if err != nil {
		return fmt.Errorf("commit revision: %w", err)
	}

	if err := commitTx(ctx, tx, rev); err != nil {
		return fmt.Errorf("commit revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revision: commit: %w", err)
	}
	return nil
}

// commitTx appends rev and rewrites the cues of rev.TimelineID inside tx.
func commitTx(ctx context.Context, tx *sql.Tx, rev ir.Revision) error {
	argsJSON, err := marshalObject(rev.Args)
	if err != nil {
		return err
	}
	snapshotJSON, err := marshalSnapshot(rev.Snapshot)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO revisions
		(timeline_id, seq, op, args, order_hash, snapshot)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(timeline_id, seq) DO NOTHING
	`,
		rev.TimelineID,
		rev.Seq,
		string(rev.Op),
		argsJSON,
		rev.OrderHash,
		snapshotJSON,
	)
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("seq %d: %w", rev.Seq, ErrRevisionExists)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cues WHERE timeline_id = ?`, rev.TimelineID); err != nil {
		return fmt.Errorf("clear cues: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cues (timeline_id, id, track_id, global_index, data)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare cue insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range rev.Snapshot {
		dataJSON, err := marshalObject(c.Data)
		if err != nil {
			return fmt.Errorf("cue %q: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, rev.TimelineID, c.ID, c.TrackID, c.GlobalIndex, dataJSON); err != nil {
			return fmt.Errorf("insert cue %q: %w", c.ID, err)
		}
	}
	return nil
}
