package engine

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Clock hands out revision seqs.
//
// Seqs are shared by every timeline in a store and strictly increase, so
// the revision log has one total order and no wall time is recorded.
type Clock struct {
	seq atomic.Int64
}

// NewClockAt returns a clock whose first seq is last+1.
func NewClockAt(last int64) *Clock {
	c := &Clock{}
	c.seq.Store(last)
	return c
}

// Next issues the next seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued seq.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// latestSeqReader is the part of *store.Store a clock resumes from.
type latestSeqReader interface {
	LatestSeq(ctx context.Context) (int64, error)
}

// resumeClock continues after the highest seq already in the store, so a
// new process never reuses a seq of an earlier one.
func resumeClock(ctx context.Context, s latestSeqReader) (*Clock, error) {
	latest, err := s.LatestSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume clock: %w", err)
	}
	return NewClockAt(latest), nil
}
