package testutil

import "sync"

// DeterministicClock is the revision seq source for tests and scenarios.
//
// It satisfies engine.SeqSource and starts from a known value instead of
// the store's latest seq, so a scenario replays with identical seqs and
// golden traces stay stable. Rewind lets one clock drive several runs.
type DeterministicClock struct {
	mu    sync.Mutex
	start int64
	seq   int64
}

// NewDeterministicClock returns a clock whose first seq is 1.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(0)
}

// NewDeterministicClockAt returns a clock whose first seq is last+1.
func NewDeterministicClockAt(last int64) *DeterministicClock {
	return &DeterministicClock{start: last, seq: last}
}

// Next issues the next seq.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last issued seq.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Rewind returns the clock to its starting value.
func (c *DeterministicClock) Rewind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = c.start
}
