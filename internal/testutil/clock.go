package testutil

import "sync"

// RunClock hands out run sequence numbers for tests.
//
// It satisfies engine.Sequencer, so an engine built with it stamps runs 1, 2, 3...
// regardless of what the store already holds. Reset makes a scenario
// replayable with identical sequence numbers.
type RunClock struct {
	mu  sync.Mutex
	seq int64
}

// NewRunClock creates a clock whose first Next returns start+1.
func NewRunClock(start int64) *RunClock {
	return &RunClock{seq: start}
}

// Next advances the clock and returns the new sequence number.
func (c *RunClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last sequence number handed out.
func (c *RunClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock to zero.
func (c *RunClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
