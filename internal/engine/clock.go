package engine

import "sync/atomic"

// Sequencer hands out run sequence numbers. Implemented by Clock and by the
// rewindable test clock in testutil.
type Sequencer interface {
	Next() int64
}

// Clock is the monotonic logical clock that orders recorded runs.
//
// Run history is listed by seq, never by wall time, so two machines recording
// the same runs in the same order agree on the listing.
//
// Thread-safety: Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used to continue numbering after the runs already in a store.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
