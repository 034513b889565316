package engine

import "sync/atomic"

// Clock is a monotonic logical clock for journal ordering.
//
// Every finalized transaction is stamped with a strictly increasing seq
// number from this clock, so replay applies journal entries in exactly the
// order they committed. Wall-clock time is never used for ordering.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used to continue numbering after the last journaled transaction.
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
