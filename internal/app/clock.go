package app

import "sync/atomic"

// Clock is a monotonic logical counter.
//
// The host keeps two: one numbering rounds and one numbering trace events.
// Neither uses wall-clock time, so a replayed run produces the same numbers.
//
// Thread-safety: Clock is safe for concurrent use. Only the goroutine
// running rounds advances it, but metrics and CLI output read it from
// elsewhere.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific value.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value. The first call on a
// fresh clock returns 1.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current value without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
