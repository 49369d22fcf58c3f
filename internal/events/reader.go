package events

import (
	"errors"
	"iter"
)

// ErrStaleEvent is the panic value raised when an Event is used after the
// traversal that produced it has finished, or after the queue was cleared.
var ErrStaleEvent = errors.New("events: event used outside its traversal")

// traversal marks a single Read call. Views hold a pointer to it so they
// can tell when the loop that produced them is over.
type traversal struct {
	gen  uint64
	done bool
}

// Event is a mutable view of one unconsumed record, valid only for the
// duration of the traversal that yielded it.
//
// The view addresses the record by index rather than by pointer, so it stays
// correct when the consumer sends new events (which may reallocate the
// backing storage) while iterating.
type Event[T any] struct {
	q     *Queue[T]
	t     *traversal
	index int
}

// record resolves the view, panicking with ErrStaleEvent if it is no longer
// valid.
func (e Event[T]) record() *record[T] {
	if e.q == nil || e.t == nil || e.t.done || e.t.gen != e.q.gen {
		panic(ErrStaleEvent)
	}
	return &e.q.records[e.index]
}

// Get returns a copy of the payload.
func (e Event[T]) Get() T {
	return e.record().payload
}

// Set replaces the payload. Later traversals see the new value.
func (e Event[T]) Set(payload T) {
	e.record().payload = payload
}

// Mutate calls fn with a pointer to the stored payload.
// The pointer must not be retained after fn returns.
func (e Event[T]) Mutate(fn func(*T)) {
	fn(&e.record().payload)
}

// Consume marks the event as consumed. Every traversal that starts
// afterwards, by any reader, skips it. Consuming twice is a no-op.
//
// Consume does not take ownership of the payload; copy it out with Get
// first if you need it.
func (e Event[T]) Consume() {
	e.record()
	e.q.consumeAt(e.index)
}

// Consumed reports whether the event has been consumed during this
// traversal.
func (e Event[T]) Consumed() bool {
	return e.record().consumed
}

// Read returns a lazy sequence over the unconsumed events, oldest first.
//
// Each call starts a fresh traversal, so anything consumed or mutated by a
// previous reader is reflected immediately. Events sent while the traversal
// is running are yielded by the next traversal, not this one.
//
// A Clear, or a ClearConsumed that removes anything, ends the traversal.
// Unconsumed events that survive the clear are skipped for the rest of that
// traversal; start a new Read to see them.
func (q *Queue[T]) Read() iter.Seq[Event[T]] {
	return func(yield func(Event[T]) bool) {
		t := &traversal{gen: q.gen}
		defer func() { t.done = true }()

		end := len(q.records)
		for i := 0; i < end; i++ {
			if t.gen != q.gen {
				return
			}
			if q.records[i].consumed {
				continue
			}
			if !yield(Event[T]{q: q, t: t, index: i}) {
				return
			}
		}
	}
}
