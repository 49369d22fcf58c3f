package events

import (
	"cmp"
	"iter"
	"slices"
)

// record is a single event in the buffer together with its consumption
// state. Records are owned by the Queue and never handed out directly.
type record[T any] struct {
	payload  T
	consumed bool
	seq      uint64
}

// Queue is a buffer of consumable events of type T.
//
// Events can be written with Send (or through a Writer) and are read with
// Read (or through a Reader). Consumed records are no longer yielded but are
// only removed from memory once Clear or ClearConsumed runs.
//
// The zero value is an empty queue with no policy; use NewQueue so the
// policy tag is set.
type Queue[T any] struct {
	records []record[T]
	lastSeq uint64 // Last assigned sequence number; never reset
	policy  Policy

	// gen changes whenever a clear removes records. Event views remember
	// the generation they were created in so they cannot address a slot
	// that now holds a different record.
	gen uint64

	sent     uint64
	consumed uint64
	cleared  uint64
}

// Stats is a point-in-time snapshot of a queue.
// Sent, Consumed and Cleared are lifetime totals.
type Stats struct {
	Len        int    `json:"len"`
	Unconsumed int    `json:"unconsumed"`
	NextSeq    uint64 `json:"next_seq"`
	Sent       uint64 `json:"sent"`
	Consumed   uint64 `json:"consumed"`
	Cleared    uint64 `json:"cleared"`
}

// NewQueue creates an empty queue tagged with the given clearing policy.
func NewQueue[T any](policy Policy) *Queue[T] {
	return &Queue[T]{
		records: make([]record[T], 0, 16),
		policy:  policy,
	}
}

// Policy returns the clearing policy the queue was created with.
func (q *Queue[T]) Policy() Policy {
	return q.policy
}

// Send appends an unconsumed event and returns its sequence number.
func (q *Queue[T]) Send(payload T) uint64 {
	q.lastSeq++
	q.records = append(q.records, record[T]{payload: payload, seq: q.lastSeq})
	q.sent++
	return q.lastSeq
}

// SendBatch appends payloads in order and returns the sequence number of
// the last one, or 0 if payloads is empty.
func (q *Queue[T]) SendBatch(payloads ...T) uint64 {
	q.records = slices.Grow(q.records, len(payloads))
	var last uint64
	for _, p := range payloads {
		last = q.Send(p)
	}
	return last
}

// Extend appends every payload produced by seq.
func (q *Queue[T]) Extend(seq iter.Seq[T]) uint64 {
	var last uint64
	for p := range seq {
		last = q.Send(p)
	}
	return last
}

// SendDefault appends the zero value of T. Useful when T is an empty struct.
func (q *Queue[T]) SendDefault() uint64 {
	var zero T
	return q.Send(zero)
}

// Clear removes every record, consumed or not, and returns how many were
// removed. The sequence counter keeps running.
func (q *Queue[T]) Clear() int {
	n := len(q.records)
	if n == 0 {
		return 0
	}

	// Zero the slots so payload pointers can be collected; the backing
	// array is reused by later sends.
	clear(q.records)
	q.records = q.records[:0]

	q.cleared += uint64(n)
	q.gen++
	return n
}

// ClearConsumed removes only consumed records and returns how many were
// removed. Survivors keep their order and sequence numbers.
//
// Calling this regularly bounds memory on persistent queues; consumed
// records can never be read again anyway.
func (q *Queue[T]) ClearConsumed() int {
	before := len(q.records)
	q.records = slices.DeleteFunc(q.records, func(r record[T]) bool {
		return r.consumed
	})

	removed := before - len(q.records)
	if removed > 0 {
		q.cleared += uint64(removed)
		q.gen++
	}
	return removed
}

// ConsumeSeq consumes the record with the given sequence number.
// Returns true only if an unconsumed record was found and is now consumed;
// unknown and already-consumed sequence numbers are a no-op.
func (q *Queue[T]) ConsumeSeq(seq uint64) bool {
	i, found := slices.BinarySearchFunc(q.records, seq, func(r record[T], s uint64) int {
		return cmp.Compare(r.seq, s)
	})
	if !found {
		return false
	}
	return q.consumeAt(i)
}

// consumeAt flips the consumed flag of the record at index i.
// The flag never goes back to false.
func (q *Queue[T]) consumeAt(i int) bool {
	if q.records[i].consumed {
		return false
	}
	q.records[i].consumed = true
	q.consumed++
	return true
}

// Len returns the number of stored records, including consumed ones.
func (q *Queue[T]) Len() int {
	return len(q.records)
}

// Unconsumed returns the number of records a traversal would yield.
func (q *Queue[T]) Unconsumed() int {
	n := 0
	for i := range q.records {
		if !q.records[i].consumed {
			n++
		}
	}
	return n
}

// NextSeq returns the sequence number the next Send will assign.
func (q *Queue[T]) NextSeq() uint64 {
	return q.lastSeq + 1
}

// Stats returns a snapshot of the queue's size and lifetime counters.
func (q *Queue[T]) Stats() Stats {
	return Stats{
		Len:        len(q.records),
		Unconsumed: q.Unconsumed(),
		NextSeq:    q.NextSeq(),
		Sent:       q.sent,
		Consumed:   q.consumed,
		Cleared:    q.cleared,
	}
}
