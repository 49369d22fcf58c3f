package events

import "iter"

// Writer sends consumable events of type T.
//
// Writers are cheap value handles with no state of their own; the host
// hands a fresh one to each consumer invocation.
type Writer[T any] struct {
	q *Queue[T]
}

// NewWriter returns a Writer that appends to q.
func NewWriter[T any](q *Queue[T]) Writer[T] {
	return Writer[T]{q: q}
}

// Send appends event and returns its sequence number. Multiple sends from
// the same consumer keep their call order.
func (w Writer[T]) Send(event T) uint64 {
	return w.q.Send(event)
}

// SendBatch appends all events at once.
func (w Writer[T]) SendBatch(events ...T) uint64 {
	return w.q.SendBatch(events...)
}

// Extend appends every event produced by seq.
func (w Writer[T]) Extend(seq iter.Seq[T]) uint64 {
	return w.q.Extend(seq)
}

// SendDefault sends the zero value of T.
func (w Writer[T]) SendDefault() uint64 {
	return w.q.SendDefault()
}

// Reader reads (and possibly consumes) events of type T.
//
// A Reader keeps no cursor: which events it sees is decided entirely by the
// consumed flags stored in the queue.
type Reader[T any] struct {
	q *Queue[T]
}

// NewReader returns a Reader over q.
func NewReader[T any](q *Queue[T]) Reader[T] {
	return Reader[T]{q: q}
}

// Read returns the unconsumed events. See Queue.Read.
func (r Reader[T]) Read() iter.Seq[Event[T]] {
	return r.q.Read()
}
