// Package events implements consumable event queues.
//
// A Queue holds events of a single payload type together with their
// consumption state. Events can be read many times but consumed only once:
// the first consumer to call Event.Consume wins, and every traversal that
// starts afterwards skips the event.
//
// ORDERING:
//
// Records are stored in insertion order and stamped with a per-queue
// sequence number that starts at 1 and never repeats, even across clears.
// Traversals always yield in ascending sequence order.
//
// VISIBILITY:
//
// Mutations and consumption are applied directly to the backing storage.
// There is no per-reader cursor and no buffering, so whatever an earlier
// consumer did is visible to the next one that calls Read.
//
// CONCURRENCY:
//
// Queue is not safe for concurrent use. The host that owns the queue must
// grant exclusive access for the duration of every Send, Read traversal and
// clear. See package app for the scheduler that does this.
//
// Example:
//
//	q := events.NewQueue[Click](events.AutoClear)
//	q.Send(Click{X: 1})
//
//	for ev := range q.Read() {
//		if hit(ev.Get()) {
//			ev.Consume()
//		}
//	}
package events
