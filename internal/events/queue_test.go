package events

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	value int
}

// values drains one traversal and returns the payload values.
func values(q *Queue[testEvent]) []int {
	var out []int
	for ev := range q.Read() {
		out = append(out, ev.Get().value)
	}
	return out
}

func sendValues(q *Queue[testEvent], vals ...int) {
	for _, v := range vals {
		q.Send(testEvent{value: v})
	}
}

func TestQueue_ReadInInsertionOrder(t *testing.T) {
	q := NewQueue[testEvent](AutoClear)
	sendValues(q, 5, 3, 9, 1)

	assert.Equal(t, []int{5, 3, 9, 1}, values(q))
	// Reading without consuming is repeatable
	assert.Equal(t, []int{5, 3, 9, 1}, values(q))
}

func TestQueue_SendAssignsIncreasingSeq(t *testing.T) {
	q := NewQueue[testEvent](AutoClear)

	assert.Equal(t, uint64(1), q.NextSeq(), "first seq should be 1")
	assert.Equal(t, uint64(1), q.Send(testEvent{}))
	assert.Equal(t, uint64(2), q.Send(testEvent{}))
	assert.Equal(t, uint64(3), q.Send(testEvent{}))
	assert.Equal(t, uint64(4), q.NextSeq())
}

func TestQueue_ZeroValueUsable(t *testing.T) {
	var q Queue[testEvent]

	assert.Equal(t, uint64(1), q.Send(testEvent{value: 7}))
	assert.Equal(t, []int{7}, values(&q))
}

func TestQueue_ConsumedEventsAreNotRead(t *testing.T) {
	q := NewQueue[testEvent](Persistent)
	sendValues(q, 1, 2, 3, 4)

	for ev := range q.Read() {
		if ev.Get().value%3 == 1 {
			ev.Consume()
		}
	}

	assert.Equal(t, []int{2, 3}, values(q))
}

func TestQueue_ClearedEventsAreNotRead(t *testing.T) {
	q := NewQueue[testEvent](AutoClear)
	sendValues(q, 1, 2, 3, 4)

	removed := q.Clear()

	assert.Equal(t, 4, removed)
	assert.Empty(t, values(q))
	assert.Equal(t, 0, q.Len())
}

func TestQueue_ClearDoesNotResetSeq(t *testing.T) {
	q := NewQueue[testEvent](AutoClear)
	sendValues(q, 1, 2, 3)

	q.Clear()

	assert.Equal(t, uint64(4), q.Send(testEvent{value: 4}), "numbering continues after clear")
}

func TestQueue_ClearEmpty(t *testing.T) {
	q := NewQueue[testEvent](AutoClear)

	assert.Equal(t, 0, q.Clear())
	assert.Equal(t, 0, q.ClearConsumed())
	assert.Equal(t, 0, q.Clear(), "clearing twice is harmless")
}

func TestQueue_ClearConsumedRemovesConsumedEvents(t *testing.T) {
	q := NewQueue[testEvent](Persistent)
	sendValues(q, 1, 2, 3, 4)

	skipped := 0
	for ev := range q.Read() {
		if skipped < 2 {
			skipped++
			continue
		}
		ev.Consume()
	}

	assert.Len(t, values(q), 2)
	assert.Equal(t, 4, q.Len())

	removed := q.ClearConsumed()

	assert.Equal(t, 2, removed)
	assert.Len(t, values(q), 2)
	assert.Equal(t, 2, q.Len())
}

func TestQueue_ClearConsumedPreservesOrderAndSeq(t *testing.T) {
	q := NewQueue[testEvent](Persistent)
	for v := range 6 {
		q.Send(testEvent{value: v})
	}

	// Consume seqs 2 and 5 (values 1 and 4)
	require.True(t, q.ConsumeSeq(2))
	require.True(t, q.ConsumeSeq(5))

	q.ClearConsumed()

	seqs := make([]uint64, 0, q.Len())
	for _, r := range q.records {
		seqs = append(seqs, r.seq)
	}
	assert.Equal(t, []uint64{1, 3, 4, 6}, seqs)
	assert.Equal(t, []int{0, 2, 3, 5}, values(q))
	assert.Equal(t, uint64(7), q.NextSeq())
}

func TestQueue_ConsumeSeq(t *testing.T) {
	q := NewQueue[testEvent](Persistent)
	sendValues(q, 10, 20, 30)

	assert.True(t, q.ConsumeSeq(2), "first consume succeeds")
	assert.False(t, q.ConsumeSeq(2), "second consume is a no-op")
	assert.False(t, q.ConsumeSeq(99), "unknown seq is a no-op")
	assert.Equal(t, []int{10, 30}, values(q))
}

func TestQueue_SendBatch(t *testing.T) {
	q := NewQueue[testEvent](AutoClear)

	last := q.SendBatch(
		testEvent{value: 0},
		testEvent{value: 1},
		testEvent{value: 2},
		testEvent{value: 3},
		testEvent{value: 4},
	)

	assert.Equal(t, uint64(5), last)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, values(q))
	assert.Equal(t, uint64(0), q.SendBatch(), "empty batch returns 0")
}

func TestQueue_Extend(t *testing.T) {
	q := NewQueue[testEvent](AutoClear)

	q.Extend(func(yield func(testEvent) bool) {
		for _, v := range []int{7, 8, 9} {
			if !yield(testEvent{value: v}) {
				return
			}
		}
	})

	assert.Equal(t, []int{7, 8, 9}, values(q))
}

func TestQueue_SendDefault(t *testing.T) {
	q := NewQueue[testEvent](AutoClear)

	q.SendDefault()
	q.SendDefault()
	q.SendDefault()

	assert.Equal(t, []int{0, 0, 0}, values(q))
}

func TestQueue_Stats(t *testing.T) {
	q := NewQueue[testEvent](Persistent)
	sendValues(q, 1, 2, 3)
	q.ConsumeSeq(1)

	stats := q.Stats()
	assert.Equal(t, Stats{Len: 3, Unconsumed: 2, NextSeq: 4, Sent: 3, Consumed: 1}, stats)

	q.ClearConsumed()
	q.Clear()

	stats = q.Stats()
	assert.Equal(t, Stats{Len: 0, Unconsumed: 0, NextSeq: 4, Sent: 3, Consumed: 1, Cleared: 3}, stats)
}

func TestQueue_Policy(t *testing.T) {
	assert.Equal(t, AutoClear, NewQueue[testEvent](AutoClear).Policy())
	assert.Equal(t, Persistent, NewQueue[testEvent](Persistent).Policy())
}

func TestQueue_PersistentSurvivesManyTraversals(t *testing.T) {
	q := NewQueue[testEvent](Persistent)
	sendValues(q, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9)

	for range 3 {
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, values(q))
	}
}

func TestQueue_ManyOperationsKeepSeqSorted(t *testing.T) {
	q := NewQueue[testEvent](Persistent)

	for round := range 20 {
		sendValues(q, round, round+1, round+2)
		for ev := range q.Read() {
			if ev.Get().value%2 == 0 {
				ev.Consume()
			}
		}
		if round%3 == 0 {
			q.ClearConsumed()
		}
	}

	assert.True(t, slices.IsSortedFunc(q.records, func(a, b record[testEvent]) int {
		return int(a.seq) - int(b.seq)
	}))
	for _, v := range values(q) {
		assert.Equal(t, 1, v%2, "even values were all consumed")
	}
}
