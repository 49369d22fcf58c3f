package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/consumable/internal/events"
	"github.com/roach88/consumable/internal/trace"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates a trace event with minimal required fields.
func createTestEvent(runID string, round, seq int64, kind trace.Kind) trace.Event {
	return trace.Event{
		RunID:   runID,
		RoundID: "round-test",
		Round:   round,
		Seq:     seq,
		Kind:    kind,
	}
}

// sampleRun returns the events of a two-round run with one failing system.
func sampleRun(runID string) []trace.Event {
	return []trace.Event{
		createTestEvent(runID, 1, 1, trace.KindRoundStart),
		{RunID: runID, RoundID: "r1", Round: 1, Seq: 2, Kind: trace.KindBoundaryClear, Queue: "numbers"},
		{RunID: runID, RoundID: "r1", Round: 1, Seq: 3, Kind: trace.KindSystem, System: "send"},
		{RunID: runID, RoundID: "r1", Round: 1, Seq: 4, Kind: trace.KindRoundEnd, Queues: map[string]events.Stats{
			"numbers": {Len: 3, Unconsumed: 3, NextSeq: 4, Sent: 3},
		}},
		createTestEvent(runID, 2, 5, trace.KindRoundStart),
		{RunID: runID, RoundID: "r2", Round: 2, Seq: 6, Kind: trace.KindBoundaryClear, Queue: "numbers", Removed: 3},
		{RunID: runID, RoundID: "r2", Round: 2, SubRound: 1, Seq: 7, Kind: trace.KindSystemError, System: "send", Error: "boom"},
		{RunID: runID, RoundID: "r2", Round: 2, Seq: 8, Kind: trace.KindRoundEnd, Queues: map[string]events.Stats{
			"numbers": {NextSeq: 4, Sent: 3, Cleared: 3},
		}},
	}
}
