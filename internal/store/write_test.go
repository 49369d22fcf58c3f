package store

import (
	"context"
	"testing"

	"github.com/roach88/consumable/internal/trace"
)

func TestRecord_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := createTestEvent("run-1", 1, 1, trace.KindRoundStart)
	for i := 0; i < 3; i++ {
		if err := s.Record(ctx, ev); err != nil {
			t.Fatalf("Record() attempt %d failed: %v", i, err)
		}
	}

	n, err := s.Count(ctx, "run-1")
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestRecord_SameSeqDifferentRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, createTestEvent("run-a", 1, 1, trace.KindRoundStart)); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(ctx, createTestEvent("run-b", 1, 1, trace.KindRoundStart)); err != nil {
		t.Fatal(err)
	}

	for _, run := range []string{"run-a", "run-b"} {
		n, err := s.Count(ctx, run)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("Count(%s) = %d, want 1", run, n)
		}
	}
}

func TestRecord_CancelledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Record(ctx, createTestEvent("run-1", 1, 1, trace.KindRoundStart)); err == nil {
		t.Error("Record() with cancelled context should fail")
	}
}

func TestStore_ImplementsTracer(t *testing.T) {
	var _ trace.Tracer = (*Store)(nil)
}
