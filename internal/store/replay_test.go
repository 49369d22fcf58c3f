package store

import (
	"context"
	"testing"

	"github.com/roach88/consumable/internal/trace"
)

func TestDigestRun_MatchesInMemoryDigest(t *testing.T) {
	s := createTestStore(t)
	evs := sampleRun("run-1")
	recordAll(t, s, evs)

	want, err := trace.Digest(evs)
	if err != nil {
		t.Fatal(err)
	}

	got, n, err := s.DigestRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("DigestRun() failed: %v", err)
	}
	if n != len(evs) {
		t.Errorf("DigestRun() counted %d events, want %d", n, len(evs))
	}
	if got != want {
		t.Errorf("DigestRun() = %s, want %s", got, want)
	}
}

func TestVerifyRun_IgnoresIDs(t *testing.T) {
	s := createTestStore(t)
	recordAll(t, s, sampleRun("run-1"))

	second := sampleRun("run-2")
	for i := range second {
		second[i].RoundID = "other-round-id"
	}
	recordAll(t, s, second)

	ctx := context.Background()
	d1, _, err := s.DigestRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}

	v, err := s.VerifyRun(ctx, "run-2", d1)
	if err != nil {
		t.Fatalf("VerifyRun() failed: %v", err)
	}
	if !v.Match {
		t.Errorf("VerifyRun() digest %s != %s", v.Digest, v.Expected)
	}
	if v.Events != 8 {
		t.Errorf("VerifyRun() events = %d, want 8", v.Events)
	}
}

func TestVerifyRun_Mismatch(t *testing.T) {
	s := createTestStore(t)
	recordAll(t, s, sampleRun("run-1"))

	v, err := s.VerifyRun(context.Background(), "run-1", "deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	if v.Match {
		t.Error("VerifyRun() matched a bogus digest")
	}
}

func TestDigestRun_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	if _, _, err := s.DigestRun(context.Background(), "missing"); err == nil {
		t.Error("DigestRun() on unknown run should fail")
	}
}
