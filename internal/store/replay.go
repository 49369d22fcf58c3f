package store

import (
	"context"
	"fmt"

	"github.com/roach88/consumable/internal/trace"
)

// Verification is the result of comparing a journaled run against an
// expected digest.
type Verification struct {
	RunID    string `json:"run_id"`
	Events   int    `json:"events"`
	Digest   string `json:"digest"`
	Expected string `json:"expected"`
	Match    bool   `json:"match"`
}

// DigestRun computes the trace digest of a journaled run.
func (s *Store) DigestRun(ctx context.Context, runID string) (string, int, error) {
	evs, err := s.ReadRun(ctx, runID)
	if err != nil {
		return "", 0, fmt.Errorf("digest run: %w", err)
	}
	if len(evs) == 0 {
		return "", 0, fmt.Errorf("digest run: no events for run %q", runID)
	}

	digest, err := trace.Digest(evs)
	if err != nil {
		return "", 0, fmt.Errorf("digest run: %w", err)
	}
	return digest, len(evs), nil
}

// VerifyRun checks that a journaled run reproduces expected. Two runs of the
// same deterministic scenario must produce the same digest even though
// their run and round ids differ.
func (s *Store) VerifyRun(ctx context.Context, runID, expected string) (Verification, error) {
	digest, n, err := s.DigestRun(ctx, runID)
	if err != nil {
		return Verification{}, err
	}
	return Verification{
		RunID:    runID,
		Events:   n,
		Digest:   digest,
		Expected: expected,
		Match:    digest == expected,
	}, nil
}
