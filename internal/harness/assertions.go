package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/consumable/internal/trace"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // "observation" or "final"
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []trace.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] round=%d %s", ev.Seq, ev.Round, ev.Kind)
			if ev.SubRound != 0 {
				fmt.Fprintf(&buf, " sub_round=%d", ev.SubRound)
			}
			if ev.System != "" {
				fmt.Fprintf(&buf, " system=%s", ev.System)
			}
			if ev.Queue != "" {
				fmt.Fprintf(&buf, " queue=%s removed=%d", ev.Queue, ev.Removed)
			}
			if ev.Error != "" {
				fmt.Fprintf(&buf, " error=%q", ev.Error)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// checkExpectations compares result with the scenario's expect and final
// clauses and returns one error per mismatch.
func checkExpectations(s *Scenario, result *Result) []*AssertionError {
	var failures []*AssertionError

	for _, e := range s.Expect {
		if err := assertObservation(result, e); err != nil {
			failures = append(failures, err)
		}
	}

	if s.Final != nil {
		if err := assertFinal(result, *s.Final); err != nil {
			failures = append(failures, err)
		}
	}

	return failures
}

// assertObservation checks that system observed exactly e.Values, in order,
// during the given round and sub-round.
func assertObservation(result *Result, e Expectation) *AssertionError {
	o, ok := result.Observed(e.Round, e.SubRound, e.System)
	if !ok {
		return &AssertionError{
			Type:     "observation",
			Expected: fmt.Sprintf("%s to observe %v in %s", e.System, e.Values, roundLabel(e.Round, e.SubRound)),
			Actual:   "no observation recorded",
			Trace:    result.Trace,
		}
	}

	want := e.Values
	if want == nil {
		want = []int{}
	}
	if !slices.Equal(o.Values, want) {
		return &AssertionError{
			Type:     "observation",
			Expected: fmt.Sprintf("%s to observe %v in %s", e.System, want, roundLabel(e.Round, e.SubRound)),
			Actual:   fmt.Sprintf("observed %v", o.Values),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertFinal(result *Result, f FinalState) *AssertionError {
	var want, got []string
	if f.Len != nil && *f.Len != result.Final.Len {
		want = append(want, fmt.Sprintf("len=%d", *f.Len))
		got = append(got, fmt.Sprintf("len=%d", result.Final.Len))
	}
	if f.Unconsumed != nil && *f.Unconsumed != result.Final.Unconsumed {
		want = append(want, fmt.Sprintf("unconsumed=%d", *f.Unconsumed))
		got = append(got, fmt.Sprintf("unconsumed=%d", result.Final.Unconsumed))
	}
	if len(want) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     "final",
		Expected: strings.Join(want, ", "),
		Actual:   strings.Join(got, ", "),
	}
}

func roundLabel(round int64, subRound int) string {
	if subRound == 0 {
		return fmt.Sprintf("round %d", round)
	}
	return fmt.Sprintf("round %d sub-round %d", round, subRound)
}
