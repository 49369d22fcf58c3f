package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/consumable/internal/trace"
)

// Snapshot captures what a scenario run observed.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	Observations []Observation
	Final        map[string]any
}

// NewSnapshot builds the snapshot of a finished run.
func NewSnapshot(name string, result *Result) Snapshot {
	return Snapshot{
		ScenarioName: name,
		Observations: result.Observations,
		Final: map[string]any{
			"len":        result.Final.Len,
			"unconsumed": result.Final.Unconsumed,
			"next_seq":   result.Final.NextSeq,
			"sent":       result.Final.Sent,
			"consumed":   result.Final.Consumed,
			"cleared":    result.Final.Cleared,
		},
	}
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization. trace.MarshalCanonical only handles primitives, slices and
// maps.
func (s *Snapshot) toCanonicalMap() map[string]any {
	obs := make([]any, len(s.Observations))
	for i, o := range s.Observations {
		values := make([]int64, len(o.Values))
		for j, v := range o.Values {
			values[j] = int64(v)
		}
		m := map[string]any{
			"round":  o.Round,
			"system": o.System,
			"values": values,
		}
		if o.SubRound != 0 {
			m["sub_round"] = o.SubRound
		}
		obs[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"observations":  obs,
		"final":         s.Final,
	}
}

// Marshal returns the canonical JSON form of the snapshot.
func (s *Snapshot) Marshal() ([]byte, error) {
	return trace.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot run. A snapshot mismatch fails t
// through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot := NewSnapshot(name, result)
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
