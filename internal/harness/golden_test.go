package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioDir holds the scenarios shipped with the repository.
const scenarioDir = "../../testdata/scenarios"

// TestScenarios runs every shipped scenario, checks its expectations and
// compares its snapshot with testdata/golden.
func TestScenarios(t *testing.T) {
	files, err := FindScenarios(scenarioDir)
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, name, s.Name, "file name must match scenario name")

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_Marshal(t *testing.T) {
	result := NewResult()
	result.Observations = []Observation{
		{Round: 1, SubRound: 2, System: "s", Values: []int{3}},
	}
	result.Final.Len = 1
	result.Final.NextSeq = 2

	snap := NewSnapshot("snap", result)
	data, err := snap.Marshal()
	require.NoError(t, err)

	want := `{"final":{"cleared":0,"consumed":0,"len":1,"next_seq":2,"sent":0,"unconsumed":0},` +
		`"observations":[{"round":1,"sub_round":2,"system":"s","values":[3]}],` +
		`"scenario_name":"snap"}`
	assert.Equal(t, want, string(data))
}
