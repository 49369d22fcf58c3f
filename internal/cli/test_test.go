package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTest_AllScenariosPass(t *testing.T) {
	stdout, _, err := execute(t, "test", scenariosDir)
	require.NoError(t, err, stdout)

	assert.Contains(t, stdout, "✓ consume_odd_add_ten")
	assert.Contains(t, stdout, "✓ first_consumer_wins")
	assert.Contains(t, stdout, "Test Summary: 8 passed, 0 failed, 8 total")
	assert.Contains(t, stdout, "✓ All scenarios passed")
}

func TestTest_Filter(t *testing.T) {
	stdout, _, err := execute(t, "test", "--filter", "halve_*", scenariosDir)
	require.NoError(t, err)

	assert.Contains(t, stdout, "✓ halve_evens_auto_clear")
	assert.Contains(t, stdout, "✓ halve_evens_persistent")
	assert.NotContains(t, stdout, "consume_odd_add_ten")
	assert.Contains(t, stdout, "2 total")
}

func TestTest_InvalidFilter(t *testing.T) {
	_, _, err := execute(t, "test", "--filter", "[", scenariosDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_JSON(t *testing.T) {
	stdout, _, err := execute(t, "test", "--format", "json", "--filter", "consume_*", scenariosDir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "consume_odd_add_ten", resp.Data.Scenarios[0].Name)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Digest)
}

func TestTest_Failures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_passing.yaml", passingScenario)
	writeFile(t, dir, "b_failing.yaml", failingScenario)
	writeFile(t, dir, "c_invalid.yaml", invalidScenario)

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, stdout, "✓ passing")
	assert.Contains(t, stdout, "✗ failing")
	assert.Contains(t, stdout, "✗ c_invalid.yaml")
	assert.Contains(t, stdout, "failed to load scenario")
	assert.Contains(t, stdout, "Test Summary: 1 passed, 2 failed, 3 total")
}

func TestTest_FailuresJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "failing.yaml", failingScenario)

	stdout, _, err := execute(t, "test", "--format", "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "1 scenario(s) failed", resp.Error.Message)
}

func TestTest_GoldenUpdateAndCompare(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "passing.yaml", passingScenario)

	_, _, err := execute(t, "test", "--update", dir)
	require.NoError(t, err)

	goldenPath := filepath.Join(dir, "golden", "passing.golden")
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"passing"`)
	assert.Contains(t, string(golden), `"values":[4]`)

	stdout, _, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ passing")

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"stale":true}`), 0o644))
	stdout, _, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, stdout, "does not match golden file")
}

func TestTest_MissingDir(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_NoScenarios(t *testing.T) {
	stdout, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, stdout, "No scenarios found.")
}
