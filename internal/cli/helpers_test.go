package cli

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const scenariosDir = "../../testdata/scenarios"

var consumeOddScenario = filepath.Join(scenariosDir, "consume_odd_add_ten.yaml")

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cmd, opts := newRootCommand()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(t.Context())
	opts.close()
	return stdout.String(), stderr.String(), err
}

// writeFile writes content to name inside dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const passingScenario = `name: passing
description: one value survives the round
rounds: 1
systems:
  - name: send
    stage: pre_update
    send: [4]
  - name: observe
    observe: true
expect:
  - round: 1
    system: observe
    values: [4]
`

const failingScenario = `name: failing
description: the observer expects the wrong value
rounds: 1
systems:
  - name: send
    stage: pre_update
    send: [4]
  - name: observe
    observe: true
expect:
  - round: 1
    system: observe
    values: [5]
`

const invalidScenario = `name: invalid
description: unknown field
rounds: 1
systems:
  - name: send
    sned: [1]
`
