package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: cli-run
description: one contact with a name
actors:
  green: com.example.green
steps:
  - actor: green
    op: create_contact
    args: { restricted: false, name: Smith }
    bind: rec
  - actor: green
    op: aggregate_for_record
    args: { record: $rec }
    bind: agg
  - actor: green
    op: data_count
    args: { aggregate: $agg }
    expect: { count: 1 }
`

const failingScenario = `
name: cli-run-fail
description: the expect disagrees with the service
actors:
  green: com.example.green
steps:
  - actor: green
    op: create_contact
    args: { restricted: false }
    bind: rec
  - actor: green
    op: aggregate_for_record
    args: { record: $rec }
    bind: agg
  - actor: green
    op: data_count
    args: { aggregate: $agg }
    expect: { count: 7 }
`

func writeScenario(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func executeRun(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommandPassingScenario(t *testing.T) {
	path := writeScenario(t, passingScenario)

	out, err := executeRun(t, "run", path)
	require.NoError(t, err)

	assert.Contains(t, out, "scenario cli-run: PASS")
	assert.Contains(t, out, "create_contact")
	assert.Contains(t, out, `"count":1`)
}

func TestRunCommandFailingScenarioExitCode(t *testing.T) {
	path := writeScenario(t, failingScenario)

	out, err := executeRun(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL")
}

func TestRunCommandJSONOutput(t *testing.T) {
	path := writeScenario(t, passingScenario)

	out, err := executeRun(t, "run", path, "--format", "json")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["pass"])
	trace, ok := data["trace"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cli-run", trace["scenario"])
}

func TestRunCommandMissingFile(t *testing.T) {
	_, err := executeRun(t, "run", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommandMalformedScenario(t *testing.T) {
	path := writeScenario(t, "name: only-a-name\n")

	_, err := executeRun(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommandRequiresArgument(t *testing.T) {
	_, err := executeRun(t, "run")
	require.Error(t, err)
}
