package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitErrorCodes(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "scenario failed")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("plain error")))
}

func TestExitErrorWrapping(t *testing.T) {
	inner := fmt.Errorf("open scenario.yaml: no such file")
	err := WrapExitError(ExitCommandError, "load scenario", inner)

	assert.Contains(t, err.Error(), "load scenario")
	assert.Contains(t, err.Error(), "no such file")
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("outer: %w", err)))
}

func TestFormatterJSONSuccess(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Success(map[string]any{"pass": true}))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
}

func TestFormatterJSONError(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Error("E201", "load scenario", nil))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E201", resp.Error.Code)
}

func TestFormatterTextError(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	require.NoError(t, f.Error("E201", "load scenario", nil))
	assert.Contains(t, buf.String(), "Error [E201]: load scenario")
}

func TestVerboseLogRouting(t *testing.T) {
	var out, errOut bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errOut, Verbose: true}

	f.VerboseLog("loaded %d steps", 3)
	assert.Empty(t, out.String(), "diagnostics must not corrupt the JSON stream")
	assert.Contains(t, errOut.String(), "loaded 3 steps")

	f.Verbose = false
	errOut.Reset()
	f.VerboseLog("quiet")
	assert.Empty(t, errOut.String())
}
