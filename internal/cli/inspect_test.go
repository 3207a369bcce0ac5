package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectText(t *testing.T) {
	stdout, err := execute(t, "inspect", idlPath("legacy_counter.json"))
	require.NoError(t, err)

	assert.Contains(t, stdout, "Program: counter 0.1.0 (legacy)")
	assert.Contains(t, stdout, "Address: "+programAddress)
	assert.Contains(t, stdout, "Instructions (3):")
	assert.Contains(t, stdout, "0b12680968ae3b21")
	assert.Contains(t, stdout, "memo: Option<string>")
	assert.Contains(t, stdout, "counter [writable, pda]")
	assert.Contains(t, stdout, "ffb004f5bcfd7c19")
	assert.Contains(t, stdout, "62359db0c1a747f2")
	assert.Contains(t, stdout, "Mode")
	assert.Contains(t, stdout, "enum, 3 variants")
	assert.Contains(t, stdout, "6000")
}

func TestInspectJSON(t *testing.T) {
	stdout, err := execute(t, "--format", "json", "inspect", idlPath("new_counter.json"))
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   InspectResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data.Hash, 64)
	assert.Equal(t, "new", resp.Data.Model["origin"])
}

func TestInspectUnrecognizedFormat(t *testing.T) {
	path := writeIDL(t, "junk.json", `not json`)

	stdout, err := execute(t, "inspect", path)
	require.Error(t, err)
	assert.Equal(t, ExitUnrecognizedFormat, GetExitCode(err))
	assert.Contains(t, stdout, "UNRECOGNIZED_FORMAT")
}

func TestInspectYAML(t *testing.T) {
	stdout, err := execute(t, "inspect", idlPath("tiny.yaml"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "Program: tiny 0.0.1 (legacy)")
	assert.Contains(t, stdout, "ping")
}
