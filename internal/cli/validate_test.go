package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/anchorgo/internal/compiler"
)

func TestValidateValidIDL(t *testing.T) {
	stdout, err := execute(t, "validate", idlPath("legacy_counter.json"), idlPath("new_counter.json"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ "+idlPath("legacy_counter.json")+" valid")
	assert.Contains(t, stdout, "✓ "+idlPath("new_counter.json")+" valid")
}

func TestValidateValidIDLJSON(t *testing.T) {
	stdout, err := execute(t, "--format", "json", "validate", idlPath("legacy_counter.json"))
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateFindings(t *testing.T) {
	path := writeIDL(t, "low.json", `{"name":"tiny","version":"0.0.1","instructions":[{"name":"ping","accounts":[],"args":[]}],"errors":[{"code":100,"name":"Low","msg":"low"}]}`)

	stdout, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ "+path)
	assert.Contains(t, stdout, compiler.ErrErrorCodeRange)
}

func TestValidateFindingsJSON(t *testing.T) {
	path := writeIDL(t, "low.json", `{"name":"tiny","version":"0.0.1","instructions":[{"name":"ping","accounts":[],"args":[]}],"errors":[{"code":100,"name":"Low","msg":"low"}]}`)

	stdout, err := execute(t, "--format", "json", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string             `json:"status"`
		Data   []ValidationResult `json:"data"`
		Error  *CLIError          `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.False(t, resp.Data[0].Valid)
	require.NotNil(t, resp.Error)
	assert.Equal(t, compiler.ErrErrorCodeRange, resp.Error.Code)
}

func TestValidateExitCodeFollowsErrorKind(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    int
		kind    string
	}{
		{
			name:    "cyclic",
			content: `{"name":"p","version":"1","types":[{"name":"A","type":{"kind":"struct","fields":[{"name":"a","type":{"defined":"A"}}]}}]}`,
			code:    ExitTypeResolution,
			kind:    "CYCLIC_TYPE",
		},
		{
			name:    "unrecognized",
			content: `{"foo":1}`,
			code:    ExitUnrecognizedFormat,
			kind:    "UNRECOGNIZED_FORMAT",
		},
		{
			name:    "missing_discriminator",
			content: `{"address":"` + programAddress + `","metadata":{"name":"p","version":"1","spec":"0.1.0"},"instructions":[{"name":"ping","accounts":[],"args":[]}]}`,
			code:    ExitMalformedDocument,
			kind:    "MISSING_REQUIRED_FIELD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeIDL(t, tt.name+".json", tt.content)
			stdout, err := execute(t, "validate", path)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
			assert.Contains(t, stdout, tt.kind)
		})
	}
}

func TestValidateNonExistentFile(t *testing.T) {
	_, err := execute(t, "validate", "/nonexistent/idl.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}
