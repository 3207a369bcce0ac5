package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/anchorgo/internal/ir"
)

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitDiscriminator, GetExitCode(NewExitError(ExitDiscriminator, "x")))

	wrapped := WrapExitError(ExitCommandError, "outer", errors.New("inner"))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "outer: inner", wrapped.Error())
}

func TestExitCodeForKind(t *testing.T) {
	tests := []struct {
		kind ir.ErrorKind
		code int
	}{
		{ir.KindUnrecognizedFormat, ExitUnrecognizedFormat},
		{ir.KindMissingRequiredField, ExitMalformedDocument},
		{ir.KindDuplicateDefinition, ExitMalformedDocument},
		{ir.KindUnsupportedType, ExitMalformedDocument},
		{ir.KindMalformedAddress, ExitMalformedDocument},
		{ir.KindUnresolvedType, ExitTypeResolution},
		{ir.KindAmbiguousPath, ExitTypeResolution},
		{ir.KindCyclicType, ExitTypeResolution},
		{ir.KindMalformedDiscriminator, ExitDiscriminator},
		{ir.KindDiscriminatorCollision, ExitDiscriminator},
		{ir.KindDiscriminatorMismatch, ExitDiscriminator},
		{ir.KindArgumentMismatch, ExitFailure},
		{ir.KindInvalidValue, ExitFailure},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.code, ExitCodeForKind(tt.kind))
		})
	}
}

func TestFailPipelineErrorJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	err := f.Fail(ExitCommandError, ErrCodeGeneric,
		ir.Errorf(ir.KindUnresolvedType, ir.StageResolve, []string{"Counter.mode"}, "type %q is not defined", "Mode"))
	assert.Equal(t, ExitTypeResolution, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNRESOLVED_TYPE", resp.Error.Code)

	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(ir.StageResolve), details["stage"])
	assert.Equal(t, []any{"Counter.mode"}, details["names"])
}

func TestFailPlainErrorText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	err := f.Fail(ExitCommandError, ErrCodeWriteFailed, errors.New("disk full"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "Error [E007]: disk full\n", buf.String())
}

func TestVerboseLogUsesErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	f.VerboseLog("loaded %d", 3)
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 3\n", errOut.String())
}
