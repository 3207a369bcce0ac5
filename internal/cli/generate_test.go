package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/anchorgo/internal/clientgen"
)

func TestGenerateWritesPackage(t *testing.T) {
	out := t.TempDir()

	stdout, err := execute(t, "generate", "-o", out, idlPath("legacy_counter.json"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ counter")
	assert.Contains(t, stdout, "(6 files)")

	for _, name := range clientgen.GoFiles {
		data, err := os.ReadFile(filepath.Join(out, "counter", name))
		require.NoError(t, err, name)
		assert.Contains(t, string(data), "package counter")
	}
}

func TestGenerateMultipleIDLs(t *testing.T) {
	out := t.TempDir()
	tiny := writeIDL(t, "tiny.json", `{"name":"tiny","version":"0.0.1","instructions":[{"name":"ping","accounts":[],"args":[]}]}`)

	stdout, err := execute(t, "--format", "json", "generate", "-o", out, idlPath("legacy_counter.json"), tiny)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   GenerateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Programs, 2)
	assert.Equal(t, "counter", resp.Data.Programs[0].Package)
	assert.Equal(t, "tiny", resp.Data.Programs[1].Package)
	assert.Len(t, resp.Data.Programs[0].Hash, 64)
	assert.Empty(t, resp.Data.Programs[0].RunID)
	assert.DirExists(t, filepath.Join(out, "tiny"))
}

func TestGeneratePackageOverride(t *testing.T) {
	out := t.TempDir()
	_, err := execute(t, "generate", "-o", out, "--package", "countercli", idlPath("new_counter.json"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out, "countercli", "program.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "package countercli")
}

func TestGeneratePackageNeedsSingleIDL(t *testing.T) {
	_, err := execute(t, "generate", "-o", t.TempDir(), "--package", "x",
		idlPath("legacy_counter.json"), idlPath("new_counter.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGenerateWritesNothingOnFailure(t *testing.T) {
	out := t.TempDir()
	broken := writeIDL(t, "broken.json", `{"name":"p","version":"1","instructions":[],"types":[{"name":"A","type":{"kind":"struct","fields":[{"name":"a","type":{"defined":"B"}}]}}]}`)

	stdout, err := execute(t, "generate", "-o", out, idlPath("legacy_counter.json"), broken)
	require.Error(t, err)
	assert.Equal(t, ExitTypeResolution, GetExitCode(err))
	assert.Contains(t, stdout, "UNRESOLVED_TYPE")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateMissingFile(t *testing.T) {
	_, err := execute(t, "generate", "-o", t.TempDir(), "/nonexistent/idl.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}

func TestGenerateRecordsRun(t *testing.T) {
	out := t.TempDir()
	db := filepath.Join(t.TempDir(), "registry.db")

	stdout, err := execute(t, "--format", "json", "generate", "-o", out, "--db", db, idlPath("legacy_counter.json"))
	require.NoError(t, err)

	var resp struct {
		Data GenerateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data.Programs, 1)
	assert.NotEmpty(t, resp.Data.Programs[0].RunID)

	stdout, err = execute(t, "--format", "json", "registry", "show", "--db", db, "counter")
	require.NoError(t, err)
	var show struct {
		Data ProgramDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &show))
	assert.Equal(t, resp.Data.Programs[0].Hash, show.Data.Hash)
	require.Len(t, show.Data.Runs, 1)
	assert.Equal(t, resp.Data.Programs[0].RunID, show.Data.Runs[0].ID)
	assert.ElementsMatch(t, clientgen.GoFiles, show.Data.Runs[0].Files)
}
