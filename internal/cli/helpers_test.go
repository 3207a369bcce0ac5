package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	counterAccountHex = "ffb004f5bcfd7c19da075cb2ff5ec6817613de530b692a8735477769da47430cbd8154335c4a83272900000000000000010700000002000000ffff020001020304"
	programAddress    = "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"
	rentSysvar        = "SysvarRent111111111111111111111111111111111"
)

// idlPath returns the path of a shared IDL fixture.
func idlPath(name string) string {
	return filepath.Join("..", "..", "testdata", "idls", name)
}

// writeIDL writes an IDL document to a temp file.
func writeIDL(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
