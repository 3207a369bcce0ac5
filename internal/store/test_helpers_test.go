package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/anchorgo/internal/compiler"
	"github.com/roach88/anchorgo/internal/ir"
)

// createTestStore opens a fresh registry in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// loadFixture compiles one of the shared IDL fixtures and returns the model
// with its source bytes.
func loadFixture(t *testing.T, name string) (*ir.Idl, []byte) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "idls", name))
	require.NoError(t, err)
	idl, err := compiler.CompileJSON(data)
	require.NoError(t, err)
	return idl, data
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	require.NoError(t, err)
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		cols = append(cols, name)
	}
	return cols
}

// listNames lists sqlite_master entries of one type, optionally limited
// to a table.
func listNames(t *testing.T, db *sql.DB, kind, table string) []string {
	t.Helper()
	query := "SELECT name FROM sqlite_master WHERE type = ?"
	args := []any{kind}
	if table != "" {
		query += " AND tbl_name = ?"
		args = append(args, table)
	}
	rows, err := db.Query(query, args...)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}
