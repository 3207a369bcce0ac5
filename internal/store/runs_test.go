package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/anchorgo/internal/testutil"
)

func TestRecordRun(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	idl, source := loadFixture(t, "legacy_counter.json")
	hash, err := s.SaveProgram(ctx, idl, source)
	require.NoError(t, err)

	id, err := s.RecordRun(ctx, hash, "counter", "out/counter", []string{"program.go", "types.go"})
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	run, err := s.Run(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, hash, run.ProgramHash)
	assert.Equal(t, "counter", run.Package)
	assert.Equal(t, "out/counter", run.OutDir)
	assert.Equal(t, []string{"program.go", "types.go"}, run.Files)
}

func TestRunsOrderedBySeq(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	idl, source := loadFixture(t, "legacy_counter.json")
	hash, err := s.SaveProgram(ctx, idl, source)
	require.NoError(t, err)

	first, err := s.RecordRun(ctx, hash, "counter", "a", nil)
	require.NoError(t, err)
	second, err := s.RecordRun(ctx, hash, "counter", "b", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	runs, err := s.Runs(ctx, hash)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first, runs[0].ID)
	assert.Equal(t, second, runs[1].ID)
	assert.Empty(t, runs[0].Files)
}

func TestRecordRunUnknownProgram(t *testing.T) {
	s := createTestStore(t)

	_, err := s.RecordRun(context.Background(), "missing", "p", "out", nil)
	assert.Error(t, err)
}

func TestRunNotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Run(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Run(context.Background(), "not-a-uuid")
	assert.Error(t, err)
}

func TestRecordRunDeterministicIDs(t *testing.T) {
	ctx := context.Background()
	ids := testutil.NewIDSequence()
	s, err := Open(filepath.Join(t.TempDir(), "registry.db"), WithIDGenerator(ids.Next))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	idl, source := loadFixture(t, "legacy_counter.json")
	hash, err := s.SaveProgram(ctx, idl, source)
	require.NoError(t, err)

	first, err := s.RecordRun(ctx, hash, "counter", "a", nil)
	require.NoError(t, err)
	second, err := s.RecordRun(ctx, hash, "counter", "b", nil)
	require.NoError(t, err)
	assert.Equal(t, testutil.ID(1), first)
	assert.Equal(t, testutil.ID(2), second)

	run, err := s.Run(ctx, testutil.ID(2))
	require.NoError(t, err)
	assert.Equal(t, "b", run.OutDir)
}
