package store

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/anchorgo/internal/ir"
)

func TestSaveProgramRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	idl, source := loadFixture(t, "legacy_counter.json")

	hash, err := s.SaveProgram(ctx, idl, source)
	require.NoError(t, err)
	assert.Equal(t, ir.MustIdlHash(idl), hash)

	loaded, err := s.LoadProgram(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, ir.Tree(idl), ir.Tree(loaded))

	canonical, err := s.Canonical(ctx, hash)
	require.NoError(t, err)
	want, err := ir.CanonicalJSON(idl)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(canonical))

	info, err := s.Program(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "counter", info.Name)
	assert.Equal(t, ir.OriginLegacy, info.Origin)
	assert.Equal(t, "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS", info.Address)
}

func TestSaveProgramIdempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	idl, source := loadFixture(t, "legacy_counter.json")

	first, err := s.SaveProgram(ctx, idl, source)
	require.NoError(t, err)
	second, err := s.SaveProgram(ctx, idl, source)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	programs, err := s.ListPrograms(ctx)
	require.NoError(t, err)
	assert.Len(t, programs, 1)
}

func TestListProgramsOrder(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	programs, err := s.ListPrograms(ctx)
	require.NoError(t, err)
	assert.NotNil(t, programs)
	assert.Empty(t, programs)

	for _, name := range []string{"new_counter.json", "legacy_counter.json"} {
		idl, source := loadFixture(t, name)
		_, err := s.SaveProgram(ctx, idl, source)
		require.NoError(t, err)
	}

	programs, err = s.ListPrograms(ctx)
	require.NoError(t, err)
	require.Len(t, programs, 2)
	assert.Equal(t, ir.OriginNewFormat, programs[0].Origin)
	assert.Equal(t, ir.OriginLegacy, programs[1].Origin)
	assert.Less(t, programs[0].Seq, programs[1].Seq)
}

func TestLoadProgramNotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.LoadProgram(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Program(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiscriminatorsStored(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	idl, source := loadFixture(t, "legacy_counter.json")
	hash, err := s.SaveProgram(ctx, idl, source)
	require.NoError(t, err)

	tags, err := s.Discriminators(ctx, hash)
	require.NoError(t, err)

	var got []string
	for _, d := range tags {
		got = append(got, d.Kind+":"+d.Name)
	}
	assert.Equal(t, []string{
		"instruction:increment",
		"instruction:initialize",
		"instruction:set_mode",
		"account:Counter",
		"event:CounterChanged",
	}, got)
	assert.Equal(t, hex.EncodeToString([]byte{255, 176, 4, 245, 188, 253, 124, 25}), tags[3].Hex)
}

func TestMatchByPrefix(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	for _, name := range []string{"legacy_counter.json", "new_counter.json"} {
		idl, source := loadFixture(t, name)
		_, err := s.SaveProgram(ctx, idl, source)
		require.NoError(t, err)
	}

	account := append([]byte{255, 176, 4, 245, 188, 253, 124, 25}, make([]byte, 48)...)
	matches, err := s.Match(ctx, account)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, KindAccount, m.Tag.Kind)
		assert.Equal(t, "Counter", m.Tag.Name)
		assert.Equal(t, m.Program.Hash, m.Tag.ProgramHash)
	}
	assert.Equal(t, ir.OriginLegacy, matches[0].Program.Origin)

	ix := []byte{159, 47, 147, 247, 85, 53, 84, 230, 0}
	matches, err = s.Match(ctx, ix)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "set_mode", matches[0].Tag.Name)
}

func TestMatchShortOrUnknownData(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	idl, source := loadFixture(t, "legacy_counter.json")
	_, err := s.SaveProgram(ctx, idl, source)
	require.NoError(t, err)

	for _, data := range [][]byte{nil, {255, 176, 4}, {1, 2, 3, 4, 5, 6, 7, 8, 9}} {
		matches, err := s.Match(ctx, data)
		require.NoError(t, err)
		assert.Empty(t, matches, "data %x", data)
	}
}
