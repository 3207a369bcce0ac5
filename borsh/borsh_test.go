package borsh

import (
	"errors"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoderLayout(t *testing.T) {
	e := NewEncoder()
	e.WriteU8(7)
	e.WriteU16(0x0102)
	e.WriteI32(-1)
	e.WriteBool(true)
	e.WriteString("hi")
	e.WriteOptionTag(false)
	require.NoError(t, e.Err())

	assert.Equal(t, []byte{
		7,
		0x02, 0x01,
		0xff, 0xff, 0xff, 0xff,
		1,
		2, 0, 0, 0, 'h', 'i',
		0,
	}, e.Bytes())
}

func TestRoundTripScalars(t *testing.T) {
	pk := solana.MustPublicKeyFromBase58("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS")

	e := NewEncoder()
	e.WriteU64(math.MaxUint64)
	e.WriteI64(math.MinInt64)
	e.WriteI8(-5)
	e.WriteI16(-300)
	e.WriteF32(1.5)
	e.WriteF64(-2.25)
	e.WriteU128(Uint128{Lo: 1, Hi: 2})
	e.WriteI128(Int128{Lo: math.MaxUint64, Hi: math.MaxUint64})
	e.WriteBytes([]byte{9, 8})
	e.WritePublicKey(pk)
	require.NoError(t, e.Err())

	d := NewDecoder(e.Bytes())
	assert.Equal(t, uint64(math.MaxUint64), d.ReadU64())
	assert.Equal(t, int64(math.MinInt64), d.ReadI64())
	assert.Equal(t, int8(-5), d.ReadI8())
	assert.Equal(t, int16(-300), d.ReadI16())
	assert.Equal(t, float32(1.5), d.ReadF32())
	assert.Equal(t, -2.25, d.ReadF64())
	assert.Equal(t, Uint128{Lo: 1, Hi: 2}, d.ReadU128())
	assert.Equal(t, "-1", d.ReadI128().String())
	assert.Equal(t, []byte{9, 8}, d.ReadBytes())
	assert.Equal(t, pk, d.ReadPublicKey())
	require.NoError(t, d.Err())
	assert.Zero(t, d.Remaining())
}

func TestUint128String(t *testing.T) {
	assert.Equal(t, "18446744073709551616", Uint128{Hi: 1}.String())
	assert.Equal(t, "-18446744073709551616", Int128{Hi: math.MaxUint64}.String())
	assert.Equal(t, "-1", Int128{Lo: math.MaxUint64, Hi: math.MaxUint64}.BigInt().String())
}

func TestInt128Layout(t *testing.T) {
	e := NewEncoder()
	e.WriteU128(Uint128{Lo: 1, Hi: 2})
	e.WriteI128(Int128{Lo: 0xfffffffffffffffe, Hi: math.MaxUint64})
	require.NoError(t, e.Err())
	assert.Equal(t, []byte{
		1, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0,
		0xfe, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	}, e.Bytes())

	d := NewDecoder(e.Bytes()[:20])
	assert.Equal(t, "36893488147419103233", d.ReadU128().String())
	assert.Equal(t, Int128{}, d.ReadI128())
	assert.ErrorContains(t, d.Err(), "read i128")
}

func TestDecoderStickyError(t *testing.T) {
	d := NewDecoder([]byte{1})
	assert.Equal(t, uint32(0), d.ReadU32())
	require.Error(t, d.Err())

	// Later reads do not consume or overwrite the first error.
	first := d.Err()
	assert.Equal(t, uint8(0), d.ReadU8())
	assert.Equal(t, first, d.Err())
}

func TestDecoderRejectsInvalidTags(t *testing.T) {
	d := NewDecoder([]byte{2})
	d.ReadBool()
	assert.ErrorContains(t, d.Err(), "invalid bool")

	d = NewDecoder([]byte{3})
	d.ReadOptionTag()
	assert.ErrorContains(t, d.Err(), "invalid option tag")
}

func TestDecoderRejectsOversizedLength(t *testing.T) {
	d := NewDecoder([]byte{0xff, 0xff, 0xff, 0x7f, 'a'})
	assert.Empty(t, d.ReadString())
	assert.ErrorContains(t, d.Err(), "exceeds")
}

func TestReadFixedCopies(t *testing.T) {
	data := []byte{1, 2, 3}
	d := NewDecoder(data)
	got := d.ReadFixed(2)
	require.NoError(t, d.Err())
	data[0] = 9
	assert.Equal(t, []byte{1, 2}, got)
}

func TestEncoderRejectsNegativeLength(t *testing.T) {
	e := NewEncoder()
	e.WriteLen(-1)
	assert.Error(t, e.Err())
}

func TestCheckDiscriminator(t *testing.T) {
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	rest, err := CheckDiscriminator("Counter", want, append(append([]byte{}, want...), 42))
	require.NoError(t, err)
	assert.Equal(t, []byte{42}, rest)

	_, err = CheckDiscriminator("Counter", want, []byte{1, 2, 3, 4, 5, 6, 7, 9})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDiscriminatorMismatch))
	assert.Contains(t, err.Error(), "Counter")

	_, err = CheckDiscriminator("Counter", want, []byte{1, 2})
	assert.ErrorIs(t, err, ErrDiscriminatorMismatch)
}
