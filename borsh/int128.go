package borsh

import (
	"math/big"

	bin "github.com/gagliardetto/binary"
)

// Uint128 is an unsigned 128-bit integer split into 64-bit halves. Leave
// Endianness unset; Borsh is always little-endian.
type Uint128 = bin.Uint128

// Int128 is a two's-complement signed 128-bit integer. It prints signed,
// where bin.Int128 prints its unsigned bit pattern.
type Int128 bin.Int128

// BigInt returns v as a big.Int.
func (v Int128) BigInt() *big.Int { return bin.Int128(v).BigInt() }

// String returns the decimal form.
func (v Int128) String() string { return v.BigInt().String() }
