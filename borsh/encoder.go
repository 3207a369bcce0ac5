package borsh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var le = binary.LittleEndian

// Encoder appends Borsh-encoded values to an in-memory buffer.
type Encoder struct {
	buf bytes.Buffer
	enc *bin.Encoder
	err error
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	e := &Encoder{}
	e.enc = bin.NewBorshEncoder(&e.buf)
	return e
}

// Bytes returns the encoded data.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Err returns the first error encountered.
func (e *Encoder) Err() error {
	return e.err
}

// Fail records err unless an error is already recorded.
func (e *Encoder) Fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *Encoder) check(err error) {
	if err != nil {
		e.Fail(err)
	}
}

// WriteRaw appends b with no length prefix.
func (e *Encoder) WriteRaw(b []byte) {
	if e.err != nil {
		return
	}
	e.check(e.enc.WriteBytes(b, false))
}

func (e *Encoder) WriteU8(v uint8) {
	if e.err != nil {
		return
	}
	e.check(e.enc.WriteUint8(v))
}

func (e *Encoder) WriteU16(v uint16) {
	if e.err != nil {
		return
	}
	e.check(e.enc.WriteUint16(v, le))
}

func (e *Encoder) WriteU32(v uint32) {
	if e.err != nil {
		return
	}
	e.check(e.enc.WriteUint32(v, le))
}

func (e *Encoder) WriteU64(v uint64) {
	if e.err != nil {
		return
	}
	e.check(e.enc.WriteUint64(v, le))
}

func (e *Encoder) WriteI8(v int8)   { e.WriteU8(uint8(v)) }
func (e *Encoder) WriteI16(v int16) { e.WriteU16(uint16(v)) }
func (e *Encoder) WriteI32(v int32) { e.WriteU32(uint32(v)) }
func (e *Encoder) WriteI64(v int64) { e.WriteU64(uint64(v)) }

func (e *Encoder) WriteF32(v float32) { e.WriteU32(math.Float32bits(v)) }
func (e *Encoder) WriteF64(v float64) { e.WriteU64(math.Float64bits(v)) }

// WriteBool writes 1 for true and 0 for false.
func (e *Encoder) WriteBool(v bool) {
	if v {
		e.WriteU8(1)
	} else {
		e.WriteU8(0)
	}
}

// WriteU128 writes a 128-bit integer as two little-endian halves.
func (e *Encoder) WriteU128(v Uint128) {
	if e.err != nil {
		return
	}
	e.check(e.enc.WriteUint128(v, le))
}

// WriteI128 writes a two's-complement 128-bit integer.
func (e *Encoder) WriteI128(v Int128) {
	if e.err != nil {
		return
	}
	e.check(e.enc.WriteInt128(bin.Int128(v), le))
}

// WriteLen writes a u32 length prefix.
func (e *Encoder) WriteLen(n int) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		e.Fail(fmt.Errorf("borsh: length %d does not fit in u32", n))
		return
	}
	e.WriteU32(uint32(n))
}

// WriteBytes writes a length-prefixed byte buffer.
func (e *Encoder) WriteBytes(b []byte) {
	e.WriteLen(len(b))
	e.WriteRaw(b)
}

// WriteString writes a length-prefixed UTF-8 string.
func (e *Encoder) WriteString(s string) {
	e.WriteBytes([]byte(s))
}

// WriteOptionTag writes the presence byte of an Option.
func (e *Encoder) WriteOptionTag(present bool) {
	e.WriteBool(present)
}

// WritePublicKey writes the 32 raw key bytes.
func (e *Encoder) WritePublicKey(pk solana.PublicKey) {
	e.WriteRaw(pk[:])
}
