package borsh

import (
	"errors"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// ErrDiscriminatorMismatch reports data whose leading bytes are not the
// expected discriminator.
var ErrDiscriminatorMismatch = errors.New("discriminator mismatch")

// Decoder reads Borsh-encoded values from a byte slice.
type Decoder struct {
	dec *bin.Decoder
	err error
}

// NewDecoder returns a Decoder over data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{dec: bin.NewBorshDecoder(data)}
}

// Err returns the first error encountered.
func (d *Decoder) Err() error {
	return d.err
}

// Fail records err unless an error is already recorded.
func (d *Decoder) Fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return d.dec.Remaining()
}

// ReadFixed reads exactly n bytes into a fresh slice.
func (d *Decoder) ReadFixed(n int) []byte {
	if d.err != nil {
		return make([]byte, n)
	}
	b, err := d.dec.ReadNBytes(n)
	if err != nil {
		d.Fail(fmt.Errorf("borsh: read %d bytes: %w", n, err))
		return make([]byte, n)
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (d *Decoder) ReadU8() uint8 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.ReadUint8()
	if err != nil {
		d.Fail(fmt.Errorf("borsh: read u8: %w", err))
	}
	return v
}

func (d *Decoder) ReadU16() uint16 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.ReadUint16(le)
	if err != nil {
		d.Fail(fmt.Errorf("borsh: read u16: %w", err))
	}
	return v
}

func (d *Decoder) ReadU32() uint32 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.ReadUint32(le)
	if err != nil {
		d.Fail(fmt.Errorf("borsh: read u32: %w", err))
	}
	return v
}

func (d *Decoder) ReadU64() uint64 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.ReadUint64(le)
	if err != nil {
		d.Fail(fmt.Errorf("borsh: read u64: %w", err))
	}
	return v
}

func (d *Decoder) ReadI8() int8   { return int8(d.ReadU8()) }
func (d *Decoder) ReadI16() int16 { return int16(d.ReadU16()) }
func (d *Decoder) ReadI32() int32 { return int32(d.ReadU32()) }
func (d *Decoder) ReadI64() int64 { return int64(d.ReadU64()) }

func (d *Decoder) ReadF32() float32 { return math.Float32frombits(d.ReadU32()) }
func (d *Decoder) ReadF64() float64 { return math.Float64frombits(d.ReadU64()) }

// ReadBool reads one byte that must be 0 or 1.
func (d *Decoder) ReadBool() bool {
	b := d.ReadU8()
	if b > 1 {
		d.Fail(fmt.Errorf("borsh: invalid bool byte %d", b))
		return false
	}
	return b == 1
}

func (d *Decoder) ReadU128() Uint128 {
	if d.err != nil {
		return Uint128{}
	}
	v, err := d.dec.ReadUint128(le)
	if err != nil {
		d.Fail(fmt.Errorf("borsh: read u128: %w", err))
	}
	return v
}

func (d *Decoder) ReadI128() Int128 {
	if d.err != nil {
		return Int128{}
	}
	v, err := d.dec.ReadInt128(le)
	if err != nil {
		d.Fail(fmt.Errorf("borsh: read i128: %w", err))
	}
	return Int128(v)
}

// ReadLen reads a u32 length prefix. A length larger than the unread data
// is rejected before any allocation.
func (d *Decoder) ReadLen() int {
	n := d.ReadU32()
	if d.err != nil {
		return 0
	}
	if int64(n) > int64(d.Remaining()) {
		d.Fail(fmt.Errorf("borsh: length %d exceeds %d remaining bytes", n, d.Remaining()))
		return 0
	}
	return int(n)
}

// ReadBytes reads a length-prefixed byte buffer.
func (d *Decoder) ReadBytes() []byte {
	return d.ReadFixed(d.ReadLen())
}

// ReadString reads a length-prefixed UTF-8 string.
func (d *Decoder) ReadString() string {
	return string(d.ReadBytes())
}

// ReadOptionTag reads the presence byte of an Option.
func (d *Decoder) ReadOptionTag() bool {
	tag := d.ReadU8()
	if tag > 1 {
		d.Fail(fmt.Errorf("borsh: invalid option tag %d", tag))
		return false
	}
	return tag == 1
}

// ReadPublicKey reads 32 raw key bytes.
func (d *Decoder) ReadPublicKey() solana.PublicKey {
	return solana.PublicKeyFromBytes(d.ReadFixed(solana.PublicKeyLength))
}

// CheckDiscriminator verifies that data starts with want and returns the
// rest. On mismatch the returned error wraps ErrDiscriminatorMismatch.
func CheckDiscriminator(name string, want, data []byte) ([]byte, error) {
	if len(data) < len(want) {
		return nil, fmt.Errorf("%s: %w: data is %d bytes, discriminator is %d", name, ErrDiscriminatorMismatch, len(data), len(want))
	}
	for i := range want {
		if data[i] != want[i] {
			return nil, fmt.Errorf("%s: %w: expected %x, got %x", name, ErrDiscriminatorMismatch, want, data[:len(want)])
		}
	}
	return data[len(want):], nil
}
