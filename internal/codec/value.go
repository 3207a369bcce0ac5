package codec

import (
	"bytes"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/anchorgo/internal/ir"
)

// Value is a sealed interface over decoded Borsh data.
// Only Int, Float, Bool, String, Bytes, PublicKey, Option, List, Struct
// and Enum implement it.
type Value interface {
	codecValue() // Sealed
}

// Int is an integer of any primitive width. V holds the mathematical
// value; the encoder checks that it fits Kind.
type Int struct {
	Kind ir.PrimitiveKind
	V    *big.Int
}

// Float is an f32 or f64.
type Float struct {
	Kind ir.PrimitiveKind
	V    float64
}

// Bool is a bool.
type Bool bool

// String is a UTF-8 string.
type String string

// Bytes is a length-prefixed byte buffer.
type Bytes []byte

// PublicKey is a 32-byte account address.
type PublicKey solana.PublicKey

// Option holds Value, or nothing when Value is nil.
type Option struct {
	Value Value
}

// List is a Vec or a fixed-length array.
type List []Value

// FieldValue is one named field of a Struct.
type FieldValue struct {
	Name  string
	Value Value
}

// Struct holds fields in declaration order.
type Struct struct {
	Fields []FieldValue
}

// Enum is one variant of a tagged union. Fields is nil for unit variants.
type Enum struct {
	Variant string
	Fields  *Struct
}

func (Int) codecValue()       {}
func (Float) codecValue()     {}
func (Bool) codecValue()      {}
func (String) codecValue()    {}
func (Bytes) codecValue()     {}
func (PublicKey) codecValue() {}
func (Option) codecValue()    {}
func (List) codecValue()      {}
func (Struct) codecValue()    {}
func (Enum) codecValue()      {}

func U8(v uint8) Int   { return Int{Kind: ir.KindU8, V: new(big.Int).SetUint64(uint64(v))} }
func U16(v uint16) Int { return Int{Kind: ir.KindU16, V: new(big.Int).SetUint64(uint64(v))} }
func U32(v uint32) Int { return Int{Kind: ir.KindU32, V: new(big.Int).SetUint64(uint64(v))} }
func U64(v uint64) Int { return Int{Kind: ir.KindU64, V: new(big.Int).SetUint64(v)} }
func I8(v int8) Int    { return Int{Kind: ir.KindI8, V: big.NewInt(int64(v))} }
func I16(v int16) Int  { return Int{Kind: ir.KindI16, V: big.NewInt(int64(v))} }
func I32(v int32) Int  { return Int{Kind: ir.KindI32, V: big.NewInt(int64(v))} }
func I64(v int64) Int  { return Int{Kind: ir.KindI64, V: big.NewInt(v)} }

// BigInt returns an Int of any kind.
func BigInt(kind ir.PrimitiveKind, v *big.Int) Int {
	return Int{Kind: kind, V: new(big.Int).Set(v)}
}

func F32(v float32) Float { return Float{Kind: ir.KindF32, V: float64(v)} }
func F64(v float64) Float { return Float{Kind: ir.KindF64, V: v} }

// Some wraps a present option value.
func Some(v Value) Option { return Option{Value: v} }

// None is the absent option value.
func None() Option { return Option{} }

// F builds a FieldValue.
func F(name string, v Value) FieldValue {
	return FieldValue{Name: name, Value: v}
}

// NewStruct builds a Struct from fields in order.
func NewStruct(fields ...FieldValue) Struct {
	return Struct{Fields: fields}
}

// Unit builds a unit enum variant.
func Unit(variant string) Enum {
	return Enum{Variant: variant}
}

// Variant builds an enum variant carrying fields.
func Variant(variant string, fields ...FieldValue) Enum {
	s := NewStruct(fields...)
	return Enum{Variant: variant, Fields: &s}
}

// Get returns the field with the given name.
func (s Struct) Get(name string) (Value, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Equal reports whether a and b hold the same data.
// Integers compare by value and kind; structs compare fields in order.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Int:
		y, ok := b.(Int)
		return ok && x.Kind == y.Kind && x.V != nil && y.V != nil && x.V.Cmp(y.V) == 0
	case Float:
		y, ok := b.(Float)
		return ok && x == y
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Bytes:
		y, ok := b.(Bytes)
		return ok && bytes.Equal(x, y)
	case PublicKey:
		y, ok := b.(PublicKey)
		return ok && x == y
	case Option:
		y, ok := b.(Option)
		if !ok || (x.Value == nil) != (y.Value == nil) {
			return false
		}
		return x.Value == nil || Equal(x.Value, y.Value)
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Struct:
		y, ok := b.(Struct)
		return ok && structEqual(x, y)
	case Enum:
		y, ok := b.(Enum)
		if !ok || x.Variant != y.Variant {
			return false
		}
		return structEqual(fieldsOf(x), fieldsOf(y))
	}
	return false
}

func structEqual(a, b Struct) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i].Name != b.Fields[i].Name || !Equal(a.Fields[i].Value, b.Fields[i].Value) {
			return false
		}
	}
	return true
}

func fieldsOf(e Enum) Struct {
	if e.Fields == nil {
		return Struct{}
	}
	return *e.Fields
}
