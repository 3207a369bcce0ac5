package ir

import (
	"fmt"
	"strings"
)

// TypeRef is a sealed reference to a type.
// Only Primitive, Defined, Option, Vec, Array and Path implement it.
type TypeRef interface {
	typeRef() // Sealed
	String() string
}

// PrimitiveKind names a built-in scalar.
type PrimitiveKind string

const (
	KindBool   PrimitiveKind = "bool"
	KindU8     PrimitiveKind = "u8"
	KindI8     PrimitiveKind = "i8"
	KindU16    PrimitiveKind = "u16"
	KindI16    PrimitiveKind = "i16"
	KindU32    PrimitiveKind = "u32"
	KindI32    PrimitiveKind = "i32"
	KindF32    PrimitiveKind = "f32"
	KindU64    PrimitiveKind = "u64"
	KindI64    PrimitiveKind = "i64"
	KindF64    PrimitiveKind = "f64"
	KindU128   PrimitiveKind = "u128"
	KindI128   PrimitiveKind = "i128"
	KindU256   PrimitiveKind = "u256"
	KindI256   PrimitiveKind = "i256"
	KindBytes  PrimitiveKind = "bytes"
	KindString PrimitiveKind = "string"
	KindPubkey PrimitiveKind = "pubkey"
)

// primitiveSizes holds the encoded width of fixed-size primitives.
var primitiveSizes = map[PrimitiveKind]int{
	KindBool:   1,
	KindU8:     1,
	KindI8:     1,
	KindU16:    2,
	KindI16:    2,
	KindU32:    4,
	KindI32:    4,
	KindF32:    4,
	KindU64:    8,
	KindI64:    8,
	KindF64:    8,
	KindU128:   16,
	KindI128:   16,
	KindU256:   32,
	KindI256:   32,
	KindPubkey: 32,
}

// LookupPrimitive maps an IDL spelling to a primitive kind.
// The legacy spelling "publicKey" is accepted alongside "pubkey".
func LookupPrimitive(s string) (PrimitiveKind, bool) {
	if s == "publicKey" {
		return KindPubkey, true
	}
	k := PrimitiveKind(s)
	if _, ok := primitiveSizes[k]; ok {
		return k, true
	}
	if k == KindBytes || k == KindString {
		return k, true
	}
	return "", false
}

// Size returns the encoded width of a fixed-size primitive.
// Variable-length kinds (bytes, string) report false.
func (k PrimitiveKind) Size() (int, bool) {
	n, ok := primitiveSizes[k]
	return n, ok
}

// Signed reports whether k is a signed integer kind.
func (k PrimitiveKind) Signed() bool {
	switch k {
	case KindI8, KindI16, KindI32, KindI64, KindI128, KindI256:
		return true
	}
	return false
}

// Integer reports whether k is an integer kind of any width.
func (k PrimitiveKind) Integer() bool {
	switch k {
	case KindU8, KindI8, KindU16, KindI16, KindU32, KindI32,
		KindU64, KindI64, KindU128, KindI128, KindU256, KindI256:
		return true
	}
	return false
}

// Primitive is a built-in scalar type.
type Primitive struct {
	Kind PrimitiveKind
}

// Defined names an entry in the type table.
type Defined struct {
	Name string
}

// Option is a value that may be absent. Encoded with a one-byte tag.
type Option struct {
	Elem TypeRef
}

// Vec is a length-prefixed sequence.
type Vec struct {
	Elem TypeRef
}

// Array is a fixed-length sequence with no prefix.
type Array struct {
	Elem TypeRef
	Len  int
}

// Path is a module-qualified name such as "crate::state::Pool".
// The compiler replaces every Path with a Defined reference.
type Path struct {
	Qualified string
}

func (Primitive) typeRef() {}
func (Defined) typeRef()   {}
func (Option) typeRef()    {}
func (Vec) typeRef()       {}
func (Array) typeRef()     {}
func (Path) typeRef()      {}

func (p Primitive) String() string { return string(p.Kind) }
func (d Defined) String() string   { return d.Name }
func (o Option) String() string    { return "Option<" + o.Elem.String() + ">" }
func (v Vec) String() string       { return "Vec<" + v.Elem.String() + ">" }
func (a Array) String() string     { return fmt.Sprintf("[%s; %d]", a.Elem, a.Len) }
func (p Path) String() string      { return p.Qualified }

// Segments splits a qualified path into its module segments and name.
func (p Path) Segments() []string {
	return strings.Split(p.Qualified, "::")
}

// SimpleName returns the trailing segment of a possibly qualified name.
func SimpleName(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}

// IsQualified reports whether name carries module segments.
func IsQualified(name string) bool {
	return strings.Contains(name, "::")
}
