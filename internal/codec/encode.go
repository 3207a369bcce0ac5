package codec

import (
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/roach88/anchorgo/borsh"
	"github.com/roach88/anchorgo/internal/ir"
)

// Encode serializes v as ref. The type table must be resolved.
func Encode(types *ir.TypeTable, ref ir.TypeRef, v Value) ([]byte, error) {
	e := borsh.NewEncoder()
	if err := EncodeTo(e, types, ref, v); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// EncodeTo appends v to e.
func EncodeTo(e *borsh.Encoder, types *ir.TypeTable, ref ir.TypeRef, v Value) error {
	enc := &encoder{e: e, types: types}
	if err := enc.value(ref, v); err != nil {
		return err
	}
	if err := e.Err(); err != nil {
		return ir.Errorf(ir.KindInvalidValue, ir.StageEncode, nil, "write failed: %v", err)
	}
	return nil
}

// EncodeFields appends values for an ordered field list, such as an
// instruction's arguments. A count mismatch fails with ArgumentMismatch.
func EncodeFields(e *borsh.Encoder, types *ir.TypeTable, owner string, fields []ir.Field, values []Value) error {
	if len(values) != len(fields) {
		return ir.Errorf(ir.KindArgumentMismatch, ir.StageEncode, []string{owner},
			"%s takes %d arguments, got %d", owner, len(fields), len(values))
	}
	enc := &encoder{e: e, types: types, path: []string{owner}}
	for i, f := range fields {
		if err := enc.field(f, values[i]); err != nil {
			return err
		}
	}
	if err := e.Err(); err != nil {
		return ir.Errorf(ir.KindInvalidValue, ir.StageEncode, []string{owner}, "write failed: %v", err)
	}
	return nil
}

type encoder struct {
	e     *borsh.Encoder
	types *ir.TypeTable

	// path locates the value being written for error messages.
	path []string
}

func (enc *encoder) fail(format string, args ...any) error {
	where := strings.Join(enc.path, ".")
	if where == "" {
		where = "value"
	}
	return ir.Errorf(ir.KindInvalidValue, ir.StageEncode, []string{where}, format, args...)
}

func (enc *encoder) field(f ir.Field, v Value) error {
	enc.path = append(enc.path, f.Name)
	defer func() { enc.path = enc.path[:len(enc.path)-1] }()
	return enc.value(f.Type, v)
}

func (enc *encoder) value(ref ir.TypeRef, v Value) error {
	if v == nil {
		return enc.fail("missing value for %s", ref)
	}
	switch t := ref.(type) {
	case ir.Primitive:
		return enc.primitive(t.Kind, v)
	case ir.Option:
		opt, ok := v.(Option)
		if !ok {
			return enc.fail("expected option, got %T", v)
		}
		enc.e.WriteOptionTag(opt.Value != nil)
		if opt.Value == nil {
			return nil
		}
		return enc.value(t.Elem, opt.Value)
	case ir.Vec:
		list, ok := v.(List)
		if !ok {
			return enc.fail("expected list, got %T", v)
		}
		enc.e.WriteLen(len(list))
		return enc.elems(t.Elem, list)
	case ir.Array:
		list, ok := v.(List)
		if !ok {
			return enc.fail("expected list, got %T", v)
		}
		if len(list) != t.Len {
			return enc.fail("array needs %d elements, got %d", t.Len, len(list))
		}
		return enc.elems(t.Elem, list)
	case ir.Defined:
		def, ok := enc.types.Lookup(t.Name)
		if !ok {
			return enc.fail("type %q is not defined", t.Name)
		}
		return enc.defined(def, v)
	}
	return enc.fail("cannot encode %s", ref)
}

func (enc *encoder) elems(elem ir.TypeRef, list List) error {
	for i, item := range list {
		enc.path = append(enc.path, fmt.Sprintf("[%d]", i))
		err := enc.value(elem, item)
		enc.path = enc.path[:len(enc.path)-1]
		if err != nil {
			return err
		}
	}
	return nil
}

func (enc *encoder) defined(def *ir.TypeDef, v Value) error {
	switch body := def.Body.(type) {
	case ir.StructBody:
		s, ok := v.(Struct)
		if !ok {
			return enc.fail("expected struct %s, got %T", def.Name, v)
		}
		return enc.fields(def.Name, body.Fields, s)
	case ir.EnumBody:
		ev, ok := v.(Enum)
		if !ok {
			return enc.fail("expected enum %s, got %T", def.Name, v)
		}
		idx := slices.IndexFunc(body.Variants, func(vr ir.Variant) bool { return vr.Name == ev.Variant })
		if idx < 0 {
			return enc.fail("enum %s has no variant %q", def.Name, ev.Variant)
		}
		enc.e.WriteU8(uint8(idx))
		return enc.fields(def.Name+"::"+ev.Variant, body.Variants[idx].Fields, fieldsOf(ev))
	case ir.AliasBody:
		return enc.value(body.Target, v)
	}
	return enc.fail("type %s has no body", def.Name)
}

// fields writes s in the order of decl. Every declared field must be
// present and s must not carry extra fields.
func (enc *encoder) fields(owner string, decl []ir.Field, s Struct) error {
	if len(s.Fields) != len(decl) {
		return enc.fail("%s has %d fields, got %d", owner, len(decl), len(s.Fields))
	}
	for _, f := range decl {
		fv, ok := s.Get(f.Name)
		if !ok {
			return enc.fail("%s is missing field %q", owner, f.Name)
		}
		if err := enc.field(f, fv); err != nil {
			return err
		}
	}
	return nil
}

func (enc *encoder) primitive(kind ir.PrimitiveKind, v Value) error {
	switch kind {
	case ir.KindBool:
		b, ok := v.(Bool)
		if !ok {
			return enc.fail("expected bool, got %T", v)
		}
		enc.e.WriteBool(bool(b))
	case ir.KindF32, ir.KindF64:
		f, ok := v.(Float)
		if !ok {
			return enc.fail("expected %s, got %T", kind, v)
		}
		if kind == ir.KindF32 {
			enc.e.WriteF32(float32(f.V))
		} else {
			enc.e.WriteF64(f.V)
		}
	case ir.KindString:
		s, ok := v.(String)
		if !ok {
			return enc.fail("expected string, got %T", v)
		}
		enc.e.WriteString(string(s))
	case ir.KindBytes:
		b, ok := v.(Bytes)
		if !ok {
			return enc.fail("expected bytes, got %T", v)
		}
		enc.e.WriteBytes(b)
	case ir.KindPubkey:
		pk, ok := v.(PublicKey)
		if !ok {
			return enc.fail("expected pubkey, got %T", v)
		}
		enc.e.WriteRaw(pk[:])
	default:
		if !kind.Integer() {
			return enc.fail("unknown primitive %q", kind)
		}
		n, ok := v.(Int)
		if !ok || n.V == nil {
			return enc.fail("expected %s, got %T", kind, v)
		}
		b, err := intBytes(kind, n.V)
		if err != nil {
			return enc.fail("%v", err)
		}
		enc.e.WriteRaw(b)
	}
	return nil
}

// intBytes returns the little-endian two's-complement form of n.
func intBytes(kind ir.PrimitiveKind, n *big.Int) ([]byte, error) {
	size, _ := kind.Size()
	bits := uint(size * 8)
	lo, hi := intRange(kind)
	if n.Cmp(lo) < 0 || n.Cmp(hi) > 0 {
		return nil, fmt.Errorf("%s overflows %s", n, kind)
	}
	u := new(big.Int).Set(n)
	if u.Sign() < 0 {
		u.Add(u, new(big.Int).Lsh(big.NewInt(1), bits))
	}
	out := u.FillBytes(make([]byte, size))
	slices.Reverse(out)
	return out, nil
}

// intRange returns the inclusive bounds of an integer kind.
func intRange(kind ir.PrimitiveKind) (lo, hi *big.Int) {
	size, _ := kind.Size()
	bits := uint(size * 8)
	one := big.NewInt(1)
	if kind.Signed() {
		hi = new(big.Int).Lsh(one, bits-1)
		lo = new(big.Int).Neg(hi)
		hi.Sub(hi, one)
		return lo, hi
	}
	hi = new(big.Int).Lsh(one, bits)
	return new(big.Int), hi.Sub(hi, one)
}
