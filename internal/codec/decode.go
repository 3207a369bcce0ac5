package codec

import (
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/roach88/anchorgo/borsh"
	"github.com/roach88/anchorgo/internal/ir"
)

// Decode reads one value of type ref from data. Trailing bytes are an
// error; use DecodeFrom to read a prefix.
func Decode(types *ir.TypeTable, ref ir.TypeRef, data []byte) (Value, error) {
	d := borsh.NewDecoder(data)
	v, err := DecodeFrom(d, types, ref)
	if err != nil {
		return nil, err
	}
	if n := d.Remaining(); n > 0 {
		return nil, ir.Errorf(ir.KindInvalidValue, ir.StageDecode, nil, "%d trailing bytes after %s", n, ref)
	}
	return v, nil
}

// DecodeFrom reads one value of type ref from d. On failure no value is
// returned.
func DecodeFrom(d *borsh.Decoder, types *ir.TypeTable, ref ir.TypeRef) (Value, error) {
	dec := &decoder{d: d, types: types}
	v, err := dec.value(ref)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeFields reads values for an ordered field list into a Struct.
func DecodeFields(d *borsh.Decoder, types *ir.TypeTable, owner string, fields []ir.Field) (Struct, error) {
	dec := &decoder{d: d, types: types}
	s, err := dec.fields(owner, fields)
	if err != nil {
		return Struct{}, err
	}
	return s, nil
}

type decoder struct {
	d     *borsh.Decoder
	types *ir.TypeTable
	path  []string
}

func (dec *decoder) fail(cause error, format string, args ...any) error {
	where := strings.Join(dec.path, ".")
	if where == "" {
		where = "value"
	}
	e := ir.Errorf(ir.KindInvalidValue, ir.StageDecode, []string{where}, format, args...)
	e.Err = cause
	return e
}

// check converts a sticky decoder error into an ir.Error.
func (dec *decoder) check(what string) error {
	if err := dec.d.Err(); err != nil {
		return dec.fail(err, "cannot read %s", what)
	}
	return nil
}

func (dec *decoder) value(ref ir.TypeRef) (Value, error) {
	switch t := ref.(type) {
	case ir.Primitive:
		return dec.primitive(t.Kind)
	case ir.Option:
		present := dec.d.ReadOptionTag()
		if err := dec.check(ref.String()); err != nil {
			return nil, err
		}
		if !present {
			return None(), nil
		}
		v, err := dec.value(t.Elem)
		if err != nil {
			return nil, err
		}
		return Some(v), nil
	case ir.Vec:
		n := dec.d.ReadLen()
		if err := dec.check(ref.String()); err != nil {
			return nil, err
		}
		return dec.elems(t.Elem, n)
	case ir.Array:
		return dec.elems(t.Elem, t.Len)
	case ir.Defined:
		def, ok := dec.types.Lookup(t.Name)
		if !ok {
			return nil, dec.fail(nil, "type %q is not defined", t.Name)
		}
		return dec.defined(def)
	}
	return nil, dec.fail(nil, "cannot decode %s", ref)
}

// elems reads n values. Every value takes at least one byte except
// zero-sized ones, so preallocation is capped by the input left.
func (dec *decoder) elems(elem ir.TypeRef, n int) (List, error) {
	out := make(List, 0, min(n, dec.d.Remaining()))
	for i := 0; i < n; i++ {
		dec.path = append(dec.path, fmt.Sprintf("[%d]", i))
		v, err := dec.value(elem)
		dec.path = dec.path[:len(dec.path)-1]
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (dec *decoder) defined(def *ir.TypeDef) (Value, error) {
	switch body := def.Body.(type) {
	case ir.StructBody:
		return dec.fields(def.Name, body.Fields)
	case ir.EnumBody:
		tag := dec.d.ReadU8()
		if err := dec.check("enum " + def.Name); err != nil {
			return nil, err
		}
		if int(tag) >= len(body.Variants) {
			return nil, dec.fail(nil, "enum %s has no variant with tag %d", def.Name, tag)
		}
		vr := body.Variants[tag]
		if vr.IsUnit() {
			return Unit(vr.Name), nil
		}
		s, err := dec.fields(def.Name+"::"+vr.Name, vr.Fields)
		if err != nil {
			return nil, err
		}
		return Enum{Variant: vr.Name, Fields: &s}, nil
	case ir.AliasBody:
		return dec.value(body.Target)
	}
	return nil, dec.fail(nil, "type %s has no body", def.Name)
}

func (dec *decoder) fields(owner string, decl []ir.Field) (Struct, error) {
	s := Struct{Fields: make([]FieldValue, 0, len(decl))}
	for _, f := range decl {
		dec.path = append(dec.path, f.Name)
		v, err := dec.value(f.Type)
		dec.path = dec.path[:len(dec.path)-1]
		if err != nil {
			return Struct{}, err
		}
		s.Fields = append(s.Fields, F(f.Name, v))
	}
	return s, nil
}

func (dec *decoder) primitive(kind ir.PrimitiveKind) (Value, error) {
	var v Value
	switch kind {
	case ir.KindBool:
		v = Bool(dec.d.ReadBool())
	case ir.KindF32:
		v = F32(dec.d.ReadF32())
	case ir.KindF64:
		v = F64(dec.d.ReadF64())
	case ir.KindString:
		v = String(dec.d.ReadString())
	case ir.KindBytes:
		v = Bytes(dec.d.ReadBytes())
	case ir.KindPubkey:
		v = PublicKey(dec.d.ReadPublicKey())
	default:
		if !kind.Integer() {
			return nil, dec.fail(nil, "unknown primitive %q", kind)
		}
		size, _ := kind.Size()
		v = Int{Kind: kind, V: intFromBytes(kind, dec.d.ReadFixed(size))}
	}
	if err := dec.check(string(kind)); err != nil {
		return nil, err
	}
	return v, nil
}

// intFromBytes reads a little-endian two's-complement integer.
func intFromBytes(kind ir.PrimitiveKind, le []byte) *big.Int {
	be := slices.Clone(le)
	slices.Reverse(be)
	n := new(big.Int).SetBytes(be)
	if kind.Signed() && len(be) > 0 && be[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(be)*8)))
	}
	return n
}
