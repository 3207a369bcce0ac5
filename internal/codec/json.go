package codec

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"slices"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/anchorgo/internal/ir"
)

// MarshalJSON renders v in its JSON form.
func MarshalJSON(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToAny renders v as plain JSON data (maps, slices, json.Number).
// Struct key order is lost; use MarshalJSON when order matters.
func ToAny(v Value) (any, error) {
	data, err := MarshalJSON(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func (v Int) MarshalJSON() ([]byte, error)       { return MarshalJSON(v) }
func (v Float) MarshalJSON() ([]byte, error)     { return MarshalJSON(v) }
func (v Bytes) MarshalJSON() ([]byte, error)     { return MarshalJSON(v) }
func (v PublicKey) MarshalJSON() ([]byte, error) { return MarshalJSON(v) }
func (v Option) MarshalJSON() ([]byte, error)    { return MarshalJSON(v) }
func (v List) MarshalJSON() ([]byte, error)      { return MarshalJSON(v) }
func (v Struct) MarshalJSON() ([]byte, error)    { return MarshalJSON(v) }
func (v Enum) MarshalJSON() ([]byte, error)      { return MarshalJSON(v) }

func writeJSON(buf *bytes.Buffer, v Value) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case Int:
		if x.V == nil {
			return fmt.Errorf("codec: %s integer has no value", x.Kind)
		}
		buf.WriteString(x.V.String())
	case Float:
		if math.IsNaN(x.V) || math.IsInf(x.V, 0) {
			return fmt.Errorf("codec: %v has no JSON form", x.V)
		}
		bits := 64
		if x.Kind == ir.KindF32 {
			bits = 32
		}
		buf.WriteString(strconv.FormatFloat(x.V, 'g', -1, bits))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(x)))
	case String:
		return writeString(buf, string(x))
	case Bytes:
		return writeString(buf, hex.EncodeToString(x))
	case PublicKey:
		return writeString(buf, solana.PublicKey(x).String())
	case Option:
		return writeJSON(buf, x.Value)
	case List:
		buf.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Struct:
		return writeStruct(buf, x)
	case Enum:
		buf.WriteByte('{')
		if err := writeString(buf, x.Variant); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeStruct(buf, fieldsOf(x)); err != nil {
			return err
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("codec: unknown value %T", v)
	}
	return nil
}

func writeStruct(buf *bytes.Buffer, s Struct) error {
	buf.WriteByte('{')
	for i, f := range s.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, f.Name); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeJSON(buf, f.Value); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// FromJSON converts plain data decoded from JSON or YAML into a Value of
// type ref. Integers may be numbers or strings (decimal or 0x-prefixed),
// bytes may be a hex string or a list of numbers, and unit enum variants
// may be given as a bare string.
func FromJSON(types *ir.TypeTable, ref ir.TypeRef, raw any) (Value, error) {
	c := &converter{types: types}
	return c.value(ref, raw)
}

// FieldsFromJSON converts arguments for an ordered field list. raw is
// either a positional list or an object keyed by field name. A count
// mismatch fails with ArgumentMismatch.
func FieldsFromJSON(types *ir.TypeTable, owner string, fields []ir.Field, raw any) ([]Value, error) {
	c := &converter{types: types, path: []string{owner}}
	var items []any
	switch r := raw.(type) {
	case nil:
	case []any:
		items = r
	case map[string]any:
		for _, f := range fields {
			item, ok := r[f.Name]
			if !ok {
				return nil, ir.Errorf(ir.KindArgumentMismatch, ir.StageEncode, []string{owner, f.Name},
					"%s: missing argument %q", owner, f.Name)
			}
			items = append(items, item)
		}
		if len(r) != len(fields) {
			return nil, ir.Errorf(ir.KindArgumentMismatch, ir.StageEncode, []string{owner},
				"%s takes %d arguments, got %d", owner, len(fields), len(r))
		}
	default:
		return nil, ir.Errorf(ir.KindArgumentMismatch, ir.StageEncode, []string{owner},
			"%s: arguments must be a list or an object, got %T", owner, raw)
	}
	if len(items) != len(fields) {
		return nil, ir.Errorf(ir.KindArgumentMismatch, ir.StageEncode, []string{owner},
			"%s takes %d arguments, got %d", owner, len(fields), len(items))
	}
	out := make([]Value, len(fields))
	for i, f := range fields {
		c.path = append(c.path, f.Name)
		v, err := c.value(f.Type, items[i])
		c.path = c.path[:len(c.path)-1]
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type converter struct {
	types *ir.TypeTable
	path  []string
}

func (c *converter) fail(format string, args ...any) error {
	where := strings.Join(c.path, ".")
	if where == "" {
		where = "value"
	}
	return ir.Errorf(ir.KindInvalidValue, ir.StageEncode, []string{where}, format, args...)
}

func (c *converter) value(ref ir.TypeRef, raw any) (Value, error) {
	switch t := ref.(type) {
	case ir.Primitive:
		return c.primitive(t.Kind, raw)
	case ir.Option:
		if raw == nil {
			return None(), nil
		}
		v, err := c.value(t.Elem, raw)
		if err != nil {
			return nil, err
		}
		return Some(v), nil
	case ir.Vec:
		return c.list(t.Elem, raw, -1)
	case ir.Array:
		return c.list(t.Elem, raw, t.Len)
	case ir.Defined:
		def, ok := c.types.Lookup(t.Name)
		if !ok {
			return nil, c.fail("type %q is not defined", t.Name)
		}
		return c.defined(def, raw)
	}
	return nil, c.fail("cannot convert %s", ref)
}

func (c *converter) list(elem ir.TypeRef, raw any, n int) (Value, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, c.fail("expected list, got %T", raw)
	}
	if n >= 0 && len(items) != n {
		return nil, c.fail("array needs %d elements, got %d", n, len(items))
	}
	out := make(List, 0, len(items))
	for i, item := range items {
		c.path = append(c.path, fmt.Sprintf("[%d]", i))
		v, err := c.value(elem, item)
		c.path = c.path[:len(c.path)-1]
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *converter) defined(def *ir.TypeDef, raw any) (Value, error) {
	switch body := def.Body.(type) {
	case ir.StructBody:
		return c.fields(def.Name, body.Fields, raw)
	case ir.EnumBody:
		name, payload, err := c.variantOf(def.Name, raw)
		if err != nil {
			return nil, err
		}
		idx := slices.IndexFunc(body.Variants, func(v ir.Variant) bool { return v.Name == name })
		if idx < 0 {
			return nil, c.fail("enum %s has no variant %q", def.Name, name)
		}
		vr := body.Variants[idx]
		if vr.IsUnit() {
			return Unit(vr.Name), nil
		}
		s, err := c.fields(def.Name+"::"+vr.Name, vr.Fields, payload)
		if err != nil {
			return nil, err
		}
		return Enum{Variant: vr.Name, Fields: &s}, nil
	case ir.AliasBody:
		return c.value(body.Target, raw)
	}
	return nil, c.fail("type %s has no body", def.Name)
}

func (c *converter) variantOf(enum string, raw any) (string, any, error) {
	switch r := raw.(type) {
	case string:
		return r, nil, nil
	case map[string]any:
		if len(r) != 1 {
			return "", nil, c.fail("enum %s value must name exactly one variant", enum)
		}
		for k, v := range r {
			return k, v, nil
		}
	}
	return "", nil, c.fail("expected enum %s, got %T", enum, raw)
}

func (c *converter) fields(owner string, decl []ir.Field, raw any) (Struct, error) {
	var obj map[string]any
	switch r := raw.(type) {
	case map[string]any:
		obj = r
	case []any:
		// Tuple layouts may be written positionally.
		if len(r) != len(decl) {
			return Struct{}, c.fail("%s has %d fields, got %d", owner, len(decl), len(r))
		}
		obj = make(map[string]any, len(r))
		for i, f := range decl {
			obj[f.Name] = r[i]
		}
	default:
		return Struct{}, c.fail("expected object for %s, got %T", owner, raw)
	}
	for key := range obj {
		if !slices.ContainsFunc(decl, func(f ir.Field) bool { return f.Name == key }) {
			return Struct{}, c.fail("%s has no field %q", owner, key)
		}
	}
	s := Struct{Fields: make([]FieldValue, 0, len(decl))}
	for _, f := range decl {
		item, ok := obj[f.Name]
		if !ok {
			return Struct{}, c.fail("%s is missing field %q", owner, f.Name)
		}
		c.path = append(c.path, f.Name)
		v, err := c.value(f.Type, item)
		c.path = c.path[:len(c.path)-1]
		if err != nil {
			return Struct{}, err
		}
		s.Fields = append(s.Fields, F(f.Name, v))
	}
	return s, nil
}

func (c *converter) primitive(kind ir.PrimitiveKind, raw any) (Value, error) {
	switch kind {
	case ir.KindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, c.fail("expected bool, got %T", raw)
		}
		return Bool(b), nil
	case ir.KindF32, ir.KindF64:
		f, err := toFloat(raw)
		if err != nil {
			return nil, c.fail("%v", err)
		}
		return Float{Kind: kind, V: f}, nil
	case ir.KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, c.fail("expected string, got %T", raw)
		}
		return String(s), nil
	case ir.KindBytes:
		b, err := toBytes(raw)
		if err != nil {
			return nil, c.fail("%v", err)
		}
		return Bytes(b), nil
	case ir.KindPubkey:
		s, ok := raw.(string)
		if !ok {
			return nil, c.fail("expected base58 pubkey, got %T", raw)
		}
		pk, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return nil, c.fail("invalid pubkey %q: %v", s, err)
		}
		return PublicKey(pk), nil
	}
	if !kind.Integer() {
		return nil, c.fail("unknown primitive %q", kind)
	}
	n, err := toBig(raw)
	if err != nil {
		return nil, c.fail("%v", err)
	}
	lo, hi := intRange(kind)
	if n.Cmp(lo) < 0 || n.Cmp(hi) > 0 {
		return nil, c.fail("%s overflows %s", n, kind)
	}
	return Int{Kind: kind, V: n}, nil
}

func toBig(raw any) (*big.Int, error) {
	switch r := raw.(type) {
	case int:
		return big.NewInt(int64(r)), nil
	case int64:
		return big.NewInt(r), nil
	case uint64:
		return new(big.Int).SetUint64(r), nil
	case float64:
		if r != math.Trunc(r) || math.IsInf(r, 0) {
			return nil, fmt.Errorf("%v is not an integer", r)
		}
		n, _ := big.NewFloat(r).Int(nil)
		return n, nil
	case json.Number:
		return parseBig(string(r))
	case string:
		return parseBig(r)
	}
	return nil, fmt.Errorf("expected integer, got %T", raw)
}

func parseBig(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.ReplaceAll(s, "_", ""), 0)
	if !ok {
		return nil, fmt.Errorf("%q is not an integer", s)
	}
	return n, nil
}

func toFloat(raw any) (float64, error) {
	switch r := raw.(type) {
	case float64:
		return r, nil
	case int:
		return float64(r), nil
	case int64:
		return float64(r), nil
	case uint64:
		return float64(r), nil
	case json.Number:
		return r.Float64()
	case string:
		return strconv.ParseFloat(r, 64)
	}
	return 0, fmt.Errorf("expected number, got %T", raw)
}

func toBytes(raw any) ([]byte, error) {
	switch r := raw.(type) {
	case string:
		return hex.DecodeString(strings.TrimPrefix(r, "0x"))
	case []any:
		out := make([]byte, len(r))
		for i, item := range r {
			n, err := toBig(item)
			if err != nil {
				return nil, err
			}
			if !n.IsUint64() || n.Uint64() > math.MaxUint8 {
				return nil, fmt.Errorf("byte %d out of range: %s", i, n)
			}
			out[i] = byte(n.Uint64())
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected hex string or byte list, got %T", raw)
}
