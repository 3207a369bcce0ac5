package codec

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/anchorgo/borsh"
	"github.com/roach88/anchorgo/internal/ir"
)

func prim(k ir.PrimitiveKind) ir.TypeRef { return ir.Primitive{Kind: k} }

func field(name string, ref ir.TypeRef) ir.Field { return ir.Field{Name: name, Type: ref} }

// testTypes mirrors the counter fixture plus a recursive node and an alias.
func testTypes(t *testing.T) *ir.TypeTable {
	t.Helper()
	types := ir.NewTypeTable()
	defs := []*ir.TypeDef{
		{Name: "Mode", Body: ir.EnumBody{Variants: []ir.Variant{
			{Name: "Off"},
			{Name: "Step", Fields: []ir.Field{field("size", prim(ir.KindU32))}},
			{Name: "Pair", Tuple: true, Fields: []ir.Field{
				field("field_0", prim(ir.KindU8)),
				field("field_1", prim(ir.KindBool)),
			}},
		}}},
		{Name: "Counter", Body: ir.StructBody{Fields: []ir.Field{
			field("authority", prim(ir.KindPubkey)),
			field("count", prim(ir.KindU64)),
			field("mode", ir.Defined{Name: "Mode"}),
			field("history", ir.Vec{Elem: prim(ir.KindI16)}),
			field("tag", ir.Array{Elem: prim(ir.KindU8), Len: 4}),
		}}},
		{Name: "Node", Body: ir.StructBody{Fields: []ir.Field{
			field("value", prim(ir.KindU8)),
			field("children", ir.Vec{Elem: ir.Defined{Name: "Node"}}),
			field("next", ir.Option{Elem: ir.Defined{Name: "Node"}}),
		}}},
		{Name: "Amount", Body: ir.AliasBody{Target: prim(ir.KindU128)}},
	}
	for _, def := range defs {
		require.True(t, types.Add(def))
	}
	return types
}

var authority = solana.MustPublicKeyFromBase58("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS")

func counterValue() Struct {
	return NewStruct(
		F("authority", PublicKey(authority)),
		F("count", U64(258)),
		F("mode", Variant("Step", F("size", U32(3)))),
		F("history", List{I16(-1), I16(2)}),
		F("tag", List{U8(1), U8(2), U8(3), U8(4)}),
	)
}

func TestEncodeCounterLayout(t *testing.T) {
	types := testTypes(t)

	got, err := Encode(types, ir.Defined{Name: "Counter"}, counterValue())
	require.NoError(t, err)

	want := append([]byte{}, authority[:]...)
	want = append(want, 2, 1, 0, 0, 0, 0, 0, 0) // count
	want = append(want, 1, 3, 0, 0, 0)          // Mode::Step{size: 3}
	want = append(want, 2, 0, 0, 0, 0xff, 0xff, 2, 0)
	want = append(want, 1, 2, 3, 4)
	assert.Equal(t, want, got)
}

func TestRoundTrip(t *testing.T) {
	types := testTypes(t)
	u256 := new(big.Int).Lsh(big.NewInt(1), 255)
	i128, _ := new(big.Int).SetString("-170141183460469231731687303715884105728", 10)

	tests := []struct {
		name  string
		ref   ir.TypeRef
		value Value
	}{
		{"bool", prim(ir.KindBool), Bool(true)},
		{"u8", prim(ir.KindU8), U8(255)},
		{"i64", prim(ir.KindI64), I64(-9)},
		{"u256", prim(ir.KindU256), BigInt(ir.KindU256, u256)},
		{"i128 min", prim(ir.KindI128), BigInt(ir.KindI128, i128)},
		{"f32", prim(ir.KindF32), F32(0.5)},
		{"f64", prim(ir.KindF64), F64(-3.75)},
		{"string", prim(ir.KindString), String("héllo")},
		{"bytes", prim(ir.KindBytes), Bytes{0, 1, 2}},
		{"empty bytes", prim(ir.KindBytes), Bytes{}},
		{"pubkey", prim(ir.KindPubkey), PublicKey(authority)},
		{"option none", ir.Option{Elem: prim(ir.KindU16)}, None()},
		{"option some", ir.Option{Elem: prim(ir.KindU16)}, Some(U16(7))},
		{"empty vec", ir.Vec{Elem: prim(ir.KindString)}, List{}},
		{"vec of options", ir.Vec{Elem: ir.Option{Elem: prim(ir.KindI32)}}, List{Some(I32(-4)), None()}},
		{"counter", ir.Defined{Name: "Counter"}, counterValue()},
		{"unit variant", ir.Defined{Name: "Mode"}, Unit("Off")},
		{"tuple variant", ir.Defined{Name: "Mode"}, Variant("Pair", F("field_0", U8(9)), F("field_1", Bool(false)))},
		{"alias", ir.Defined{Name: "Amount"}, BigInt(ir.KindU128, big.NewInt(42))},
		{"recursive", ir.Defined{Name: "Node"}, NewStruct(
			F("value", U8(1)),
			F("children", List{NewStruct(F("value", U8(2)), F("children", List{}), F("next", None()))}),
			F("next", Some(NewStruct(F("value", U8(3)), F("children", List{}), F("next", None())))),
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(types, tt.ref, tt.value)
			require.NoError(t, err)

			got, err := Decode(types, tt.ref, data)
			require.NoError(t, err)
			assert.True(t, Equal(tt.value, got), "got %#v", got)
		})
	}
}

func TestEncodeRejectsInvalidValues(t *testing.T) {
	types := testTypes(t)

	tests := []struct {
		name    string
		ref     ir.TypeRef
		value   Value
		message string
	}{
		{"overflow", prim(ir.KindU8), BigInt(ir.KindU8, big.NewInt(256)), "overflows u8"},
		{"negative unsigned", prim(ir.KindU32), I64(-1), "overflows u32"},
		{"wrong kind", prim(ir.KindString), U8(1), "expected string"},
		{"array length", ir.Array{Elem: prim(ir.KindU8), Len: 2}, List{U8(1)}, "array needs 2 elements"},
		{"unknown variant", ir.Defined{Name: "Mode"}, Unit("Fast"), "no variant"},
		{"missing field", ir.Defined{Name: "Mode"}, Variant("Step", F("width", U32(1))), "missing field"},
		{"nil value", prim(ir.KindBool), nil, "missing value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(types, tt.ref, tt.value)
			require.Error(t, err)
			assert.True(t, ir.IsKind(err, ir.KindInvalidValue), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestEncodeErrorNamesPath(t *testing.T) {
	types := testTypes(t)
	v := counterValue()
	v.Fields[3] = F("history", List{I16(1), String("2")})

	_, err := Encode(types, ir.Defined{Name: "Counter"}, v)
	var e *ir.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []string{"history.[1]"}, e.Names)
}

func TestEncodeFieldsArity(t *testing.T) {
	types := testTypes(t)
	args := []ir.Field{field("n", prim(ir.KindU8))}

	err := EncodeFields(borsh.NewEncoder(), types, "ping", args, nil)
	assert.True(t, ir.IsKind(err, ir.KindArgumentMismatch))

	e := borsh.NewEncoder()
	require.NoError(t, EncodeFields(e, types, "ping", args, []Value{U8(7)}))
	assert.Equal(t, []byte{7}, e.Bytes())
}

func TestDecodeErrors(t *testing.T) {
	types := testTypes(t)

	tests := []struct {
		name    string
		ref     ir.TypeRef
		data    []byte
		message string
	}{
		{"truncated", prim(ir.KindU32), []byte{1, 2}, "cannot read u32"},
		{"bad enum tag", ir.Defined{Name: "Mode"}, []byte{7}, "no variant with tag 7"},
		{"bad option tag", ir.Option{Elem: prim(ir.KindU8)}, []byte{2, 0}, "cannot read"},
		{"trailing bytes", prim(ir.KindU8), []byte{1, 2}, "1 trailing bytes"},
		{"oversized vec", ir.Vec{Elem: prim(ir.KindU8)}, []byte{9, 0, 0, 0, 1}, "cannot read"},
		{"array longer than input", ir.Array{Elem: prim(ir.KindU64), Len: 1 << 40}, make([]byte, 8), "cannot read"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode(types, tt.ref, tt.data)
			require.Error(t, err)
			assert.Nil(t, v)
			assert.True(t, ir.IsKind(err, ir.KindInvalidValue), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestDecodeFromLeavesRemainder(t *testing.T) {
	types := testTypes(t)
	d := borsh.NewDecoder([]byte{5, 0, 0xaa})

	v, err := DecodeFrom(d, types, prim(ir.KindU16))
	require.NoError(t, err)
	assert.True(t, Equal(U16(5), v))
	assert.Equal(t, 1, d.Remaining())
}

func TestMarshalJSONKeepsFieldOrder(t *testing.T) {
	data, err := json.Marshal(counterValue())
	require.NoError(t, err)
	assert.Equal(t,
		`{"authority":"Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS","count":258,"mode":{"Step":{"size":3}},"history":[-1,2],"tag":[1,2,3,4]}`,
		string(data))

	data, err = MarshalJSON(List{Unit("Off"), None(), Bytes{0xbe, 0xef}, F32(0.5)})
	require.NoError(t, err)
	assert.Equal(t, `[{"Off":{}},null,"beef",0.5]`, string(data))
}

func TestFromJSON(t *testing.T) {
	types := testTypes(t)

	var raw any
	dec := json.NewDecoder(strings.NewReader(`{
		"authority": "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS",
		"count": "0x102",
		"mode": {"Step": {"size": 3}},
		"history": [-1, 2],
		"tag": [1, 2, 3, 4]
	}`))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&raw))

	got, err := FromJSON(types, ir.Defined{Name: "Counter"}, raw)
	require.NoError(t, err)
	assert.True(t, Equal(counterValue(), got), "got %#v", got)

	mode, err := FromJSON(types, ir.Defined{Name: "Mode"}, "Off")
	require.NoError(t, err)
	assert.True(t, Equal(Unit("Off"), mode))

	pair, err := FromJSON(types, ir.Defined{Name: "Mode"}, map[string]any{"Pair": []any{1, true}})
	require.NoError(t, err)
	assert.True(t, Equal(Variant("Pair", F("field_0", U8(1)), F("field_1", Bool(true))), pair))

	b, err := FromJSON(types, prim(ir.KindBytes), "0xbeef")
	require.NoError(t, err)
	assert.True(t, Equal(Bytes{0xbe, 0xef}, b))
}

func TestFromJSONRejects(t *testing.T) {
	types := testTypes(t)

	_, err := FromJSON(types, prim(ir.KindU8), 300)
	assert.ErrorContains(t, err, "overflows u8")

	_, err = FromJSON(types, prim(ir.KindU8), 1.5)
	assert.ErrorContains(t, err, "not an integer")

	_, err = FromJSON(types, ir.Defined{Name: "Mode"}, map[string]any{"Step": map[string]any{"size": 1, "extra": 2}})
	assert.ErrorContains(t, err, `no field "extra"`)

	_, err = FromJSON(types, prim(ir.KindPubkey), "not-a-key")
	assert.True(t, ir.IsKind(err, ir.KindInvalidValue))
}

func TestFieldsFromJSON(t *testing.T) {
	types := testTypes(t)
	args := []ir.Field{
		field("by", prim(ir.KindU8)),
		field("memo", ir.Option{Elem: prim(ir.KindString)}),
	}

	got, err := FieldsFromJSON(types, "increment", args, []any{5, nil})
	require.NoError(t, err)
	assert.True(t, Equal(List{U8(5), None()}, List(got)))

	got, err = FieldsFromJSON(types, "increment", args, map[string]any{"by": 5, "memo": "hi"})
	require.NoError(t, err)
	assert.True(t, Equal(List{U8(5), Some(String("hi"))}, List(got)))

	_, err = FieldsFromJSON(types, "increment", args, []any{5})
	assert.True(t, ir.IsKind(err, ir.KindArgumentMismatch))

	_, err = FieldsFromJSON(types, "increment", args, map[string]any{"by": 5})
	assert.True(t, ir.IsKind(err, ir.KindArgumentMismatch))
}

func TestToAny(t *testing.T) {
	got, err := ToAny(NewStruct(F("n", U64(1)), F("s", String("x"))))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": json.Number("1"), "s": "x"}, got)
}
