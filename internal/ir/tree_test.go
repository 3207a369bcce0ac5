package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSONShape(t *testing.T) {
	idl := NewIdl(OriginNewFormat)
	idl.Metadata = Metadata{Name: "p", Version: "1", Spec: "0.1.0", Address: "11111111111111111111111111111111"}
	idl.Instructions = []*Instruction{{
		Name:          "go",
		Discriminator: []byte{1},
		Accounts:      []AccountConstraint{{Name: "a", Writable: true}},
		Args:          []Field{{Name: "x", Type: Vec{Elem: Primitive{Kind: KindU8}}}},
	}}
	idl.Types.Add(&TypeDef{Name: "E", Body: EnumBody{Variants: []Variant{{Name: "A"}}}})
	idl.Errors = []*ErrorCode{{Code: 6000, Name: "Bad"}}

	out, err := CanonicalJSON(idl)
	require.NoError(t, err)
	assert.Equal(t,
		`{"accounts":[],"constants":[],"errors":[{"code":6000,"name":"Bad"}],"events":[],`+
			`"instructions":[{"accounts":[{"name":"a","optional":false,"signer":false,"writable":true}],`+
			`"args":[{"name":"x","type":{"vec":"u8"}}],"discriminator":[1],"name":"go"}],`+
			`"metadata":{"address":"11111111111111111111111111111111","name":"p","spec":"0.1.0","version":"1"},`+
			`"origin":"new","types":[{"kind":"enum","name":"E","variants":[{"name":"A"}]}]}`,
		string(out))
}

func TestRefTree(t *testing.T) {
	ref := Option{Elem: Array{Elem: Defined{Name: "Pair"}, Len: 2}}
	assert.Equal(t,
		map[string]any{"option": map[string]any{"array": []any{map[string]any{"defined": "Pair"}, 2}}},
		RefTree(ref))
	assert.Equal(t, "Option<[Pair; 2]>", ref.String())
}

func TestTypeTable(t *testing.T) {
	table := NewTypeTable()
	assert.True(t, table.Add(&TypeDef{Name: "B", Body: StructBody{}}))
	assert.True(t, table.Add(&TypeDef{Name: "A", Body: StructBody{}}))
	assert.False(t, table.Add(&TypeDef{Name: "B", Body: AliasBody{Target: Primitive{Kind: KindU8}}}))

	assert.Equal(t, []string{"B", "A"}, table.Names())
	def, ok := table.Lookup("B")
	require.True(t, ok)
	assert.IsType(t, StructBody{}, def.Body)
}

func TestIdlRefsRewritesInPlace(t *testing.T) {
	idl := NewIdl(OriginLegacy)
	idl.Types.Add(&TypeDef{Name: "Alias", Body: AliasBody{Target: Path{Qualified: "x::Y"}}})
	idl.Types.Add(&TypeDef{Name: "S", Body: StructBody{Fields: []Field{{Name: "f", Type: Path{Qualified: "x::Y"}}}}})

	var owners []string
	err := idl.Refs(func(owner string, ref *TypeRef) error {
		owners = append(owners, owner)
		*ref = Defined{Name: "Y"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alias", "S.f"}, owners)

	alias, _ := idl.Types.Lookup("Alias")
	assert.Equal(t, AliasBody{Target: Defined{Name: "Y"}}, alias.Body)
	s, _ := idl.Types.Lookup("S")
	assert.Equal(t, Defined{Name: "Y"}, s.Body.(StructBody).Fields[0].Type)
}

func TestErrorHelpers(t *testing.T) {
	err := NewError(KindCyclicType, StageResolve, "type contains itself", "A", "B")
	assert.Equal(t, "resolve: CYCLIC_TYPE: type contains itself (A, B)", err.Error())
	assert.True(t, IsKind(err, KindCyclicType))
	assert.Equal(t, ErrorKind(""), KindOf(assert.AnError))
}

func TestPDAIsConst(t *testing.T) {
	var nilPDA *PDA
	assert.False(t, nilPDA.IsConst())
	assert.True(t, (&PDA{Seeds: []Seed{{Kind: SeedConst, Value: []byte("x")}}}).IsConst())
	assert.False(t, (&PDA{Seeds: []Seed{{Kind: SeedArg, Path: "x"}}}).IsConst())
}
