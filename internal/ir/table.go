package ir

import "strconv"

// TypeDef is a named type declaration.
type TypeDef struct {
	Name string
	Docs []string
	Body TypeBody
}

// TypeBody is a sealed type definition body.
// Only StructBody, EnumBody and AliasBody implement it.
type TypeBody interface {
	typeBody() // Sealed
}

// StructBody is a product type. Tuple structs get synthetic field names.
type StructBody struct {
	Fields []Field
	Tuple  bool
}

// EnumBody is a tagged union. Variants are indexed by position.
type EnumBody struct {
	Variants []Variant
}

// Variant is one enum case. Unit variants have no fields.
type Variant struct {
	Name   string
	Fields []Field
	Tuple  bool
}

// AliasBody names another type.
type AliasBody struct {
	Target TypeRef
}

func (StructBody) typeBody() {}
func (EnumBody) typeBody()   {}
func (AliasBody) typeBody()  {}

// IsUnit reports whether the variant carries no data.
func (v Variant) IsUnit() bool {
	return len(v.Fields) == 0
}

// IsUnitOnly reports whether every variant of the enum is a unit variant.
func (e EnumBody) IsUnitOnly() bool {
	for _, v := range e.Variants {
		if !v.IsUnit() {
			return false
		}
	}
	return true
}

// TupleFieldName returns the synthetic name given to positional fields.
func TupleFieldName(i int) string {
	return "field_" + strconv.Itoa(i)
}

func (def *TypeDef) refs(fn func(owner string, ref *TypeRef) error) error {
	switch body := def.Body.(type) {
	case StructBody:
		for i := range body.Fields {
			if err := fn(def.Name+"."+body.Fields[i].Name, &body.Fields[i].Type); err != nil {
				return err
			}
		}
	case EnumBody:
		for _, v := range body.Variants {
			for i := range v.Fields {
				if err := fn(def.Name+"::"+v.Name+"."+v.Fields[i].Name, &v.Fields[i].Type); err != nil {
					return err
				}
			}
		}
	case AliasBody:
		target := body.Target
		if err := fn(def.Name, &target); err != nil {
			return err
		}
		def.Body = AliasBody{Target: target}
	}
	return nil
}

// TypeTable holds type definitions keyed by name in declaration order.
// Entries are added once and never removed.
type TypeTable struct {
	order []string
	defs  map[string]*TypeDef
}

// NewTypeTable returns an empty table.
func NewTypeTable() *TypeTable {
	return &TypeTable{defs: make(map[string]*TypeDef)}
}

// Add appends def. It reports false if the name is already taken.
func (t *TypeTable) Add(def *TypeDef) bool {
	if _, exists := t.defs[def.Name]; exists {
		return false
	}
	t.defs[def.Name] = def
	t.order = append(t.order, def.Name)
	return true
}

// Lookup returns the definition for name.
func (t *TypeTable) Lookup(name string) (*TypeDef, bool) {
	def, ok := t.defs[name]
	return def, ok
}

// Has reports whether name is defined.
func (t *TypeTable) Has(name string) bool {
	_, ok := t.defs[name]
	return ok
}

// Names returns type names in declaration order.
func (t *TypeTable) Names() []string {
	return append([]string(nil), t.order...)
}

// All returns definitions in declaration order.
func (t *TypeTable) All() []*TypeDef {
	out := make([]*TypeDef, len(t.order))
	for i, name := range t.order {
		out[i] = t.defs[name]
	}
	return out
}

// Len returns the number of definitions.
func (t *TypeTable) Len() int {
	return len(t.order)
}
