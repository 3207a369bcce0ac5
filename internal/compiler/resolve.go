package compiler

import (
	"slices"
	"strings"

	"github.com/roach88/anchorgo/internal/ir"
)

// Resolve finishes a normalized model in place.
//
// Every Path, and every Defined name without an exact entry, is matched
// against the type table by its trailing simple name: exactly one match
// resolves, several fail with AmbiguousPath, none fails with
// UnresolvedType. A Path is ambiguous even when one candidate carries its
// exact qualifier. Afterwards every type is walked to reject types that
// contain themselves without passing through a Vec or an Option.
//
// Resolve never removes type entries and is deterministic for a fixed
// input: types are visited in declaration order.
func Resolve(idl *ir.Idl) error {
	r := newResolver(idl)
	err := idl.Refs(func(owner string, ref *ir.TypeRef) error {
		resolved, err := r.resolve(owner, *ref)
		if err != nil {
			return err
		}
		*ref = resolved
		return nil
	})
	if err != nil {
		return err
	}
	return r.checkCycles()
}

type resolver struct {
	idl *ir.Idl

	// bySimple maps trailing simple names to full keys in declaration order.
	bySimple map[string][]string
}

func newResolver(idl *ir.Idl) *resolver {
	r := &resolver{idl: idl, bySimple: make(map[string][]string)}
	for _, key := range idl.Types.Names() {
		simple := ir.SimpleName(key)
		r.bySimple[simple] = append(r.bySimple[simple], key)
	}
	return r
}

func (r *resolver) resolve(owner string, ref ir.TypeRef) (ir.TypeRef, error) {
	switch t := ref.(type) {
	case ir.Primitive:
		return t, nil
	case ir.Defined:
		key, err := r.lookup(owner, t.Name, true)
		if err != nil {
			return nil, err
		}
		return ir.Defined{Name: key}, nil
	case ir.Path:
		key, err := r.lookup(owner, t.Qualified, false)
		if err != nil {
			return nil, err
		}
		return ir.Defined{Name: key}, nil
	case ir.Option:
		elem, err := r.resolve(owner, t.Elem)
		if err != nil {
			return nil, err
		}
		return ir.Option{Elem: elem}, nil
	case ir.Vec:
		elem, err := r.resolve(owner, t.Elem)
		if err != nil {
			return nil, err
		}
		return ir.Vec{Elem: elem}, nil
	case ir.Array:
		elem, err := r.resolve(owner, t.Elem)
		if err != nil {
			return nil, err
		}
		return ir.Array{Elem: elem, Len: t.Len}, nil
	}
	return nil, ir.Errorf(ir.KindUnsupportedType, ir.StageResolve, []string{owner}, "unknown type reference %T", ref)
}

// lookup finds the table key for a possibly qualified name. With exact
// set, a name that is itself a key wins over simple-name matching.
func (r *resolver) lookup(owner, name string, exact bool) (string, error) {
	if exact && r.idl.Types.Has(name) {
		return name, nil
	}
	candidates := r.bySimple[ir.SimpleName(name)]
	switch len(candidates) {
	case 0:
		return "", ir.Errorf(ir.KindUnresolvedType, ir.StageResolve, []string{name, owner},
			"type %q referenced by %s is not defined", name, owner)
	case 1:
		return candidates[0], nil
	}
	return "", ir.Errorf(ir.KindAmbiguousPath, ir.StageResolve, append([]string{name}, candidates...),
		"type %q referenced by %s matches %s", name, owner, strings.Join(candidates, " and "))
}

const (
	unvisited = iota
	visiting
	done
)

// checkCycles walks inline containment with a visiting set on the current
// path. Struct fields, enum variant fields, arrays and alias targets are
// inline; Vec and Option elements are behind indirection and not followed.
func (r *resolver) checkCycles() error {
	state := make(map[string]int, r.idl.Types.Len())
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			start := slices.Index(stack, name)
			chain := append(slices.Clone(stack[start:]), name)
			return ir.Errorf(ir.KindCyclicType, ir.StageResolve, chain,
				"type %q contains itself without indirection: %s", name, strings.Join(chain, " -> "))
		case done:
			return nil
		}

		state[name] = visiting
		stack = append(stack, name)
		def, _ := r.idl.Types.Lookup(name)
		for _, child := range inlineChildren(def) {
			if err := visit(child); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}

	for _, name := range r.idl.Types.Names() {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// inlineChildren lists the type names a definition embeds directly.
func inlineChildren(def *ir.TypeDef) []string {
	if def == nil {
		return nil
	}
	var out []string
	switch body := def.Body.(type) {
	case ir.StructBody:
		for _, f := range body.Fields {
			out = appendInline(out, f.Type)
		}
	case ir.EnumBody:
		for _, v := range body.Variants {
			for _, f := range v.Fields {
				out = appendInline(out, f.Type)
			}
		}
	case ir.AliasBody:
		out = appendInline(out, body.Target)
	}
	return out
}

func appendInline(out []string, ref ir.TypeRef) []string {
	switch t := ref.(type) {
	case ir.Defined:
		return append(out, t.Name)
	case ir.Array:
		return appendInline(out, t.Elem)
	}
	return out
}
