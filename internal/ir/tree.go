package ir

// CanonicalJSON returns the canonical JSON form of a model.
// Docs are excluded; they do not change the program interface.
func CanonicalJSON(idl *Idl) ([]byte, error) {
	return MarshalCanonical(Tree(idl))
}

// Tree converts a model into a JSON-shaped tree of maps and slices.
func Tree(idl *Idl) map[string]any {
	meta := map[string]any{
		"name":    idl.Metadata.Name,
		"version": idl.Metadata.Version,
	}
	putString(meta, "spec", idl.Metadata.Spec)
	putString(meta, "description", idl.Metadata.Description)
	putString(meta, "address", idl.Metadata.Address)

	instructions := make([]any, len(idl.Instructions))
	for i, ix := range idl.Instructions {
		accounts := make([]any, len(ix.Accounts))
		for j, acc := range ix.Accounts {
			accounts[j] = constraintTree(acc)
		}
		instructions[i] = map[string]any{
			"name":          ix.Name,
			"discriminator": bytesTree(ix.Discriminator),
			"accounts":      accounts,
			"args":          fieldsTree(ix.Args),
		}
	}

	accounts := make([]any, len(idl.Accounts))
	for i, acc := range idl.Accounts {
		accounts[i] = map[string]any{
			"name":          acc.Name,
			"discriminator": bytesTree(acc.Discriminator),
			"type":          RefTree(acc.Type),
		}
	}

	events := make([]any, len(idl.Events))
	for i, ev := range idl.Events {
		events[i] = map[string]any{
			"name":          ev.Name,
			"discriminator": bytesTree(ev.Discriminator),
			"type":          RefTree(ev.Type),
		}
	}

	types := make([]any, 0, idl.Types.Len())
	for _, def := range idl.Types.All() {
		types = append(types, typeDefTree(def))
	}

	constants := make([]any, len(idl.Constants))
	for i, c := range idl.Constants {
		constants[i] = map[string]any{
			"name":  c.Name,
			"type":  RefTree(c.Type),
			"value": c.Value,
		}
	}

	errs := make([]any, len(idl.Errors))
	for i, e := range idl.Errors {
		m := map[string]any{"code": e.Code, "name": e.Name}
		putString(m, "msg", e.Msg)
		errs[i] = m
	}

	return map[string]any{
		"origin":       string(idl.Origin),
		"metadata":     meta,
		"instructions": instructions,
		"accounts":     accounts,
		"events":       events,
		"types":        types,
		"constants":    constants,
		"errors":       errs,
	}
}

// RefTree renders a TypeRef in IDL-like JSON shape.
func RefTree(ref TypeRef) any {
	switch r := ref.(type) {
	case Primitive:
		return string(r.Kind)
	case Defined:
		return map[string]any{"defined": r.Name}
	case Option:
		return map[string]any{"option": RefTree(r.Elem)}
	case Vec:
		return map[string]any{"vec": RefTree(r.Elem)}
	case Array:
		return map[string]any{"array": []any{RefTree(r.Elem), r.Len}}
	case Path:
		return map[string]any{"path": r.Qualified}
	}
	return map[string]any{}
}

func typeDefTree(def *TypeDef) map[string]any {
	out := map[string]any{"name": def.Name}
	switch body := def.Body.(type) {
	case StructBody:
		out["kind"] = "struct"
		out["fields"] = fieldsTree(body.Fields)
	case EnumBody:
		out["kind"] = "enum"
		variants := make([]any, len(body.Variants))
		for i, v := range body.Variants {
			vm := map[string]any{"name": v.Name}
			if !v.IsUnit() {
				vm["fields"] = fieldsTree(v.Fields)
			}
			variants[i] = vm
		}
		out["variants"] = variants
	case AliasBody:
		out["kind"] = "alias"
		out["value"] = RefTree(body.Target)
	}
	return out
}

func constraintTree(acc AccountConstraint) map[string]any {
	m := map[string]any{
		"name":     acc.Name,
		"writable": acc.Writable,
		"signer":   acc.Signer,
		"optional": acc.Optional,
	}
	putString(m, "address", acc.Address)
	if acc.PDA != nil {
		seeds := make([]any, len(acc.PDA.Seeds))
		for i, s := range acc.PDA.Seeds {
			seeds[i] = seedTree(s)
		}
		pda := map[string]any{"seeds": seeds}
		if acc.PDA.Program != nil {
			pda["program"] = seedTree(*acc.PDA.Program)
		}
		m["pda"] = pda
	}
	return m
}

func seedTree(s Seed) map[string]any {
	m := map[string]any{"kind": string(s.Kind)}
	if s.Kind == SeedConst {
		m["value"] = bytesTree(s.Value)
	}
	putString(m, "path", s.Path)
	return m
}

func fieldsTree(fields []Field) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = map[string]any{"name": f.Name, "type": RefTree(f.Type)}
	}
	return out
}

func bytesTree(b []byte) []any {
	out := make([]any, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

func putString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
