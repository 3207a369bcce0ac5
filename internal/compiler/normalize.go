package compiler

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/anchorgo/internal/ir"
)

// Normalize converts a raw document of a known origin into a canonical
// model. The result may still contain Path references and Defined names
// that have not been checked; Resolve finishes the job.
func Normalize(origin ir.Origin, doc RawDocument) (*ir.Idl, error) {
	switch origin {
	case ir.OriginLegacy:
		return NormalizeLegacy(doc)
	case ir.OriginNewFormat:
		return NormalizeNewFormat(doc)
	}
	return nil, ir.Errorf(ir.KindUnrecognizedFormat, ir.StageNormalize, nil, "unknown origin %q", origin)
}

// normalizer holds the shared state of both dialect adapters.
type normalizer struct {
	idl *ir.Idl

	// flag spellings for instruction account entries
	writableKey string
	signerKey   string
	optionalKey string
}

func missing(format string, args ...any) error {
	return ir.Errorf(ir.KindMissingRequiredField, ir.StageNormalize, nil, format, args...)
}

func duplicate(section, name string) error {
	return ir.Errorf(ir.KindDuplicateDefinition, ir.StageNormalize, []string{name}, "duplicate %s %q", section, name)
}

func unsupported(owner, format string, args ...any) error {
	return ir.Errorf(ir.KindUnsupportedType, ir.StageNormalize, []string{owner}, format, args...)
}

func validateAddress(owner, addr string) error {
	if _, err := solana.PublicKeyFromBase58(addr); err != nil {
		e := ir.Errorf(ir.KindMalformedAddress, ir.StageNormalize, []string{owner}, "invalid address %q", addr)
		e.Err = err
		return e
	}
	return nil
}

// requireName returns the non-empty "name" field of an entry.
func requireName(m map[string]any, section string, index int) (string, error) {
	name, ok := getString(m, "name")
	if !ok || name == "" {
		return "", missing("%s[%d]: name is required", section, index)
	}
	return name, nil
}

// entries returns the objects of an optional top-level list.
func entries(doc map[string]any, section string) ([]map[string]any, error) {
	raw, ok := doc[section]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := asList(raw)
	if !ok {
		return nil, missing("%s must be a list", section)
	}
	out := make([]map[string]any, len(list))
	for i, item := range list {
		m, ok := asMap(item)
		if !ok {
			return nil, missing("%s[%d] must be an object", section, i)
		}
		out[i] = m
	}
	return out, nil
}

// parseTypes adds every entry of the "types" section to the type table.
func (n *normalizer) parseTypes(doc map[string]any) error {
	defs, err := entries(doc, "types")
	if err != nil {
		return err
	}
	for i, m := range defs {
		name, err := requireName(m, "types", i)
		if err != nil {
			return err
		}
		if generics, ok := getList(m, "generics"); ok && len(generics) > 0 {
			return unsupported(name, "type %q declares generic parameters", name)
		}
		if ser, ok := getString(m, "serialization"); ok && ser != "borsh" {
			return unsupported(name, "type %q uses %s serialization", name, ser)
		}
		body, ok := getMap(m, "type")
		if !ok {
			return missing("type %q: type body is required", name)
		}
		def, err := n.parseTypeDef(name, body)
		if err != nil {
			return err
		}
		def.Docs = getDocs(m)
		if !n.idl.Types.Add(def) {
			return duplicate("type", name)
		}
	}
	return nil
}

// parseTypeDef converts a {"kind": ...} body into a definition.
func (n *normalizer) parseTypeDef(name string, body map[string]any) (*ir.TypeDef, error) {
	kind, _ := getString(body, "kind")
	switch kind {
	case "struct":
		fields, tuple, err := n.parseFields(name, body["fields"])
		if err != nil {
			return nil, err
		}
		return &ir.TypeDef{Name: name, Body: ir.StructBody{Fields: fields, Tuple: tuple}}, nil

	case "enum":
		rawVariants, _ := getList(body, "variants")
		variants := make([]ir.Variant, 0, len(rawVariants))
		seen := make(map[string]bool, len(rawVariants))
		for i, rv := range rawVariants {
			vm, ok := asMap(rv)
			if !ok {
				return nil, missing("type %q: variant %d must be an object", name, i)
			}
			vname, err := requireName(vm, name+".variants", i)
			if err != nil {
				return nil, err
			}
			if seen[vname] {
				return nil, duplicate("variant", name+"::"+vname)
			}
			seen[vname] = true
			fields, tuple, err := n.parseFields(name+"::"+vname, vm["fields"])
			if err != nil {
				return nil, err
			}
			variants = append(variants, ir.Variant{Name: vname, Fields: fields, Tuple: tuple})
		}
		return &ir.TypeDef{Name: name, Body: ir.EnumBody{Variants: variants}}, nil

	case "alias", "type":
		// Legacy spells aliases {"kind":"alias","value":T};
		// the new format uses {"kind":"type","alias":T}.
		target, ok := body["alias"]
		if !ok {
			target, ok = body["value"]
		}
		if !ok {
			return nil, missing("type %q: alias target is required", name)
		}
		ref, err := n.parseRef(name, target)
		if err != nil {
			return nil, err
		}
		return &ir.TypeDef{Name: name, Body: ir.AliasBody{Target: ref}}, nil

	case "":
		return nil, missing("type %q: kind is required", name)
	}
	return nil, unsupported(name, "type %q has unknown kind %q", name, kind)
}

// parseFields converts a field list. Named fields are objects carrying
// "name" and "type"; a list whose first element is anything else is
// positional, and positional fields receive synthetic names.
func (n *normalizer) parseFields(owner string, raw any) ([]ir.Field, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	list, ok := asList(raw)
	if !ok {
		return nil, false, missing("%s: fields must be a list", owner)
	}
	if len(list) == 0 {
		return nil, false, nil
	}

	tuple := !isNamedField(list[0])
	fields := make([]ir.Field, len(list))
	seen := make(map[string]bool, len(list))
	for i, item := range list {
		if tuple {
			if isNamedField(item) {
				return nil, false, missing("%s: cannot mix named and positional fields", owner)
			}
			ref, err := n.parseRef(owner, item)
			if err != nil {
				return nil, false, err
			}
			fields[i] = ir.Field{Name: ir.TupleFieldName(i), Type: ref}
			continue
		}

		m, ok := asMap(item)
		if !ok || !isNamedField(item) {
			return nil, false, missing("%s: field %d must have a name and a type", owner, i)
		}
		fname, _ := getString(m, "name")
		if fname == "" {
			return nil, false, missing("%s: field %d: name is required", owner, i)
		}
		if seen[fname] {
			return nil, false, duplicate("field", owner+"."+fname)
		}
		seen[fname] = true
		ref, err := n.parseRef(owner+"."+fname, m["type"])
		if err != nil {
			return nil, false, err
		}
		fields[i] = ir.Field{Name: fname, Docs: getDocs(m), Type: ref}
	}
	return fields, tuple, nil
}

// isNamedField reports whether v is a {"name": ...} field entry. Type
// expressions never carry a top-level name key.
func isNamedField(v any) bool {
	m, ok := asMap(v)
	if !ok {
		return false
	}
	_, hasName := m["name"]
	return hasName
}

// parseRef converts a raw type expression into a TypeRef.
func (n *normalizer) parseRef(owner string, raw any) (ir.TypeRef, error) {
	if raw == nil {
		return nil, missing("%s: type is required", owner)
	}
	if s, ok := raw.(string); ok {
		if kind, ok := ir.LookupPrimitive(s); ok {
			return ir.Primitive{Kind: kind}, nil
		}
		return nil, unsupported(owner, "%s: unknown type %q", owner, s)
	}

	m, ok := asMap(raw)
	if !ok || len(m) != 1 {
		return nil, unsupported(owner, "%s: malformed type expression %v", owner, raw)
	}
	for key, val := range m {
		switch key {
		case "defined":
			return n.parseDefined(owner, val)
		case "option":
			elem, err := n.parseRef(owner, val)
			if err != nil {
				return nil, err
			}
			return ir.Option{Elem: elem}, nil
		case "vec":
			elem, err := n.parseRef(owner, val)
			if err != nil {
				return nil, err
			}
			return ir.Vec{Elem: elem}, nil
		case "array":
			pair, ok := asList(val)
			if !ok || len(pair) != 2 {
				return nil, unsupported(owner, "%s: array must be [type, length]", owner)
			}
			elem, err := n.parseRef(owner, pair[0])
			if err != nil {
				return nil, err
			}
			length, ok := asInt(pair[1])
			if !ok || length < 0 {
				return nil, unsupported(owner, "%s: array length must be a non-negative integer literal", owner)
			}
			if length > ir.MaxArrayLen {
				return nil, unsupported(owner, "%s: array length %d exceeds %d", owner, length, ir.MaxArrayLen)
			}
			return ir.Array{Elem: elem, Len: int(length)}, nil
		case "coption", "tuple", "generic", "hashMap", "hashSet", "bTreeMap", "bTreeSet":
			return nil, unsupported(owner, "%s: %s types are not supported", owner, key)
		}
		return nil, unsupported(owner, "%s: unknown type constructor %q", owner, key)
	}
	panic("unreachable")
}

// parseDefined accepts both the legacy string form and the new
// {"name": ..., "generics": [...]} form. Qualified names become Paths.
func (n *normalizer) parseDefined(owner string, val any) (ir.TypeRef, error) {
	var name string
	switch v := val.(type) {
	case string:
		name = v
	default:
		m, ok := asMap(val)
		if !ok {
			return nil, unsupported(owner, "%s: malformed defined reference", owner)
		}
		name, _ = getString(m, "name")
		if generics, ok := getList(m, "generics"); ok && len(generics) > 0 {
			return nil, unsupported(owner, "%s: generic instantiation of %q is not supported", owner, name)
		}
	}
	if name == "" {
		return nil, missing("%s: defined type name is required", owner)
	}
	return refByName(name), nil
}

// refByName turns a type name into a reference. Qualified names become
// Paths; the resolver matches both forms against the type table.
func refByName(name string) ir.TypeRef {
	if ir.IsQualified(name) {
		return ir.Path{Qualified: name}
	}
	return ir.Defined{Name: name}
}

// parseInstructions converts the instruction list. discriminators reports
// whether explicit discriminators are read.
func (n *normalizer) parseInstructions(doc map[string]any, discriminators bool) error {
	list, err := entries(doc, "instructions")
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(list))
	for i, m := range list {
		name, err := requireName(m, "instructions", i)
		if err != nil {
			return err
		}
		if seen[name] {
			return duplicate("instruction", name)
		}
		seen[name] = true

		ix := &ir.Instruction{Name: name, Docs: getDocs(m)}
		rawAccounts, _ := getList(m, "accounts")
		if ix.Accounts, err = n.parseConstraints(name, rawAccounts); err != nil {
			return err
		}
		rawArgs, ok := m["args"]
		if ok && rawArgs != nil {
			args, tuple, err := n.parseFields(name, rawArgs)
			if err != nil {
				return err
			}
			if tuple {
				return missing("instruction %q: arguments must be named", name)
			}
			ix.Args = args
		}
		if discriminators {
			if ix.Discriminator, err = parseDiscriminator(name, m); err != nil {
				return err
			}
		}
		n.idl.Instructions = append(n.idl.Instructions, ix)
	}
	return nil
}

// parseConstraints flattens an instruction's account list. Nested groups
// contribute their members in declaration order, named by their group path
// ("pool_a.vault"), so groups may reuse member names.
func (n *normalizer) parseConstraints(ixName string, list []any) ([]ir.AccountConstraint, error) {
	var out []ir.AccountConstraint
	seen := make(map[string]bool)
	var walk func(prefix string, items []any) error
	walk = func(prefix string, items []any) error {
		for i, item := range items {
			m, ok := asMap(item)
			if !ok {
				return missing("instruction %q: account %d must be an object", ixName, i)
			}
			name, ok := getString(m, "name")
			if !ok || name == "" {
				return missing("instruction %q: account %d: name is required", ixName, i)
			}
			name = prefix + name
			if nested, ok := getList(m, "accounts"); ok {
				if err := walk(name+ir.AccountPathSep, nested); err != nil {
					return err
				}
				continue
			}
			if seen[name] {
				return duplicate("account", ixName+"."+name)
			}
			seen[name] = true

			c := ir.AccountConstraint{
				Name:     name,
				Docs:     getDocs(m),
				Writable: getBool(m, n.writableKey),
				Signer:   getBool(m, n.signerKey),
				Optional: getBool(m, n.optionalKey),
			}
			if addr, ok := getString(m, "address"); ok && addr != "" {
				if err := validateAddress(ixName+"."+name, addr); err != nil {
					return err
				}
				c.Address = addr
			}
			if rawPDA, ok := getMap(m, "pda"); ok {
				pda, err := parsePDA(ixName+"."+name, rawPDA)
				if err != nil {
					return err
				}
				c.PDA = pda
			}
			out = append(out, c)
		}
		return nil
	}
	if err := walk("", list); err != nil {
		return nil, err
	}
	return out, nil
}

func parsePDA(owner string, m map[string]any) (*ir.PDA, error) {
	rawSeeds, _ := getList(m, "seeds")
	pda := &ir.PDA{Seeds: make([]ir.Seed, 0, len(rawSeeds))}
	for i, rs := range rawSeeds {
		sm, ok := asMap(rs)
		if !ok {
			return nil, missing("%s: seed %d must be an object", owner, i)
		}
		seed, err := parseSeed(fmt.Sprintf("%s.seeds[%d]", owner, i), sm)
		if err != nil {
			return nil, err
		}
		pda.Seeds = append(pda.Seeds, seed)
	}
	// Legacy spells the program seed programId.
	program, ok := getMap(m, "program")
	if !ok {
		program, ok = getMap(m, "programId")
	}
	if ok {
		seed, err := parseSeed(owner+".program", program)
		if err != nil {
			return nil, err
		}
		pda.Program = &seed
	}
	return pda, nil
}

func parseSeed(owner string, m map[string]any) (ir.Seed, error) {
	kind, _ := getString(m, "kind")
	switch ir.SeedKind(kind) {
	case ir.SeedConst:
		value, err := seedBytes(owner, m["value"])
		if err != nil {
			return ir.Seed{}, err
		}
		return ir.Seed{Kind: ir.SeedConst, Value: value}, nil
	case ir.SeedArg, ir.SeedAccount:
		path, ok := getString(m, "path")
		if !ok || path == "" {
			return ir.Seed{}, missing("%s: seed path is required", owner)
		}
		return ir.Seed{Kind: ir.SeedKind(kind), Path: path}, nil
	}
	return ir.Seed{}, missing("%s: unknown seed kind %q", owner, kind)
}

func seedBytes(owner string, v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		return []byte(val), nil
	case []any:
		out := make([]byte, len(val))
		for i, b := range val {
			n, ok := asInt(b)
			if !ok || n < 0 || n > 255 {
				return nil, missing("%s: const seed byte %d out of range", owner, i)
			}
			out[i] = byte(n)
		}
		return out, nil
	}
	return nil, missing("%s: const seed value must be a string or byte list", owner)
}

// parseDiscriminator reads an explicit discriminator. It returns nil when
// the field is absent; absence is reported by the discriminator stage.
func parseDiscriminator(owner string, m map[string]any) ([]byte, error) {
	raw, ok := m["discriminator"]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := asList(raw)
	if !ok || len(list) == 0 {
		return nil, ir.Errorf(ir.KindMalformedDiscriminator, ir.StageNormalize, []string{owner},
			"discriminator of %q must be a non-empty byte list", owner)
	}
	out := make([]byte, len(list))
	for i, item := range list {
		b, ok := asInt(item)
		if !ok || b < 0 || b > 255 {
			return nil, ir.Errorf(ir.KindMalformedDiscriminator, ir.StageNormalize, []string{owner},
				"discriminator of %q: element %d is not a byte", owner, i)
		}
		out[i] = byte(b)
	}
	return out, nil
}

func (n *normalizer) parseConstants(doc map[string]any) error {
	list, err := entries(doc, "constants")
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(list))
	for i, m := range list {
		name, err := requireName(m, "constants", i)
		if err != nil {
			return err
		}
		if seen[name] {
			return duplicate("constant", name)
		}
		seen[name] = true
		ref, err := n.parseRef(name, m["type"])
		if err != nil {
			return err
		}
		value, ok := m["value"]
		if !ok {
			return missing("constant %q: value is required", name)
		}
		n.idl.Constants = append(n.idl.Constants, &ir.Constant{Name: name, Type: ref, Value: literal(value)})
	}
	return nil
}

func (n *normalizer) parseErrors(doc map[string]any) error {
	list, err := entries(doc, "errors")
	if err != nil {
		return err
	}
	names := make(map[string]bool, len(list))
	codes := make(map[int64]bool, len(list))
	for i, m := range list {
		name, err := requireName(m, "errors", i)
		if err != nil {
			return err
		}
		code, ok := asInt(m["code"])
		if !ok {
			return missing("error %q: code is required", name)
		}
		if names[name] {
			return duplicate("error", name)
		}
		if codes[code] {
			return duplicate("error code", fmt.Sprint(code))
		}
		names[name], codes[code] = true, true
		msg, _ := getString(m, "msg")
		n.idl.Errors = append(n.idl.Errors, &ir.ErrorCode{Code: int(code), Name: name, Msg: msg})
	}
	return nil
}
