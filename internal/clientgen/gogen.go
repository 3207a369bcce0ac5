package clientgen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"math/big"
	"strconv"
	"strings"

	"github.com/roach88/anchorgo/internal/ir"
)

// GoOptions controls Go source emission.
type GoOptions struct {
	// Package is the generated package name. Defaults to the program name
	// with separators removed.
	Package string

	// RuntimeImport is the import path of the borsh runtime.
	RuntimeImport string
}

// DefaultRuntimeImport is the borsh package generated code imports.
const DefaultRuntimeImport = "github.com/roach88/anchorgo/borsh"

const solanaImport = "github.com/gagliardetto/solana-go"

// GoFiles lists the files GoSource returns, in emission order.
var GoFiles = []string{"program.go", "types.go", "instructions.go", "accounts.go", "events.go", "errors.go"}

// GoSource emits a Go client for a compiled model. Every file is gofmt'ed.
// Identifier collisions after Go name mangling fail with
// DuplicateDefinition.
func GoSource(idl *ir.Idl, opts GoOptions) (map[string][]byte, error) {
	g, err := newGoGen(idl, opts)
	if err != nil {
		return nil, err
	}

	bodies := make(map[string]*bytes.Buffer, len(GoFiles))
	emit := []struct {
		file string
		fn   func(*bytes.Buffer) error
	}{
		{"program.go", g.program},
		{"types.go", g.types},
		{"instructions.go", g.instructions},
		{"accounts.go", g.accounts},
		{"events.go", g.events},
		{"errors.go", g.errors},
	}
	for _, step := range emit {
		var body bytes.Buffer
		if err := step.fn(&body); err != nil {
			return nil, err
		}
		bodies[step.file] = &body
	}

	out := make(map[string][]byte, len(GoFiles))
	for _, name := range GoFiles {
		src := g.file(name, bodies[name].Bytes())
		formatted, err := format.Source(src)
		if err != nil {
			return nil, fmt.Errorf("clientgen: format %s: %w", name, err)
		}
		out[name] = formatted
	}
	return out, nil
}

// PackageName returns the default package name for a program.
func PackageName(program string) string {
	name := strings.ToLower(strings.Join(ir.Words(program), ""))
	name = strings.Map(identRune, name)
	if name == "" || !(name[0] >= 'a' && name[0] <= 'z') {
		name = "program" + name
	}
	if token.IsKeyword(name) {
		name += "client"
	}
	return name
}

type goGen struct {
	idl     *ir.Idl
	pkg     string
	runtime string

	// typeNames maps type table keys to Go identifiers.
	typeNames map[string]string

	// used maps every top-level Go identifier to the IDL entry that owns it.
	used map[string]string
}

func newGoGen(idl *ir.Idl, opts GoOptions) (*goGen, error) {
	g := &goGen{
		idl:       idl,
		pkg:       opts.Package,
		runtime:   opts.RuntimeImport,
		typeNames: make(map[string]string, idl.Types.Len()),
		used:      make(map[string]string),
	}
	if g.pkg == "" {
		g.pkg = PackageName(idl.Metadata.Name)
	}
	if g.runtime == "" {
		g.runtime = DefaultRuntimeImport
	}
	for _, ident := range []string{"ProgramName", "ProgramID", "ProgramError", "LookupError", "optionalMeta", "programErrors"} {
		g.used[ident] = "runtime"
	}

	simple := make(map[string]int)
	for _, key := range idl.Types.Names() {
		simple[ir.SimpleName(key)]++
	}
	for _, key := range idl.Types.Names() {
		name := exportName(ir.SimpleName(key))
		if simple[ir.SimpleName(key)] > 1 {
			name = exportName(strings.ReplaceAll(key, "::", "_"))
		}
		if err := g.claim(name, "type "+key); err != nil {
			return nil, err
		}
		g.typeNames[key] = name
	}
	return g, nil
}

func (g *goGen) claim(ident, owner string) error {
	if prev, ok := g.used[ident]; ok && prev != owner {
		return ir.Errorf(ir.KindDuplicateDefinition, ir.StageGenerate, []string{prev, owner},
			"%s and %s both map to Go identifier %s", prev, owner, ident)
	}
	g.used[ident] = owner
	return nil
}

// file wraps a body with the generated header, package clause and the
// imports the body uses.
func (g *goGen) file(name string, body []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by anchorgo %s. DO NOT EDIT.\n\n", ir.ToolVersion)
	if name == "program.go" {
		fmt.Fprintf(&buf, "// Package %s is a client for the %s program.\n", g.pkg, g.idl.Metadata.Name)
	}
	fmt.Fprintf(&buf, "package %s\n\n", g.pkg)

	code := codeOnly(body)
	var imports []string
	if strings.Contains(code, "fmt.") {
		imports = append(imports, `"fmt"`)
	}
	if strings.Contains(code, "borsh.") {
		imports = append(imports, strconv.Quote(g.runtime))
	}
	if strings.Contains(code, "solana.") {
		imports = append(imports, strconv.Quote(solanaImport))
	}
	if len(imports) > 0 {
		buf.WriteString("import (\n")
		for _, imp := range imports {
			fmt.Fprintf(&buf, "\t%s\n", imp)
		}
		buf.WriteString(")\n\n")
	}
	buf.Write(body)
	return buf.Bytes()
}

// codeOnly drops comment lines so docs copied from the IDL cannot pull in
// imports.
func codeOnly(body []byte) string {
	var b strings.Builder
	for _, line := range strings.Split(string(body), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

var goPrimitives = map[ir.PrimitiveKind]string{
	ir.KindBool:   "bool",
	ir.KindU8:     "uint8",
	ir.KindI8:     "int8",
	ir.KindU16:    "uint16",
	ir.KindI16:    "int16",
	ir.KindU32:    "uint32",
	ir.KindI32:    "int32",
	ir.KindF32:    "float32",
	ir.KindU64:    "uint64",
	ir.KindI64:    "int64",
	ir.KindF64:    "float64",
	ir.KindU128:   "borsh.Uint128",
	ir.KindI128:   "borsh.Int128",
	ir.KindU256:   "[32]byte",
	ir.KindI256:   "[32]byte",
	ir.KindBytes:  "[]byte",
	ir.KindString: "string",
	ir.KindPubkey: "solana.PublicKey",
}

var rwSuffix = map[ir.PrimitiveKind]string{
	ir.KindBool:   "Bool",
	ir.KindU8:     "U8",
	ir.KindI8:     "I8",
	ir.KindU16:    "U16",
	ir.KindI16:    "I16",
	ir.KindU32:    "U32",
	ir.KindI32:    "I32",
	ir.KindF32:    "F32",
	ir.KindU64:    "U64",
	ir.KindI64:    "I64",
	ir.KindF64:    "F64",
	ir.KindU128:   "U128",
	ir.KindI128:   "I128",
	ir.KindBytes:  "Bytes",
	ir.KindString: "String",
	ir.KindPubkey: "PublicKey",
}

func (g *goGen) goType(ref ir.TypeRef) string {
	switch t := ref.(type) {
	case ir.Primitive:
		return goPrimitives[t.Kind]
	case ir.Option:
		return "*" + g.goType(t.Elem)
	case ir.Vec:
		return "[]" + g.goType(t.Elem)
	case ir.Array:
		return fmt.Sprintf("[%d]%s", t.Len, g.goType(t.Elem))
	case ir.Defined:
		return g.typeNames[t.Name]
	}
	return "any"
}

// aliasTarget follows alias definitions to the first non-alias reference.
func (g *goGen) aliasTarget(ref ir.TypeRef) ir.TypeRef {
	for {
		d, ok := ref.(ir.Defined)
		if !ok {
			return ref
		}
		def, ok := g.idl.Types.Lookup(d.Name)
		if !ok {
			return ref
		}
		alias, ok := def.Body.(ir.AliasBody)
		if !ok {
			return ref
		}
		ref = alias.Target
	}
}

func isU8(ref ir.TypeRef) bool {
	p, ok := ref.(ir.Primitive)
	return ok && p.Kind == ir.KindU8
}

func isWide(ref ir.TypeRef) bool {
	p, ok := ref.(ir.Primitive)
	return ok && (p.Kind == ir.KindU256 || p.Kind == ir.KindI256)
}

// writeEncode emits statements writing expr of type ref to the encoder e.
// fail is the statement run when a nested MarshalBorsh fails.
func (g *goGen) writeEncode(w *bytes.Buffer, ref ir.TypeRef, expr string, depth int, fail string) {
	ref = g.aliasTarget(ref)
	switch t := ref.(type) {
	case ir.Primitive:
		if isWide(t) {
			fmt.Fprintf(w, "e.WriteRaw(%s[:])\n", expr)
			return
		}
		fmt.Fprintf(w, "e.Write%s(%s)\n", rwSuffix[t.Kind], expr)
	case ir.Option:
		fmt.Fprintf(w, "e.WriteOptionTag(%s != nil)\n", expr)
		fmt.Fprintf(w, "if %s != nil {\n", expr)
		g.writeEncode(w, t.Elem, "(*"+expr+")", depth, fail)
		w.WriteString("}\n")
	case ir.Vec:
		if isU8(t.Elem) {
			fmt.Fprintf(w, "e.WriteBytes(%s)\n", expr)
			return
		}
		fmt.Fprintf(w, "e.WriteLen(len(%s))\n", expr)
		g.writeEncodeLoop(w, t.Elem, expr, depth, fail)
	case ir.Array:
		if isU8(t.Elem) {
			fmt.Fprintf(w, "e.WriteRaw(%s[:])\n", expr)
			return
		}
		g.writeEncodeLoop(w, t.Elem, expr, depth, fail)
	case ir.Defined:
		fmt.Fprintf(w, "if err := %s.MarshalBorsh(e); err != nil {\n%s\n}\n", expr, fail)
	}
}

func (g *goGen) writeEncodeLoop(w *bytes.Buffer, elem ir.TypeRef, expr string, depth int, fail string) {
	item := fmt.Sprintf("x%d", depth)
	fmt.Fprintf(w, "for _, %s := range %s {\n", item, expr)
	g.writeEncode(w, elem, item, depth+1, fail)
	w.WriteString("}\n")
}

// writeDecode emits statements reading a value of type ref from the
// decoder d into the addressable target.
func (g *goGen) writeDecode(w *bytes.Buffer, ref ir.TypeRef, target string, depth int, fail string) {
	ref = g.aliasTarget(ref)
	switch t := ref.(type) {
	case ir.Primitive:
		if isWide(t) {
			fmt.Fprintf(w, "copy(%s[:], d.ReadFixed(32))\n", target)
			return
		}
		fmt.Fprintf(w, "%s = d.Read%s()\n", target, rwSuffix[t.Kind])
	case ir.Option:
		tmp := fmt.Sprintf("o%d", depth)
		w.WriteString("if d.ReadOptionTag() {\n")
		fmt.Fprintf(w, "var %s %s\n", tmp, g.goType(t.Elem))
		g.writeDecode(w, t.Elem, tmp, depth+1, fail)
		fmt.Fprintf(w, "%s = &%s\n", target, tmp)
		w.WriteString("}\n")
	case ir.Vec:
		if isU8(t.Elem) {
			fmt.Fprintf(w, "%s = d.ReadBytes()\n", target)
			return
		}
		fmt.Fprintf(w, "%s = make(%s, d.ReadLen())\n", target, g.goType(t))
		g.writeDecodeLoop(w, t.Elem, target, depth, fail)
	case ir.Array:
		if isU8(t.Elem) {
			fmt.Fprintf(w, "copy(%s[:], d.ReadFixed(%d))\n", target, t.Len)
			return
		}
		g.writeDecodeLoop(w, t.Elem, target, depth, fail)
	case ir.Defined:
		fmt.Fprintf(w, "if err := %s.UnmarshalBorsh(d); err != nil {\n%s\n}\n", target, fail)
	}
}

func (g *goGen) writeDecodeLoop(w *bytes.Buffer, elem ir.TypeRef, target string, depth int, fail string) {
	idx := fmt.Sprintf("i%d", depth)
	fmt.Fprintf(w, "for %s := range %s {\n", idx, target)
	g.writeDecode(w, elem, fmt.Sprintf("%s[%s]", target, idx), depth+1, fail)
	w.WriteString("}\n")
}

func (g *goGen) program(w *bytes.Buffer) error {
	fmt.Fprintf(w, "// ProgramName is the program name declared by the IDL.\nconst ProgramName = %s\n\n", strconv.Quote(g.idl.Metadata.Name))
	if addr := g.idl.Metadata.Address; addr != "" {
		fmt.Fprintf(w, "// ProgramID is the address the program is deployed at.\nvar ProgramID = solana.MustPublicKeyFromBase58(%s)\n\n", strconv.Quote(addr))
	} else {
		w.WriteString("// ProgramID is the address the program is deployed at. The IDL does not\n// declare one; set it before building instructions.\nvar ProgramID solana.PublicKey\n\n")
	}

	w.WriteString(`// optionalMeta passes the program ID in place of an omitted optional account.
func optionalMeta(key solana.PublicKey, writable, signer bool) *solana.AccountMeta {
	if key.IsZero() {
		return solana.NewAccountMeta(ProgramID, false, false)
	}
	return solana.NewAccountMeta(key, writable, signer)
}

`)

	var consts bytes.Buffer
	for _, c := range g.idl.Constants {
		decl, ok := g.constDecl(c)
		if !ok {
			continue
		}
		name := exportName(c.Name)
		if err := g.claim(name, "constant "+c.Name); err != nil {
			return err
		}
		fmt.Fprintf(&consts, "\t%s %s\n", name, decl)
	}
	if consts.Len() > 0 {
		w.WriteString("// Constants declared by the program.\nconst (\n")
		w.Write(consts.Bytes())
		w.WriteString(")\n")
	}
	return nil
}

// constDecl renders the type and value of a constant. Only integers that
// fit 64 bits, bools and strings become Go constants.
func (g *goGen) constDecl(c *ir.Constant) (string, bool) {
	p, ok := c.Type.(ir.Primitive)
	if !ok {
		return "", false
	}
	switch p.Kind {
	case ir.KindBool:
		if c.Value == "true" || c.Value == "false" {
			return "= " + c.Value, true
		}
		return "", false
	case ir.KindString:
		s, err := strconv.Unquote(c.Value)
		if err != nil {
			s = c.Value
		}
		return "= " + strconv.Quote(s), true
	}
	size, _ := p.Kind.Size()
	if !p.Kind.Integer() || size > 8 {
		return "", false
	}
	n, ok := new(big.Int).SetString(strings.ReplaceAll(c.Value, "_", ""), 0)
	if !ok {
		return "", false
	}
	lo, hi := new(big.Int), new(big.Int).Lsh(big.NewInt(1), uint(size*8))
	if p.Kind.Signed() {
		hi.Rsh(hi, 1)
		lo.Neg(hi)
	}
	if n.Cmp(lo) < 0 || n.Cmp(hi) >= 0 {
		return "", false
	}
	return goPrimitives[p.Kind] + " = " + n.String(), true
}

func (g *goGen) types(w *bytes.Buffer) error {
	for _, def := range g.idl.Types.All() {
		name := g.typeNames[def.Name]
		var err error
		switch body := def.Body.(type) {
		case ir.StructBody:
			err = g.writeStruct(w, name, def.Docs, body.Fields)
		case ir.EnumBody:
			if body.IsUnitOnly() {
				err = g.writeUnitEnum(w, name, def, body)
			} else {
				err = g.writeDataEnum(w, name, def, body)
			}
		case ir.AliasBody:
			writeDocs(w, def.Docs, "")
			fmt.Fprintf(w, "type %s = %s\n\n", name, g.goType(body.Target))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *goGen) writeStruct(w *bytes.Buffer, name string, docs []string, fields []ir.Field) error {
	goNames := make(map[string]string, len(fields))
	for _, f := range fields {
		n := exportName(f.Name)
		if prev, ok := goNames[n]; ok {
			return ir.Errorf(ir.KindDuplicateDefinition, ir.StageGenerate, []string{name, prev, f.Name},
				"fields %q and %q of %s both map to Go field %s", prev, f.Name, name, n)
		}
		goNames[n] = f.Name
	}

	writeDocs(w, docs, "")
	fmt.Fprintf(w, "type %s struct {\n", name)
	for _, f := range fields {
		writeDocs(w, f.Docs, "\t")
		fmt.Fprintf(w, "\t%s %s `json:%s`\n", exportName(f.Name), g.goType(f.Type), strconv.Quote(f.Name))
	}
	w.WriteString("}\n\n")

	fmt.Fprintf(w, "// MarshalBorsh writes v in Borsh layout.\nfunc (v %s) MarshalBorsh(e *borsh.Encoder) error {\n", name)
	for _, f := range fields {
		g.writeEncode(w, f.Type, "v."+exportName(f.Name), 0, "return err")
	}
	w.WriteString("return e.Err()\n}\n\n")

	fmt.Fprintf(w, "// UnmarshalBorsh reads v from Borsh layout.\nfunc (v *%s) UnmarshalBorsh(d *borsh.Decoder) error {\n", name)
	for _, f := range fields {
		g.writeDecode(w, f.Type, "v."+exportName(f.Name), 0, "return err")
	}
	w.WriteString("return d.Err()\n}\n\n")
	return nil
}

func (g *goGen) writeUnitEnum(w *bytes.Buffer, name string, def *ir.TypeDef, body ir.EnumBody) error {
	writeDocs(w, def.Docs, "")
	fmt.Fprintf(w, "type %s uint8\n\n", name)
	w.WriteString("const (\n")
	for i, v := range body.Variants {
		c := name + exportName(v.Name)
		if err := g.claim(c, "variant "+def.Name+"::"+v.Name); err != nil {
			return err
		}
		fmt.Fprintf(w, "\t%s %s = %d\n", c, name, i)
	}
	w.WriteString(")\n\n")

	fmt.Fprintf(w, "func (v %s) String() string {\n\tswitch v {\n", name)
	for _, v := range body.Variants {
		fmt.Fprintf(w, "\tcase %s%s:\n\t\treturn %s\n", name, exportName(v.Name), strconv.Quote(v.Name))
	}
	fmt.Fprintf(w, "\t}\n\treturn fmt.Sprintf(\"%s(%%d)\", uint8(v))\n}\n\n", name)

	fmt.Fprintf(w, "// MarshalBorsh writes the variant tag.\nfunc (v %s) MarshalBorsh(e *borsh.Encoder) error {\n", name)
	w.WriteString("e.WriteU8(uint8(v))\nreturn e.Err()\n}\n\n")

	fmt.Fprintf(w, "// UnmarshalBorsh reads the variant tag.\nfunc (v *%s) UnmarshalBorsh(d *borsh.Decoder) error {\n", name)
	w.WriteString("tag := d.ReadU8()\nif err := d.Err(); err != nil {\nreturn err\n}\n")
	fmt.Fprintf(w, "if int(tag) >= %d {\nreturn fmt.Errorf(\"%s: unknown variant %%d\", tag)\n}\n", len(body.Variants), name)
	fmt.Fprintf(w, "*v = %s(tag)\nreturn nil\n}\n\n", name)
	return nil
}

func (g *goGen) writeDataEnum(w *bytes.Buffer, name string, def *ir.TypeDef, body ir.EnumBody) error {
	kind := name + "Kind"
	if err := g.claim(kind, "enum "+def.Name); err != nil {
		return err
	}
	fmt.Fprintf(w, "// %s identifies the active variant of %s.\ntype %s uint8\n\n", kind, name, kind)
	w.WriteString("const (\n")
	for i, v := range body.Variants {
		c := kind + exportName(v.Name)
		if err := g.claim(c, "variant "+def.Name+"::"+v.Name); err != nil {
			return err
		}
		fmt.Fprintf(w, "\t%s %s = %d\n", c, kind, i)
	}
	w.WriteString(")\n\n")

	writeDocs(w, def.Docs, "")
	if len(def.Docs) > 0 {
		w.WriteString("//\n")
	}
	fmt.Fprintf(w, "// Exactly the field matching Kind is set; unit variants carry no field.\ntype %s struct {\n\tKind %s `json:\"kind\"`\n", name, kind)
	for _, v := range body.Variants {
		if v.IsUnit() {
			continue
		}
		field := exportName(v.Name)
		if field == "Kind" {
			return ir.Errorf(ir.KindDuplicateDefinition, ir.StageGenerate, []string{def.Name, v.Name},
				"variant %s of %s collides with the Kind field", v.Name, def.Name)
		}
		fmt.Fprintf(w, "\t%s *%s%s `json:%s`\n", field, name, field, strconv.Quote(v.Name+",omitempty"))
	}
	w.WriteString("}\n\n")

	for _, v := range body.Variants {
		if v.IsUnit() {
			continue
		}
		vt := name + exportName(v.Name)
		if err := g.claim(vt, "variant "+def.Name+"::"+v.Name); err != nil {
			return err
		}
		if err := g.writeStruct(w, vt, nil, v.Fields); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "// MarshalBorsh writes the variant tag and its fields.\nfunc (v %s) MarshalBorsh(e *borsh.Encoder) error {\n", name)
	w.WriteString("e.WriteU8(uint8(v.Kind))\nswitch v.Kind {\n")
	for _, v := range body.Variants {
		field := exportName(v.Name)
		fmt.Fprintf(w, "case %s%s:\n", kind, field)
		if v.IsUnit() {
			continue
		}
		fmt.Fprintf(w, "if v.%s == nil {\nreturn fmt.Errorf(\"%s: %s variant has no value\")\n}\n", field, name, v.Name)
		fmt.Fprintf(w, "if err := v.%s.MarshalBorsh(e); err != nil {\nreturn err\n}\n", field)
	}
	fmt.Fprintf(w, "default:\nreturn fmt.Errorf(\"%s: unknown variant %%d\", v.Kind)\n}\nreturn e.Err()\n}\n\n", name)

	fmt.Fprintf(w, "// UnmarshalBorsh reads the variant tag and its fields.\nfunc (v *%s) UnmarshalBorsh(d *borsh.Decoder) error {\n", name)
	fmt.Fprintf(w, "*v = %s{Kind: %s(d.ReadU8())}\nif err := d.Err(); err != nil {\nreturn err\n}\nswitch v.Kind {\n", name, kind)
	for _, v := range body.Variants {
		field := exportName(v.Name)
		fmt.Fprintf(w, "case %s%s:\n", kind, field)
		if v.IsUnit() {
			continue
		}
		fmt.Fprintf(w, "v.%s = new(%s%s)\n", field, name, field)
		fmt.Fprintf(w, "if err := v.%s.UnmarshalBorsh(d); err != nil {\nreturn err\n}\n", field)
	}
	fmt.Fprintf(w, "default:\nreturn fmt.Errorf(\"%s: unknown variant %%d\", v.Kind)\n}\nreturn d.Err()\n}\n\n", name)
	return nil
}

func (g *goGen) instructions(w *bytes.Buffer) error {
	for _, ix := range g.idl.Instructions {
		base := exportName(ix.Name)
		discName := base + "IxDiscriminator"
		accName := base + "Accounts"
		ctor := "New" + base + "Instruction"
		for _, ident := range []string{discName, accName, ctor} {
			if err := g.claim(ident, "instruction "+ix.Name); err != nil {
				return err
			}
		}

		fmt.Fprintf(w, "// %s tags %s instruction data.\nvar %s = %s\n\n", discName, ix.Name, discName, byteLiteral(ix.Discriminator))

		fields := accountFieldNames(ix.Accounts)
		fmt.Fprintf(w, "// %s lists the accounts passed to %s, in order.\ntype %s struct {\n", accName, ix.Name, accName)
		for i, acc := range ix.Accounts {
			writeDocs(w, acc.Docs, "\t")
			fmt.Fprintf(w, "\t%s solana.PublicKey%s\n", fields[i], accountComment(acc))
		}
		w.WriteString("}\n\n")

		params := make([]string, 0, len(ix.Args)+1)
		argNames := make([]string, len(ix.Args))
		for i, a := range ix.Args {
			argNames[i] = lowerCamel(a.Name)
			params = append(params, argNames[i]+" "+g.goType(a.Type))
		}
		params = append(params, "accounts "+accName)

		writeDocs(w, ix.Docs, "")
		if len(ix.Docs) > 0 {
			w.WriteString("//\n")
		}
		fmt.Fprintf(w, "// %s builds a %s instruction addressed to ProgramID.\n", ctor, ix.Name)
		fmt.Fprintf(w, "func %s(%s) (*solana.GenericInstruction, error) {\n", ctor, strings.Join(params, ", "))
		fmt.Fprintf(w, "e := borsh.NewEncoder()\ne.WriteRaw(%s)\n", discName)
		for i, a := range ix.Args {
			g.writeEncode(w, a.Type, argNames[i], 0, "return nil, err")
		}
		w.WriteString("if err := e.Err(); err != nil {\nreturn nil, err\n}\n")
		for i, acc := range ix.Accounts {
			if acc.Address == "" {
				continue
			}
			fmt.Fprintf(w, "if accounts.%s.IsZero() {\naccounts.%s = solana.MustPublicKeyFromBase58(%s)\n}\n",
				fields[i], fields[i], strconv.Quote(acc.Address))
		}
		w.WriteString("metas := solana.AccountMetaSlice{\n")
		for i, acc := range ix.Accounts {
			ctorName := "solana.NewAccountMeta"
			if acc.Optional {
				ctorName = "optionalMeta"
			}
			fmt.Fprintf(w, "%s(accounts.%s, %t, %t),\n", ctorName, fields[i], acc.Writable, acc.Signer)
		}
		w.WriteString("}\nreturn solana.NewInstruction(ProgramID, metas, e.Bytes()), nil\n}\n\n")
	}
	return nil
}

// accountFieldNames returns unique Go field names for flattened account
// lists. Group paths join into one name ("pool_a.vault" -> PoolAVault), and
// a later slot that still collides ("pool_a_vault") gets a numeric suffix.
func accountFieldNames(accounts []ir.AccountConstraint) []string {
	out := make([]string, len(accounts))
	seen := make(map[string]int, len(accounts))
	for i, acc := range accounts {
		name := exportName(acc.Name)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s%d", name, n)
		}
		out[i] = name
	}
	return out
}

func accountComment(acc ir.AccountConstraint) string {
	var flags []string
	if acc.Writable {
		flags = append(flags, "writable")
	}
	if acc.Signer {
		flags = append(flags, "signer")
	}
	if acc.Optional {
		flags = append(flags, "optional")
	}
	if acc.PDA != nil {
		flags = append(flags, "pda")
	}
	if len(flags) == 0 {
		return ""
	}
	return " // " + strings.Join(flags, ", ")
}

func (g *goGen) accounts(w *bytes.Buffer) error {
	for _, acc := range g.idl.Accounts {
		if err := g.writeTagged(w, acc.Name, "Account", acc.Docs, acc.Type, acc.Discriminator, true); err != nil {
			return err
		}
	}
	return nil
}

func (g *goGen) events(w *bytes.Buffer) error {
	for _, ev := range g.idl.Events {
		if err := g.writeTagged(w, ev.Name, "Event", nil, ev.Type, ev.Discriminator, false); err != nil {
			return err
		}
	}
	return nil
}

// writeTagged emits the discriminator and decode/encode functions for an
// account or event. Account decoders ignore trailing bytes; event decoders
// reject them.
func (g *goGen) writeTagged(w *bytes.Buffer, name, kind string, docs []string, ref ir.TypeRef, disc []byte, allowTrailing bool) error {
	base := exportName(name) + kind
	discName := base + "Discriminator"
	decode := "Decode" + base
	encode := "Encode" + base
	for _, ident := range []string{discName, decode, encode} {
		if err := g.claim(ident, strings.ToLower(kind)+" "+name); err != nil {
			return err
		}
	}
	goType := g.goType(ref)

	writeDocs(w, docs, "")
	fmt.Fprintf(w, "// %s tags %s %s data.\nvar %s = %s\n\n", discName, name, strings.ToLower(kind), discName, byteLiteral(disc))

	fmt.Fprintf(w, "// %s decodes %s %s data. Data that does not start with\n// %s fails with borsh.ErrDiscriminatorMismatch.\n", decode, name, strings.ToLower(kind), discName)
	if !allowTrailing {
		w.WriteString("// Bytes left over after the value are an error.\n")
	}
	fmt.Fprintf(w, "func %s(data []byte) (*%s, error) {\n", decode, goType)
	fmt.Fprintf(w, "rest, err := borsh.CheckDiscriminator(%s, %s, data)\nif err != nil {\nreturn nil, err\n}\n", strconv.Quote(name), discName)
	fmt.Fprintf(w, "d := borsh.NewDecoder(rest)\nvar v %s\n", goType)
	g.writeDecode(w, ref, "v", 0, "return nil, err")
	w.WriteString("if err := d.Err(); err != nil {\nreturn nil, err\n}\n")
	if !allowTrailing {
		fmt.Fprintf(w, "if n := d.Remaining(); n > 0 {\nreturn nil, fmt.Errorf(%s, n)\n}\n", strconv.Quote(name+": %d trailing bytes"))
	}
	w.WriteString("return &v, nil\n}\n\n")

	fmt.Fprintf(w, "// %s encodes v with its discriminator.\n", encode)
	fmt.Fprintf(w, "func %s(v *%s) ([]byte, error) {\n", encode, goType)
	fmt.Fprintf(w, "e := borsh.NewEncoder()\ne.WriteRaw(%s)\n", discName)
	g.writeEncode(w, ref, "(*v)", 0, "return nil, err")
	w.WriteString("if err := e.Err(); err != nil {\nreturn nil, err\n}\nreturn e.Bytes(), nil\n}\n\n")
	return nil
}

func (g *goGen) errors(w *bytes.Buffer) error {
	w.WriteString(`// ProgramError is a custom error the program can return.
type ProgramError struct {
	Code uint32
	Name string
	Msg  string
}

func (e *ProgramError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s (%d)", e.Name, e.Code)
	}
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

// LookupError returns the program error with the given code.
func LookupError(code uint32) (*ProgramError, bool) {
	e, ok := programErrors[code]
	return e, ok
}

`)
	names := make([]string, len(g.idl.Errors))
	for i, e := range g.idl.Errors {
		if e.Code < 0 {
			return ir.Errorf(ir.KindInvalidValue, ir.StageGenerate, []string{e.Name}, "error %q has negative code %d", e.Name, e.Code)
		}
		names[i] = "ErrCode" + exportName(e.Name)
		if err := g.claim(names[i], "error "+e.Name); err != nil {
			return err
		}
	}
	if len(names) > 0 {
		w.WriteString("// Error codes declared by the program.\nconst (\n")
		for i, e := range g.idl.Errors {
			fmt.Fprintf(w, "\t%s uint32 = %d\n", names[i], e.Code)
		}
		w.WriteString(")\n\n")
	}
	w.WriteString("var programErrors = map[uint32]*ProgramError{\n")
	for i, e := range g.idl.Errors {
		fmt.Fprintf(w, "%s: {Code: %s, Name: %s, Msg: %s},\n", names[i], names[i], strconv.Quote(e.Name), strconv.Quote(e.Msg))
	}
	w.WriteString("}\n")
	return nil
}
