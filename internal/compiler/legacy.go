package compiler

import (
	"github.com/roach88/anchorgo/internal/ir"
)

// NormalizeLegacy converts a legacy-generation document.
//
// Legacy documents keep name and version at the top level, put the program
// address in metadata.address, spell account flags isMut/isSigner, and
// inline account and event layouts. Inline layouts are synthesized into
// the type table under the owner's name. Discriminators are left empty for
// the discriminator stage to derive.
func NormalizeLegacy(doc RawDocument) (*ir.Idl, error) {
	n := &normalizer{
		idl:         ir.NewIdl(ir.OriginLegacy),
		writableKey: "isMut",
		signerKey:   "isSigner",
		optionalKey: "isOptional",
	}

	name, ok := getString(doc, "name")
	if !ok || name == "" {
		return nil, missing("name is required")
	}
	n.idl.Metadata.Name = name
	n.idl.Metadata.Version, _ = getString(doc, "version")
	if meta, ok := getMap(doc, "metadata"); ok {
		if addr, ok := getString(meta, "address"); ok && addr != "" {
			if err := validateAddress("metadata.address", addr); err != nil {
				return nil, err
			}
			n.idl.Metadata.Address = addr
		}
	}

	if err := n.parseTypes(doc); err != nil {
		return nil, err
	}
	if err := n.parseLegacyAccounts(doc); err != nil {
		return nil, err
	}
	if err := n.parseLegacyEvents(doc); err != nil {
		return nil, err
	}
	if err := n.parseInstructions(doc, false); err != nil {
		return nil, err
	}
	if err := n.parseConstants(doc); err != nil {
		return nil, err
	}
	if err := n.parseErrors(doc); err != nil {
		return nil, err
	}
	return n.idl, nil
}

// parseLegacyAccounts synthesizes a type entry from every inline account
// layout and points the account at it.
func (n *normalizer) parseLegacyAccounts(doc RawDocument) error {
	list, err := entries(doc, "accounts")
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(list))
	for i, m := range list {
		name, err := requireName(m, "accounts", i)
		if err != nil {
			return err
		}
		if seen[name] {
			return duplicate("account", name)
		}
		seen[name] = true

		body, ok := getMap(m, "type")
		if !ok {
			return missing("account %q: type layout is required", name)
		}
		def, err := n.parseTypeDef(name, body)
		if err != nil {
			return err
		}
		def.Docs = getDocs(m)
		if !n.idl.Types.Add(def) {
			return duplicate("type", name)
		}
		n.idl.Accounts = append(n.idl.Accounts, &ir.Account{
			Name: name,
			Docs: def.Docs,
			Type: ir.Defined{Name: name},
		})
	}
	return nil
}

// parseLegacyEvents synthesizes a struct type from every event's inline
// field list.
func (n *normalizer) parseLegacyEvents(doc RawDocument) error {
	list, err := entries(doc, "events")
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(list))
	for i, m := range list {
		name, err := requireName(m, "events", i)
		if err != nil {
			return err
		}
		if seen[name] {
			return duplicate("event", name)
		}
		seen[name] = true

		fields, tuple, err := n.parseFields(name, m["fields"])
		if err != nil {
			return err
		}
		def := &ir.TypeDef{Name: name, Body: ir.StructBody{Fields: fields, Tuple: tuple}}
		if !n.idl.Types.Add(def) {
			return duplicate("type", name)
		}
		n.idl.Events = append(n.idl.Events, &ir.Event{Name: name, Type: ir.Defined{Name: name}})
	}
	return nil
}
