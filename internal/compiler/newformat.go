package compiler

import (
	"github.com/roach88/anchorgo/internal/ir"
)

// NormalizeNewFormat converts a new-generation document.
//
// New-format documents carry name, version and spec under metadata, the
// program address at the top level, account flags spelled writable/signer,
// and explicit discriminators. Accounts and events are a name plus a
// discriminator; their layouts live in the types section.
func NormalizeNewFormat(doc RawDocument) (*ir.Idl, error) {
	n := &normalizer{
		idl:         ir.NewIdl(ir.OriginNewFormat),
		writableKey: "writable",
		signerKey:   "signer",
		optionalKey: "optional",
	}

	meta, ok := getMap(doc, "metadata")
	if !ok {
		return nil, missing("metadata is required")
	}
	name, ok := getString(meta, "name")
	if !ok || name == "" {
		return nil, missing("metadata.name is required")
	}
	n.idl.Metadata = ir.Metadata{Name: name}
	n.idl.Metadata.Version, _ = getString(meta, "version")
	n.idl.Metadata.Spec, _ = getString(meta, "spec")
	n.idl.Metadata.Description, _ = getString(meta, "description")
	if addr, ok := getString(doc, "address"); ok && addr != "" {
		if err := validateAddress("address", addr); err != nil {
			return nil, err
		}
		n.idl.Metadata.Address = addr
	}

	if err := n.parseTypes(doc); err != nil {
		return nil, err
	}
	if err := n.parseInstructions(doc, true); err != nil {
		return nil, err
	}

	accounts, err := n.parseTagged(doc, "accounts")
	if err != nil {
		return nil, err
	}
	for _, t := range accounts {
		n.idl.Accounts = append(n.idl.Accounts, &ir.Account{
			Name:          t.name,
			Docs:          t.docs,
			Type:          refByName(t.name),
			Discriminator: t.discriminator,
		})
	}

	events, err := n.parseTagged(doc, "events")
	if err != nil {
		return nil, err
	}
	for _, t := range events {
		n.idl.Events = append(n.idl.Events, &ir.Event{
			Name:          t.name,
			Type:          refByName(t.name),
			Discriminator: t.discriminator,
		})
	}

	if err := n.parseConstants(doc); err != nil {
		return nil, err
	}
	if err := n.parseErrors(doc); err != nil {
		return nil, err
	}
	return n.idl, nil
}

type tagged struct {
	name          string
	docs          []string
	discriminator []byte
}

// parseTagged reads a list of name + discriminator entries.
func (n *normalizer) parseTagged(doc RawDocument, section string) ([]tagged, error) {
	list, err := entries(doc, section)
	if err != nil {
		return nil, err
	}
	out := make([]tagged, 0, len(list))
	seen := make(map[string]bool, len(list))
	for i, m := range list {
		name, err := requireName(m, section, i)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, duplicate(section[:len(section)-1], name)
		}
		seen[name] = true
		disc, err := parseDiscriminator(name, m)
		if err != nil {
			return nil, err
		}
		out = append(out, tagged{name: name, docs: getDocs(m), discriminator: disc})
	}
	return out, nil
}
