package compiler

import (
	"github.com/roach88/anchorgo/internal/ir"
)

// Detect classifies a raw document as Legacy or NewFormat.
//
// Explicit new-format markers win: a metadata.spec field, a top-level
// program address, or a discriminator on any instruction, account or event.
// Explicit legacy markers come next: top-level name and version, a
// metadata.address, or an account carrying an inline type layout. When no
// marker is present the spelling of instruction account flags decides
// (isMut/isSigner versus writable/signer). A document with no signal at
// all, or with both flag spellings, is rejected with UnrecognizedFormat.
func Detect(doc RawDocument) (ir.Origin, error) {
	if hasNewFormatMarker(doc) {
		return ir.OriginNewFormat, nil
	}
	if hasLegacyMarker(doc) {
		return ir.OriginLegacy, nil
	}

	legacy, modern := flagSpellings(doc)
	switch {
	case legacy && modern:
		return "", ir.NewError(ir.KindUnrecognizedFormat, ir.StageDetect,
			"document mixes isMut/isSigner and writable/signer account flags")
	case legacy:
		return ir.OriginLegacy, nil
	case modern:
		return ir.OriginNewFormat, nil
	}
	return "", ir.NewError(ir.KindUnrecognizedFormat, ir.StageDetect,
		"no legacy or new-format IDL markers found")
}

func hasNewFormatMarker(doc RawDocument) bool {
	if meta, ok := getMap(doc, "metadata"); ok {
		if _, ok := meta["spec"]; ok {
			return true
		}
	}
	if addr, ok := getString(doc, "address"); ok && addr != "" {
		return true
	}
	for _, section := range []string{"instructions", "accounts", "events"} {
		list, _ := getList(doc, section)
		for _, item := range list {
			if m, ok := asMap(item); ok {
				if _, ok := m["discriminator"]; ok {
					return true
				}
			}
		}
	}
	return false
}

func hasLegacyMarker(doc RawDocument) bool {
	_, hasName := getString(doc, "name")
	_, hasVersion := getString(doc, "version")
	if hasName && hasVersion {
		return true
	}
	if meta, ok := getMap(doc, "metadata"); ok {
		if _, ok := meta["address"]; ok {
			return true
		}
	}
	accounts, _ := getList(doc, "accounts")
	for _, item := range accounts {
		if m, ok := asMap(item); ok {
			if _, ok := m["type"]; ok {
				return true
			}
		}
	}
	return false
}

// flagSpellings reports which account flag spellings appear anywhere in
// the instruction account lists, including nested account groups.
func flagSpellings(doc RawDocument) (legacy, modern bool) {
	var walk func(accounts []any)
	walk = func(accounts []any) {
		for _, item := range accounts {
			m, ok := asMap(item)
			if !ok {
				continue
			}
			if _, ok := m["isMut"]; ok {
				legacy = true
			}
			if _, ok := m["isSigner"]; ok {
				legacy = true
			}
			if _, ok := m["writable"]; ok {
				modern = true
			}
			if _, ok := m["signer"]; ok {
				modern = true
			}
			if nested, ok := getList(m, "accounts"); ok {
				walk(nested)
			}
		}
	}
	instructions, _ := getList(doc, "instructions")
	for _, item := range instructions {
		if m, ok := asMap(item); ok {
			accounts, _ := getList(m, "accounts")
			walk(accounts)
		}
	}
	return legacy, modern
}
