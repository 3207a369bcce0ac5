package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Discriminator namespaces used by name-derived discriminators.
const (
	NamespaceInstruction = "global"
	NamespaceAccount     = "account"
	NamespaceEvent       = "event"
)

// DomainIdl separates IDL content hashes from any other SHA-256 use. It
// changes with ModelVersion, so registries never mix hashes of two model
// layouts.
const DomainIdl = "anchorgo/idl/v" + ModelVersion

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Sighash returns the first DiscriminatorSize bytes of
// SHA256(namespace + ":" + name). This is the tag the on-chain runtime
// expects for legacy programs.
func Sighash(namespace, name string) []byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	out := make([]byte, DiscriminatorSize)
	copy(out, sum[:DiscriminatorSize])
	return out
}

// InstructionDiscriminator derives the legacy tag for an instruction.
// Instruction names are snake-cased first, matching the Rust handler name.
func InstructionDiscriminator(name string) []byte {
	return Sighash(NamespaceInstruction, SnakeCase(name))
}

// AccountDiscriminator derives the legacy tag for an account type.
func AccountDiscriminator(name string) []byte {
	return Sighash(NamespaceAccount, name)
}

// EventDiscriminator derives the legacy tag for an event type.
func EventDiscriminator(name string) []byte {
	return Sighash(NamespaceEvent, name)
}

// IdlHash computes the content hash of a compiled model.
// The hash depends only on the canonical JSON form, so it is stable for a
// fixed input regardless of key order or whitespace in the source document.
func IdlHash(idl *Idl) (string, error) {
	canonical, err := CanonicalJSON(idl)
	if err != nil {
		return "", fmt.Errorf("IdlHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainIdl, canonical), nil
}

// MustIdlHash is like IdlHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustIdlHash(idl *Idl) string {
	h, err := IdlHash(idl)
	if err != nil {
		panic(err)
	}
	return h
}
