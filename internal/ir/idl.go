package ir

import "strings"

// Origin records which IDL generation produced a model.
type Origin string

const (
	// OriginLegacy marks documents whose discriminators are derived from names.
	OriginLegacy Origin = "legacy"

	// OriginNewFormat marks documents that carry explicit discriminators.
	OriginNewFormat Origin = "new"
)

// DiscriminatorSize is the width of name-derived discriminators.
const DiscriminatorSize = 8

// MaxArrayLen bounds fixed array lengths. It is the largest account a
// Solana program can own, 10 MiB.
const MaxArrayLen = 10 << 20

// Idl is the canonical program interface.
type Idl struct {
	Origin       Origin         `json:"origin"`
	Metadata     Metadata       `json:"metadata"`
	Instructions []*Instruction `json:"instructions"`
	Accounts     []*Account     `json:"accounts"`
	Events       []*Event       `json:"events"`
	Types        *TypeTable     `json:"types"`
	Constants    []*Constant    `json:"constants"`
	Errors       []*ErrorCode   `json:"errors"`
}

// NewIdl returns an empty model for the given origin.
func NewIdl(origin Origin) *Idl {
	return &Idl{
		Origin: origin,
		Types:  NewTypeTable(),
	}
}

// Metadata describes the program itself.
type Metadata struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Spec        string `json:"spec,omitempty"`        // new format only
	Description string `json:"description,omitempty"` // new format only
	Address     string `json:"address,omitempty"`     // base58 program id
}

// Instruction is one program entrypoint.
type Instruction struct {
	Name          string              `json:"name"`
	Docs          []string            `json:"docs,omitempty"`
	Accounts      []AccountConstraint `json:"accounts"`
	Args          []Field             `json:"args"`
	Discriminator []byte              `json:"discriminator"`
}

// AccountPathSep joins a nested account group's name to its members.
const AccountPathSep = "."

// AccountScopes lists the full account names a seed path may refer to
// when it appears on owner: the owner's group first, then each enclosing
// group out to the instruction.
func AccountScopes(owner, path string) []string {
	var out []string
	group := owner
	for {
		i := strings.LastIndex(group, AccountPathSep)
		if i < 0 {
			return append(out, path)
		}
		group = group[:i]
		out = append(out, group+AccountPathSep+path)
	}
}

// AccountConstraint is an account slot an instruction expects. Members of
// nested groups are named by their full path, e.g. "pool_a.vault".
type AccountConstraint struct {
	Name     string   `json:"name"`
	Docs     []string `json:"docs,omitempty"`
	Writable bool     `json:"writable"`
	Signer   bool     `json:"signer"`
	Optional bool     `json:"optional"`
	Address  string   `json:"address,omitempty"` // fixed base58 address
	PDA      *PDA     `json:"pda,omitempty"`
}

// PDA describes how a program-derived address is seeded.
type PDA struct {
	Seeds   []Seed `json:"seeds"`
	Program *Seed  `json:"program,omitempty"` // defaults to the program itself
}

// SeedKind is the source of a PDA seed.
type SeedKind string

const (
	SeedConst   SeedKind = "const"
	SeedArg     SeedKind = "arg"
	SeedAccount SeedKind = "account"
)

// Seed is a single PDA seed.
type Seed struct {
	Kind  SeedKind `json:"kind"`
	Value []byte   `json:"value,omitempty"` // const seeds
	Path  string   `json:"path,omitempty"`  // arg and account seeds
}

// IsConst reports whether every seed is known without runtime input.
func (p *PDA) IsConst() bool {
	if p == nil {
		return false
	}
	for _, s := range p.Seeds {
		if s.Kind != SeedConst {
			return false
		}
	}
	return p.Program == nil || p.Program.Kind == SeedConst
}

// Account is an on-chain data layout with its discriminator.
type Account struct {
	Name          string   `json:"name"`
	Docs          []string `json:"docs,omitempty"`
	Type          TypeRef  `json:"type"`
	Discriminator []byte   `json:"discriminator"`
}

// Event is a logged event layout with its discriminator.
type Event struct {
	Name          string  `json:"name"`
	Type          TypeRef `json:"type"`
	Discriminator []byte  `json:"discriminator"`
}

// Field is a named, typed slot in a struct, variant or argument list.
type Field struct {
	Name string   `json:"name"`
	Docs []string `json:"docs,omitempty"`
	Type TypeRef  `json:"type"`
}

// Constant is a program constant. Value is the literal as written.
type Constant struct {
	Name  string  `json:"name"`
	Type  TypeRef `json:"type"`
	Value string  `json:"value"`
}

// ErrorCode is a custom program error.
type ErrorCode struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg,omitempty"`
}

// Instruction returns the named instruction.
func (idl *Idl) Instruction(name string) (*Instruction, bool) {
	for _, ix := range idl.Instructions {
		if ix.Name == name {
			return ix, true
		}
	}
	return nil, false
}

// Account returns the named account.
func (idl *Idl) Account(name string) (*Account, bool) {
	for _, acc := range idl.Accounts {
		if acc.Name == name {
			return acc, true
		}
	}
	return nil, false
}

// Event returns the named event.
func (idl *Idl) Event(name string) (*Event, bool) {
	for _, ev := range idl.Events {
		if ev.Name == name {
			return ev, true
		}
	}
	return nil, false
}

// Refs calls fn with a pointer to every TypeRef held by the model, in a
// fixed order: instructions, accounts, events, constants, then types in
// declaration order. fn may replace the reference in place.
func (idl *Idl) Refs(fn func(owner string, ref *TypeRef) error) error {
	for _, ix := range idl.Instructions {
		for i := range ix.Args {
			if err := fn(ix.Name+"."+ix.Args[i].Name, &ix.Args[i].Type); err != nil {
				return err
			}
		}
	}
	for _, acc := range idl.Accounts {
		if err := fn(acc.Name, &acc.Type); err != nil {
			return err
		}
	}
	for _, ev := range idl.Events {
		if err := fn(ev.Name, &ev.Type); err != nil {
			return err
		}
	}
	for _, c := range idl.Constants {
		if err := fn(c.Name, &c.Type); err != nil {
			return err
		}
	}
	for _, def := range idl.Types.All() {
		if err := def.refs(fn); err != nil {
			return err
		}
	}
	return nil
}
