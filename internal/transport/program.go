package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/anchorgo/internal/clientgen"
	"github.com/roach88/anchorgo/internal/codec"
	"github.com/roach88/anchorgo/internal/ir"
	"github.com/roach88/anchorgo/internal/logging"
)

// Program is a dynamic client: it decodes fetched accounts and builds
// instructions from a compiled model without generated code.
type Program struct {
	ID      solana.PublicKey
	Surface *clientgen.ClientSurface

	source AccountSource
	types  *ir.TypeTable
	log    logging.Logger
}

// ProgramOption configures a Program.
type ProgramOption func(*Program)

// WithProgramID overrides the address declared by the IDL.
func WithProgramID(id solana.PublicKey) ProgramOption {
	return func(p *Program) { p.ID = id }
}

// WithProgramLogger sets the logger.
func WithProgramLogger(l logging.Logger) ProgramOption {
	return func(p *Program) { p.log = l }
}

// NewProgram builds a dynamic client over a compiled model.
func NewProgram(idl *ir.Idl, source AccountSource, opts ...ProgramOption) (*Program, error) {
	surface, err := clientgen.Generate(idl)
	if err != nil {
		return nil, err
	}
	p := &Program{
		Surface: surface,
		source:  source,
		types:   idl.Types,
		log:     logging.Discard(),
	}
	if idl.Metadata.Address != "" {
		id, err := solana.PublicKeyFromBase58(idl.Metadata.Address)
		if err != nil {
			return nil, ir.Errorf(ir.KindMalformedAddress, ir.StageGenerate, []string{idl.Metadata.Address}, "program address: %v", err)
		}
		p.ID = id
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.ID.IsZero() {
		return nil, fmt.Errorf("program %s declares no address; pass WithProgramID", idl.Metadata.Name)
	}
	return p, nil
}

// FetchAccount fetches address and decodes it as the named account.
func (p *Program) FetchAccount(ctx context.Context, name string, address solana.PublicKey) (codec.Value, error) {
	dec, ok := p.Surface.Account(name)
	if !ok {
		return nil, fmt.Errorf("program %s has no account %q", p.Surface.Program, name)
	}
	data, err := p.source.AccountData(ctx, address)
	if err != nil {
		return nil, err
	}
	return dec.Decode(data)
}

// FetchAny fetches address and decodes it as whichever account its
// discriminator names.
func (p *Program) FetchAny(ctx context.Context, address solana.PublicKey) (string, codec.Value, error) {
	data, err := p.source.AccountData(ctx, address)
	if err != nil {
		return "", nil, err
	}
	dec, ok := p.Surface.MatchAccount(data)
	if !ok {
		return "", nil, ir.Errorf(ir.KindDiscriminatorMismatch, ir.StageDecode, []string{address.String()},
			"account data matches no account of %s", p.Surface.Program)
	}
	v, err := dec.Decode(data)
	if err != nil {
		return "", nil, err
	}
	return dec.Name, v, nil
}

// Instruction builds a ready-to-sign instruction. Accounts are taken from
// the accounts map by name; missing ones fall back to a fixed address, a
// derivable PDA, or, for optional accounts, the program ID.
func (p *Program) Instruction(name string, args []codec.Value, accounts map[string]solana.PublicKey) (solana.Instruction, error) {
	b, ok := p.Surface.Instruction(name)
	if !ok {
		return nil, fmt.Errorf("program %s has no instruction %q", p.Surface.Program, name)
	}
	data, err := b.Build(args...)
	if err != nil {
		return nil, err
	}

	keys, err := p.resolveAccounts(b, args, accounts)
	if err != nil {
		return nil, err
	}
	metas := make(solana.AccountMetaSlice, len(b.Accounts))
	for i, acc := range b.Accounts {
		key, ok := keys[acc.Name]
		if !ok {
			// Omitted optional account.
			metas[i] = solana.NewAccountMeta(p.ID, false, false)
			continue
		}
		metas[i] = solana.NewAccountMeta(key, acc.Writable, acc.Signer)
	}
	p.log.WithFields(logging.Fields{
		"instruction": name,
		"accounts":    len(metas),
		"bytes":       len(data),
	}).Debug("built instruction")
	return solana.NewInstruction(p.ID, metas, data), nil
}

// resolveAccounts fills in account keys. PDAs may depend on other accounts,
// so derivation repeats until no further account can be resolved.
func (p *Program) resolveAccounts(b *clientgen.InstructionBuilder, args []codec.Value, given map[string]solana.PublicKey) (map[string]solana.PublicKey, error) {
	keys := make(map[string]solana.PublicKey, len(b.Accounts))
	for k, v := range given {
		keys[k] = v
	}
	for _, acc := range b.Accounts {
		if _, ok := keys[acc.Name]; ok || acc.Address == "" {
			continue
		}
		key, err := solana.PublicKeyFromBase58(acc.Address)
		if err != nil {
			return nil, ir.Errorf(ir.KindMalformedAddress, ir.StageEncode, []string{acc.Name}, "fixed address: %v", err)
		}
		keys[acc.Name] = key
	}

	for progress := true; progress; {
		progress = false
		for _, acc := range b.Accounts {
			if _, ok := keys[acc.Name]; ok || acc.PDA == nil {
				continue
			}
			key, ok, err := p.derive(b, acc, args, keys)
			if err != nil {
				return nil, err
			}
			if ok {
				keys[acc.Name] = key
				progress = true
			}
		}
	}

	for _, acc := range b.Accounts {
		if _, ok := keys[acc.Name]; !ok && !acc.Optional {
			return nil, ir.Errorf(ir.KindArgumentMismatch, ir.StageEncode, []string{b.Name, acc.Name},
				"instruction %s needs account %q", b.Name, acc.Name)
		}
	}
	return keys, nil
}

// derive computes the PDA of acc. It reports false when a seed depends on
// an account that is not known yet.
func (p *Program) derive(b *clientgen.InstructionBuilder, acc ir.AccountConstraint, args []codec.Value, keys map[string]solana.PublicKey) (solana.PublicKey, bool, error) {
	pda := acc.PDA
	seeds := make([][]byte, 0, len(pda.Seeds))
	for _, seed := range pda.Seeds {
		v, ok, err := p.seedBytes(b, acc.Name, seed, args, keys)
		if err != nil || !ok {
			return solana.PublicKey{}, false, err
		}
		seeds = append(seeds, v)
	}
	programID := p.ID
	if pda.Program != nil {
		v, ok, err := p.seedBytes(b, acc.Name, *pda.Program, args, keys)
		if err != nil || !ok {
			return solana.PublicKey{}, false, err
		}
		if len(v) != solana.PublicKeyLength {
			return solana.PublicKey{}, false, ir.Errorf(ir.KindInvalidValue, ir.StageEncode, []string{b.Name},
				"PDA program seed is %d bytes, not a public key", len(v))
		}
		programID = solana.PublicKeyFromBytes(v)
	}
	key, _, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, false, ir.Errorf(ir.KindInvalidValue, ir.StageEncode, []string{b.Name}, "derive PDA: %v", err)
	}
	return key, true, nil
}

func (p *Program) seedBytes(b *clientgen.InstructionBuilder, owner string, seed ir.Seed, args []codec.Value, keys map[string]solana.PublicKey) ([]byte, bool, error) {
	switch seed.Kind {
	case ir.SeedConst:
		return seed.Value, true, nil
	case ir.SeedAccount:
		name, ok := seedAccount(b.Accounts, owner, seed.Path)
		if !ok && strings.Contains(seed.Path, ".") {
			return nil, false, ir.Errorf(ir.KindUnsupportedType, ir.StageEncode, []string{b.Name, seed.Path},
				"seed %q reads account data; pass the PDA explicitly", seed.Path)
		}
		if !ok {
			return nil, false, ir.Errorf(ir.KindUnsupportedType, ir.StageEncode, []string{b.Name, seed.Path},
				"seed %q names no account", seed.Path)
		}
		key, ok := keys[name]
		if !ok {
			return nil, false, nil
		}
		return key.Bytes(), true, nil
	case ir.SeedArg:
		for i, a := range b.Args {
			if a.Name == seed.Path && i < len(args) {
				v, err := argSeed(p.types, a, args[i])
				return v, err == nil, err
			}
		}
		return nil, false, ir.Errorf(ir.KindUnsupportedType, ir.StageEncode, []string{b.Name, seed.Path},
			"seed %q does not name an argument", seed.Path)
	}
	return nil, false, ir.Errorf(ir.KindUnsupportedType, ir.StageEncode, []string{b.Name}, "unknown seed kind %q", seed.Kind)
}

// seedAccount finds the account an account seed names, nearest group
// first. A path that names no account reads account data.
func seedAccount(accounts []ir.AccountConstraint, owner, path string) (string, bool) {
	for _, name := range ir.AccountScopes(owner, path) {
		for _, acc := range accounts {
			if acc.Name == name {
				return name, true
			}
		}
	}
	return "", false
}

// argSeed encodes an argument the way the program hashes it: strings and
// byte buffers contribute their raw bytes, everything else its Borsh form.
func argSeed(types *ir.TypeTable, arg ir.Field, v codec.Value) ([]byte, error) {
	switch x := v.(type) {
	case codec.String:
		return []byte(x), nil
	case codec.Bytes:
		return x, nil
	case codec.PublicKey:
		return x[:], nil
	}
	return codec.Encode(types, arg.Type, v)
}
