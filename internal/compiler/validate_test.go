package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/anchorgo/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateCleanFixture(t *testing.T) {
	idl, err := Compile(loadFixture(t, "new_counter.json"))
	require.NoError(t, err)
	assert.Empty(t, Validate(idl))
}

func TestValidateFindings(t *testing.T) {
	idl := ir.NewIdl(ir.OriginNewFormat)
	idl.Instructions = []*ir.Instruction{{
		Name: "go",
		Args: []ir.Field{{Name: "seed", Type: ir.Primitive{Kind: ir.KindU8}}},
		Accounts: []ir.AccountConstraint{
			{Name: "a", Signer: true, PDA: &ir.PDA{Seeds: []ir.Seed{
				{Kind: ir.SeedArg, Path: "seed"},
				{Kind: ir.SeedArg, Path: "nope.field"},
				{Kind: ir.SeedAccount, Path: "ghost"},
			}}},
			{Name: "b", Optional: true, Address: "11111111111111111111111111111111"},
		},
	}}
	idl.Errors = []*ir.ErrorCode{{Code: 42, Name: "Low"}}
	idl.Constants = []*ir.Constant{
		{Name: "OK", Type: ir.Primitive{Kind: ir.KindU8}, Value: "255"},
		{Name: "BIG", Type: ir.Primitive{Kind: ir.KindU8}, Value: "256"},
		{Name: "NEG", Type: ir.Primitive{Kind: ir.KindI8}, Value: "-128"},
		{Name: "HEX", Type: ir.Primitive{Kind: ir.KindU16}, Value: "0xffff"},
		{Name: "FLAG", Type: ir.Primitive{Kind: ir.KindBool}, Value: "yes"},
		{Name: "SEED", Type: ir.Primitive{Kind: ir.KindBytes}, Value: "[1, 2]"},
	}

	errs := Validate(idl)
	assert.Equal(t, []string{
		ErrSignerPDA,
		ErrUnknownArgSeed,
		ErrUnknownAccountSeed,
		ErrOptionalWithAddress,
		ErrErrorCodeRange,
		ErrConstantValue,
		ErrConstantValue,
	}, codes(errs))
	assert.Contains(t, errs[len(errs)-2].Message, "256 overflows u8")
	assert.Equal(t, "[E105] instructions[0].accounts[0]: account \"a\" is a PDA and cannot sign a transaction", errs[0].Error())
}

func TestValidateNestedAccountSeeds(t *testing.T) {
	idl := ir.NewIdl(ir.OriginLegacy)
	idl.Instructions = []*ir.Instruction{{
		Name: "swap",
		Accounts: []ir.AccountConstraint{
			{Name: "user"},
			{Name: "pool_a.vault"},
			{Name: "pool_a.state", PDA: &ir.PDA{Seeds: []ir.Seed{
				{Kind: ir.SeedAccount, Path: "vault"},
				{Kind: ir.SeedAccount, Path: "user"},
				{Kind: ir.SeedAccount, Path: "vault.owner"},
			}}},
			{Name: "pool_b.state", PDA: &ir.PDA{Seeds: []ir.Seed{
				{Kind: ir.SeedAccount, Path: "pool_a.vault"},
				{Kind: ir.SeedAccount, Path: "vault"},
			}}},
		},
	}}

	errs := Validate(idl)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnknownAccountSeed, errs[0].Code)
	assert.Equal(t, "instructions[0].accounts[3].pda.seeds[1]", errs[0].Field)
}
