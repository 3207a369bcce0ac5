package compiler

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/roach88/anchorgo/internal/ir"
)

// Validation codes (E100-E199). These are advisory findings on a compiled
// model; none of them stops the pipeline.
const (
	ErrUnknownArgSeed      = "E101" // PDA seed references an unknown argument
	ErrUnknownAccountSeed  = "E102" // PDA seed references an unknown account
	ErrErrorCodeRange      = "E103" // custom error code below the custom range
	ErrConstantValue       = "E104" // constant literal does not fit its type
	ErrSignerPDA           = "E105" // PDA account marked as signer
	ErrOptionalWithAddress = "E106" // optional account with a fixed address
)

// CustomErrorOffset is the first code available to program errors.
const CustomErrorOffset = 6000

// ValidationError represents a validation finding.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled model for problems that do not prevent code
// generation but usually indicate a broken document.
// Returns all findings (does not fail-fast).
func Validate(idl *ir.Idl) []ValidationError {
	var errs []ValidationError
	for i, ix := range idl.Instructions {
		errs = append(errs, validateInstruction(i, ix)...)
	}

	for i, e := range idl.Errors {
		if e.Code < CustomErrorOffset {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("errors[%d].code", i),
				Message: fmt.Sprintf("error %q has code %d, below the custom range starting at %d", e.Name, e.Code, CustomErrorOffset),
				Code:    ErrErrorCodeRange,
			})
		}
	}

	for i, c := range idl.Constants {
		if msg := checkConstant(c); msg != "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("constants[%d].value", i),
				Message: msg,
				Code:    ErrConstantValue,
			})
		}
	}
	return errs
}

func validateInstruction(i int, ix *ir.Instruction) []ValidationError {
	var errs []ValidationError

	args := make(map[string]bool, len(ix.Args))
	for _, a := range ix.Args {
		args[a.Name] = true
	}
	accounts := make(map[string]bool, len(ix.Accounts))
	for _, a := range ix.Accounts {
		accounts[a.Name] = true
	}

	for j, acc := range ix.Accounts {
		field := fmt.Sprintf("instructions[%d].accounts[%d]", i, j)
		if acc.Optional && acc.Address != "" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("account %q is optional but has a fixed address", acc.Name),
				Code:    ErrOptionalWithAddress,
			})
		}
		if acc.PDA == nil {
			continue
		}
		if acc.Signer {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("account %q is a PDA and cannot sign a transaction", acc.Name),
				Code:    ErrSignerPDA,
			})
		}
		for k, seed := range acc.PDA.Seeds {
			root, _, _ := strings.Cut(seed.Path, ".")
			switch {
			case seed.Kind == ir.SeedArg && !args[root]:
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.pda.seeds[%d]", field, k),
					Message: fmt.Sprintf("seed references unknown argument %q", seed.Path),
					Code:    ErrUnknownArgSeed,
				})
			case seed.Kind == ir.SeedAccount && !seedNamesAccount(accounts, acc.Name, seed.Path):
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.pda.seeds[%d]", field, k),
					Message: fmt.Sprintf("seed references unknown account %q", seed.Path),
					Code:    ErrUnknownAccountSeed,
				})
			}
		}
	}
	return errs
}

// seedNamesAccount reports whether path, or a prefix of it ending at a
// field access, names an account visible from owner.
func seedNamesAccount(accounts map[string]bool, owner, path string) bool {
	for prefix := path; ; {
		for _, name := range ir.AccountScopes(owner, prefix) {
			if accounts[name] {
				return true
			}
		}
		i := strings.LastIndex(prefix, ".")
		if i < 0 {
			return false
		}
		prefix = prefix[:i]
	}
}

// integerBits holds the width of every integer kind.
var integerBits = map[ir.PrimitiveKind]int{
	ir.KindU8: 8, ir.KindI8: 8,
	ir.KindU16: 16, ir.KindI16: 16,
	ir.KindU32: 32, ir.KindI32: 32,
	ir.KindU64: 64, ir.KindI64: 64,
	ir.KindU128: 128, ir.KindI128: 128,
	ir.KindU256: 256, ir.KindI256: 256,
}

// checkConstant returns a message if an integer or bool constant literal
// does not fit its declared type. Other kinds are not checked.
func checkConstant(c *ir.Constant) string {
	p, ok := c.Type.(ir.Primitive)
	if !ok {
		return ""
	}
	if p.Kind == ir.KindBool {
		if c.Value != "true" && c.Value != "false" {
			return fmt.Sprintf("constant %q: %q is not a bool", c.Name, c.Value)
		}
		return ""
	}
	bits, ok := integerBits[p.Kind]
	if !ok {
		return ""
	}
	n, ok := new(big.Int).SetString(strings.ReplaceAll(c.Value, "_", ""), 0)
	if !ok {
		return fmt.Sprintf("constant %q: %q is not an integer", c.Name, c.Value)
	}
	lo, hi := new(big.Int), new(big.Int).Lsh(big.NewInt(1), uint(bits))
	if p.Kind.Signed() {
		hi.Rsh(hi, 1)
		lo.Neg(hi)
	}
	if n.Cmp(lo) < 0 || n.Cmp(hi) >= 0 {
		return fmt.Sprintf("constant %q: %s overflows %s", c.Name, c.Value, p.Kind)
	}
	return ""
}
