package compiler

import (
	"bytes"
	"fmt"

	"github.com/roach88/anchorgo/internal/ir"
)

// AssignDiscriminators fills in or validates discriminators according to
// the model's origin.
//
// Legacy models have discriminators derived from names:
// instructions hash "global:<snake_case name>", accounts "account:<Name>",
// events "event:<Name>", each truncated to the first eight bytes of
// SHA-256. New-format models must already carry one on every entry.
//
// For both origins, no two entries of the same kind may share a
// discriminator, and none may be a prefix of another, since either would
// make wire data ambiguous.
func AssignDiscriminators(idl *ir.Idl) error {
	switch idl.Origin {
	case ir.OriginLegacy:
		computeLegacy(idl)
	case ir.OriginNewFormat:
		if err := requireExplicit(idl); err != nil {
			return err
		}
	default:
		return ir.Errorf(ir.KindUnrecognizedFormat, ir.StageDiscriminator, nil, "unknown origin %q", idl.Origin)
	}

	if err := checkCollisions("instruction", instructionTags(idl)); err != nil {
		return err
	}
	if err := checkCollisions("account", accountTags(idl)); err != nil {
		return err
	}
	return checkCollisions("event", eventTags(idl))
}

func computeLegacy(idl *ir.Idl) {
	for _, ix := range idl.Instructions {
		ix.Discriminator = ir.InstructionDiscriminator(ix.Name)
	}
	for _, acc := range idl.Accounts {
		acc.Discriminator = ir.AccountDiscriminator(acc.Name)
	}
	for _, ev := range idl.Events {
		ev.Discriminator = ir.EventDiscriminator(ev.Name)
	}
}

func requireExplicit(idl *ir.Idl) error {
	check := func(kind string, tags []namedTag) error {
		for _, t := range tags {
			if len(t.tag) == 0 {
				return ir.Errorf(ir.KindMissingRequiredField, ir.StageDiscriminator, []string{t.name},
					"%s %q has no discriminator", kind, t.name)
			}
		}
		return nil
	}
	if err := check("instruction", instructionTags(idl)); err != nil {
		return err
	}
	if err := check("account", accountTags(idl)); err != nil {
		return err
	}
	return check("event", eventTags(idl))
}

type namedTag struct {
	name string
	tag  []byte
}

func instructionTags(idl *ir.Idl) []namedTag {
	out := make([]namedTag, len(idl.Instructions))
	for i, ix := range idl.Instructions {
		out[i] = namedTag{ix.Name, ix.Discriminator}
	}
	return out
}

func accountTags(idl *ir.Idl) []namedTag {
	out := make([]namedTag, len(idl.Accounts))
	for i, acc := range idl.Accounts {
		out[i] = namedTag{acc.Name, acc.Discriminator}
	}
	return out
}

func eventTags(idl *ir.Idl) []namedTag {
	out := make([]namedTag, len(idl.Events))
	for i, ev := range idl.Events {
		out[i] = namedTag{ev.Name, ev.Discriminator}
	}
	return out
}

// checkCollisions compares every pair in declaration order.
func checkCollisions(kind string, tags []namedTag) error {
	for i := 0; i < len(tags); i++ {
		for j := i + 1; j < len(tags); j++ {
			a, b := tags[i], tags[j]
			if bytes.HasPrefix(a.tag, b.tag) || bytes.HasPrefix(b.tag, a.tag) {
				return ir.Errorf(ir.KindDiscriminatorCollision, ir.StageDiscriminator, []string{a.name, b.name},
					"%s discriminators of %q and %q collide (%s)", kind, a.name, b.name, fmt.Sprintf("%x", a.tag))
			}
		}
	}
	return nil
}
