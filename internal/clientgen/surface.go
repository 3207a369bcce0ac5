package clientgen

import (
	"bytes"

	"github.com/roach88/anchorgo/borsh"
	"github.com/roach88/anchorgo/internal/codec"
	"github.com/roach88/anchorgo/internal/ir"
)

// ClientSurface holds one builder per instruction and one decoder per
// account and event, in declaration order.
type ClientSurface struct {
	Program      string
	Address      string
	Instructions []*InstructionBuilder
	Accounts     []*AccountDecoder
	Events       []*EventDecoder
}

// InstructionBuilder serializes instruction data.
type InstructionBuilder struct {
	Name          string
	Discriminator []byte
	Args          []ir.Field
	Accounts      []ir.AccountConstraint

	types *ir.TypeTable
}

// AccountDecoder reads and writes account data.
type AccountDecoder struct {
	tagged
}

// EventDecoder reads and writes event payloads.
type EventDecoder struct {
	tagged
}

// tagged is a discriminator followed by one value.
type tagged struct {
	Name          string
	Discriminator []byte
	Type          ir.TypeRef

	types *ir.TypeTable

	// allowTrailing accepts data longer than the value, as account storage
	// is usually allocated with headroom.
	allowTrailing bool
}

// Generate builds the client surface for a compiled model.
func Generate(idl *ir.Idl) (*ClientSurface, error) {
	c := &ClientSurface{
		Program:      idl.Metadata.Name,
		Address:      idl.Metadata.Address,
		Instructions: make([]*InstructionBuilder, 0, len(idl.Instructions)),
		Accounts:     make([]*AccountDecoder, 0, len(idl.Accounts)),
		Events:       make([]*EventDecoder, 0, len(idl.Events)),
	}
	for _, ix := range idl.Instructions {
		if err := requireDiscriminator("instruction", ix.Name, ix.Discriminator); err != nil {
			return nil, err
		}
		c.Instructions = append(c.Instructions, &InstructionBuilder{
			Name:          ix.Name,
			Discriminator: ix.Discriminator,
			Args:          ix.Args,
			Accounts:      ix.Accounts,
			types:         idl.Types,
		})
	}
	for _, acc := range idl.Accounts {
		if err := requireDiscriminator("account", acc.Name, acc.Discriminator); err != nil {
			return nil, err
		}
		c.Accounts = append(c.Accounts, &AccountDecoder{tagged{
			Name:          acc.Name,
			Discriminator: acc.Discriminator,
			Type:          acc.Type,
			types:         idl.Types,
			allowTrailing: true,
		}})
	}
	for _, ev := range idl.Events {
		if err := requireDiscriminator("event", ev.Name, ev.Discriminator); err != nil {
			return nil, err
		}
		c.Events = append(c.Events, &EventDecoder{tagged{
			Name:          ev.Name,
			Discriminator: ev.Discriminator,
			Type:          ev.Type,
			types:         idl.Types,
		}})
	}
	return c, nil
}

func requireDiscriminator(kind, name string, disc []byte) error {
	if len(disc) == 0 {
		return ir.Errorf(ir.KindMissingRequiredField, ir.StageGenerate, []string{name},
			"%s %q has no discriminator; compile the model first", kind, name)
	}
	return nil
}

// Instruction returns the builder with the given name.
func (c *ClientSurface) Instruction(name string) (*InstructionBuilder, bool) {
	for _, b := range c.Instructions {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// Account returns the decoder with the given name.
func (c *ClientSurface) Account(name string) (*AccountDecoder, bool) {
	for _, d := range c.Accounts {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Event returns the decoder with the given name.
func (c *ClientSurface) Event(name string) (*EventDecoder, bool) {
	for _, d := range c.Events {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// MatchAccount returns the account decoder whose discriminator starts data.
func (c *ClientSurface) MatchAccount(data []byte) (*AccountDecoder, bool) {
	for _, d := range c.Accounts {
		if d.Matches(data) {
			return d, true
		}
	}
	return nil, false
}

// MatchInstruction returns the builder whose discriminator starts data.
func (c *ClientSurface) MatchInstruction(data []byte) (*InstructionBuilder, bool) {
	for _, b := range c.Instructions {
		if bytes.HasPrefix(data, b.Discriminator) {
			return b, true
		}
	}
	return nil, false
}

// Build returns the discriminator followed by the encoded arguments.
// The number of arguments must match the declaration.
func (b *InstructionBuilder) Build(args ...codec.Value) ([]byte, error) {
	e := borsh.NewEncoder()
	e.WriteRaw(b.Discriminator)
	if err := codec.EncodeFields(e, b.types, b.Name, b.Args, args); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// ArgsFromJSON converts JSON-shaped arguments, positional or keyed by
// name, into values in declaration order.
func (b *InstructionBuilder) ArgsFromJSON(raw any) ([]codec.Value, error) {
	return codec.FieldsFromJSON(b.types, b.Name, b.Args, raw)
}

// BuildJSON converts JSON-shaped arguments and builds the instruction data.
func (b *InstructionBuilder) BuildJSON(raw any) ([]byte, error) {
	args, err := b.ArgsFromJSON(raw)
	if err != nil {
		return nil, err
	}
	return b.Build(args...)
}

// Parse decodes instruction data back into its arguments.
func (b *InstructionBuilder) Parse(data []byte) (codec.Struct, error) {
	rest, err := checkDiscriminator(b.Name, b.Discriminator, data)
	if err != nil {
		return codec.Struct{}, err
	}
	d := borsh.NewDecoder(rest)
	args, err := codec.DecodeFields(d, b.types, b.Name, b.Args)
	if err != nil {
		return codec.Struct{}, err
	}
	if n := d.Remaining(); n > 0 {
		return codec.Struct{}, ir.Errorf(ir.KindInvalidValue, ir.StageDecode, []string{b.Name},
			"%d trailing bytes after arguments", n)
	}
	return args, nil
}

// Matches reports whether data starts with the discriminator.
func (t *tagged) Matches(data []byte) bool {
	return bytes.HasPrefix(data, t.Discriminator)
}

// Decode checks the discriminator and decodes the rest of data. On a
// mismatch it fails with DiscriminatorMismatch and returns no value.
func (t *tagged) Decode(data []byte) (codec.Value, error) {
	rest, err := checkDiscriminator(t.Name, t.Discriminator, data)
	if err != nil {
		return nil, err
	}
	if t.allowTrailing {
		return codec.DecodeFrom(borsh.NewDecoder(rest), t.types, t.Type)
	}
	return codec.Decode(t.types, t.Type, rest)
}

// Encode returns the discriminator followed by v.
func (t *tagged) Encode(v codec.Value) ([]byte, error) {
	e := borsh.NewEncoder()
	e.WriteRaw(t.Discriminator)
	if err := codec.EncodeTo(e, t.types, t.Type, v); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// FromJSON converts JSON-shaped data into a value of the decoder's type.
func (t *tagged) FromJSON(raw any) (codec.Value, error) {
	return codec.FromJSON(t.types, t.Type, raw)
}

func checkDiscriminator(name string, want, data []byte) ([]byte, error) {
	rest, err := borsh.CheckDiscriminator(name, want, data)
	if err != nil {
		e := ir.Errorf(ir.KindDiscriminatorMismatch, ir.StageDecode, []string{name},
			"data does not start with the %s discriminator", name)
		e.Err = err
		return nil, e
	}
	return rest, nil
}
