package harness

import (
	"encoding/hex"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/anchorgo/internal/clientgen"
	"github.com/roach88/anchorgo/internal/codec"
	"github.com/roach88/anchorgo/internal/compiler"
	"github.com/roach88/anchorgo/internal/ir"
	"github.com/roach88/anchorgo/internal/logging"
	"github.com/roach88/anchorgo/internal/transport"
)

// Harness executes the checks of one scenario against a compiled IDL.
type Harness struct {
	idl     *ir.Idl
	surface *clientgen.ClientSurface
	program *transport.Program // nil when the IDL has no usable address
	log     logging.Logger
}

// Option configures Run.
type Option func(*options)

type options struct {
	log logging.Logger
}

// WithLogger sets the logger used while running a scenario.
func WithLogger(log logging.Logger) Option {
	return func(o *options) { o.log = log }
}

// Run executes a scenario and returns the result.
//
// Failing checks are reported in the Result. The returned error is reserved
// for problems that stop the whole scenario: an unreadable IDL or one that
// does not compile.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{log: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	h, err := newHarness(scenario, o.log)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, c := range scenario.Accounts {
		h.runAccount(fmt.Sprintf("accounts[%d] %s", i, c.Account), c, result)
	}
	for i, c := range scenario.Events {
		h.runEvent(fmt.Sprintf("events[%d] %s", i, c.Event), c, result)
	}
	for i, c := range scenario.Instructions {
		h.runInstruction(fmt.Sprintf("instructions[%d] %s", i, c.Instruction), c, result)
	}

	h.log.WithFields(logging.Fields{
		"scenario": scenario.Name,
		"checks":   len(result.Trace),
		"failed":   len(result.Errors),
	}).Debug("scenario finished")
	return result, nil
}

func newHarness(scenario *Scenario, log logging.Logger) (*Harness, error) {
	log = log.With("scenario", scenario.Name)

	src, err := compiler.LoadFile(scenario.IDL)
	if err != nil {
		return nil, fmt.Errorf("failed to load IDL: %w", err)
	}
	idl, err := compiler.Compile(src.Doc, compiler.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("failed to compile IDL: %w", err)
	}
	surface, err := clientgen.Generate(idl)
	if err != nil {
		return nil, fmt.Errorf("failed to generate client surface: %w", err)
	}

	h := &Harness{idl: idl, surface: surface, log: log}

	var progOpts []transport.ProgramOption
	progOpts = append(progOpts, transport.WithProgramLogger(log))
	if scenario.ProgramID != "" {
		progOpts = append(progOpts, transport.WithProgramID(solana.MustPublicKeyFromBase58(scenario.ProgramID)))
	}
	// Instruction checks never fetch, so an empty source is enough.
	if p, err := transport.NewProgram(idl, transport.NewMapSource(), progOpts...); err == nil {
		h.program = p
	}
	return h, nil
}

func (h *Harness) runAccount(check string, c AccountCheck, result *Result) {
	dec, ok := h.surface.Account(c.Account)
	if !ok {
		result.AddError(fmt.Sprintf("%s: program %s has no account %q", check, h.surface.Program, c.Account))
		return
	}
	h.runData(check, EventAccount, c.Account, c.DataCheck, dec.Decode, dec.Encode, dec.FromJSON, result)
}

func (h *Harness) runEvent(check string, c EventCheck, result *Result) {
	dec, ok := h.surface.Event(c.Event)
	if !ok {
		result.AddError(fmt.Sprintf("%s: program %s has no event %q", check, h.surface.Program, c.Event))
		return
	}
	h.runData(check, EventEvent, c.Event, c.DataCheck, dec.Decode, dec.Encode, dec.FromJSON, result)
}

// runData runs an account or event check. The decoder methods are passed
// in so both kinds share one path.
func (h *Harness) runData(
	check, kind, name string,
	c DataCheck,
	decode func([]byte) (codec.Value, error),
	encode func(codec.Value) ([]byte, error),
	fromJSON func(any) (codec.Value, error),
	result *Result,
) {
	ev := TraceEvent{Kind: kind, Name: name}
	defer func() { result.addTrace(ev) }()

	data, err := h.checkData(c, encode, fromJSON)
	var value codec.Value
	if err == nil {
		ev.Data = hex.EncodeToString(data)
		value, err = decode(data)
	}
	if err != nil {
		ev.Error = string(ir.KindOf(err))
	}
	if aerr := assertError(check, c.ExpectError, err); aerr != nil {
		result.AddError(aerr.Error())
		return
	}
	if err != nil {
		return
	}

	out, err := codec.MarshalJSON(value)
	if err != nil {
		result.AddError(fmt.Sprintf("%s: %v", check, err))
		return
	}
	ev.Value = out
	if err := assertSubset(check, c.Expect, out); err != nil {
		result.AddError(err.Error())
	}
}

// checkData returns the bytes a data check decodes: data_hex as is, or
// value encoded with its discriminator.
func (h *Harness) checkData(c DataCheck, encode func(codec.Value) ([]byte, error), fromJSON func(any) (codec.Value, error)) ([]byte, error) {
	if c.DataHex != "" {
		return hex.DecodeString(c.DataHex)
	}
	v, err := fromJSON(c.Value)
	if err != nil {
		return nil, err
	}
	return encode(v)
}

func (h *Harness) runInstruction(check string, c InstructionCheck, result *Result) {
	b, ok := h.surface.Instruction(c.Instruction)
	if !ok {
		result.AddError(fmt.Sprintf("%s: program %s has no instruction %q", check, h.surface.Program, c.Instruction))
		return
	}

	ev := TraceEvent{Kind: EventInstruction, Name: c.Instruction}
	defer func() { result.addTrace(ev) }()

	data, keys, err := h.buildInstruction(b, c)
	if err != nil {
		ev.Error = string(ir.KindOf(err))
	} else {
		ev.Data = hex.EncodeToString(data)
		ev.Accounts = keys
	}
	if aerr := assertError(check, c.ExpectError, err); aerr != nil {
		result.AddError(aerr.Error())
		return
	}
	if err != nil {
		return
	}

	if c.ExpectHex != "" && c.ExpectHex != ev.Data {
		result.AddError((&AssertionError{Check: check, Expected: "data " + c.ExpectHex, Actual: "data " + ev.Data}).Error())
	}
	if c.ExpectAccounts != nil {
		if err := assertAccounts(check, c.ExpectAccounts, keys); err != nil {
			result.AddError(err.Error())
		}
	}

	args, err := b.Parse(data)
	if err != nil {
		result.AddError(fmt.Sprintf("%s: built data does not parse: %v", check, err))
		return
	}
	out, err := codec.MarshalJSON(args)
	if err != nil {
		result.AddError(fmt.Sprintf("%s: %v", check, err))
		return
	}
	ev.Value = out
	if err := assertSubset(check, c.Expect, out); err != nil {
		result.AddError(err.Error())
	}
}

// buildInstruction returns the instruction data and, for checks that
// resolve accounts, the account keys in order.
func (h *Harness) buildInstruction(b *clientgen.InstructionBuilder, c InstructionCheck) ([]byte, []string, error) {
	args, err := b.ArgsFromJSON(c.Args)
	if err != nil {
		return nil, nil, err
	}
	if !c.resolvesAccounts() {
		data, err := b.Build(args...)
		return data, nil, err
	}
	if h.program == nil {
		return nil, nil, fmt.Errorf("account resolution needs a program address; set program_id")
	}

	given := make(map[string]solana.PublicKey, len(c.Accounts))
	for name, key := range c.Accounts {
		given[name] = solana.MustPublicKeyFromBase58(key)
	}
	ix, err := h.program.Instruction(c.Instruction, args, given)
	if err != nil {
		return nil, nil, err
	}
	data, err := ix.Data()
	if err != nil {
		return nil, nil, err
	}
	metas := ix.Accounts()
	keys := make([]string, len(metas))
	for i, m := range metas {
		keys[i] = m.PublicKey.String()
	}
	return data, keys, nil
}

func assertAccounts(check string, want, got []string) error {
	if len(want) != len(got) {
		return &AssertionError{
			Check:    check,
			Expected: fmt.Sprintf("%d accounts %v", len(want), want),
			Actual:   fmt.Sprintf("%d accounts %v", len(got), got),
		}
	}
	for i := range want {
		if want[i] != got[i] {
			return &AssertionError{
				Check:    check,
				Expected: fmt.Sprintf("account %d = %s", i, want[i]),
				Actual:   fmt.Sprintf("account %d = %s", i, got[i]),
			}
		}
	}
	return nil
}
