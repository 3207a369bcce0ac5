package cli

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/roach88/anchorgo/internal/clientgen"
	"github.com/roach88/anchorgo/internal/transport"
)

// Kinds of program data the encode and decode commands handle.
const (
	kindInstruction = "instruction"
	kindAccount     = "account"
	kindEvent       = "event"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Kind      string
	Args      string
	Accounts  map[string]string
	ProgramID string
}

// EncodeResult is the output of the encode command.
type EncodeResult struct {
	Kind     string        `json:"kind"`
	Name     string        `json:"name"`
	Data     string        `json:"data"`
	Program  string        `json:"program,omitempty"`
	Accounts []AccountMeta `json:"accounts,omitempty"`
}

// AccountMeta is one resolved instruction account.
type AccountMeta struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Writable bool   `json:"writable"`
	Signer   bool   `json:"signer"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode <idl> <name>",
		Short: "Serialize instruction arguments, account data or an event",
		Long: `Encode JSON values with the layout of an instruction, account or event
and print the data, discriminator first, as hex.

Instruction arguments are a JSON list in declaration order or an object
keyed by argument name. Large integers may be given as strings.

With --account, the instruction is built in full: accounts that are not
given are filled from fixed addresses and derivable PDAs.`,
		Example: `  anchorgo encode counter.json increment --args '[5]'
  anchorgo encode counter.json Counter --kind account --args '{"count":1,"authority":"..."}'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", kindInstruction, "what to encode (instruction|account|event)")
	cmd.Flags().StringVar(&opts.Args, "args", "", "JSON value or argument list")
	cmd.Flags().StringToStringVar(&opts.Accounts, "account", nil, "instruction account as name=address (repeatable)")
	cmd.Flags().StringVar(&opts.ProgramID, "program-id", "", "program address when the IDL declares none")

	return cmd
}

func runEncode(opts *EncodeOptions, path, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	l, err := opts.loadOrFail(formatter, path, opts.logger())
	if err != nil {
		return err
	}
	raw, err := parseJSONFlag("--args", opts.Args)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	surface, err := clientgen.Generate(l.Idl)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	result := EncodeResult{Kind: opts.Kind, Name: name}
	var data []byte
	switch opts.Kind {
	case kindInstruction:
		data, err = opts.encodeInstruction(l, surface, name, raw, &result)
	case kindAccount:
		dec, ok := surface.Account(name)
		if !ok {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("program %s has no account %q", surface.Program, name))
		}
		data, err = encodeTagged(dec.FromJSON, dec.Encode, raw)
	case kindEvent:
		dec, ok := surface.Event(name)
		if !ok {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("program %s has no event %q", surface.Program, name))
		}
		data, err = encodeTagged(dec.FromJSON, dec.Encode, raw)
	default:
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("invalid --kind %q: must be instruction, account or event", opts.Kind))
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	result.Data = hex.EncodeToString(data)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintln(formatter.Writer, result.Data)
	for _, m := range result.Accounts {
		fmt.Fprintf(formatter.Writer, "  %-20s %s%s\n", m.Name, m.Address, metaFlags(m))
	}
	return nil
}

func (opts *EncodeOptions) encodeInstruction(l *LoadedIdl, surface *clientgen.ClientSurface, name string, raw any, result *EncodeResult) ([]byte, error) {
	b, ok := surface.Instruction(name)
	if !ok {
		return nil, fmt.Errorf("program %s has no instruction %q", surface.Program, name)
	}
	args, err := b.ArgsFromJSON(raw)
	if err != nil {
		return nil, err
	}
	if len(opts.Accounts) == 0 {
		return b.Build(args...)
	}

	given := make(map[string]solana.PublicKey, len(opts.Accounts))
	for k, v := range opts.Accounts {
		key, err := solana.PublicKeyFromBase58(v)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", k, err)
		}
		given[k] = key
	}
	var popts []transport.ProgramOption
	popts = append(popts, transport.WithProgramLogger(opts.logger()))
	if opts.ProgramID != "" {
		id, err := solana.PublicKeyFromBase58(opts.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("--program-id: %w", err)
		}
		popts = append(popts, transport.WithProgramID(id))
	}
	program, err := transport.NewProgram(l.Idl, transport.NewMapSource(), popts...)
	if err != nil {
		return nil, err
	}
	ix, err := program.Instruction(name, args, given)
	if err != nil {
		return nil, err
	}

	result.Program = ix.ProgramID().String()
	for i, m := range ix.Accounts() {
		result.Accounts = append(result.Accounts, AccountMeta{
			Name:     b.Accounts[i].Name,
			Address:  m.PublicKey.String(),
			Writable: m.IsWritable,
			Signer:   m.IsSigner,
		})
	}
	return ix.Data()
}

func encodeTagged[V any](fromJSON func(any) (V, error), encode func(V) ([]byte, error), raw any) ([]byte, error) {
	v, err := fromJSON(raw)
	if err != nil {
		return nil, err
	}
	return encode(v)
}

// parseJSONFlag decodes a JSON flag value. Numbers stay exact so that
// 64 and 128 bit integers survive.
func parseJSONFlag(flag, s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%s is not valid JSON: %w", flag, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%s holds more than one JSON value", flag)
	}
	return v, nil
}

func metaFlags(m AccountMeta) string {
	var s string
	if m.Writable {
		s += " writable"
	}
	if m.Signer {
		s += " signer"
	}
	return s
}
