package cli

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/anchorgo/internal/clientgen"
	"github.com/roach88/anchorgo/internal/codec"
	"github.com/roach88/anchorgo/internal/ir"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	Kind     string
	Data     string
	Encoding string
}

// DecodeResult is the output of the decode command.
type DecodeResult struct {
	Kind  string          `json:"kind"`
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <idl> [name]",
		Short: "Decode instruction, account or event data",
		Long: `Decode program data and print it as JSON. The data must start with the
discriminator of the named instruction, account or event. Without a name
the layout is picked by matching the discriminator.

Event payloads from transaction logs are base64; use --encoding base64.`,
		Example: `  anchorgo decode counter.json Counter --kind account --data ffb004f5...
  anchorgo decode counter.json --kind event --encoding base64 --data YjWdsMGnR/I...`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			return runDecode(opts, args[0], name, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", kindAccount, "what to decode (instruction|account|event)")
	cmd.Flags().StringVar(&opts.Data, "data", "", "encoded data")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", "hex", "encoding of --data (hex|base64)")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runDecode(opts *DecodeOptions, path, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	l, err := opts.loadOrFail(formatter, path, opts.logger())
	if err != nil {
		return err
	}
	data, err := decodeInput(opts.Encoding, opts.Data)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	surface, err := clientgen.Generate(l.Idl)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	name, v, err := decodeAs(surface, opts.Kind, name, data)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	out, err := codec.MarshalJSON(v)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(DecodeResult{Kind: opts.Kind, Name: name, Value: out})
	}
	fmt.Fprintf(formatter.Writer, "%s %s\n%s\n", opts.Kind, name, out)
	return nil
}

// decodeAs decodes data as the named layout of kind, or as the layout
// whose discriminator matches when name is empty.
func decodeAs(surface *clientgen.ClientSurface, kind, name string, data []byte) (string, codec.Value, error) {
	switch kind {
	case kindInstruction:
		b, ok := surface.Instruction(name)
		if name == "" {
			b, ok = surface.MatchInstruction(data)
		}
		if !ok {
			return "", nil, notFound(surface, kind, name, data)
		}
		v, err := b.Parse(data)
		return b.Name, v, err
	case kindAccount:
		d, ok := surface.Account(name)
		if name == "" {
			d, ok = surface.MatchAccount(data)
		}
		if !ok {
			return "", nil, notFound(surface, kind, name, data)
		}
		v, err := d.Decode(data)
		return d.Name, v, err
	case kindEvent:
		var d *clientgen.EventDecoder
		ok := false
		if name != "" {
			d, ok = surface.Event(name)
		} else {
			for _, ev := range surface.Events {
				if ev.Matches(data) {
					d, ok = ev, true
					break
				}
			}
		}
		if !ok {
			return "", nil, notFound(surface, kind, name, data)
		}
		v, err := d.Decode(data)
		return d.Name, v, err
	}
	return "", nil, fmt.Errorf("invalid --kind %q: must be instruction, account or event", kind)
}

func notFound(surface *clientgen.ClientSurface, kind, name string, data []byte) error {
	if name != "" {
		return fmt.Errorf("program %s has no %s %q", surface.Program, kind, name)
	}
	prefix := data
	if len(prefix) > ir.DiscriminatorSize {
		prefix = prefix[:ir.DiscriminatorSize]
	}
	return ir.Errorf(ir.KindDiscriminatorMismatch, ir.StageDecode, []string{hex.EncodeToString(prefix)},
		"data matches no %s of %s", kind, surface.Program)
}

func decodeInput(encoding, s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	switch encoding {
	case "hex":
		return hex.DecodeString(strings.TrimPrefix(s, "0x"))
	case "base64":
		return base64.StdEncoding.DecodeString(s)
	}
	return nil, fmt.Errorf("invalid --encoding %q: must be hex or base64", encoding)
}
