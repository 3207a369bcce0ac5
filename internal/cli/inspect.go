package cli

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/anchorgo/internal/ir"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
}

// InspectResult is the JSON payload of the inspect command.
type InspectResult struct {
	Path  string         `json:"path"`
	Hash  string         `json:"hash"`
	Model map[string]any `json:"model"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <idl>",
		Short: "Show the canonical model of an IDL document",
		Long: `Compile an IDL document and print a summary of its canonical model:
instructions, accounts and events with their discriminators, and the
type table. With --format json the full canonical model is printed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}
	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	l, err := opts.loadOrFail(formatter, path, opts.logger())
	if err != nil {
		return err
	}

	if formatter.Format == "json" {
		return formatter.Success(InspectResult{Path: path, Hash: l.Hash, Model: ir.Tree(l.Idl)})
	}
	writeSummary(formatter.Writer, l)
	return nil
}

func writeSummary(w io.Writer, l *LoadedIdl) {
	idl := l.Idl
	fmt.Fprintf(w, "Program: %s %s (%s)\n", idl.Metadata.Name, idl.Metadata.Version, idl.Origin)
	if idl.Metadata.Address != "" {
		fmt.Fprintf(w, "Address: %s\n", idl.Metadata.Address)
	}
	fmt.Fprintf(w, "Hash:    %s\n", l.Hash)

	fmt.Fprintf(w, "\nInstructions (%d):\n", len(idl.Instructions))
	for _, ix := range idl.Instructions {
		args := make([]string, len(ix.Args))
		for i, a := range ix.Args {
			args[i] = a.Name + ": " + a.Type.String()
		}
		fmt.Fprintf(w, "  %-24s %s  (%s)\n", ix.Name, hex.EncodeToString(ix.Discriminator), strings.Join(args, ", "))
		for _, acc := range ix.Accounts {
			fmt.Fprintf(w, "      %s%s\n", acc.Name, accountFlags(acc))
		}
	}

	if len(idl.Accounts) > 0 {
		fmt.Fprintf(w, "\nAccounts (%d):\n", len(idl.Accounts))
		for _, acc := range idl.Accounts {
			fmt.Fprintf(w, "  %-24s %s\n", acc.Name, hex.EncodeToString(acc.Discriminator))
		}
	}
	if len(idl.Events) > 0 {
		fmt.Fprintf(w, "\nEvents (%d):\n", len(idl.Events))
		for _, ev := range idl.Events {
			fmt.Fprintf(w, "  %-24s %s\n", ev.Name, hex.EncodeToString(ev.Discriminator))
		}
	}
	if idl.Types.Len() > 0 {
		fmt.Fprintf(w, "\nTypes (%d):\n", idl.Types.Len())
		for _, def := range idl.Types.All() {
			fmt.Fprintf(w, "  %-24s %s\n", def.Name, bodyKind(def))
		}
	}
	if len(idl.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors (%d):\n", len(idl.Errors))
		for _, e := range idl.Errors {
			fmt.Fprintf(w, "  %-6d %s\n", e.Code, e.Name)
		}
	}
}

func accountFlags(acc ir.AccountConstraint) string {
	var flags []string
	if acc.Writable {
		flags = append(flags, "writable")
	}
	if acc.Signer {
		flags = append(flags, "signer")
	}
	if acc.Optional {
		flags = append(flags, "optional")
	}
	if acc.Address != "" {
		flags = append(flags, "address="+acc.Address)
	}
	if acc.PDA != nil {
		flags = append(flags, "pda")
	}
	if len(flags) == 0 {
		return ""
	}
	return " [" + strings.Join(flags, ", ") + "]"
}

func bodyKind(def *ir.TypeDef) string {
	switch b := def.Body.(type) {
	case ir.StructBody:
		return fmt.Sprintf("struct, %d fields", len(b.Fields))
	case ir.EnumBody:
		return fmt.Sprintf("enum, %d variants", len(b.Variants))
	case ir.AliasBody:
		return "alias of " + b.Target.String()
	}
	return "unknown"
}
