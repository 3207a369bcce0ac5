package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/anchorgo/internal/store"
)

// RegistryOptions holds flags shared by the registry subcommands.
type RegistryOptions struct {
	*RootOptions
	DB string
}

// ProgramDetail is the output of registry show.
type ProgramDetail struct {
	store.ProgramInfo
	Discriminators []store.Discriminator `json:"discriminators"`
	Runs           []store.Run           `json:"runs"`
}

// NewRegistryCommand creates the registry command and its subcommands.
func NewRegistryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegistryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Query the program registry",
		Long: `The registry is a SQLite database of compiled programs, keyed by the
hash of their canonical model, with every discriminator they declare and
every generation run that used them.`,
	}
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "registry database path (default from config)")

	cmd.AddCommand(&cobra.Command{
		Use:           "add <idl>...",
		Short:         "Register IDL documents without generating code",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistryAdd(opts, args, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List registered programs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistryList(opts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show <hash|name>",
		Short:         "Show a program with its discriminators and runs",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistryShow(opts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "match <hex>",
		Short: "Find the programs whose discriminators start the data",
		Long: `Match raw instruction, account or event data against every
discriminator in the registry. Useful for identifying unknown account
data or transaction instructions.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistryMatch(opts, args[0], cmd)
		},
	})

	return cmd
}

func (o *RegistryOptions) open(f *OutputFormatter) (*store.Store, error) {
	path := firstNonEmpty(o.DB, o.settings().DB)
	if path == "" {
		return nil, f.Fail(ExitCommandError, ErrCodeRegistry, errors.New("no registry database: pass --db or set db in the config file"))
	}
	st, err := store.Open(path, store.WithLogger(o.logger()))
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeRegistry, err)
	}
	return st, nil
}

func runRegistryAdd(opts *RegistryOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	loaded, err := loadAll(paths, opts.logger(), opts.compileObs)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	st, err := opts.open(formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	infos := make([]store.ProgramInfo, 0, len(loaded))
	for _, l := range loaded {
		hash, err := st.SaveProgram(cmd.Context(), l.Idl, l.Source.JSON)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeRegistry, err)
		}
		info, err := st.Program(cmd.Context(), hash)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeRegistry, err)
		}
		infos = append(infos, info)
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	for _, info := range infos {
		fmt.Fprintf(formatter.Writer, "✓ %s %s %s\n", info.Name, info.Version, info.Hash[:12])
	}
	return nil
}

func runRegistryList(opts *RegistryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	st, err := opts.open(formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	programs, err := st.ListPrograms(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRegistry, err)
	}
	if formatter.Format == "json" {
		return formatter.Success(programs)
	}
	if len(programs) == 0 {
		fmt.Fprintln(formatter.Writer, "No programs registered.")
		return nil
	}
	for _, p := range programs {
		fmt.Fprintf(formatter.Writer, "%4d  %s  %-20s %-10s %-6s %s\n", p.Seq, p.Hash[:12], p.Name, p.Version, p.Origin, p.Address)
	}
	return nil
}

func runRegistryShow(opts *RegistryOptions, ref string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	st, err := opts.open(formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	info, err := findProgram(ctx, st, ref)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRegistry, err)
	}
	discs, err := st.Discriminators(ctx, info.Hash)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRegistry, err)
	}
	runs, err := st.Runs(ctx, info.Hash)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRegistry, err)
	}
	detail := ProgramDetail{ProgramInfo: info, Discriminators: discs, Runs: runs}

	if formatter.Format == "json" {
		return formatter.Success(detail)
	}
	w := formatter.Writer
	fmt.Fprintf(w, "Program: %s %s (%s)\n", info.Name, info.Version, info.Origin)
	fmt.Fprintf(w, "Hash:    %s\n", info.Hash)
	if info.Address != "" {
		fmt.Fprintf(w, "Address: %s\n", info.Address)
	}
	fmt.Fprintf(w, "\nDiscriminators (%d):\n", len(discs))
	for _, d := range discs {
		fmt.Fprintf(w, "  %-12s %-24s %s\n", d.Kind, d.Name, d.Hex)
	}
	fmt.Fprintf(w, "\nRuns (%d):\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(w, "  %s  %s -> %s (%d files)\n", r.ID, r.Package, r.OutDir, len(r.Files))
	}
	return nil
}

// findProgram resolves ref as a full hash, a unique hash prefix, or a
// program name. A name registered more than once resolves to the most
// recent registration.
func findProgram(ctx context.Context, st *store.Store, ref string) (store.ProgramInfo, error) {
	info, err := st.Program(ctx, ref)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return info, err
	}

	programs, err := st.ListPrograms(ctx)
	if err != nil {
		return store.ProgramInfo{}, err
	}
	var byPrefix []store.ProgramInfo
	var byName *store.ProgramInfo
	for i, p := range programs {
		if strings.HasPrefix(p.Hash, ref) {
			byPrefix = append(byPrefix, p)
		}
		if p.Name == ref {
			byName = &programs[i]
		}
	}
	switch {
	case len(byPrefix) == 1:
		return byPrefix[0], nil
	case len(byPrefix) > 1:
		return store.ProgramInfo{}, fmt.Errorf("hash prefix %q matches %d programs", ref, len(byPrefix))
	case byName != nil:
		return *byName, nil
	}
	return store.ProgramInfo{}, fmt.Errorf("program %q: %w", ref, store.ErrNotFound)
}

func runRegistryMatch(opts *RegistryOptions, data string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	raw, err := decodeInput("hex", data)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	st, err := opts.open(formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	matches, err := st.Match(cmd.Context(), raw)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRegistry, err)
	}
	if formatter.Format == "json" {
		if err := formatter.Success(matches); err != nil {
			return err
		}
	} else {
		for _, m := range matches {
			fmt.Fprintf(formatter.Writer, "%s %s  %s %s\n", m.Program.Name, m.Program.Hash[:12], m.Tag.Kind, m.Tag.Name)
		}
	}
	if len(matches) == 0 {
		if formatter.Format != "json" {
			fmt.Fprintln(formatter.Writer, "No match.")
		}
		return NewExitError(ExitFailure, "no discriminator matches")
	}
	return nil
}
