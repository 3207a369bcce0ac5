package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/anchorgo/internal/clientgen"
	"github.com/roach88/anchorgo/internal/compiler"
	"github.com/roach88/anchorgo/internal/logging"
	"github.com/roach88/anchorgo/internal/store"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	OutDir  string
	Package string
	DB      string
	Runtime string
}

// GeneratedProgram describes the output for one IDL document.
type GeneratedProgram struct {
	Path    string   `json:"path"`
	Program string   `json:"program"`
	Package string   `json:"package"`
	Dir     string   `json:"dir"`
	Hash    string   `json:"hash"`
	Files   []string `json:"files"`
	RunID   string   `json:"run_id,omitempty"`
}

// GenerateResult holds the output of every document, in argument order.
type GenerateResult struct {
	Programs []GeneratedProgram `json:"programs"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <idl>...",
		Short: "Generate Go client packages from IDL documents",
		Long: `Compile each IDL document and write a Go client package to
<out-dir>/<package>/. Documents are compiled in parallel; nothing is
written unless every document compiles.

With --db, each program and generation run is recorded in the registry.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.OutDir, "out", "o", "", "output root directory (default from config)")
	cmd.Flags().StringVar(&opts.Package, "package", "", "package name (single IDL only)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "registry database path")
	cmd.Flags().StringVar(&opts.Runtime, "runtime", clientgen.DefaultRuntimeImport, "import path of the borsh runtime")

	return cmd
}

func runGenerate(opts *GenerateOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.logger()
	cfg := opts.settings()

	outDir := firstNonEmpty(opts.OutDir, cfg.OutDir)
	pkg := firstNonEmpty(opts.Package, cfg.Package)
	dbPath := firstNonEmpty(opts.DB, cfg.DB)
	if pkg != "" && len(paths) > 1 {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("--package needs exactly one IDL, got %d", len(paths)))
	}

	loaded, err := loadAll(paths, log, opts.compileObs)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
	}

	var st *store.Store
	if dbPath != "" {
		st, err = store.Open(dbPath, store.WithLogger(log))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeRegistry, err)
		}
		defer st.Close()
	}

	result := GenerateResult{Programs: make([]GeneratedProgram, 0, len(loaded))}
	for _, l := range loaded {
		gp, err := generateOne(cmd.Context(), l, outDir, pkg, opts.Runtime, st)
		if err != nil {
			code := ErrCodeWriteFailed
			if st != nil {
				code = ErrCodeRegistry
			}
			return formatter.Fail(ExitCommandError, code, err)
		}
		log.WithFields(logging.Fields{"program": gp.Program, "dir": gp.Dir, "files": len(gp.Files)}).Info("generated client")
		result.Programs = append(result.Programs, gp)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	for _, p := range result.Programs {
		fmt.Fprintf(formatter.Writer, "✓ %s -> %s (%d files)\n", p.Program, p.Dir, len(p.Files))
	}
	return nil
}

// loadAll compiles every document concurrently. It returns the first
// failure in argument order, so the reported error does not depend on
// scheduling.
func loadAll(paths []string, log logging.Logger, obs compiler.Observer) ([]*LoadedIdl, error) {
	loaded := make([]*LoadedIdl, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			loaded[i], errs[i] = LoadIdl(path, log, obs)
		}(i, path)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return loaded, nil
}

func generateOne(ctx context.Context, l *LoadedIdl, outDir, pkg, runtime string, st *store.Store) (GeneratedProgram, error) {
	if pkg == "" {
		pkg = clientgen.PackageName(l.Idl.Metadata.Name)
	}
	files, err := clientgen.GoSource(l.Idl, clientgen.GoOptions{Package: pkg, RuntimeImport: runtime})
	if err != nil {
		return GeneratedProgram{}, err
	}

	dir := filepath.Join(outDir, pkg)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return GeneratedProgram{}, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), files[name], 0o644); err != nil {
			return GeneratedProgram{}, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	gp := GeneratedProgram{
		Path:    l.Path,
		Program: l.Idl.Metadata.Name,
		Package: pkg,
		Dir:     dir,
		Hash:    l.Hash,
		Files:   names,
	}
	if st == nil {
		return gp, nil
	}

	if _, err := st.SaveProgram(ctx, l.Idl, l.Source.JSON); err != nil {
		return GeneratedProgram{}, err
	}
	gp.RunID, err = st.RecordRun(ctx, l.Hash, pkg, dir, names)
	if err != nil {
		return GeneratedProgram{}, err
	}
	return gp, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
