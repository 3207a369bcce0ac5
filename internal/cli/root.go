package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/anchorgo/internal/compiler"
	"github.com/roach88/anchorgo/internal/config"
	"github.com/roach88/anchorgo/internal/ir"
	"github.com/roach88/anchorgo/internal/logging"
	"github.com/roach88/anchorgo/internal/metrics"
	"github.com/roach88/anchorgo/internal/transport"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Config   string // config file path; empty reads anchorgo.yaml if present
	LogLevel string

	// MetricsFile receives Prometheus text metrics when the command exits.
	MetricsFile string

	// Set by PersistentPreRunE.
	cfg        config.Config
	log        logging.Logger
	registry   *prometheus.Registry
	compileObs compiler.Observer
	fetchObs   transport.Observer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the anchorgo CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

// Execute runs the CLI with os.Args. The metrics file, when requested, is
// written whether or not the command succeeded.
func Execute() error {
	cmd, opts := newRootCommand()
	err := cmd.Execute()
	if ferr := opts.flushMetrics(); ferr != nil {
		cmd.PrintErrln("Error:", ferr)
		if err == nil {
			err = NewExitError(ExitFailure, ferr.Error())
		}
	}
	return err
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "anchorgo",
		Version: ir.ToolVersion,
		Short:   "anchorgo - Anchor IDL compiler and Go client generator",
		Long: `Normalize Anchor IDL documents of either generation into one canonical
model, then generate Go clients, encode and decode program data, and check
fixtures against it.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				err := NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
				cmd.PrintErrln("Error:", err)
				return err
			}
			if err := opts.setup(cmd); err != nil {
				cmd.PrintErrln("Error:", err)
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (default ./"+config.DefaultFile+" if present)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus text metrics to this file on exit")

	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewEncodeCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))
	cmd.AddCommand(NewFetchCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewRegistryCommand(opts))

	return cmd, opts
}

// setup reads the config file and builds the logger. Logs go to stderr so
// they never mix with command output.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, found, err := config.Resolve(o.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	o.cfg = cfg

	level := cfg.LogLevel
	if o.LogLevel != "" {
		level = o.LogLevel
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --log-level", err)
	}
	if o.Verbose {
		lvl = logging.Debug
	}

	o.log = logging.NewLogger()
	o.log.SetOutput(cmd.ErrOrStderr())
	o.log.SetLevel(lvl)
	if o.Format == "json" {
		o.log.SetJSONFormatter()
	}
	if found {
		o.log.With("config", firstNonEmpty(o.Config, config.DefaultFile)).Debug("loaded config")
	}

	o.MetricsFile = firstNonEmpty(o.MetricsFile, cfg.MetricsFile)
	if o.MetricsFile != "" {
		o.registry = metrics.NewRegistry()
		o.compileObs = metrics.NewCompileObserver(o.registry)
		o.fetchObs = metrics.NewFetchObserver(o.registry)
	}
	return nil
}

// flushMetrics writes the registry to MetricsFile. It does nothing when
// metrics are disabled or setup never ran.
func (o *RootOptions) flushMetrics() error {
	if o.registry == nil {
		return nil
	}
	if err := metrics.WriteFile(o.MetricsFile, o.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	o.log.With("path", o.MetricsFile).Debug("wrote metrics")
	return nil
}

// logger returns the configured logger, or a silent one when the command
// runs without the root pre-run (as in unit tests of a subcommand).
func (o *RootOptions) logger() logging.Logger {
	if o.log == nil {
		return logging.Discard()
	}
	return o.log
}

// settings returns the resolved config, or the defaults before setup.
func (o *RootOptions) settings() config.Config {
	if o.cfg.OutDir == "" {
		return config.Default()
	}
	return o.cfg
}

// formatter builds an OutputFormatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
