package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/anchorgo/internal/compiler"
)

// ValidationResult holds validation results for one document.
type ValidationResult struct {
	Path   string                     `json:"path"`
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <idl>...",
		Short: "Compile IDL documents and report findings",
		Long: `Compile each IDL document and run the model checks: PDA seeds that
reference unknown arguments or accounts, error codes below the custom
range, constants that do not fit their type, and contradictory account
flags.

A document that fails to compile exits with the code of its error kind.
Findings on documents that compile exit with 1.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.logger()

	results := make([]ValidationResult, 0, len(paths))
	failed := 0
	for _, path := range paths {
		l, err := opts.loadOrFail(formatter, path, log)
		if err != nil {
			return err
		}
		findings := compiler.Validate(l.Idl)
		for _, f := range findings {
			formatter.VerboseLog("%s: %s", path, f.Error())
		}
		if len(findings) > 0 {
			failed++
		}
		results = append(results, ValidationResult{Path: path, Valid: len(findings) == 0, Errors: findings})
	}

	if failed == 0 {
		return outputValidateSuccess(formatter, results)
	}
	return outputValidationErrors(formatter, results, failed)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, results []ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(results)
	}

	for _, r := range results {
		fmt.Fprintf(formatter.Writer, "✓ %s valid\n", r.Path)
	}
	return nil
}

// outputValidationErrors outputs the findings of every document.
func outputValidationErrors(formatter *OutputFormatter, results []ValidationResult, failed int) error {
	msg := fmt.Sprintf("validation failed for %d document(s)", failed)

	if formatter.Format == "json" {
		var first compiler.ValidationError
		for _, r := range results {
			if len(r.Errors) > 0 {
				first = r.Errors[0]
				break
			}
		}
		response := CLIResponse{
			Status: "error",
			Data:   results,
			Error: &CLIError{
				Code:    first.Code,
				Message: first.Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, msg)
	}

	for _, r := range results {
		if r.Valid {
			fmt.Fprintf(formatter.Writer, "✓ %s valid\n", r.Path)
			continue
		}
		fmt.Fprintf(formatter.Writer, "✗ %s\n", r.Path)
		for _, e := range r.Errors {
			fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", e.Code, e.Field, e.Message)
		}
	}

	return NewExitError(ExitFailure, msg)
}
