package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/anchorgo/internal/ir"
)

// Exit codes for CLI commands. Pipeline failures get one code per error
// family so scripts can tell them apart.
const (
	ExitSuccess            = 0 // Successful execution
	ExitFailure            = 1 // Fixture or validation failure
	ExitCommandError       = 2 // Command error (invalid paths, bad flags, I/O)
	ExitUnrecognizedFormat = 3 // Document is not a recognizable IDL
	ExitMalformedDocument  = 4 // Missing field, duplicate, unsupported type, bad address
	ExitTypeResolution     = 5 // Unresolved, ambiguous or cyclic type
	ExitDiscriminator      = 6 // Malformed, colliding or mismatched discriminator
)

// Error codes for non-pipeline failures in JSON output. Pipeline failures
// use the ir.ErrorKind string as their code.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeRPC         = "E010" // RPC request failed
	ErrCodeRegistry    = "E011" // Registry error
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ExitCodeForKind maps a pipeline error kind to its exit code.
func ExitCodeForKind(kind ir.ErrorKind) int {
	switch kind {
	case ir.KindUnrecognizedFormat:
		return ExitUnrecognizedFormat
	case ir.KindMissingRequiredField, ir.KindDuplicateDefinition,
		ir.KindUnsupportedType, ir.KindMalformedAddress:
		return ExitMalformedDocument
	case ir.KindUnresolvedType, ir.KindAmbiguousPath, ir.KindCyclicType:
		return ExitTypeResolution
	case ir.KindMalformedDiscriminator, ir.KindDiscriminatorCollision, ir.KindDiscriminatorMismatch:
		return ExitDiscriminator
	case ir.KindArgumentMismatch, ir.KindInvalidValue:
		return ExitFailure
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001" or an ir.ErrorKind
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns the ExitError the command should return.
// Pipeline errors are reported by kind with their stage and names as
// details; anything else uses code and exitCode.
func (f *OutputFormatter) Fail(exitCode int, code string, err error) error {
	var pe *ir.Error
	if errors.As(err, &pe) {
		details := map[string]any{"stage": string(pe.Stage)}
		if len(pe.Names) > 0 {
			details["names"] = pe.Names
		}
		_ = f.Error(string(pe.Kind), err.Error(), details)
		return WrapExitError(ExitCodeForKind(pe.Kind), string(pe.Kind), err)
	}
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(exitCode, code, err)
}

// VerboseLog prints a diagnostic line under --verbose. It goes to
// ErrWriter when set so JSON on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
