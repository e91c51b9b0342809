package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	model "github.com/okian/rummy/internal/domain/model"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitRejected     = 1 // The game refused the command (bad scores, wrong state, not eligible)
	ExitCommandError = 2 // Command error (bad flags, unreadable files, database failures)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitRejected or ExitCommandError)
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

// GetExitCode extracts the exit code from an error. Typed game failures map
// to ExitRejected, anything else to ExitCommandError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if model.KindOf(err) != "" {
		return ExitRejected
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Text-mode errors go here (defaults to Writer)
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
	Code    string            `json:"code"`              // failure kind, or "command"
	Message string            `json:"message"`           // human-readable message
	Details map[string]string `json:"details,omitempty"` // additional context
}

// Success outputs data as a JSON envelope, or calls text for human output.
func (f *OutputFormatter) Success(data any, text func(w io.Writer) error) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "ok", Data: data})
	}
	return text(f.Writer)
}

// Fail outputs err in the configured format.
func (f *OutputFormatter) Fail(err error) error {
	code, details := "command", map[string]string(nil)
	var typed *model.Error
	if errors.As(err, &typed) {
		code, details = string(typed.Kind), typed.Fields
	}

	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: err.Error(), Details: details},
		})
	}

	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	_, werr := fmt.Fprintf(w, "Error: %s\n", err)
	return werr
}

// VerboseLog outputs a message only if verbose mode is enabled. It always
// writes to ErrWriter so JSON output stays parseable.
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

func (o *RootOptions) formatter(w, errW io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: w, ErrWriter: errW, Verbose: o.Verbose}
}
