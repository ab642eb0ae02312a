package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/semfilter/internal/filterir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Filter rejected or scenarios failed
	ExitCommandError = 2 // Command error (unreadable files, bad config, etc.)
)

// Error codes for failures outside the filter error taxonomy.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBadInput    = "E006" // Malformed intent, schema or spec file
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeConfig      = "E008" // Configuration invalid
	ErrCodeCheckFailed = "E009" // Dry-run against the SQL engine failed
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
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

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string    `json:"status"`            // "ok" or "error"
	Data    any       `json:"data,omitempty"`    // success payload
	Error   *CLIError `json:"error,omitempty"`   // error details
	Session string    `json:"session,omitempty"` // confirmation session, when one was used
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // filter error code or "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Reason  string `json:"reason,omitempty"`  // token check that failed
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	return f.SuccessWithSession(data, "")
}

// SuccessWithSession is Success with the session ID included in JSON output.
func (f *OutputFormatter) SuccessWithSession(data any, session string) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{
			Status:  "ok",
			Data:    data,
			Session: session,
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

// FilterError reports err and returns the ExitError the command should
// return. Filter errors keep their code and token reason; anything else is
// reported as generic.
func (f *OutputFormatter) FilterError(err error) error {
	var ferr *filterir.Error
	if !errors.As(err, &ferr) {
		if outErr := f.Error(ErrCodeGeneric, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "command failed", err)
	}

	if f.Format == "json" {
		if encErr := json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    string(ferr.Code),
				Message: ferr.Message,
				Reason:  ferr.Reason,
			},
		}); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", ferr.Code, ferr.Message)
		if f.Verbose && ferr.Reason != "" {
			fmt.Fprintf(f.Writer, "Reason: %s\n", ferr.Reason)
		}
	}
	return WrapExitError(ExitFailure, string(ferr.Code), err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
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

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
