package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tvdias/poc-study-designer-sub003/internal/engine"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected request, validation failure or failed scenarios
	ExitCommandError = 2 // Command error (bad paths, unreachable database, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code     int    // Exit code (use ExitFailure or ExitCommandError)
	Message  string // Error message
	Err      error  // Underlying error (optional)
	Reported bool   // The formatter already wrote the error to the user
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

// reported marks e as already written by an OutputFormatter.
func reported(e *ExitError) *ExitError {
	e.Reported = true
	return e
}

// IsReported reports whether err was already written to the user by an
// OutputFormatter, so callers should not print it again.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an
// ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
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
	RequestID string // echoed in JSON responses
}

// newFormatter builds the formatter for a command invocation. Every
// invocation gets a fresh UUIDv7 request id.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
		RequestID: uuid.Must(uuid.NewV7()).String(),
	}
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status    string    `json:"status"`               // "ok", "partial" or "error"
	Data      any       `json:"data,omitempty"`       // success payload
	Error     *CLIError `json:"error,omitempty"`      // error details
	RequestID string    `json:"request_id,omitempty"` // correlates output with logs
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "VALIDATION", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// EngineErrorDetails is the detail payload of an engine error.
type EngineErrorDetails struct {
	Reason   string   `json:"reason,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	resp.RequestID = f.RequestID
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// EngineFailure reports an engine error and returns the ExitError the
// command should return. Partial results are written alongside the error
// when data is non-nil.
//
// Rejections (NOT_FOUND, VALIDATION) and batch failures exit with
// ExitFailure; anything else is an infrastructure problem and exits with
// ExitCommandError.
func (f *OutputFormatter) EngineFailure(err error, data any) error {
	var engErr *engine.Error
	if !errors.As(err, &engErr) {
		_ = f.Error("E001", err.Error(), nil)
		return reported(WrapExitError(ExitCommandError, "command failed", err))
	}

	status := "error"
	if engErr.Code == engine.ErrCodePartialBatch {
		status = "partial"
	}
	if f.Format == "json" {
		if encErr := f.encode(CLIResponse{
			Status: status,
			Data:   data,
			Error: &CLIError{
				Code:    string(engErr.Code),
				Message: engErr.Error(),
				Details: EngineErrorDetails{Reason: string(engErr.Reason), Messages: engErr.Messages},
			},
		}); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", engErr.Code, engErr.Error())
		if f.Verbose && engErr.Reason != "" {
			fmt.Fprintf(f.Writer, "Reason: %s\n", engErr.Reason)
		}
	}
	return reported(WrapExitError(ExitFailure, string(engErr.Code), err))
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
