// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, exit codes and error display for bqprobe.
//
// PATTERN:
//   - Command handlers always return errors, never print and return nil
//   - main decides how to display them and which exit code to use
//   - Outcomes that were already reported (NONE access, failed scenario)
//     are returned as sentinel errors so only the exit code changes

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/bqprobe/internal/config"
	"github.com/jeranaias/bqprobe/internal/probe"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess means the identity has access or the scenario passed
	ExitSuccess = 0
	// ExitFailure covers NONE access, failed scenarios and connection errors
	ExitFailure = 1
	// ExitUsageError indicates invalid arguments or configuration values
	ExitUsageError = 2
	// ExitConfigError indicates an unreadable or malformed config file
	ExitConfigError = 3
)

// =============================================================================
// OUTCOME SENTINELS
// =============================================================================

var (
	// ErrNoAccess is returned by summary when the derived level is NONE.
	ErrNoAccess = errors.New("no access to dataset")
	// ErrTestFailed is returned by a scenario command whose result failed.
	ErrTestFailed = errors.New("access test failed")
)

// Reported reports whether err's details are already part of the printed
// output, so displaying it again would only repeat the report.
func Reported(err error) bool {
	return errors.Is(err, ErrNoAccess) || errors.Is(err, ErrTestFailed)
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "summary", "config")
	Action  string // Action being performed (e.g., "load", "write report")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents invalid command-line input.
type ValidationError struct {
	Field   string // Flag or argument that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of a valid value (optional)
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{
		Command: command,
		Action:  action,
		Reason:  reason,
		Err:     err,
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode determines the process exit code for an error returned by Run.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ExitUsageError
	}

	var invalidConfig config.ValidateErrors
	if errors.As(err, &invalidConfig) {
		return ExitUsageError
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Command == "config" {
		return ExitConfigError
	}

	// Connection failures, NONE access and failed scenarios share code 1.
	return ExitFailure
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err for a person on w, or as a JSON error envelope
// when jsonMode is set. Reported errors are skipped.
func DisplayError(w io.Writer, err error, command string, jsonMode bool) {
	if err == nil || Reported(err) {
		return
	}

	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Print(w)
		return
	}

	fmt.Fprintf(w, "\n%s %s\n", errorStyle.Render("[ERROR]"), err.Error())

	var validationErr *ValidationError
	var invalidConfig config.ValidateErrors
	if errors.As(err, &validationErr) || errors.As(err, &invalidConfig) {
		fmt.Fprintf(w, "Run '%s help' for usage.\n", ProgramName)
	}
	if probe.IsConnectionError(err) {
		fmt.Fprintln(w, "Check your credentials: gcloud auth application-default login")
	}
	fmt.Fprintln(w)
}
