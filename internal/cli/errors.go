// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for llmscan commands.
//
// Handlers ALWAYS return errors and never exit; main decides how to display
// them and which exit code to use.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nogoodai/msise-ise-5901/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError covers usage, validation, filesystem and request
	// failures alike; batch scripts only test for non-zero.
	ExitGeneralError = 1
	// ExitConfigError indicates an unreadable or invalid config file
	ExitConfigError = 3
	// ExitInterrupted indicates the run was cancelled by a signal
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES FOR STRUCTURED ERROR HANDLING
// =============================================================================

// UsageError reports a command invoked with the wrong arguments.
type UsageError struct {
	Command string // Command that was invoked
	Reason  string // What was wrong
	Usage   string // Usage line to show
}

func (e *UsageError) Error() string {
	if e.Command == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Reason)
}

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "ask", "scan")
	Action  string // Action being performed (e.g., "load prompts")
	Err     error  // Underlying error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: failed to %s: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
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

// ConfigError wraps a failure to load the configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR CONSTRUCTION HELPERS
// =============================================================================

// NewCommandError creates a new command error.
func NewCommandError(command, action string, err error) error {
	return &CommandError{Command: command, Action: action, Err: err}
}

// NewValidationErrorWithExample creates a validation error with an example.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Reason:  reason,
		Example: example,
	}
}

// newUsageError reports a wrong argument count for command.
func newUsageError(command, usage string, want, got int) error {
	return &UsageError{
		Command: command,
		Reason:  fmt.Sprintf("expected %d arguments, got %d", want, got),
		Usage:   usage,
	}
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w as "Error: <message>", followed by the
// usage line for usage errors.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}

	fmt.Fprintf(w, "%s %s\n", RenderConditional(ErrorStyle, "Error:"), err.Error())

	var usageErr *UsageError
	if errors.As(err, &usageErr) && usageErr.Usage != "" {
		fmt.Fprintf(w, "Usage: %s\n", usageErr.Usage)
	}

	var validateErrs config.ValidateErrors
	if errors.As(err, &validateErrs) && len(validateErrs) > 1 {
		for _, ve := range validateErrs {
			fmt.Fprintf(w, "  %s %s\n", RenderConditional(WarningStyle, "-"), ve.Error())
		}
	}
}

// GetExitCode determines the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return ExitConfigError
	}
	return ExitGeneralError
}
