package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Application exit codes define the standard exit statuses for the application.
// These codes are used to signal the outcome of the program execution to the OS.
const (
	ExitSuccess         = 0   // Indicates successful execution.
	ExitErrorGeneric    = 1   // Indicates a generic error.
	ExitErrorInfeasible = 2   // Indicates the community model is infeasible.
	ExitErrorOracle     = 3   // Indicates a metabolic oracle call failed.
	ExitErrorConfig     = 4   // Indicates a configuration error.
	ExitErrorCanceled   = 130 // Indicates the operation was canceled (e.g., SIGINT).
)

// ConfigError represents a user configuration error, such as invalid flags or
// values. It indicates that the application cannot proceed due to incorrect
// user input.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ConfigError instance containing the formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// ValidationError represents an input validation failure. It identifies which
// field failed validation and provides a human-readable explanation.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string
	// Message explains the validation failure.
	Message string
}

// Error returns a formatted message describing the validation failure.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the named field with a
// formatted message.
func NewValidationError(field, format string, a ...any) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, a...)}
}

// InfeasibleError represents a well-defined "the model cannot do this"
// outcome: the community has no feasible growth, or the growth target is
// unreachable. It is deliberately distinct from OracleError so that callers
// can tell "infeasible" apart from "the solver call itself failed".
type InfeasibleError struct {
	// Stage identifies the optimization stage that detected infeasibility
	// (e.g., "baseline", "growth-target").
	Stage string
	// Reason explains the infeasibility in human-readable terms.
	Reason string
}

// Error returns a formatted message describing the infeasibility.
func (e InfeasibleError) Error() string {
	return fmt.Sprintf("infeasible at stage %q: %s", e.Stage, e.Reason)
}

// NewInfeasibleError creates an InfeasibleError for the named stage with a
// formatted reason.
func NewInfeasibleError(stage, format string, a ...any) error {
	return InfeasibleError{Stage: stage, Reason: fmt.Sprintf(format, a...)}
}

// IsInfeasible reports whether err is (or wraps) an InfeasibleError.
func IsInfeasible(err error) bool {
	var ie InfeasibleError
	return errors.As(err, &ie)
}

// OracleError encapsulates a failed call into the metabolic oracle while
// preserving the original cause and the offending identifiers. This allows
// batch scanners to degrade a single row instead of aborting a whole scan.
type OracleError struct {
	// Op is the oracle operation that failed (e.g., "cooperative_tradeoff").
	Op string
	// ReactionID is the reaction involved in the failed call, if any.
	ReactionID string
	// Cause is the underlying error reported by the oracle.
	Cause error
}

// Error returns a formatted message describing the failed oracle call.
func (e OracleError) Error() string {
	if e.ReactionID != "" {
		return fmt.Sprintf("oracle %s failed for reaction %q: %v", e.Op, e.ReactionID, e.Cause)
	}
	return fmt.Sprintf("oracle %s failed: %v", e.Op, e.Cause)
}

// Unwrap returns the original wrapped error, allowing for error chain
// inspection (e.g., using errors.Is or errors.As).
func (e OracleError) Unwrap() error { return e.Cause }

// NewOracleError creates an OracleError for the given operation and reaction.
// reactionID may be empty when the call was not reaction-specific.
func NewOracleError(op, reactionID string, cause error) error {
	return OracleError{Op: op, ReactionID: reactionID, Cause: cause}
}

// WrapError wraps an error with additional context using fmt.Errorf and %w.
// This allows the wrapped error to be unwrapped with errors.Unwrap() and
// checked with errors.Is() and errors.As().
//
// Parameters:
//   - err: The error to wrap.
//   - format: A format string for the context message.
//   - args: Arguments for the format string.
//
// Returns:
//   - error: The wrapped error, or nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline
// exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ExitCode maps an error to the process exit code that describes it.
// nil maps to ExitSuccess.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if IsContextError(err) {
		return ExitErrorCanceled
	}
	var (
		cfgErr ConfigError
		valErr ValidationError
		infErr InfeasibleError
		oraErr OracleError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &valErr):
		return ExitErrorConfig
	case errors.As(err, &infErr):
		return ExitErrorInfeasible
	case errors.As(err, &oraErr):
		return ExitErrorOracle
	}
	return ExitErrorGeneric
}
