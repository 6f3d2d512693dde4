package types

import (
	"errors"
	"fmt"
)

// Trade execution errors.
var (
	// ErrInvalidAmount is returned when an amount or threshold spec does not
	// parse, or a percentage falls outside its allowed range.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrPoolNotFound is returned when no SOL-paired pool exists for a mint.
	ErrPoolNotFound = errors.New("pool not found")

	// ErrUnsupportedSide is returned for any side other than buy or sell.
	ErrUnsupportedSide = errors.New("unsupported side")

	// ErrInsufficientBalance is returned when the resolved amount exceeds the
	// wallet balance, before any transaction is built.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrSimulationFailed is returned when pre-broadcast simulation rejects
	// the transaction. It is never retried blindly: reserves were likely
	// stale and the caller must re-resolve the amount and quote first.
	ErrSimulationFailed = errors.New("simulation failed")

	// ErrBundleRejected marks a bundle path failure. It is never terminal:
	// the submission pipeline falls through to plain broadcast.
	ErrBundleRejected = errors.New("bundle rejected")

	// ErrConfirmationTimeout is returned when every broadcast round was
	// exhausted without observing a confirmation slot.
	ErrConfirmationTimeout = errors.New("confirmation timeout")

	// ErrMaxAmountNotFound is returned when the binary search over
	// simulation converges to zero.
	ErrMaxAmountNotFound = errors.New("max amount not found")
)

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// SimulationError carries the raw RPC simulation failure and program logs.
// It wraps ErrSimulationFailed so callers can match with errors.Is.
type SimulationError struct {
	Reason interface{}
	Logs   []string
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation failed: %v", e.Reason)
}

func (e *SimulationError) Unwrap() error {
	return ErrSimulationFailed
}

// NewSimulationError wraps a non-nil simulation result error.
func NewSimulationError(reason interface{}, logs []string) *SimulationError {
	return &SimulationError{Reason: reason, Logs: logs}
}
