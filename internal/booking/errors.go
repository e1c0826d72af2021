package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionCompleted is returned when input is submitted to a session
	// that already emitted its record. The wizard never completes twice.
	ErrSessionCompleted = errors.New("booking: session already completed")

	// ErrSessionCancelled is returned when input is submitted to a session
	// the patient already cancelled.
	ErrSessionCancelled = errors.New("booking: session cancelled")
)

// ValidationError describes a field value that failed its rule. Every
// validation failure is recoverable: the wizard stays on the same step and the
// reason is surfaced to the patient for a re-prompt.
type ValidationError struct {
	Field  Field
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking: invalid %s: %s", e.Field, e.Reason)
}

func invalid(field Field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
