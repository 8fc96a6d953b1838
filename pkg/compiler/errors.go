// Package compiler transforms raw editor graphs into immutable execution
// plans. Compilation is pure: identical graph JSON and registry contents
// always produce a byte-identical serialized plan.
package compiler

import (
	"errors"
	"fmt"
)

// ValidationError is returned for any structurally invalid graph. It is
// always surfaced to the editor, never retried, and blocks publishing.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is a graph validation failure, as
// opposed to an internal compiler fault.
func IsValidationError(err error) bool {
	var ve *ValidationError

	return errors.As(err, &ve)
}
