package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input to a factory or mutator.
// The aggregate is always left untouched when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// StateConflictError reports an operation that is illegal for the order's
// current status, naming both sides so callers can render a useful message.
type StateConflictError struct {
	Op       string
	Current  Status
	Required []Status
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("state conflict: %s requires status %v, order is %s", e.Op, e.Required, e.Current)
}

// NotFoundError reports a missing order or line item.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsStateConflict(err error) bool {
	var se *StateConflictError
	return errors.As(err, &se)
}

func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

func errValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func errNotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}
