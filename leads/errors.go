package leads

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyNote            = errors.New("note text is required")
	ErrNoteIndex            = errors.New("note index out of range")
	ErrReminderDateRequired = errors.New("reminder date is required")
	ErrReminderDateInPast   = errors.New("reminder date cannot be in the past")
	ErrReminderNotFound     = errors.New("reminder not found")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidActionType    = errors.New("invalid action type")
	ErrNegativeWeight       = errors.New("score weights must not be negative")
)

// ValidationError is a rejected local edit. Nothing is mutated when one is returned.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: err.Error(), Err: err}
}

// IsValidation reports whether err is a validation failure
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
