package subscriptions

import (
	"errors"
	"fmt"
)

// Store errors.
var (
	ErrDuplicateEmail   = errors.New("email is already subscribed")
	ErrStoreUnavailable = errors.New("subscription store unavailable")
)

// Token errors.
var (
	ErrTokenConflict         = errors.New("confirmation token already exists")
	ErrTokenRetriesExhausted = errors.New("could not issue a unique confirmation token")
)

// ErrValidation matches every *ValidationError.
var ErrValidation = errors.New("validation error")

// ValidationError reports the first rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
