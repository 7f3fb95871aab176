package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every layer. Compare with errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrProductNotFound      = fmt.Errorf("product %w", ErrNotFound)
	ErrOrderNotFound        = fmt.Errorf("order %w", ErrNotFound)
	ErrCartLineNotFound     = fmt.Errorf("cart item %w", ErrNotFound)
	ErrPaymentNotFound      = fmt.Errorf("payment %w", ErrNotFound)
	ErrVerificationNotFound = fmt.Errorf("verification %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)

	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	ErrEmptyCart                = errors.New("cart is empty")
	ErrInsufficientStock        = errors.New("insufficient stock")
	ErrInvalidTransition        = errors.New("invalid state transition")
	ErrConcurrentModification   = errors.New("concurrent modification")
	ErrActiveVerificationExists = errors.New("an active verification request already exists")
	ErrEmailTaken               = errors.New("email already registered")
	ErrQuotaExceeded            = errors.New("storage quota exceeded")
	ErrPaymentDeclined          = errors.New("payment declined")
	ErrIdempotencyKeyConflict   = errors.New("idempotency key reused with different request")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// TransitionError wraps ErrInvalidTransition with the states involved.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %q to %q", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
