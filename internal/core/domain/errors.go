package domain

import (
	"errors"
	"fmt"
)

// Billing integration failures.
var (
	ErrTransportUnavailable = errors.New("billing transport unavailable")
	ErrMalformedResponse    = errors.New("malformed billing response")
	ErrBillingUnavailable   = errors.New("billing service unavailable")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrSessionExpired       = errors.New("session expired")
	ErrCourseNotFound       = errors.New("course not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrCourseAlreadyPaid    = errors.New("course already paid")
	ErrForbidden            = errors.New("access forbidden")
	ErrCourseCodeConflict   = errors.New("course code already exists")
	ErrInvalidToken         = errors.New("invalid token")
)

// Local failures.
var (
	ErrValidation      = errors.New("validation failed")
	ErrLessonNotFound  = errors.New("lesson not found")
	ErrUnauthenticated = errors.New("authentication required")
)

// BillingError keeps the HTTP status and the message returned by the billing
// service alongside the classified error. errors.Is matches on Kind.
type BillingError struct {
	Kind    error
	Status  int
	Message string
}

func (e *BillingError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
}

func (e *BillingError) Unwrap() error { return e.Kind }

// ValidationError lists field problems found before any remote call is made.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d field(s)", ErrValidation, len(e.Fields))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError returns a ValidationError with a single field message.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// IsBillingFailure reports whether err means the billing service could not
// be used at all, as opposed to a classified business outcome.
func IsBillingFailure(err error) bool {
	return errors.Is(err, ErrBillingUnavailable) ||
		errors.Is(err, ErrTransportUnavailable) ||
		errors.Is(err, ErrMalformedResponse)
}
