package domain

import "fmt"

// ErrExternalService indicates a failed call to the data or auth backend.
// Service names the backend and, for stores, the collection
// ("supabase/income", "sqlite/expenses").
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the breaker in front of Service is open and the
// call was not attempted.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("%s temporarily unavailable", e.Service)
}

// ErrValidation indicates a rejected submission. Field is the offending
// form field.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ErrInvalidRange indicates an edit that would put the end date before the
// start date. Previous is the range that stays in effect.
type ErrInvalidRange struct {
	Previous DateRange
}

func (e *ErrInvalidRange) Error() string {
	return "end date cannot be before start date"
}

// ErrUnauthorized indicates rejected credentials or an unusable session.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict indicates a sign-up for an email that is already registered.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}
