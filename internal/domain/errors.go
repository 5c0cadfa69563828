package domain

import (
	"errors"
	"fmt"
)

// Error codes returned to API clients next to the human-readable message.
const (
	CodeNotFound        = "not_found"
	CodeValidation      = "validation_failed"
	CodeConflict        = "state_conflict"
	CodeUnauthorized    = "unauthorized"
	CodeExternalService = "upstream_unavailable"
	CodeTimeout         = "timeout"
	CodeCircuitOpen     = "circuit_open"
	CodeInternal        = "internal"
)

// Coded is implemented by every domain error.
type Coded interface {
	error
	Code() string
}

// CodeOf returns the code of the first domain error in err's chain.
func CodeOf(err error) string {
	var c Coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeInternal
}

// ErrNotFound indicates a session, record or upstream entity does not exist.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *ErrNotFound) Code() string { return CodeNotFound }

// ErrExternalService indicates a failed call to a provider (VIN decoder,
// registry, identity, payments, hosted store).
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error { return e.Err }

func (e *ErrExternalService) Code() string { return CodeExternalService }

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

func (e *ErrTimeout) Code() string { return CodeTimeout }

// ErrCircuitOpen indicates calls to a provider are short-circuited.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

func (e *ErrCircuitOpen) Code() string { return CodeCircuitOpen }

// ErrValidation indicates a malformed request field.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

func (e *ErrValidation) Code() string { return CodeValidation }

// ErrConflict indicates the request does not fit the session's progress,
// such as pricing before every input is answered or paying twice.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string { return e.Message }

func (e *ErrConflict) Code() string { return CodeConflict }

// ErrUnauthorized indicates an invalid, expired or mismatched document token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

func (e *ErrUnauthorized) Code() string { return CodeUnauthorized }
