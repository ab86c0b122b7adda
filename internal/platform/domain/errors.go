// Package domain holds the error kinds shared by every layer of the service.
package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an application error for transport mapping.
type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION_ERROR"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindConflict     ErrorKind = "CONFLICT"
	KindInvalidState ErrorKind = "INVALID_STATE"
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
)

// AppError is a user-facing error with a kind, an optional machine code and
// an optional underlying cause.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *AppError) Unwrap() error { return e.Err }

// ErrorCode returns the machine-readable code, falling back to the kind.
func (e *AppError) ErrorCode() string {
	if e.Code != "" {
		return e.Code
	}
	return string(e.Kind)
}

// WithCode returns a copy of the error carrying the given code.
func (e *AppError) WithCode(code string) *AppError {
	cp := *e
	cp.Code = code
	return &cp
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *AppError) WithCause(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// NewValidationError reports malformed or out-of-range input.
func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewConflictError reports a request that clashes with the current state.
func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

// NewInvalidStateError reports a transition the entity cannot make.
func NewInvalidStateError(current, target string) *AppError {
	return &AppError{
		Kind:    KindInvalidState,
		Message: fmt.Sprintf("cannot transition from %s to %s", current, target),
	}
}

// NewUnauthorizedError reports missing or invalid credentials.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

// KindOf returns the kind of the first AppError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}
