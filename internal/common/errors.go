// Package common defines shared constants and sentinel errors used across
// the auth server, the mail relay and the CLI. Callers should use errors.Is
// to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Input rejected before any state change.
	ErrValidation = errors.New("validation error")

	// Account lifecycle errors.
	ErrEmailAlreadyRegistered   = errors.New("email already registered")
	ErrCodeInvalidOrExpired     = errors.New("code invalid or expired")
	ErrInvalidRegistrationToken = errors.New("invalid registration token")
	ErrInvalidCredentials       = errors.New("invalid credentials")

	// Token errors. An expired token is also an invalid one.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrInvalidToken)
)

// ValidationError carries per-field messages for rejected input.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for k, v := range e.Fields {
			return fmt.Sprintf("%s: %s: %s", ErrValidation, k, v)
		}
	}
	return ErrValidation.Error()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
