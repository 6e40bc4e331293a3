package common

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed or missing input before any persistence.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError covers both absent resources and resources owned by another
// client. The two cases are deliberately indistinguishable so a caller cannot
// probe whether a resource exists for someone else.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// AuthorizationError means the caller lacks a required role.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

func NewAuthorizationError(message string) *AuthorizationError {
	return &AuthorizationError{Message: message}
}

// UpstreamError wraps a third-party API failure. Payload keeps the provider's
// raw error body for diagnostics; Error() stays friendly for end users.
type UpstreamError struct {
	Provider string
	Payload  string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s request failed", e.Provider)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func NewUpstreamError(provider, payload string, err error) *UpstreamError {
	return &UpstreamError{Provider: provider, Payload: payload, Err: err}
}

// ErrTransientSession marks an expired or not-yet-available auth session.
// Policy: attempt exactly one refresh, then give up.
var ErrTransientSession = errors.New("auth session expired or unavailable")

// ErrRenameFailed is the recoverable failure of a best-effort session rename.
var ErrRenameFailed = errors.New("session rename failed")

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}
