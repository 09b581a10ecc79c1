// Package apperrors defines the error taxonomy shared by the service and
// handler layers. Handlers translate these into HTTP statuses.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a movie, user or activity row that does not exist,
	// including movies the metadata provider reports as unknown.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a uniqueness violation (e.g. an email already in use).
	ErrConflict = errors.New("conflict")

	// ErrInvalidCredentials marks a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UpstreamKind classifies why a metadata-provider call failed.
type UpstreamKind string

const (
	UpstreamTimeout     UpstreamKind = "timeout"
	UpstreamConnection  UpstreamKind = "connection"
	UpstreamRateLimited UpstreamKind = "rate_limited"
	UpstreamAuth        UpstreamKind = "auth"
	UpstreamMalformed   UpstreamKind = "malformed"
	UpstreamUnavailable UpstreamKind = "unavailable"
	UpstreamStatus      UpstreamKind = "status"
)

// UpstreamError wraps a failed provider call with its classification so that
// callers can distinguish timeout from rate-limit from connection failures.
type UpstreamError struct {
	Kind   UpstreamKind
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("upstream %s: %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream builds an UpstreamError.
func Upstream(kind UpstreamKind, status int, err error) *UpstreamError {
	return &UpstreamError{Kind: kind, Status: status, Err: err}
}

// AsUpstream returns the UpstreamError in err's chain, if any.
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// ValidationError reports a single malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError.
func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
