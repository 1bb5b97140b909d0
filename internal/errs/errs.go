// Package errs defines the error taxonomy shared by the identity services.
// Services return these unchanged; only the HTTP layer maps them to status codes.
package errs

import (
	"errors"
	"fmt"
)

// UpstreamError reports an unexpected or malformed response from the identity
// provider or its hosted login endpoints.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("upstream %s failed", e.Op)
	}
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream wraps err as an UpstreamError for operation op.
func Upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

// Upstreamf builds an UpstreamError with a formatted cause.
func Upstreamf(op, format string, args ...any) error {
	return &UpstreamError{Op: op, Err: fmt.Errorf(format, args...)}
}

// ForbiddenError is returned when a caller presents credentials that do not
// match the stored ones.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return "forbidden: " + e.Reason }

// NotFoundError is returned when a looked-up resource does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.Kind, e.ID) }

// ValidationError reports a request whose shape is invalid.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Message
	}
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Message)
}

// IsUpstream reports whether err is, or wraps, an UpstreamError.
func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

// IsForbidden reports whether err is, or wraps, a ForbiddenError.
func IsForbidden(err error) bool {
	var target *ForbiddenError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
