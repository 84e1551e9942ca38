package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrUpstream         = errors.New("upstream error")
	ErrNoResourceFound  = errors.New("no resource found")
	ErrInternal         = errors.New("internal error")
	ErrNotFound         = errors.New("not found")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrNotConfigured    = errors.New("integration not configured")
)

// ValidationError reports a missing or malformed client-supplied value.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UpstreamError carries provider diagnostics. Body is for server logs only.
type UpstreamError struct {
	Provider   string
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Provider, e.Op)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s with status %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// IsValidation reports whether err should be answered with 400.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
