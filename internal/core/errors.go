package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrLookupFailed = errors.New("external lookup failed")

	ErrInvalidAmount = errors.New("invalid amount")
)

// Error kinds exposed to API callers and batch results.
const (
	KindValidation = "validation"
	KindNotFound   = "not_found"
	KindConflict   = "conflict"
	KindLookup     = "lookup_failed"
	KindInternal   = "internal"
)

// ValidationError reports a malformed field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// LookupError reports an account or category id the registry could not resolve.
type LookupError struct {
	Kind string // "account" or "category"
	ID   int64
	Err  error
}

func (e *LookupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %d could not be resolved", e.Kind, e.ID)
	}
	return fmt.Sprintf("%s %d could not be resolved: %v", e.Kind, e.ID, e.Err)
}

func (e *LookupError) Is(target error) bool {
	return target == ErrLookupFailed
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies err into one of the Kind constants.
// Lookup failures are checked first because they may wrap ErrNotFound from the registry.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLookupFailed):
		return KindLookup
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidAmount):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}
