package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes by the
// handlers that consume this library. The resolver itself never speaks HTTP.
type HTTPError interface {
	error
	StatusCode() int
}

type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure ("no access")
	ForbiddenError struct {
		Message string
	}

	// IntegrityError indicates corrupted persisted state, e.g. a cycle in
	// the project hierarchy. Err carries the matching sentinel. Always a
	// hard failure, never worked around.
	IntegrityError struct {
		Message string
		Err     error
	}
)

func (e *NotFoundError) Error() string   { return e.Message }
func (e *ValidationError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string  { return e.Message }
func (e *IntegrityError) Error() string  { return e.Message }

func (e *NotFoundError) StatusCode() int   { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }
func (e *ForbiddenError) StatusCode() int  { return http.StatusForbidden }
func (e *IntegrityError) StatusCode() int  { return http.StatusInternalServerError }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrForbidden      = errors.New("forbidden")
	ErrHierarchyCycle = errors.New("cycle in project hierarchy")
	ErrHierarchyDepth = errors.New("hierarchy depth exceeded")
)

// Unwrap exposes the sentinel so errors.Is() can tell a cycle apart from an
// exceeded depth bound.
func (e *IntegrityError) Unwrap() error {
	return e.Err
}
