// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidState indicates an operation was attempted on an aggregate
// whose current status does not allow it.
var ErrInvalidState = errors.New("invalid state transition")

// ErrValidation indicates a request failed field-level validation.
var ErrValidation = errors.New("validation failed")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")
