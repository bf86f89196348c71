package entity

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrSessionNotFound indicates that no session record exists for an id.
	ErrSessionNotFound = errors.New("anonymous session not found")

	// ErrDuplicateSession indicates that a session with the supplied id already exists.
	ErrDuplicateSession = errors.New("anonymous session already exists")

	// ErrUnknownFeature indicates a usage operation on an unrecognized feature name.
	ErrUnknownFeature = errors.New("unknown feature")

	// ErrSessionRequired indicates that a route needs a resolved session and none was attached.
	ErrSessionRequired = errors.New("anonymous session required")

	// ErrSessionExpired indicates that a session resolved but is past its expiry.
	ErrSessionExpired = errors.New("anonymous session expired")

	// ErrMigrationTransaction indicates that the atomic migration write failed and was rolled back.
	ErrMigrationTransaction = errors.New("migration transaction failed")
)

// ValidationError represents a validation error with detailed field information.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// MigrationError reports a failed ownership transfer. The storage transaction
// has already been rolled back when this error is returned.
type MigrationError struct {
	Op        string
	SessionID string
	Errors    []string
	Err       error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, ShortID(e.SessionID), strings.Join(e.Errors, "; "))
}

func (e *MigrationError) Unwrap() error { return e.Err }

// Is matches ErrMigrationTransaction so callers can use errors.Is.
func (e *MigrationError) Is(target error) bool {
	return target == ErrMigrationTransaction
}
