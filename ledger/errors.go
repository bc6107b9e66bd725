/*
errors.go - Centralized error kinds for the settlement engine

ERROR CATEGORIES:
  1. Validation - client input that can never succeed (bad filter, bad minutes)
  2. Not found  - an identifier that does not resolve
  3. Conflict   - a create reused an identifier that already exists
  4. Storage    - the store is unreachable or a transaction failed
  5. Partial generation failure - one user's remittance could not be written

USAGE:
  Callers classify with errors.Is / errors.As or the helpers at the bottom:

    if ledger.IsClientError(err) {
        // 4xx
    }

SEE ALSO:
  - api/handlers.go: maps these kinds onto HTTP statuses
  - settlement/generator.go: collects UserFailure values
*/
package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for client input that fails validation.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is the parent of every "does not resolve" error.
	ErrNotFound = errors.New("not found")

	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrWorkLogNotFound    = fmt.Errorf("worklog %w", ErrNotFound)
	ErrRemittanceNotFound = fmt.Errorf("remittance %w", ErrNotFound)

	// ErrConflict is returned when a create reuses an existing identifier.
	// Users are exempt: CreateUser upserts.
	ErrConflict = errors.New("already exists")

	ErrWorkLogExists    = fmt.Errorf("worklog %w", ErrConflict)
	ErrSegmentExists    = fmt.Errorf("time segment %w", ErrConflict)
	ErrAdjustmentExists = fmt.Errorf("adjustment %w", ErrConflict)
	ErrRemittanceExists = fmt.Errorf("remittance %w", ErrConflict)
	ErrItemExists       = fmt.Errorf("remittance item %w", ErrConflict)

	// ErrStorage is returned when the store is unavailable or a write failed.
	// It is never retried by the engine.
	ErrStorage = errors.New("storage failure")

	// ErrPartialGeneration marks a user whose remittance could not be created.
	ErrPartialGeneration = errors.New("remittance generation failed for user")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field and, when the domain is closed,
// the values that would have been accepted.
type ValidationError struct {
	Field    string
	Value    string
	Accepted []string
	Reason   string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid %s %q", e.Field, e.Value)
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if len(e.Accepted) > 0 {
		b.WriteString(": accepted values are ")
		b.WriteString(strings.Join(e.Accepted, ", "))
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StorageError wraps a driver-level failure. It matches both ErrStorage and
// the underlying cause.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// Storage wraps err as a StorageError unless it is nil or already classified.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// UserFailure is one user's failed remittance creation within a batch run.
type UserFailure struct {
	UserID UserID
	Err    error
}

func (f UserFailure) Error() string {
	return fmt.Sprintf("user %s: %v", f.UserID, f.Err)
}

func (f UserFailure) Unwrap() []error {
	return []error{ErrPartialGeneration, f.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if a create collided with an existing record.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}
