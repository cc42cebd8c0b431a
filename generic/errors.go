/*
errors.go - Centralized error types for the bonus engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context, and the API
  maps them to HTTP status codes through the helpers at the bottom.

ERROR CATEGORIES:
  1. Input errors - Malformed salary, counters, metrics or month labels
  2. Aggregation errors - Preconditions of semester aggregation
  3. Store errors - Missing records, uniqueness and release locks

USAGE:
    if errors.Is(err, generic.ErrRecordReleased) {
        // record is locked, reject the edit
    }

SEE ALSO:
  - bonus/validate.go: Produces InputError
  - store/sqlite/sqlite.go: Produces store errors
  - api/handlers.go: Maps errors to HTTP status
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned when salary, counters or metrics are outside
	// their documented ranges. The engine rejects; it never clamps.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidPolicy is returned when a policy's weights or shares are inconsistent.
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrInvalidMonthLabel is returned for labels not of the form "<MonthName>/<Year>".
	ErrInvalidMonthLabel = errors.New("invalid month label")

	// ErrInvalidSemester is returned for malformed semester identifiers.
	ErrInvalidSemester = errors.New("invalid semester")

	// ErrNoMonths is returned when aggregation is asked to aggregate nothing.
	ErrNoMonths = errors.New("no months to aggregate")

	// ErrDuplicateMonth is returned when aggregation receives two evaluations
	// for the same month.
	ErrDuplicateMonth = errors.New("duplicate month in aggregation input")

	// ErrProviderMismatch is returned when aggregation receives evaluations
	// belonging to more than one provider.
	ErrProviderMismatch = errors.New("evaluations belong to different providers")

	// ErrNoReleasedMonths is returned when a semester has no month with both a
	// released evaluation and a released global indicator record.
	ErrNoReleasedMonths = errors.New("no released months in semester")

	// ErrProviderNotFound is returned when a referenced provider doesn't exist.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrEvaluationNotFound is returned when no evaluation exists for the lookup.
	ErrEvaluationNotFound = errors.New("evaluation not found")

	// ErrGlobalIndicatorsNotFound is returned when no global record exists for the lookup.
	ErrGlobalIndicatorsNotFound = errors.New("global indicators not found")

	// ErrDuplicateRecord is returned when a second evaluation is created for the
	// same provider and month, or a second global record for the same month.
	ErrDuplicateRecord = errors.New("record already exists")

	// ErrRecordReleased is returned when a released record is edited or deleted.
	ErrRecordReleased = errors.New("record is released")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InputError describes one rejected input field.
type InputError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// RecordReleasedError identifies the locked record an edit was attempted on.
type RecordReleasedError struct {
	Kind string // "evaluation" or "global_indicators"
	ID   RecordID
}

func (e *RecordReleasedError) Error() string {
	return fmt.Sprintf("%s %s is released and can no longer change", e.Kind, e.ID)
}

func (e *RecordReleasedError) Unwrap() error {
	return ErrRecordReleased
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidPolicy) ||
		errors.Is(err, ErrInvalidMonthLabel) ||
		errors.Is(err, ErrInvalidSemester) ||
		errors.Is(err, ErrNoMonths) ||
		errors.Is(err, ErrDuplicateMonth) ||
		errors.Is(err, ErrProviderMismatch)
}

// IsNotFound returns true if the error indicates a missing resource or result.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProviderNotFound) ||
		errors.Is(err, ErrEvaluationNotFound) ||
		errors.Is(err, ErrGlobalIndicatorsNotFound) ||
		errors.Is(err, ErrNoReleasedMonths)
}

// IsConflict returns true if the error violates uniqueness or a release lock.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateRecord) ||
		errors.Is(err, ErrRecordReleased)
}
