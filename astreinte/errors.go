/*
errors.go - Centralized error types for the planning core

PURPOSE:
  All error kinds in one place. The HTTP layer maps them to status codes
  through the classification helpers at the bottom; domain packages wrap
  them with additional context.

ERROR CATEGORIES:
  1. Validation errors   - malformed input, rejected before any state read
  2. Authority errors    - actor lacks role/scope for the operation
  3. Transition errors   - workflow guard violated
  4. Integrity errors    - missing entities, concurrent modification

  InsufficientStaffing is deliberately NOT here as a hard error kind:
  during generation it is surfaced as a Conflict record (see conflict.go),
  never thrown. Only the Resolver signals it, and callers decide.

SEE ALSO:
  - workflow.go: returns ErrInvalidTransition / ErrForbidden
  - eligibility.go: returns InsufficientStaffingError
  - api/handlers.go: status-code mapping via IsClientError etc.
*/
package astreinte

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input (bad date range,
	// invalid enum value). Rejected before any state read.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced Planning/Garde/User is absent.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor lacks role or scope authority.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition is returned when a workflow guard is violated.
	ErrInvalidTransition = errors.New("invalid workflow transition")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInsufficientStaffing signals an empty eligible set to the caller.
	// The scheduler converts it into a sous_charge conflict; it is never
	// propagated as a hard failure out of a generation run.
	ErrInsufficientStaffing = errors.New("insufficient staffing")

	// ErrGardeConflict is returned when a write would violate the
	// (date, creneau, slot, service) or (user, date) uniqueness invariant.
	ErrGardeConflict = errors.New("conflicting garde already exists")

	// ErrConcurrentModification is returned when an optimistic version
	// check detects a lost-update race. The write performs no mutation.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransitionError describes a rejected workflow transition.
type TransitionError struct {
	From   PlanningStatus
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a planning in status %q", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ForbiddenError describes a rejected authority check.
type ForbiddenError struct {
	Actor  string
	Action string
	Reason string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("actor %s may not %s: %s", e.Actor, e.Action, e.Reason)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// InsufficientStaffingError reports an empty eligible set for a slot.
type InsufficientStaffingError struct {
	Date  Date
	Scope Scope
	Role  string
}

func (e *InsufficientStaffingError) Error() string {
	return fmt.Sprintf("no eligible %s for %s on %s", e.Role, e.Scope, e.Date)
}

func (e *InsufficientStaffingError) Unwrap() error { return ErrInsufficientStaffing }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or a rejected domain rule (HTTP 4xx territory).
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrGardeConflict)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsForbidden returns true if the error indicates missing authority.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsRetryable returns true if the operation might succeed on retry.
func IsRetryable(err error) bool { return errors.Is(err, ErrConcurrentModification) }
