/*
store.go - Persistence interfaces for the planning core

PURPOSE:
  Defines the boundary between the planning logic and the database.
  The core never talks SQL; it consumes these interfaces. Implementations:
  store/sqlite (production), astreinte/store (in-memory, tests/dev).

INVARIANT ENFORCEMENT:
  The store is responsible for the transactional uniqueness invariants:
  - at most one covering garde per (service, date, creneau, slot)
  - at most one active garde per (user, date) across ALL scopes
  Any write violating them must fail atomically with ErrGardeConflict.

OPTIMISTIC CONCURRENCY:
  UpdatePlanning carries the caller's loaded Version. A stale version
  yields ErrConcurrentModification and performs no mutation; the caller
  reloads and retries. This serializes workflow transitions per planning.

SEE ALSO:
  - store/sqlite/sqlite.go: production implementation
  - astreinte/store/memory.go: in-memory implementation
*/
package astreinte

import (
	"context"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// =============================================================================
// PLANNING STORE
// =============================================================================

// PlanningFilter narrows ListPlannings. Nil fields mean "any".
type PlanningFilter struct {
	Status *PlanningStatus
	Scope  *Scope
}

// PlanningStore persists rosters and answers the cross-scope garde queries
// the resolver and detector need.
type PlanningStore interface {
	// SavePlanning inserts a new planning with its gardes.
	// Fails with ErrGardeConflict if any garde violates a uniqueness invariant.
	SavePlanning(ctx context.Context, p *Planning) error

	// GetPlanning returns the planning with its gardes, or nil if absent.
	GetPlanning(ctx context.Context, id PlanningID) (*Planning, error)

	// UpdatePlanning rewrites the planning and its gardes atomically.
	// The stored version must equal p.Version; on success the stored and
	// in-memory versions are incremented. A mismatch yields
	// ErrConcurrentModification with no mutation.
	UpdatePlanning(ctx context.Context, p *Planning) error

	// ListPlannings returns plannings matching the filter in a stable order.
	ListPlannings(ctx context.Context, filter PlanningFilter) ([]*Planning, error)

	// UserGardesOn returns the user's active gardes on a date across all
	// scopes and plannings. Used for cross-service exclusivity.
	UserGardesOn(ctx context.Context, user org.UserID, d Date) ([]Garde, error)

	// GardeCounts tallies covering gardes per user within the scope for
	// published plannings up to and including upTo. Feeds the
	// cumulative-load ordering.
	GardeCounts(ctx context.Context, scope Scope, upTo Date) (map[org.UserID]int, error)
}

// =============================================================================
// UNAVAILABILITY READER
// =============================================================================

// UnavailabilityReader is the narrow feed the resolver and detector consume.
// Only approved unavailability excludes a user; pending or refused records
// never affect scheduling. Implemented by indispo.Registry.
type UnavailabilityReader interface {
	IsUnavailable(ctx context.Context, user org.UserID, d Date) (bool, error)
}

// NoUnavailability is the null reader used when unavailability is ignored.
type NoUnavailability struct{}

func (NoUnavailability) IsUnavailable(context.Context, org.UserID, Date) (bool, error) {
	return false, nil
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

// HolidayStore persists the public-holiday calendar.
type HolidayStore interface {
	HolidayCalendar

	SaveHoliday(ctx context.Context, h Holiday) error
	DeleteHoliday(ctx context.Context, id string) error
	ListHolidays(ctx context.Context) ([]Holiday, error)
}
