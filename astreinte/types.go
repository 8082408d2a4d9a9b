/*
Package astreinte is the on-call planning core.

PURPOSE:
  This package contains the domain types and algorithms for weekend and
  public-holiday on-call rosters: who can stand guard on a given day
  (eligibility), who should (fair rotation), what is wrong with a roster
  (conflict detection), and how a draft becomes a published roster
  (approval workflow).

KEY CONCEPTS IN THIS FILE (types.go):
  - Scope: service- or secteur-level planning target (tagged variant)
  - Creneau: a shift designator within a day (jour/nuit or journee)
  - Garde: one concrete on-call assignment (user + date + creneau + slot)
  - Planning: the roster document aggregating gardes for a scope and period

DESIGN PRINCIPLES:
  1. Determinism: identical stored state always yields identical rosters
  2. Conflicts are data, not exceptions: generation never aborts on an
     under-staffed slot, it records the gap and carries on
  3. Audit over deletion: replacements mark the old garde 'remplace' and
     keep it; published rosters never silently lose coverage
  4. No hidden state: per-run load counters live in the generation call

SEE ALSO:
  - eligibility.go: candidate resolution
  - scheduler.go: fair-rotation generation
  - conflict.go: roster validation
  - workflow.go: approval state machine
*/
package astreinte

import (
	"fmt"
	"time"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PlanningID string
type GardeID string

// =============================================================================
// SCOPE - Service- or secteur-level planning target
// =============================================================================

type ScopeKind string

const (
	ScopeService ScopeKind = "service"
	ScopeSecteur ScopeKind = "secteur"
)

// Scope is the tagged variant consumed uniformly by the resolver, the
// scheduler and the workflow. Service scopes rotate collaborateurs (and
// optionally the chef_service); secteur scopes rotate ingenieurs.
type Scope struct {
	Kind      ScopeKind
	ServiceID org.ServiceID // set when Kind == ScopeService
	SecteurID org.SecteurID // set when Kind == ScopeSecteur
}

func ServiceScope(id org.ServiceID) Scope {
	return Scope{Kind: ScopeService, ServiceID: id}
}

func SecteurScope(id org.SecteurID) Scope {
	return Scope{Kind: ScopeSecteur, SecteurID: id}
}

func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeService:
		if s.ServiceID == "" {
			return &ValidationError{Field: "scope.service", Message: "service id required"}
		}
	case ScopeSecteur:
		if s.SecteurID == "" {
			return &ValidationError{Field: "scope.secteur", Message: "secteur id required"}
		}
	default:
		return &ValidationError{Field: "scope.kind", Message: fmt.Sprintf("unknown kind %q", s.Kind)}
	}
	return nil
}

// Filter converts the scope into the directory query that selects its
// rotation population.
func (s Scope) Filter(includeChef bool) org.ScopeFilter {
	switch s.Kind {
	case ScopeSecteur:
		id := s.SecteurID
		return org.ScopeFilter{SecteurID: &id, Roles: []org.Role{org.RoleIngenieur}}
	default:
		id := s.ServiceID
		roles := []org.Role{org.RoleCollaborateur}
		if includeChef {
			roles = append(roles, org.RoleChefService)
		}
		return org.ScopeFilter{ServiceID: &id, Roles: roles}
	}
}

func (s Scope) String() string {
	if s.Kind == ScopeSecteur {
		return "secteur/" + string(s.SecteurID)
	}
	return "service/" + string(s.ServiceID)
}

// =============================================================================
// CRENEAU - Shift designator within a mandatory day
// =============================================================================

type Creneau string

const (
	CreneauJour    Creneau = "jour"
	CreneauNuit    Creneau = "nuit"
	CreneauJournee Creneau = "journee" // single continuous 24h guard
)

// CreneauxFor returns the shift sequence for a service's shift model,
// in the fixed order the scheduler walks them.
func CreneauxFor(model org.ShiftModel) []Creneau {
	if model == org.ShiftJourNuit {
		return []Creneau{CreneauJour, CreneauNuit}
	}
	return []Creneau{CreneauJournee}
}

// =============================================================================
// GARDE - One concrete on-call assignment
// =============================================================================

type GardeStatus string

const (
	GardePlanifie GardeStatus = "planifie"
	GardeConfirme GardeStatus = "confirme"
	GardeAbsent   GardeStatus = "absent"
	GardeRemplace GardeStatus = "remplace"
)

func (s GardeStatus) Valid() bool {
	switch s {
	case GardePlanifie, GardeConfirme, GardeAbsent, GardeRemplace:
		return true
	}
	return false
}

// Covers reports whether a garde in this status still counts toward
// coverage. A replaced garde is superseded by its replacement; everything
// else occupies its (date, creneau, slot).
func (s GardeStatus) Covers() bool { return s != GardeRemplace }

// Active reports whether the garde binds its user on that date for
// double-booking purposes.
func (s GardeStatus) Active() bool { return s == GardePlanifie || s == GardeConfirme }

type GardeType string

const (
	GardeWeekend      GardeType = "weekend"
	GardeFerie        GardeType = "ferie"
	GardeRemplacement GardeType = "remplacement"
)

// Garde is a single on-call assignment. Slot distinguishes concurrent
// positions on the same creneau when MinPersonnel > 1.
type Garde struct {
	ID      GardeID
	Date    Date
	Creneau Creneau
	Slot    int
	UserID  org.UserID
	Type    GardeType
	Status  GardeStatus

	// RemplacePar references the garde that superseded this one
	// when Status == GardeRemplace.
	RemplacePar *GardeID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// PLANNING - The roster document
// =============================================================================

type PlanningStatus string

const (
	PlanningBrouillon PlanningStatus = "brouillon"
	PlanningSoumis    PlanningStatus = "soumis"
	PlanningApprouve  PlanningStatus = "approuve"
	PlanningRejete    PlanningStatus = "rejete"
	PlanningPublie    PlanningStatus = "publie"
)

func (s PlanningStatus) Valid() bool {
	switch s {
	case PlanningBrouillon, PlanningSoumis, PlanningApprouve, PlanningRejete, PlanningPublie:
		return true
	}
	return false
}

// GenerationConfig parameterizes a generation run.
type GenerationConfig struct {
	// RespecterIndisponibilites excludes users with approved unavailability.
	// Disable only for emergency/forced generation.
	RespecterIndisponibilites bool

	// EquilibrerCharge balances cumulative load; when false the rotation
	// still round-robins but ignores prior load from stored gardes.
	EquilibrerCharge bool

	// InclureChefService adds the chef_service to a service rotation.
	InclureChefService bool

	// PrioriteAnciennete breaks load ties by hire date, earliest first.
	// Off by default so equal-load candidates stay ordered by user id.
	PrioriteAnciennete bool
}

// DefaultGenerationConfig mirrors the documented defaults.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		RespecterIndisponibilites: true,
		EquilibrerCharge:          true,
	}
}

// GenerationMeta records how a roster was produced.
type GenerationMeta struct {
	Algorithm   string
	Config      GenerationConfig
	EquityScore float64
	GeneratedAt time.Time
}

// Planning aggregates the gardes of one scope over one period.
type Planning struct {
	ID     PlanningID
	Scope  Scope
	Period Period
	Status PlanningStatus
	Gardes []Garde

	Generation *GenerationMeta

	// Workflow audit trail
	CreatedBy       org.UserID
	SubmittedBy     org.UserID
	ApprovedBy      org.UserID
	RejectedBy      org.UserID
	RejectionReason string
	PublishedBy     org.UserID

	// Version supports optimistic concurrency on status transitions.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FindGarde returns the garde with the given id, or nil.
func (p *Planning) FindGarde(id GardeID) *Garde {
	for i := range p.Gardes {
		if p.Gardes[i].ID == id {
			return &p.Gardes[i]
		}
	}
	return nil
}

// CoverageOn counts covering gardes for a date+creneau.
func (p *Planning) CoverageOn(d Date, c Creneau) int {
	n := 0
	for _, g := range p.Gardes {
		if g.Date.Equal(d) && g.Creneau == c && g.Status.Covers() {
			n++
		}
	}
	return n
}

// AssignmentCounts tallies covering gardes per user across the planning.
func (p *Planning) AssignmentCounts() map[org.UserID]int {
	counts := make(map[org.UserID]int)
	for _, g := range p.Gardes {
		if g.Status.Covers() {
			counts[g.UserID]++
		}
	}
	return counts
}
