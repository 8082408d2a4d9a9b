/*
Package org models the organizational topology the planning core reads.

PURPOSE:
  The astreinte system spans three organizational tiers:

    Site ─▶ Secteur ─▶ Service

  Each Service maintains a roster of collaborateurs and a minimum
  on-call staffing level. Users carry a role that determines both
  their rotation eligibility and their authority over workflows
  (unavailability approval, planning approval).

KEY CONCEPTS IN THIS FILE (types.go):
  - Site/Secteur/Service: the strict three-tier tree
  - User: a person with a role and a scope assignment
  - Role: ordered role hierarchy with a single rank lookup
  - ShiftModel: per-service shift configuration (day/night pair vs 24h block)

DESIGN PRINCIPLES:
  1. Read-only: the planning core never mutates topology, it only reads it
  2. One rank function: every authorization guard goes through Rank()
  3. Type-safe IDs: SiteID/SecteurID/ServiceID/UserID never mix

SEE ALSO:
  - directory.go: the read interface the scheduling core consumes
  - astreinte/workflow.go: authority guards built on Rank()
*/
package org

import "fmt"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SiteID string
type SecteurID string
type ServiceID string
type UserID string

// =============================================================================
// ROLE HIERARCHY
// =============================================================================

type Role string

const (
	RoleAdmin         Role = "admin"
	RoleChefSecteur   Role = "chef_secteur"
	RoleChefService   Role = "chef_service"
	RoleIngenieur     Role = "ingenieur"
	RoleCollaborateur Role = "collaborateur"
)

// roleRanks is the single ordered-rank table every authorization guard
// consumes. Higher rank means broader authority.
var roleRanks = map[Role]int{
	RoleCollaborateur: 1,
	RoleIngenieur:     2,
	RoleChefService:   3,
	RoleChefSecteur:   4,
	RoleAdmin:         5,
}

// Rank returns the authority rank of a role. Unknown roles rank 0.
func Rank(r Role) int { return roleRanks[r] }

// AtLeast reports whether r carries at least the authority of min.
func (r Role) AtLeast(min Role) bool { return Rank(r) >= Rank(min) }

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return Rank(r) > 0 }

// =============================================================================
// SHIFT MODEL - Per-service shift configuration
// =============================================================================

// ShiftModel decides how a mandatory coverage day is cut into shifts.
// Some services run a day+night pair, others a single continuous 24h guard.
type ShiftModel string

const (
	ShiftJourNuit ShiftModel = "jour_nuit"
	ShiftJournee  ShiftModel = "journee_24h"
)

func (m ShiftModel) Valid() bool { return m == ShiftJourNuit || m == ShiftJournee }

// =============================================================================
// TOPOLOGY NODES
// =============================================================================

type Site struct {
	ID    SiteID
	Nom   string
	Code  string // unique among sites
	Actif bool
}

type Secteur struct {
	ID     SecteurID
	SiteID SiteID
	Nom    string
	Code   string // unique within the site
	Actif  bool
}

type Service struct {
	ID        ServiceID
	SecteurID SecteurID
	Nom       string
	Code      string // unique within the secteur
	Actif     bool

	// MinPersonnel is the minimum simultaneous on-call staff per shift.
	MinPersonnel int

	// ShiftModel configures day/night vs single 24h guards for this service.
	ShiftModel ShiftModel

	// Collaborateurs lists the users eligible for this service's rotation.
	Collaborateurs []UserID
}

// Validate checks service-level constraints.
func (s Service) Validate() error {
	if s.MinPersonnel < 1 {
		return fmt.Errorf("service %s: min personnel must be >= 1, got %d", s.ID, s.MinPersonnel)
	}
	if !s.ShiftModel.Valid() {
		return fmt.Errorf("service %s: unknown shift model %q", s.ID, s.ShiftModel)
	}
	return nil
}

// =============================================================================
// USER
// =============================================================================

// User is a person within the hierarchy. The scope assignment must be
// consistent with the role: collaborateur/chef_service attach to a Service,
// ingenieur/chef_secteur attach to a Secteur, admin attaches to nothing.
type User struct {
	ID     UserID
	Nom    string
	Prenom string
	Email  string
	Role   Role
	Actif  bool

	// Embauche is the hire date (YYYY-MM-DD). Empty means unknown and
	// sorts as least senior.
	Embauche string

	SiteID    SiteID
	SecteurID *SecteurID
	ServiceID *ServiceID
}

// Validate checks the role/scope consistency invariant.
func (u User) Validate() error {
	if !u.Role.Valid() {
		return fmt.Errorf("user %s: unknown role %q", u.ID, u.Role)
	}
	switch u.Role {
	case RoleCollaborateur, RoleChefService:
		if u.ServiceID == nil {
			return fmt.Errorf("user %s: role %s requires a service assignment", u.ID, u.Role)
		}
	case RoleIngenieur, RoleChefSecteur:
		if u.SecteurID == nil {
			return fmt.Errorf("user %s: role %s requires a secteur assignment", u.ID, u.Role)
		}
	case RoleAdmin:
		// Global scope, no assignment required.
	}
	return nil
}

// InService reports whether the user is attached to the given service.
func (u User) InService(id ServiceID) bool {
	return u.ServiceID != nil && *u.ServiceID == id
}

// InSecteur reports whether the user is attached to the given secteur.
func (u User) InSecteur(id SecteurID) bool {
	return u.SecteurID != nil && *u.SecteurID == id
}

// CanManage reports whether actor has management authority over target's
// unavailability workflow: chef_service for collaborateurs of their own
// service, chef_secteur for anyone in their secteur, admin for everyone.
func CanManage(actor, target User) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleChefSecteur:
		return actor.SecteurID != nil && target.SecteurID != nil && *actor.SecteurID == *target.SecteurID
	case RoleChefService:
		return target.Role == RoleCollaborateur &&
			actor.ServiceID != nil && target.ServiceID != nil && *actor.ServiceID == *target.ServiceID
	default:
		return false
	}
}
