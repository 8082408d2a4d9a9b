/*
eligibility.go - Candidate resolution for a single slot

PURPOSE:
  Answers "who can stand guard here?" for one (date, scope) pair:

  1. Start from active users matching the scope's rotation role
     (collaborateurs for a service, ingenieurs for a secteur)
  2. Drop anyone with an approved unavailability covering the date
  3. Drop anyone already holding an active garde that date in ANY scope
     (a person cannot be on-call in two places at once)
  4. Order by ascending cumulative load, ties by hire date when
     seniority priority is requested, then by user id

  The resolver is a pure read: no side effects, safe to call concurrently.

GENERATION-RUN STATE:
  During a generation run the scheduler accumulates assignments that are
  not yet persisted. It passes them in through ResolveOptions (ExtraLoad,
  BusyOn) so the resolver sees the run's own bookings without any shared
  mutable state.

SEE ALSO:
  - scheduler.go: the main consumer
  - conflict.go: reuses the unavailability feed for violation checks
*/
package astreinte

import (
	"context"
	"fmt"
	"sort"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// Resolver computes the eligible candidate set for a slot.
type Resolver struct {
	Directory org.Directory
	Plannings PlanningStore
	Dispos    UnavailabilityReader
}

// ResolveOptions tune a single resolution call.
type ResolveOptions struct {
	// RespectUnavailability excludes users with approved unavailability
	// covering the date. Disabled only for emergency/forced generation.
	RespectUnavailability bool

	// IncludeChefService adds the chef_service to a service rotation.
	IncludeChefService bool

	// PreferSeniority breaks load ties by hire date before user id.
	PreferSeniority bool

	// UseStoredLoad folds persisted garde counts (before the date) into
	// the ordering. Disabled when load balancing is off.
	UseStoredLoad bool

	// ExtraLoad carries the current generation run's local counters.
	ExtraLoad map[org.UserID]int

	// BusyOn marks users already assigned on this date within the run.
	BusyOn map[org.UserID]bool
}

// Candidate is a user annotated with the load that ordered them.
type Candidate struct {
	User org.User
	Load int
}

// EligibleCandidates returns the ordered candidate set for the date+scope.
// An empty result is signalled with InsufficientStaffingError; the caller
// decides whether that aborts anything or becomes a conflict record.
func (r *Resolver) EligibleCandidates(ctx context.Context, date Date, scope Scope, opts ResolveOptions) ([]Candidate, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	users, err := r.Directory.ActiveUsers(ctx, scope.Filter(opts.IncludeChefService))
	if err != nil {
		return nil, fmt.Errorf("resolve eligibility for %s: %w", scope, err)
	}

	var stored map[org.UserID]int
	if opts.UseStoredLoad {
		stored, err = r.Plannings.GardeCounts(ctx, scope, date)
		if err != nil {
			return nil, fmt.Errorf("load garde counts for %s: %w", scope, err)
		}
	}

	var candidates []Candidate
	for _, u := range users {
		if opts.BusyOn[u.ID] {
			continue
		}

		if opts.RespectUnavailability && r.Dispos != nil {
			unavailable, err := r.Dispos.IsUnavailable(ctx, u.ID, date)
			if err != nil {
				return nil, fmt.Errorf("check unavailability of %s: %w", u.ID, err)
			}
			if unavailable {
				continue
			}
		}

		// Cross-service exclusivity: skip users already on duty that date
		// anywhere in the system.
		gardes, err := r.Plannings.UserGardesOn(ctx, u.ID, date)
		if err != nil {
			return nil, fmt.Errorf("load gardes of %s: %w", u.ID, err)
		}
		if len(gardes) > 0 {
			continue
		}

		candidates = append(candidates, Candidate{
			User: u,
			Load: stored[u.ID] + opts.ExtraLoad[u.ID],
		})
	}

	if len(candidates) == 0 {
		return nil, &InsufficientStaffingError{Date: date, Scope: scope, Role: roleLabel(scope, opts)}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Load != candidates[j].Load {
			return candidates[i].Load < candidates[j].Load
		}
		if opts.PreferSeniority {
			if more, ok := moreSenior(candidates[i].User, candidates[j].User); ok {
				return more
			}
		}
		return candidates[i].User.ID < candidates[j].User.ID
	})
	return candidates, nil
}

// moreSenior reports whether a was hired before b. The second return is
// false when the hire dates do not discriminate (equal, or both unknown).
// An unknown hire date sorts after any known one.
func moreSenior(a, b org.User) (bool, bool) {
	if a.Embauche == b.Embauche {
		return false, false
	}
	if a.Embauche == "" {
		return false, true
	}
	if b.Embauche == "" {
		return true, true
	}
	return a.Embauche < b.Embauche, true
}

func roleLabel(scope Scope, opts ResolveOptions) string {
	if scope.Kind == ScopeSecteur {
		return string(org.RoleIngenieur)
	}
	if opts.IncludeChefService {
		return string(org.RoleCollaborateur) + "/" + string(org.RoleChefService)
	}
	return string(org.RoleCollaborateur)
}
