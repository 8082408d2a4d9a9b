/*
scheduler.go - Fair-rotation roster generation

PURPOSE:
  Builds a draft roster for a scope over a period. Only mandatory coverage
  days are staffed: Saturdays, Sundays and active public holidays. Weekdays
  carry no astreinte and are skipped entirely.

ALGORITHM (round-robin with load-balancing tie-break):
  for each mandatory day in chronological order:
    for each creneau of the service's shift model:
      for each slot up to MinPersonnel:
        resolve eligible candidates (ordered by load, then user id)
        if none: record a sous_charge conflict and continue
        else: assign the head candidate, bump their run-local counter

  Determinism: identical stored state always yields an identical garde
  list. There is no randomness anywhere; ordering ties break on user id
  and garde ids derive from (planning, date, creneau, slot).

FAILURE SEMANTICS:
  Generation never raises a hard error for an under-staffed slot. It
  returns a best-effort draft plus the accumulated conflict list; the
  caller decides whether to regenerate, patch manually, or submit anyway.

SEE ALSO:
  - eligibility.go: candidate resolution
  - conflict.go: post-generation validation of any stored roster
*/
package astreinte

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// AlgorithmRoundRobin is recorded in generation metadata.
const AlgorithmRoundRobin = "round_robin_equilibre"

// Generator produces draft rosters. It writes nothing: the returned
// planning is persisted (or discarded) by the caller.
type Generator struct {
	Resolver  *Resolver
	Directory org.Directory
	Calendar  HolidayCalendar

	// NewID and Now are injectable for deterministic tests.
	NewID func() string
	Now   func() time.Time
}

func (g *Generator) newID() string {
	if g.NewID != nil {
		return g.NewID()
	}
	return uuid.NewString()
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now().UTC()
}

// slotPlan describes how many guards one mandatory day needs.
type slotPlan struct {
	creneaux     []Creneau
	minPersonnel int
}

func (g *Generator) planFor(ctx context.Context, scope Scope) (slotPlan, error) {
	switch scope.Kind {
	case ScopeService:
		svc, err := g.Directory.GetService(ctx, scope.ServiceID)
		if err != nil {
			return slotPlan{}, fmt.Errorf("load service %s: %w", scope.ServiceID, err)
		}
		if svc == nil {
			return slotPlan{}, fmt.Errorf("service %s: %w", scope.ServiceID, ErrNotFound)
		}
		if err := svc.Validate(); err != nil {
			return slotPlan{}, err
		}
		return slotPlan{creneaux: CreneauxFor(svc.ShiftModel), minPersonnel: svc.MinPersonnel}, nil

	case ScopeSecteur:
		sec, err := g.Directory.GetSecteur(ctx, scope.SecteurID)
		if err != nil {
			return slotPlan{}, fmt.Errorf("load secteur %s: %w", scope.SecteurID, err)
		}
		if sec == nil {
			return slotPlan{}, fmt.Errorf("secteur %s: %w", scope.SecteurID, ErrNotFound)
		}
		// Secteur rotations staff a single ingenieur on a continuous guard.
		return slotPlan{creneaux: []Creneau{CreneauJournee}, minPersonnel: 1}, nil

	default:
		return slotPlan{}, scope.Validate()
	}
}

// GenerateRoster builds a draft Planning for the scope and period.
// Under-staffed slots become conflict records, never errors.
func (g *Generator) GenerateRoster(ctx context.Context, scope Scope, period Period, cfg GenerationConfig) (*Planning, []Conflict, error) {
	if err := scope.Validate(); err != nil {
		return nil, nil, err
	}
	if err := period.Validate(); err != nil {
		return nil, nil, err
	}

	plan, err := g.planFor(ctx, scope)
	if err != nil {
		return nil, nil, err
	}

	now := g.now()
	planning := &Planning{
		ID:        PlanningID(g.newID()),
		Scope:     scope,
		Period:    period,
		Status:    PlanningBrouillon,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Run-local load counters: explicit state owned by this invocation,
	// never shared across concurrent generation calls.
	runLoad := make(map[org.UserID]int)
	var conflicts []Conflict

	for _, day := range MandatoryDays(period, g.Calendar) {
		busy := make(map[org.UserID]bool)

		gardeType := GardeWeekend
		if !day.IsWeekend() {
			gardeType = GardeFerie
		}

		for _, creneau := range plan.creneaux {
			filled := 0
			for slot := 0; slot < plan.minPersonnel; slot++ {
				candidates, err := g.Resolver.EligibleCandidates(ctx, day, scope, ResolveOptions{
					RespectUnavailability: cfg.RespecterIndisponibilites,
					IncludeChefService:    cfg.InclureChefService,
					PreferSeniority:       cfg.PrioriteAnciennete,
					UseStoredLoad:         cfg.EquilibrerCharge,
					ExtraLoad:             runLoad,
					BusyOn:                busy,
				})
				if err != nil {
					if !IsInsufficientStaffing(err) {
						return nil, nil, err
					}
					continue // gap recorded below once the creneau is done
				}

				chosen := candidates[0].User
				planning.Gardes = append(planning.Gardes, Garde{
					ID:        gardeID(planning.ID, day, creneau, slot),
					Date:      day,
					Creneau:   creneau,
					Slot:      slot,
					UserID:    chosen.ID,
					Type:      gardeType,
					Status:    GardePlanifie,
					CreatedAt: now,
					UpdatedAt: now,
				})
				runLoad[chosen.ID]++
				busy[chosen.ID] = true
				filled++
			}

			if filled < plan.minPersonnel {
				conflicts = append(conflicts, staffingConflict(day, creneau, plan.minPersonnel, filled))
			}
		}
	}

	stats := ComputeWorkloadStats(runLoad)
	planning.Generation = &GenerationMeta{
		Algorithm:   AlgorithmRoundRobin,
		Config:      cfg,
		EquityScore: stats.EquityScore(),
		GeneratedAt: now,
	}

	return planning, conflicts, nil
}

// gardeID derives a stable identifier so regeneration of the same planning
// shape produces byte-identical garde lists.
func gardeID(p PlanningID, d Date, c Creneau, slot int) GardeID {
	return GardeID(fmt.Sprintf("%s-%s-%s-%d", p, d, c, slot))
}

// IsInsufficientStaffing reports whether err signals an empty eligible set.
func IsInsufficientStaffing(err error) bool {
	return errors.Is(err, ErrInsufficientStaffing)
}
