/*
conflict.go - Roster validation

PURPOSE:
  Scans a planning for rule violations. Conflicts are data returned to the
  caller, never exceptions: detection is invoked automatically after
  generation and on demand against any stored roster (including manually
  edited ones), and its output never mutates the planning.

RULES:
  double_assignment          same user holds >=2 active gardes on one date
                             (within the planning or across any other scope)
  indisponibilite_violation  a garde's user has an approved unavailability
                             covering the garde's date
  sous_charge                a mandatory day+creneau has fewer covering
                             gardes than the service's MinPersonnel
  surcharge                  one user's count exceeds mean + stddev by a
                             configurable margin

SEVERITY:
  Each rule carries a base severity; when one (user, date) pair violates
  several rules at once, its conflicts escalate to critique.

SEE ALSO:
  - workflow.go: ResoudreConflits re-runs generation for conflicted slots
*/
package astreinte

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// =============================================================================
// CONFLICT - A detected rule violation
// =============================================================================

type ConflictType string

const (
	ConflictDoubleAssignment ConflictType = "double_assignment"
	ConflictIndispoViolation ConflictType = "indisponibilite_violation"
	ConflictSurcharge        ConflictType = "surcharge"
	ConflictSousCharge       ConflictType = "sous_charge"
)

type Severity string

const (
	SeverityFaible   Severity = "faible"
	SeverityMoyenne  Severity = "moyenne"
	SeverityHaute    Severity = "haute"
	SeverityCritique Severity = "critique"
)

var severityRank = map[Severity]int{
	SeverityFaible:   1,
	SeverityMoyenne:  2,
	SeverityHaute:    3,
	SeverityCritique: 4,
}

// SeverityAbove reports whether a outranks b.
func SeverityAbove(a, b Severity) bool { return severityRank[a] > severityRank[b] }

type Conflict struct {
	Type       ConflictType
	UserIDs    []org.UserID
	Date       Date
	Creneau    Creneau // set for sous_charge
	Severity   Severity
	Suggestion string
}

// staffingConflict records an under-staffed slot found during generation.
func staffingConflict(d Date, c Creneau, required, filled int) Conflict {
	severity := SeverityHaute
	if filled == 0 {
		severity = SeverityCritique
	}
	return Conflict{
		Type:     ConflictSousCharge,
		Date:     d,
		Creneau:  c,
		Severity: severity,
		Suggestion: fmt.Sprintf("creneau %s du %s: %d/%d poste(s) pourvu(s); completer manuellement ou elargir la rotation",
			c, d, filled, required),
	}
}

// =============================================================================
// DETECTOR
// =============================================================================

// Detector validates stored rosters. Pure read, safe for concurrent use.
type Detector struct {
	Directory org.Directory
	Plannings PlanningStore
	Dispos    UnavailabilityReader
	Calendar  HolidayCalendar

	// SurchargeMargin is added to mean + stddev before flagging overload.
	SurchargeMargin decimal.Decimal
}

// DetectConflicts scans the planning and returns its conflicts ordered by
// date, then type, then user.
func (d *Detector) DetectConflicts(ctx context.Context, p *Planning) ([]Conflict, error) {
	if p == nil {
		return nil, fmt.Errorf("planning: %w", ErrNotFound)
	}

	var conflicts []Conflict

	// Violations per (user, date) pair, for severity escalation.
	pairHits := make(map[string]int)
	pairKey := func(u org.UserID, date Date) string { return string(u) + "@" + date.String() }

	double, err := d.doubleAssignments(ctx, p, pairHits, pairKey)
	if err != nil {
		return nil, err
	}
	conflicts = append(conflicts, double...)

	indispo, err := d.indispoViolations(ctx, p, pairHits, pairKey)
	if err != nil {
		return nil, err
	}
	conflicts = append(conflicts, indispo...)

	under, err := d.understaffing(ctx, p)
	if err != nil {
		return nil, err
	}
	conflicts = append(conflicts, under...)

	conflicts = append(conflicts, d.overloads(p, pairHits, pairKey)...)

	// Escalate any conflict whose (user, date) pair violates several rules.
	for i := range conflicts {
		for _, u := range conflicts[i].UserIDs {
			if pairHits[pairKey(u, conflicts[i].Date)] >= 2 {
				conflicts[i].Severity = SeverityCritique
				break
			}
		}
	}

	sortConflicts(conflicts)
	return conflicts, nil
}

func (d *Detector) doubleAssignments(ctx context.Context, p *Planning, pairHits map[string]int, pairKey func(org.UserID, Date) string) ([]Conflict, error) {
	var conflicts []Conflict

	// Within the planning.
	perUserDate := make(map[string][]Garde)
	for _, g := range p.Gardes {
		if !g.Status.Active() {
			continue
		}
		k := pairKey(g.UserID, g.Date)
		perUserDate[k] = append(perUserDate[k], g)
	}

	seen := make(map[string]bool)
	for _, g := range p.Gardes {
		if !g.Status.Active() {
			continue
		}
		k := pairKey(g.UserID, g.Date)
		if seen[k] {
			continue
		}
		seen[k] = true

		internal := len(perUserDate[k])

		// Across other scopes.
		others, err := d.Plannings.UserGardesOn(ctx, g.UserID, g.Date)
		if err != nil {
			return nil, fmt.Errorf("cross-scope gardes of %s: %w", g.UserID, err)
		}
		external := 0
		for _, o := range others {
			if !gardeInPlanning(p, o.ID) {
				external++
			}
		}

		if internal+external >= 2 {
			pairHits[k]++
			conflicts = append(conflicts, Conflict{
				Type:     ConflictDoubleAssignment,
				UserIDs:  []org.UserID{g.UserID},
				Date:     g.Date,
				Severity: SeverityHaute,
				Suggestion: fmt.Sprintf("%s tient %d gardes le %s; remplacer l'une d'elles",
					g.UserID, internal+external, g.Date),
			})
		}
	}
	return conflicts, nil
}

func (d *Detector) indispoViolations(ctx context.Context, p *Planning, pairHits map[string]int, pairKey func(org.UserID, Date) string) ([]Conflict, error) {
	if d.Dispos == nil {
		return nil, nil
	}
	var conflicts []Conflict
	for _, g := range p.Gardes {
		if !g.Status.Active() {
			continue
		}
		unavailable, err := d.Dispos.IsUnavailable(ctx, g.UserID, g.Date)
		if err != nil {
			return nil, fmt.Errorf("check unavailability of %s: %w", g.UserID, err)
		}
		if !unavailable {
			continue
		}
		pairHits[pairKey(g.UserID, g.Date)]++
		conflicts = append(conflicts, Conflict{
			Type:     ConflictIndispoViolation,
			UserIDs:  []org.UserID{g.UserID},
			Date:     g.Date,
			Severity: SeverityHaute,
			Suggestion: fmt.Sprintf("%s est indisponible le %s; remplacer la garde %s",
				g.UserID, g.Date, g.ID),
		})
	}
	return conflicts, nil
}

func (d *Detector) understaffing(ctx context.Context, p *Planning) ([]Conflict, error) {
	minPersonnel := 1
	creneaux := []Creneau{CreneauJournee}

	if p.Scope.Kind == ScopeService {
		svc, err := d.Directory.GetService(ctx, p.Scope.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("load service %s: %w", p.Scope.ServiceID, err)
		}
		if svc == nil {
			return nil, fmt.Errorf("service %s: %w", p.Scope.ServiceID, ErrNotFound)
		}
		minPersonnel = svc.MinPersonnel
		creneaux = CreneauxFor(svc.ShiftModel)
	}

	var conflicts []Conflict
	for _, day := range MandatoryDays(p.Period, d.Calendar) {
		for _, c := range creneaux {
			got := p.CoverageOn(day, c)
			if got >= minPersonnel {
				continue
			}
			conflicts = append(conflicts, staffingConflict(day, c, minPersonnel, got))
		}
	}
	return conflicts, nil
}

func (d *Detector) overloads(p *Planning, pairHits map[string]int, pairKey func(org.UserID, Date) string) []Conflict {
	stats := ComputeWorkloadStats(p.AssignmentCounts())
	overloaded := stats.OverloadedUsers(d.SurchargeMargin)
	if len(overloaded) == 0 {
		return nil
	}

	var conflicts []Conflict
	for _, u := range overloaded {
		conflicts = append(conflicts, Conflict{
			Type:     ConflictSurcharge,
			UserIDs:  []org.UserID{u},
			Date:     p.Period.Debut,
			Severity: SeverityFaible,
			Suggestion: fmt.Sprintf("%s cumule %d gardes sur la periode (moyenne %s); redistribuer",
				u, stats.Counts[u], stats.Mean.StringFixed(1)),
		})
	}
	return conflicts
}

func gardeInPlanning(p *Planning, id GardeID) bool {
	return p.FindGarde(id) != nil
}

func sortConflicts(conflicts []Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return firstUser(a) < firstUser(b)
	})
}

func firstUser(c Conflict) org.UserID {
	if len(c.UserIDs) == 0 {
		return ""
	}
	return c.UserIDs[0]
}
