package astreinte_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/astreinte"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/astreinte/store"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// =============================================================================
// DETECTION TESTS
// =============================================================================
// Note: the topology fixtures (newTestDirectory, unavailabilityMap, date)
// live in scheduler_test.go.

func newDetector(dir org.Directory, plannings astreinte.PlanningStore, dispos astreinte.UnavailabilityReader) *astreinte.Detector {
	return &astreinte.Detector{
		Directory:       dir,
		Plannings:       plannings,
		Dispos:          dispos,
		Calendar:        astreinte.EmptyCalendar{},
		SurchargeMargin: decimal.NewFromInt(1),
	}
}

func detectorPlanning(scope astreinte.Scope, period astreinte.Period, gardes ...astreinte.Garde) *astreinte.Planning {
	return &astreinte.Planning{
		ID:     "plan-det",
		Scope:  scope,
		Period: period,
		Status: astreinte.PlanningBrouillon,
		Gardes: gardes,
	}
}

func saturday() astreinte.Period {
	d := date(2026, time.March, 7)
	return astreinte.Period{Debut: d, Fin: d}
}

func TestDetectConflicts_DoubleAssignment_WithinPlanning(t *testing.T) {
	// GIVEN: u-d holds both the jour and nuit creneaux of the same day,
	//        plus a replaced garde that must not count
	// WHEN: Detecting
	// THEN: One haute double_assignment for u-d, nothing else

	ctx := context.Background()
	det := newDetector(newTestDirectory(), store.NewMemory(), unavailabilityMap{})
	day := date(2026, time.March, 7)

	p := detectorPlanning(astreinte.ServiceScope("svc-2"), saturday(),
		astreinte.Garde{ID: "g-1", Date: day, Creneau: astreinte.CreneauJour, UserID: "u-d", Type: astreinte.GardeWeekend, Status: astreinte.GardePlanifie},
		astreinte.Garde{ID: "g-2", Date: day, Creneau: astreinte.CreneauNuit, UserID: "u-d", Type: astreinte.GardeWeekend, Status: astreinte.GardeConfirme},
		astreinte.Garde{ID: "g-3", Date: day, Creneau: astreinte.CreneauJour, UserID: "u-d", Type: astreinte.GardeWeekend, Status: astreinte.GardeRemplace},
	)

	conflicts, err := det.DetectConflicts(ctx, p)
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected one conflict, got %v", conflicts)
	}
	c := conflicts[0]
	if c.Type != astreinte.ConflictDoubleAssignment {
		t.Fatalf("expected double_assignment, got %s", c.Type)
	}
	if len(c.UserIDs) != 1 || c.UserIDs[0] != "u-d" {
		t.Fatalf("conflict should name u-d, got %v", c.UserIDs)
	}
	if c.Severity != astreinte.SeverityHaute {
		t.Fatalf("single-rule double assignment should be haute, got %s", c.Severity)
	}
}

func TestDetectConflicts_DoubleAssignment_AcrossScopes(t *testing.T) {
	// GIVEN: u-a already on duty in svc-2 the same day, per the store
	// WHEN: Detecting a svc-1 roster assigning u-a that day
	// THEN: A double_assignment conflict

	ctx := context.Background()
	mem := store.NewMemory()
	day := date(2026, time.March, 7)

	other := &astreinte.Planning{
		ID:     "plan-other",
		Scope:  astreinte.ServiceScope("svc-2"),
		Period: saturday(),
		Status: astreinte.PlanningPublie,
		Gardes: []astreinte.Garde{
			{ID: "g-other", Date: day, Creneau: astreinte.CreneauJour, UserID: "u-a", Type: astreinte.GardeWeekend, Status: astreinte.GardeConfirme},
		},
	}
	if err := mem.SavePlanning(ctx, other); err != nil {
		t.Fatalf("seed planning: %v", err)
	}

	det := newDetector(newTestDirectory(), mem, unavailabilityMap{})
	p := detectorPlanning(astreinte.ServiceScope("svc-1"), saturday(),
		astreinte.Garde{ID: "g-1", Date: day, Creneau: astreinte.CreneauJournee, UserID: "u-a", Type: astreinte.GardeWeekend, Status: astreinte.GardePlanifie},
	)

	conflicts, err := det.DetectConflicts(ctx, p)
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].Type != astreinte.ConflictDoubleAssignment {
		t.Fatalf("expected one double_assignment, got %v", conflicts)
	}
}

func TestDetectConflicts_IndispoViolation(t *testing.T) {
	// GIVEN: u-a has an approved unavailability covering their garde
	// WHEN: Detecting
	// THEN: One haute indisponibilite_violation

	ctx := context.Background()
	day := date(2026, time.March, 7)
	dispos := unavailabilityMap{}
	dispos.block("u-a", day)
	det := newDetector(newTestDirectory(), store.NewMemory(), dispos)

	p := detectorPlanning(astreinte.ServiceScope("svc-1"), saturday(),
		astreinte.Garde{ID: "g-1", Date: day, Creneau: astreinte.CreneauJournee, UserID: "u-a", Type: astreinte.GardeWeekend, Status: astreinte.GardePlanifie},
	)

	conflicts, err := det.DetectConflicts(ctx, p)
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected one conflict, got %v", conflicts)
	}
	c := conflicts[0]
	if c.Type != astreinte.ConflictIndispoViolation {
		t.Fatalf("expected indisponibilite_violation, got %s", c.Type)
	}
	if c.Severity != astreinte.SeverityHaute {
		t.Fatalf("single-rule violation should be haute, got %s", c.Severity)
	}
}

func TestDetectConflicts_SousCharge(t *testing.T) {
	// GIVEN: A weekend roster covering Saturday but not Sunday
	// WHEN: Detecting
	// THEN: A critique sous_charge on the empty Sunday creneau

	ctx := context.Background()
	det := newDetector(newTestDirectory(), store.NewMemory(), unavailabilityMap{})

	weekend := astreinte.Period{Debut: date(2026, time.March, 7), Fin: date(2026, time.March, 8)}
	p := detectorPlanning(astreinte.ServiceScope("svc-1"), weekend,
		astreinte.Garde{ID: "g-1", Date: date(2026, time.March, 7), Creneau: astreinte.CreneauJournee, UserID: "u-a", Type: astreinte.GardeWeekend, Status: astreinte.GardePlanifie},
	)

	conflicts, err := det.DetectConflicts(ctx, p)
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected one conflict, got %v", conflicts)
	}
	c := conflicts[0]
	if c.Type != astreinte.ConflictSousCharge {
		t.Fatalf("expected sous_charge, got %s", c.Type)
	}
	if c.Date.String() != "2026-03-08" || c.Creneau != astreinte.CreneauJournee {
		t.Fatalf("conflict should name the empty Sunday creneau, got %+v", c)
	}
	if c.Severity != astreinte.SeverityCritique {
		t.Fatalf("zero coverage should be critique, got %s", c.Severity)
	}
}

func TestDetectConflicts_Surcharge(t *testing.T) {
	// GIVEN: u-a holds 5 of 8 gardes, well past mean + stddev + margin
	// WHEN: Detecting
	// THEN: A faible surcharge naming u-a only

	ctx := context.Background()
	det := newDetector(newTestDirectory(), store.NewMemory(), unavailabilityMap{})

	gardes := []astreinte.Garde{
		{ID: "g-1", Date: date(2026, time.March, 7), Creneau: astreinte.CreneauJournee, UserID: "u-a", Type: astreinte.GardeWeekend, Status: astreinte.GardeConfirme},
		{ID: "g-2", Date: date(2026, time.March, 8), Creneau: astreinte.CreneauJournee, UserID: "u-a", Type: astreinte.GardeWeekend, Status: astreinte.GardeConfirme},
		{ID: "g-3", Date: date(2026, time.March, 14), Creneau: astreinte.CreneauJournee, UserID: "u-a", Type: astreinte.GardeWeekend, Status: astreinte.GardePlanifie},
		{ID: "g-4", Date: date(2026, time.March, 15), Creneau: astreinte.CreneauJournee, UserID: "u-a", Type: astreinte.GardeWeekend, Status: astreinte.GardePlanifie},
		{ID: "g-5", Date: date(2026, time.March, 12), Creneau: astreinte.CreneauJournee, UserID: "u-a", Type: astreinte.GardeRemplacement, Status: astreinte.GardePlanifie},
		{ID: "g-6", Date: date(2026, time.March, 9), Creneau: astreinte.CreneauJournee, UserID: "u-b", Type: astreinte.GardeRemplacement, Status: astreinte.GardePlanifie},
		{ID: "g-7", Date: date(2026, time.March, 10), Creneau: astreinte.CreneauJournee, UserID: "u-c", Type: astreinte.GardeRemplacement, Status: astreinte.GardePlanifie},
		{ID: "g-8", Date: date(2026, time.March, 11), Creneau: astreinte.CreneauJournee, UserID: "u-d", Type: astreinte.GardeRemplacement, Status: astreinte.GardePlanifie},
	}
	p := detectorPlanning(astreinte.ServiceScope("svc-1"), marchFortnight(), gardes...)

	conflicts, err := det.DetectConflicts(ctx, p)
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}

	var surcharges []astreinte.Conflict
	for _, c := range conflicts {
		if c.Type == astreinte.ConflictSurcharge {
			surcharges = append(surcharges, c)
		}
	}
	if len(surcharges) != 1 {
		t.Fatalf("expected one surcharge, got %v", conflicts)
	}
	c := surcharges[0]
	if len(c.UserIDs) != 1 || c.UserIDs[0] != "u-a" {
		t.Fatalf("surcharge should name u-a, got %v", c.UserIDs)
	}
	if c.Severity != astreinte.SeverityFaible {
		t.Fatalf("surcharge alone should be faible, got %s", c.Severity)
	}
}

func TestDetectConflicts_EscalatesToCritique(t *testing.T) {
	// GIVEN: u-d is double-booked on a day they are also unavailable
	// WHEN: Detecting
	// THEN: Every conflict on that (user, date) pair escalates to critique

	ctx := context.Background()
	day := date(2026, time.March, 7)
	dispos := unavailabilityMap{}
	dispos.block("u-d", day)
	det := newDetector(newTestDirectory(), store.NewMemory(), dispos)

	p := detectorPlanning(astreinte.ServiceScope("svc-2"), saturday(),
		astreinte.Garde{ID: "g-1", Date: day, Creneau: astreinte.CreneauJour, UserID: "u-d", Type: astreinte.GardeWeekend, Status: astreinte.GardePlanifie},
		astreinte.Garde{ID: "g-2", Date: day, Creneau: astreinte.CreneauNuit, UserID: "u-d", Type: astreinte.GardeWeekend, Status: astreinte.GardePlanifie},
	)

	conflicts, err := det.DetectConflicts(ctx, p)
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	if len(conflicts) != 3 {
		t.Fatalf("expected a double_assignment and two violations, got %v", conflicts)
	}
	if conflicts[0].Type != astreinte.ConflictDoubleAssignment {
		t.Fatalf("conflicts should sort by type within a date, got %v", conflicts)
	}
	for _, c := range conflicts {
		if c.Severity != astreinte.SeverityCritique {
			t.Errorf("%s should escalate to critique, got %s", c.Type, c.Severity)
		}
	}
}

func TestDetectConflicts_NilPlanning(t *testing.T) {
	det := newDetector(newTestDirectory(), store.NewMemory(), unavailabilityMap{})
	if _, err := det.DetectConflicts(context.Background(), nil); err == nil {
		t.Fatal("expected an error for a nil planning")
	}
}
