package astreinte_test

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/astreinte"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/astreinte/store"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// =============================================================================
// SHARED FIXTURES
// =============================================================================
// The topology below is reused by the eligibility and workflow tests.

func svcID(s string) *org.ServiceID { id := org.ServiceID(s); return &id }
func secID(s string) *org.SecteurID { id := org.SecteurID(s); return &id }

// newTestDirectory builds one secteur with two services and a full role
// ladder. svc-1 runs a single 24h guard, svc-2 a day/night pair.
func newTestDirectory() *org.Static {
	d := org.NewStatic()
	d.AddSecteur(org.Secteur{ID: "sec-1", SiteID: "site-1", Nom: "Medical", Code: "MED", Actif: true})
	d.AddService(org.Service{
		ID: "svc-1", SecteurID: "sec-1", Nom: "Radiologie", Code: "RAD", Actif: true,
		MinPersonnel: 1, ShiftModel: org.ShiftJournee,
		Collaborateurs: []org.UserID{"u-a", "u-b", "u-c"},
	})
	d.AddService(org.Service{
		ID: "svc-2", SecteurID: "sec-1", Nom: "Urgences", Code: "URG", Actif: true,
		MinPersonnel: 1, ShiftModel: org.ShiftJourNuit,
		Collaborateurs: []org.UserID{"u-d", "u-e"},
	})

	d.AddUser(org.User{ID: "u-a", Nom: "Alami", Role: org.RoleCollaborateur, Actif: true, SiteID: "site-1", ServiceID: svcID("svc-1")})
	d.AddUser(org.User{ID: "u-b", Nom: "Bennani", Role: org.RoleCollaborateur, Actif: true, SiteID: "site-1", ServiceID: svcID("svc-1")})
	d.AddUser(org.User{ID: "u-c", Nom: "Chraibi", Role: org.RoleCollaborateur, Actif: true, SiteID: "site-1", ServiceID: svcID("svc-1")})
	d.AddUser(org.User{ID: "u-d", Nom: "Drissi", Role: org.RoleCollaborateur, Actif: true, SiteID: "site-1", ServiceID: svcID("svc-2")})
	d.AddUser(org.User{ID: "u-e", Nom: "El Fassi", Role: org.RoleCollaborateur, Actif: true, SiteID: "site-1", ServiceID: svcID("svc-2")})

	d.AddUser(org.User{ID: "u-chef1", Nom: "Alaoui", Role: org.RoleChefService, Actif: true, SiteID: "site-1", ServiceID: svcID("svc-1")})
	d.AddUser(org.User{ID: "u-chef2", Nom: "Tahiri", Role: org.RoleChefService, Actif: true, SiteID: "site-1", ServiceID: svcID("svc-2")})
	d.AddUser(org.User{ID: "u-ing1", Nom: "Berrada", Role: org.RoleIngenieur, Actif: true, SiteID: "site-1", SecteurID: secID("sec-1")})
	d.AddUser(org.User{ID: "u-ing2", Nom: "Ziani", Role: org.RoleIngenieur, Actif: true, SiteID: "site-1", SecteurID: secID("sec-1")})
	d.AddUser(org.User{ID: "u-chefsec", Nom: "Tazi", Role: org.RoleChefSecteur, Actif: true, SiteID: "site-1", SecteurID: secID("sec-1")})
	d.AddUser(org.User{ID: "u-admin", Nom: "Admin", Role: org.RoleAdmin, Actif: true, SiteID: "site-1"})
	return d
}

// unavailabilityMap is a mutable UnavailabilityReader keyed "user@date".
type unavailabilityMap map[string]bool

func (u unavailabilityMap) IsUnavailable(_ context.Context, user org.UserID, d astreinte.Date) (bool, error) {
	return u[string(user)+"@"+d.String()], nil
}

func (u unavailabilityMap) block(user org.UserID, d astreinte.Date) {
	u[string(user)+"@"+d.String()] = true
}

func testClock() func() time.Time {
	at := time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newGenerator(dir org.Directory, plannings astreinte.PlanningStore, dispos astreinte.UnavailabilityReader, cal astreinte.HolidayCalendar) *astreinte.Generator {
	return &astreinte.Generator{
		Resolver:  &astreinte.Resolver{Directory: dir, Plannings: plannings, Dispos: dispos},
		Directory: dir,
		Calendar:  cal,
		NewID:     sequentialIDs("plan"),
		Now:       testClock(),
	}
}

// marchFortnight is two full weeks: weekends on the 7th/8th and 14th/15th.
func marchFortnight() astreinte.Period {
	return astreinte.Period{
		Debut: date(2026, time.March, 2),
		Fin:   date(2026, time.March, 15),
	}
}

// =============================================================================
// GENERATION TESTS
// =============================================================================

func TestGenerateRoster_StaffsWeekendsOnly(t *testing.T) {
	// GIVEN: A 24h-guard service and a fortnight with two weekends
	// WHEN: Generating
	// THEN: One garde per weekend day, nothing on weekdays

	ctx := context.Background()
	gen := newGenerator(newTestDirectory(), store.NewMemory(), unavailabilityMap{}, astreinte.EmptyCalendar{})

	p, conflicts, err := gen.GenerateRoster(ctx, astreinte.ServiceScope("svc-1"), marchFortnight(), astreinte.DefaultGenerationConfig())
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %v", conflicts)
	}
	if len(p.Gardes) != 4 {
		t.Fatalf("expected 4 gardes (2 weekends x 2 days), got %d", len(p.Gardes))
	}
	for _, g := range p.Gardes {
		if !g.Date.IsWeekend() {
			t.Errorf("garde scheduled on weekday %s", g.Date)
		}
		if g.Type != astreinte.GardeWeekend {
			t.Errorf("garde on %s: expected type weekend, got %s", g.Date, g.Type)
		}
		if g.Status != astreinte.GardePlanifie {
			t.Errorf("garde on %s: expected status planifie, got %s", g.Date, g.Status)
		}
		if g.Creneau != astreinte.CreneauJournee {
			t.Errorf("24h service should use creneau journee, got %s", g.Creneau)
		}
	}
	if p.Status != astreinte.PlanningBrouillon {
		t.Fatalf("generated roster should be a draft, got %s", p.Status)
	}
}

func TestGenerateRoster_StaffsHolidays(t *testing.T) {
	// GIVEN: A Monday holiday inside the period
	// WHEN: Generating
	// THEN: The holiday gets a garde of type ferie

	ctx := context.Background()
	cal := fixtureCalendar{"2026-03-09": true}
	gen := newGenerator(newTestDirectory(), store.NewMemory(), unavailabilityMap{}, cal)

	p, _, err := gen.GenerateRoster(ctx, astreinte.ServiceScope("svc-1"), marchFortnight(), astreinte.DefaultGenerationConfig())
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	found := false
	for _, g := range p.Gardes {
		if g.Date.String() == "2026-03-09" {
			found = true
			if g.Type != astreinte.GardeFerie {
				t.Errorf("holiday garde should be type ferie, got %s", g.Type)
			}
		}
	}
	if !found {
		t.Fatal("holiday 2026-03-09 was not staffed")
	}
	if len(p.Gardes) != 5 {
		t.Fatalf("expected 5 gardes (4 weekend days + 1 holiday), got %d", len(p.Gardes))
	}
}

func TestGenerateRoster_Deterministic(t *testing.T) {
	// GIVEN: Identical stored state
	// WHEN: Generating the same roster twice
	// THEN: The garde lists are byte-identical

	ctx := context.Background()
	scope := astreinte.ServiceScope("svc-1")

	run := func() []astreinte.Garde {
		gen := newGenerator(newTestDirectory(), store.NewMemory(), unavailabilityMap{}, astreinte.EmptyCalendar{})
		p, _, err := gen.GenerateRoster(ctx, scope, marchFortnight(), astreinte.DefaultGenerationConfig())
		if err != nil {
			t.Fatalf("generation failed: %v", err)
		}
		return p.Gardes
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("generation is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestGenerateRoster_JourNuitPairsDistinctUsers(t *testing.T) {
	// GIVEN: A day/night service with two collaborateurs
	// WHEN: Generating one weekend
	// THEN: Each day carries a jour and a nuit garde held by different users

	ctx := context.Background()
	gen := newGenerator(newTestDirectory(), store.NewMemory(), unavailabilityMap{}, astreinte.EmptyCalendar{})

	weekend := astreinte.Period{Debut: date(2026, time.March, 7), Fin: date(2026, time.March, 8)}
	p, conflicts, err := gen.GenerateRoster(ctx, astreinte.ServiceScope("svc-2"), weekend, astreinte.DefaultGenerationConfig())
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %v", conflicts)
	}
	if len(p.Gardes) != 4 {
		t.Fatalf("expected 4 gardes (2 days x 2 creneaux), got %d", len(p.Gardes))
	}

	byDay := make(map[string]map[astreinte.Creneau]org.UserID)
	for _, g := range p.Gardes {
		if byDay[g.Date.String()] == nil {
			byDay[g.Date.String()] = make(map[astreinte.Creneau]org.UserID)
		}
		byDay[g.Date.String()][g.Creneau] = g.UserID
	}
	for day, shifts := range byDay {
		if shifts[astreinte.CreneauJour] == "" || shifts[astreinte.CreneauNuit] == "" {
			t.Fatalf("%s: missing a creneau: %v", day, shifts)
		}
		if shifts[astreinte.CreneauJour] == shifts[astreinte.CreneauNuit] {
			t.Errorf("%s: same user on jour and nuit", day)
		}
	}
}

func TestGenerateRoster_RespectsApprovedUnavailability(t *testing.T) {
	// GIVEN: u-a unavailable on the first weekend
	// WHEN: Generating
	// THEN: u-a holds no garde on those days

	ctx := context.Background()
	dispos := unavailabilityMap{}
	dispos.block("u-a", date(2026, time.March, 7))
	dispos.block("u-a", date(2026, time.March, 8))
	gen := newGenerator(newTestDirectory(), store.NewMemory(), dispos, astreinte.EmptyCalendar{})

	p, _, err := gen.GenerateRoster(ctx, astreinte.ServiceScope("svc-1"), marchFortnight(), astreinte.DefaultGenerationConfig())
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	for _, g := range p.Gardes {
		if g.UserID == "u-a" && (g.Date.String() == "2026-03-07" || g.Date.String() == "2026-03-08") {
			t.Fatalf("u-a assigned on %s despite approved unavailability", g.Date)
		}
	}
}

func TestGenerateRoster_IgnoresUnavailabilityWhenDisabled(t *testing.T) {
	// Emergency mode: RespecterIndisponibilites off keeps everyone eligible.

	ctx := context.Background()
	dispos := unavailabilityMap{}
	for _, d := range astreinte.MandatoryDays(marchFortnight(), nil) {
		dispos.block("u-b", d)
		dispos.block("u-c", d)
	}
	gen := newGenerator(newTestDirectory(), store.NewMemory(), dispos, astreinte.EmptyCalendar{})

	cfg := astreinte.GenerationConfig{RespecterIndisponibilites: false, EquilibrerCharge: true}
	p, conflicts, err := gen.GenerateRoster(ctx, astreinte.ServiceScope("svc-1"), marchFortnight(), cfg)
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("forced generation should fill every slot, got %v", conflicts)
	}
	if len(p.Gardes) != 4 {
		t.Fatalf("expected 4 gardes, got %d", len(p.Gardes))
	}
}

func TestGenerateRoster_EquityConvergence(t *testing.T) {
	// GIVEN: 2 slots per day, 4 mandatory days, 3 collaborateurs
	// WHEN: Generating 8 assignments
	// THEN: Max spread of one garde between users, equity above 80

	ctx := context.Background()
	dir := newTestDirectory()
	dir.AddService(org.Service{
		ID: "svc-1", SecteurID: "sec-1", Nom: "Radiologie", Code: "RAD", Actif: true,
		MinPersonnel: 2, ShiftModel: org.ShiftJournee,
		Collaborateurs: []org.UserID{"u-a", "u-b", "u-c"},
	})
	gen := newGenerator(dir, store.NewMemory(), unavailabilityMap{}, astreinte.EmptyCalendar{})

	p, conflicts, err := gen.GenerateRoster(ctx, astreinte.ServiceScope("svc-1"), marchFortnight(), astreinte.DefaultGenerationConfig())
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %v", conflicts)
	}
	if len(p.Gardes) != 8 {
		t.Fatalf("expected 8 gardes, got %d", len(p.Gardes))
	}

	counts := p.AssignmentCounts()
	min, max := 1<<30, 0
	for _, c := range counts {
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	if max-min > 1 {
		t.Fatalf("rotation spread exceeds one garde: %v", counts)
	}
	if p.Generation == nil {
		t.Fatal("generation metadata missing")
	}
	if p.Generation.EquityScore < 80 {
		t.Fatalf("equity score: expected > 80, got %f", p.Generation.EquityScore)
	}
	if p.Generation.Algorithm != astreinte.AlgorithmRoundRobin {
		t.Fatalf("unexpected algorithm %q", p.Generation.Algorithm)
	}
}

func TestGenerateRoster_UnderStaffed_RecordsSousCharge(t *testing.T) {
	// GIVEN: A service whose only collaborateur is unavailable on the 7th
	// WHEN: Generating that weekend
	// THEN: A critique sous_charge conflict on the 7th; the 8th is staffed

	ctx := context.Background()
	dir := newTestDirectory()
	dir.AddService(org.Service{
		ID: "svc-solo", SecteurID: "sec-1", Nom: "Solo", Code: "SOL", Actif: true,
		MinPersonnel: 1, ShiftModel: org.ShiftJournee,
		Collaborateurs: []org.UserID{"u-z"},
	})
	dir.AddUser(org.User{ID: "u-z", Nom: "Zahidi", Role: org.RoleCollaborateur, Actif: true, SiteID: "site-1", ServiceID: svcID("svc-solo")})

	dispos := unavailabilityMap{}
	dispos.block("u-z", date(2026, time.March, 7))
	gen := newGenerator(dir, store.NewMemory(), dispos, astreinte.EmptyCalendar{})

	weekend := astreinte.Period{Debut: date(2026, time.March, 7), Fin: date(2026, time.March, 8)}
	p, conflicts, err := gen.GenerateRoster(ctx, astreinte.ServiceScope("svc-solo"), weekend, astreinte.DefaultGenerationConfig())
	if err != nil {
		t.Fatalf("an empty slot must not abort generation: %v", err)
	}

	if len(p.Gardes) != 1 || p.Gardes[0].Date.String() != "2026-03-08" {
		t.Fatalf("expected a single garde on the 8th, got %+v", p.Gardes)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected one conflict, got %v", conflicts)
	}
	c := conflicts[0]
	if c.Type != astreinte.ConflictSousCharge {
		t.Fatalf("expected sous_charge, got %s", c.Type)
	}
	if c.Date.String() != "2026-03-07" {
		t.Fatalf("conflict on wrong date: %s", c.Date)
	}
	if c.Severity != astreinte.SeverityCritique {
		t.Fatalf("zero coverage should be critique, got %s", c.Severity)
	}
}

func TestGenerateRoster_SecteurRotatesIngenieurs(t *testing.T) {
	// GIVEN: A secteur scope with two ingenieurs
	// WHEN: Generating a fortnight
	// THEN: Only ingenieurs are assigned, alternating

	ctx := context.Background()
	gen := newGenerator(newTestDirectory(), store.NewMemory(), unavailabilityMap{}, astreinte.EmptyCalendar{})

	p, conflicts, err := gen.GenerateRoster(ctx, astreinte.SecteurScope("sec-1"), marchFortnight(), astreinte.DefaultGenerationConfig())
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %v", conflicts)
	}
	if len(p.Gardes) != 4 {
		t.Fatalf("expected 4 gardes, got %d", len(p.Gardes))
	}
	counts := p.AssignmentCounts()
	if counts["u-ing1"] != 2 || counts["u-ing2"] != 2 {
		t.Fatalf("ingenieurs should alternate evenly, got %v", counts)
	}
}

func TestGenerateRoster_BalancesAgainstPublishedHistory(t *testing.T) {
	// GIVEN: A published past roster where u-a already served twice
	// WHEN: Generating the next fortnight with load balancing on
	// THEN: u-a ends with fewer new gardes than the others

	ctx := context.Background()
	mem := store.NewMemory()
	scope := astreinte.ServiceScope("svc-1")

	past := &astreinte.Planning{
		ID:     "plan-past",
		Scope:  scope,
		Period: astreinte.Period{Debut: date(2026, time.February, 7), Fin: date(2026, time.February, 8)},
		Status: astreinte.PlanningPublie,
		Gardes: []astreinte.Garde{
			{ID: "g-1", Date: date(2026, time.February, 7), Creneau: astreinte.CreneauJournee, UserID: "u-a", Type: astreinte.GardeWeekend, Status: astreinte.GardeConfirme},
			{ID: "g-2", Date: date(2026, time.February, 8), Creneau: astreinte.CreneauJournee, UserID: "u-a", Type: astreinte.GardeWeekend, Status: astreinte.GardeConfirme},
		},
	}
	if err := mem.SavePlanning(ctx, past); err != nil {
		t.Fatalf("seed planning: %v", err)
	}

	gen := newGenerator(newTestDirectory(), mem, unavailabilityMap{}, astreinte.EmptyCalendar{})
	p, _, err := gen.GenerateRoster(ctx, scope, marchFortnight(), astreinte.DefaultGenerationConfig())
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	counts := p.AssignmentCounts()
	if counts["u-a"] >= counts["u-b"] || counts["u-a"] >= counts["u-c"] {
		t.Fatalf("u-a carries history and should get fewer new gardes: %v", counts)
	}
}

func TestGenerateRoster_InvalidScope(t *testing.T) {
	ctx := context.Background()
	gen := newGenerator(newTestDirectory(), store.NewMemory(), unavailabilityMap{}, astreinte.EmptyCalendar{})

	_, _, err := gen.GenerateRoster(ctx, astreinte.Scope{}, marchFortnight(), astreinte.DefaultGenerationConfig())
	if !astreinte.IsClientError(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}
