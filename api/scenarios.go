/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates the organizational
	topology (site, secteurs, services, users), the holiday calendar, and
	optionally unavailability declarations that demonstrate specific
	behaviors of the planner.

AVAILABLE SCENARIOS:

	hopital-central:  One site, two secteurs, three services with rosters
	                  sized to show rotation fairness and the minimum
	                  staffing rules
	penurie:          A deliberately thin service roster plus approved
	                  unavailability, producing sous_charge conflicts

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create topology: site -> secteurs -> services
 3. Create users with roles and scope assignments
 4. Load the public-holiday calendar
 5. Optionally add approved indisponibilites

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "hopital-central"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: writeJSON/writeError helpers
  - store/sqlite/sqlite.go: the store the loaders write through
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/astreinte"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/indispo"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "hopital-central",
		Name:        "Hopital Central",
		Description: "One site, two secteurs, three services with full rosters",
	},
	{
		ID:          "penurie",
		Name:        "Penurie de personnel",
		Description: "Thin roster plus approved unavailability, yields sous_charge",
	},
}

// Seeder is the write surface scenarios need. Satisfied by *sqlite.Store.
type Seeder interface {
	Reset(ctx context.Context) error
	SaveSite(ctx context.Context, s org.Site) error
	SaveSecteur(ctx context.Context, s org.Secteur) error
	SaveService(ctx context.Context, s org.Service) error
	SaveUser(ctx context.Context, u org.User) error
	SaveHoliday(ctx context.Context, h astreinte.Holiday) error
	Save(ctx context.Context, i *indispo.Indisponibilite) error
}

var _ Seeder = (*sqlite.Store)(nil)

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the database and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Seed == nil {
		writeError(w, http.StatusServiceUnavailable, "Scenario loading is not enabled", nil)
		return
	}

	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.Seed.Reset(ctx); err != nil {
		h.writeDomainError(w, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "hopital-central":
		err = loadHopitalCentral(ctx, h.Seed)
	case "penurie":
		err = loadPenurie(ctx, h.Seed)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario %q", req.ScenarioID), nil)
		return
	}
	if err != nil {
		h.writeDomainError(w, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ScenarioID})
}

// =============================================================================
// LOADERS
// =============================================================================

func loadHopitalCentral(ctx context.Context, s Seeder) error {
	if err := s.SaveSite(ctx, org.Site{ID: "site-central", Nom: "Hopital Central", Code: "HC", Actif: true}); err != nil {
		return err
	}

	secteurs := []org.Secteur{
		{ID: "secteur-medical", SiteID: "site-central", Nom: "Secteur Medical", Code: "MED", Actif: true},
		{ID: "secteur-technique", SiteID: "site-central", Nom: "Secteur Technique", Code: "TEC", Actif: true},
	}
	for _, sec := range secteurs {
		if err := s.SaveSecteur(ctx, sec); err != nil {
			return err
		}
	}

	services := []org.Service{
		{
			ID: "svc-radiologie", SecteurID: "secteur-medical",
			Nom: "Radiologie", Code: "RAD", Actif: true,
			MinPersonnel: 1, ShiftModel: org.ShiftJourNuit,
			Collaborateurs: []org.UserID{"u-alami", "u-bennani", "u-chraibi", "u-drissi"},
		},
		{
			ID: "svc-urgences", SecteurID: "secteur-medical",
			Nom: "Urgences", Code: "URG", Actif: true,
			MinPersonnel: 2, ShiftModel: org.ShiftJournee,
			Collaborateurs: []org.UserID{"u-elfassi", "u-fahim", "u-ghali", "u-haddad", "u-idrissi"},
		},
		{
			ID: "svc-biomedical", SecteurID: "secteur-technique",
			Nom: "Maintenance Biomedicale", Code: "BIO", Actif: true,
			MinPersonnel: 1, ShiftModel: org.ShiftJournee,
			Collaborateurs: []org.UserID{"u-jabri", "u-karimi", "u-lahlou"},
		},
	}
	for _, svc := range services {
		if err := s.SaveService(ctx, svc); err != nil {
			return err
		}
	}

	users := demoUsers()
	for _, u := range users {
		if err := s.SaveUser(ctx, u); err != nil {
			return err
		}
	}

	return loadHolidays(ctx, s)
}

func loadPenurie(ctx context.Context, s Seeder) error {
	if err := s.SaveSite(ctx, org.Site{ID: "site-central", Nom: "Hopital Central", Code: "HC", Actif: true}); err != nil {
		return err
	}
	if err := s.SaveSecteur(ctx, org.Secteur{
		ID: "secteur-medical", SiteID: "site-central", Nom: "Secteur Medical", Code: "MED", Actif: true,
	}); err != nil {
		return err
	}
	if err := s.SaveService(ctx, org.Service{
		ID: "svc-reanimation", SecteurID: "secteur-medical",
		Nom: "Reanimation", Code: "REA", Actif: true,
		MinPersonnel: 2, ShiftModel: org.ShiftJournee,
		Collaborateurs: []org.UserID{"u-mansouri", "u-naciri"},
	}); err != nil {
		return err
	}

	svcID := org.ServiceID("svc-reanimation")
	users := []org.User{
		{ID: "u-mansouri", Nom: "Mansouri", Prenom: "Omar", Email: "o.mansouri@hc.ma",
			Role: org.RoleCollaborateur, Actif: true, SiteID: "site-central", ServiceID: &svcID},
		{ID: "u-naciri", Nom: "Naciri", Prenom: "Salma", Email: "s.naciri@hc.ma",
			Role: org.RoleCollaborateur, Actif: true, SiteID: "site-central", ServiceID: &svcID},
		{ID: "u-admin", Nom: "Admin", Prenom: "Systeme", Email: "admin@hc.ma",
			Role: org.RoleAdmin, Actif: true, SiteID: "site-central"},
	}
	for _, u := range users {
		if err := s.SaveUser(ctx, u); err != nil {
			return err
		}
	}

	// One of the two collaborateurs is out for a month: every weekend
	// needs 2 people and only 1 is available.
	now := time.Now().UTC()
	ind := &indispo.Indisponibilite{
		ID:     "ind-penurie-1",
		UserID: "u-naciri",
		Period: astreinte.Period{
			Debut: astreinte.Today(),
			Fin:   astreinte.Today().AddDays(30),
		},
		Motif:     indispo.MotifCongeMaladie,
		Priorite:  indispo.PrioriteUrgente,
		Status:    indispo.StatusApprouve,
		DecidedBy: "u-admin",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Save(ctx, ind); err != nil {
		return err
	}

	return loadHolidays(ctx, s)
}

func demoUsers() []org.User {
	medical := org.SecteurID("secteur-medical")
	technique := org.SecteurID("secteur-technique")
	rad := org.ServiceID("svc-radiologie")
	urg := org.ServiceID("svc-urgences")
	bio := org.ServiceID("svc-biomedical")

	return []org.User{
		{ID: "u-admin", Nom: "Admin", Prenom: "Systeme", Email: "admin@hc.ma",
			Role: org.RoleAdmin, Actif: true, SiteID: "site-central"},

		{ID: "u-tazi", Nom: "Tazi", Prenom: "Rachid", Email: "r.tazi@hc.ma",
			Role: org.RoleChefSecteur, Actif: true, SiteID: "site-central", SecteurID: &medical},
		{ID: "u-ouazzani", Nom: "Ouazzani", Prenom: "Nadia", Email: "n.ouazzani@hc.ma",
			Role: org.RoleChefSecteur, Actif: true, SiteID: "site-central", SecteurID: &technique},

		{ID: "u-ing1", Nom: "Berrada", Prenom: "Younes", Email: "y.berrada@hc.ma",
			Role: org.RoleIngenieur, Actif: true, SiteID: "site-central", SecteurID: &medical},
		{ID: "u-ing2", Nom: "Sefrioui", Prenom: "Imane", Email: "i.sefrioui@hc.ma",
			Role: org.RoleIngenieur, Actif: true, SiteID: "site-central", SecteurID: &medical},
		{ID: "u-ing3", Nom: "Ziani", Prenom: "Karim", Email: "k.ziani@hc.ma",
			Role: org.RoleIngenieur, Actif: true, SiteID: "site-central", SecteurID: &technique},

		{ID: "u-chef-rad", Nom: "Alaoui", Prenom: "Samira", Email: "s.alaoui@hc.ma",
			Role: org.RoleChefService, Actif: true, SiteID: "site-central", ServiceID: &rad},
		{ID: "u-alami", Nom: "Alami", Prenom: "Hassan", Email: "h.alami@hc.ma",
			Role: org.RoleCollaborateur, Actif: true, SiteID: "site-central", ServiceID: &rad},
		{ID: "u-bennani", Nom: "Bennani", Prenom: "Fatima", Email: "f.bennani@hc.ma",
			Role: org.RoleCollaborateur, Actif: true, SiteID: "site-central", ServiceID: &rad},
		{ID: "u-chraibi", Nom: "Chraibi", Prenom: "Mehdi", Email: "m.chraibi@hc.ma",
			Role: org.RoleCollaborateur, Actif: true, SiteID: "site-central", ServiceID: &rad},
		{ID: "u-drissi", Nom: "Drissi", Prenom: "Leila", Email: "l.drissi@hc.ma",
			Role: org.RoleCollaborateur, Actif: true, SiteID: "site-central", ServiceID: &rad},

		{ID: "u-chef-urg", Nom: "Tahiri", Prenom: "Adil", Email: "a.tahiri@hc.ma",
			Role: org.RoleChefService, Actif: true, SiteID: "site-central", ServiceID: &urg},
		{ID: "u-elfassi", Nom: "El Fassi", Prenom: "Zineb", Email: "z.elfassi@hc.ma",
			Role: org.RoleCollaborateur, Actif: true, SiteID: "site-central", ServiceID: &urg},
		{ID: "u-fahim", Nom: "Fahim", Prenom: "Yassine", Email: "y.fahim@hc.ma",
			Role: org.RoleCollaborateur, Actif: true, SiteID: "site-central", ServiceID: &urg},
		{ID: "u-ghali", Nom: "Ghali", Prenom: "Sanae", Email: "s.ghali@hc.ma",
			Role: org.RoleCollaborateur, Actif: true, SiteID: "site-central", ServiceID: &urg},
		{ID: "u-haddad", Nom: "Haddad", Prenom: "Amine", Email: "a.haddad@hc.ma",
			Role: org.RoleCollaborateur, Actif: true, SiteID: "site-central", ServiceID: &urg},
		{ID: "u-idrissi", Nom: "Idrissi", Prenom: "Houda", Email: "h.idrissi@hc.ma",
			Role: org.RoleCollaborateur, Actif: true, SiteID: "site-central", ServiceID: &urg},

		{ID: "u-chef-bio", Nom: "Rhazi", Prenom: "Khalid", Email: "k.rhazi@hc.ma",
			Role: org.RoleChefService, Actif: true, SiteID: "site-central", ServiceID: &bio},
		{ID: "u-jabri", Nom: "Jabri", Prenom: "Meryem", Email: "m.jabri@hc.ma",
			Role: org.RoleCollaborateur, Actif: true, SiteID: "site-central", ServiceID: &bio},
		{ID: "u-karimi", Nom: "Karimi", Prenom: "Said", Email: "s.karimi@hc.ma",
			Role: org.RoleCollaborateur, Actif: true, SiteID: "site-central", ServiceID: &bio},
		{ID: "u-lahlou", Nom: "Lahlou", Prenom: "Ghita", Email: "g.lahlou@hc.ma",
			Role: org.RoleCollaborateur, Actif: true, SiteID: "site-central", ServiceID: &bio},
	}
}

// loadHolidays seeds the Moroccan public-holiday calendar for the current
// year. Islamic holidays move with the lunar calendar and are entered per
// year by an admin; the dates below are indicative.
func loadHolidays(ctx context.Context, s Seeder) error {
	year := time.Now().UTC().Year()

	fixed := []struct {
		month time.Month
		day   int
		nom   string
	}{
		{time.January, 1, "Nouvel An"},
		{time.January, 11, "Manifeste de l'Independance"},
		{time.May, 1, "Fete du Travail"},
		{time.July, 30, "Fete du Trone"},
		{time.August, 14, "Oued Ed-Dahab"},
		{time.August, 20, "Revolution du Roi et du Peuple"},
		{time.August, 21, "Fete de la Jeunesse"},
		{time.November, 6, "Marche Verte"},
		{time.November, 18, "Fete de l'Independance"},
	}
	for _, f := range fixed {
		h := astreinte.Holiday{
			ID:    fmt.Sprintf("ferie-%d-%02d-%02d", year, f.month, f.day),
			Date:  astreinte.NewDate(year, f.month, f.day),
			Nom:   f.nom,
			Type:  astreinte.HolidayFixed,
			Actif: true,
		}
		if err := s.SaveHoliday(ctx, h); err != nil {
			return err
		}
	}
	return nil
}
