/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the domain, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/astreinte"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/indispo"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ScopeDTO identifies a planning target.
type ScopeDTO struct {
	Kind      string `json:"kind"` // "service" or "secteur"
	ServiceID string `json:"service_id,omitempty"`
	SecteurID string `json:"secteur_id,omitempty"`
}

func toScopeDTO(s astreinte.Scope) ScopeDTO {
	return ScopeDTO{
		Kind:      string(s.Kind),
		ServiceID: string(s.ServiceID),
		SecteurID: string(s.SecteurID),
	}
}

func (d ScopeDTO) toScope() astreinte.Scope {
	if d.Kind == string(astreinte.ScopeSecteur) {
		return astreinte.SecteurScope(org.SecteurID(d.SecteurID))
	}
	return astreinte.ServiceScope(org.ServiceID(d.ServiceID))
}

// GardeDTO represents one on-call assignment.
type GardeDTO struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Creneau     string  `json:"creneau"`
	Slot        int     `json:"slot"`
	UserID      string  `json:"user_id"`
	Type        string  `json:"type"`
	Statut      string  `json:"statut"`
	RemplacePar *string `json:"remplace_par,omitempty"`
}

// GenerationDTO records how a roster was produced.
type GenerationDTO struct {
	Algorithm   string  `json:"algorithm"`
	EquityScore float64 `json:"equity_score"`
	GeneratedAt string  `json:"generated_at"`
}

// PlanningDTO represents a roster in API responses.
type PlanningDTO struct {
	ID              string         `json:"id"`
	Scope           ScopeDTO       `json:"scope"`
	Debut           string         `json:"debut"`
	Fin             string         `json:"fin"`
	Statut          string         `json:"statut"`
	Gardes          []GardeDTO     `json:"gardes"`
	Generation      *GenerationDTO `json:"generation,omitempty"`
	CreatedBy       string         `json:"created_by"`
	SubmittedBy     string         `json:"submitted_by,omitempty"`
	ApprovedBy      string         `json:"approved_by,omitempty"`
	RejectedBy      string         `json:"rejected_by,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	PublishedBy     string         `json:"published_by,omitempty"`
	Version         int            `json:"version"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

// ConflictDTO represents a detected roster problem.
type ConflictDTO struct {
	Type       string   `json:"type"`
	UserIDs    []string `json:"user_ids,omitempty"`
	Date       string   `json:"date"`
	Creneau    string   `json:"creneau,omitempty"`
	Severite   string   `json:"severite"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// PlanningWithConflictsDTO bundles a roster with its conflict report.
type PlanningWithConflictsDTO struct {
	Planning  PlanningDTO   `json:"planning"`
	Conflicts []ConflictDTO `json:"conflicts"`
}

// EquityDTO summarizes workload distribution over a planning.
type EquityDTO struct {
	Counts      map[string]int `json:"counts"`
	Total       int            `json:"total"`
	Mean        string         `json:"mean"`
	StdDev      string         `json:"std_dev"`
	EquityScore float64        `json:"equity_score"`
}

// CreatePlanningRequest creates an empty draft.
type CreatePlanningRequest struct {
	Scope ScopeDTO `json:"scope"`
	Debut string   `json:"debut"`
	Fin   string   `json:"fin"`
}

// GeneratePlanningRequest runs the scheduler.
type GeneratePlanningRequest struct {
	Scope  ScopeDTO      `json:"scope"`
	Debut  string        `json:"debut"`
	Fin    string        `json:"fin"`
	Config *GenConfigDTO `json:"config,omitempty"`
}

// GenConfigDTO mirrors astreinte.GenerationConfig. Fields are pointers
// so an omitted flag keeps its default instead of the JSON zero value.
type GenConfigDTO struct {
	RespecterIndisponibilites *bool `json:"respecter_indisponibilites,omitempty"`
	EquilibrerCharge          *bool `json:"equilibrer_charge,omitempty"`
	InclureChefService        *bool `json:"inclure_chef_service,omitempty"`
	PrioriteAnciennete        *bool `json:"priorite_anciennete,omitempty"`
}

// toConfig overlays the request's explicit flags on the defaults.
func (c *GenConfigDTO) toConfig() astreinte.GenerationConfig {
	cfg := astreinte.DefaultGenerationConfig()
	if c == nil {
		return cfg
	}
	if c.RespecterIndisponibilites != nil {
		cfg.RespecterIndisponibilites = *c.RespecterIndisponibilites
	}
	if c.EquilibrerCharge != nil {
		cfg.EquilibrerCharge = *c.EquilibrerCharge
	}
	if c.InclureChefService != nil {
		cfg.InclureChefService = *c.InclureChefService
	}
	if c.PrioriteAnciennete != nil {
		cfg.PrioriteAnciennete = *c.PrioriteAnciennete
	}
	return cfg
}

// RejectRequest carries the mandatory rejection reason.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// AddGardeRequest appends a manual garde.
type AddGardeRequest struct {
	Date    string `json:"date"`
	Creneau string `json:"creneau"`
	Slot    int    `json:"slot"`
	UserID  string `json:"user_id"`
}

// ReplaceGardeRequest swaps the assignee of a garde.
type ReplaceGardeRequest struct {
	NewUserID string `json:"new_user_id"`
}

// IndispoDTO represents an unavailability declaration.
type IndispoDTO struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	Debut         string `json:"debut"`
	Fin           string `json:"fin"`
	Motif         string `json:"motif"`
	Description   string `json:"description,omitempty"`
	Priorite      string `json:"priorite"`
	Statut        string `json:"statut"`
	DecidedBy     string `json:"decided_by,omitempty"`
	RefusalReason string `json:"refusal_reason,omitempty"`
	Version       int    `json:"version"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// CreateIndispoRequest declares an unavailability period.
type CreateIndispoRequest struct {
	Debut       string `json:"debut"`
	Fin         string `json:"fin"`
	Motif       string `json:"motif"`
	Description string `json:"description,omitempty"`
	Priorite    string `json:"priorite,omitempty"`
}

// RefuseIndispoRequest carries the mandatory refusal reason.
type RefuseIndispoRequest struct {
	Reason string `json:"reason"`
}

// HolidayDTO represents a public holiday.
type HolidayDTO struct {
	ID    string `json:"id"`
	Date  string `json:"date"`
	Nom   string `json:"nom"`
	Type  string `json:"type"`
	Actif bool   `json:"actif"`
}

// CreateHolidayRequest creates or updates a holiday.
type CreateHolidayRequest struct {
	ID    string `json:"id,omitempty"`
	Date  string `json:"date"`
	Nom   string `json:"nom"`
	Type  string `json:"type"`
	Actif *bool  `json:"actif,omitempty"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toPlanningDTO(p *astreinte.Planning) PlanningDTO {
	gardes := make([]GardeDTO, len(p.Gardes))
	for i, g := range p.Gardes {
		gardes[i] = GardeDTO{
			ID:      string(g.ID),
			Date:    g.Date.String(),
			Creneau: string(g.Creneau),
			Slot:    g.Slot,
			UserID:  string(g.UserID),
			Type:    string(g.Type),
			Statut:  string(g.Status),
		}
		if g.RemplacePar != nil {
			v := string(*g.RemplacePar)
			gardes[i].RemplacePar = &v
		}
	}

	dto := PlanningDTO{
		ID:              string(p.ID),
		Scope:           toScopeDTO(p.Scope),
		Debut:           p.Period.Debut.String(),
		Fin:             p.Period.Fin.String(),
		Statut:          string(p.Status),
		Gardes:          gardes,
		CreatedBy:       string(p.CreatedBy),
		SubmittedBy:     string(p.SubmittedBy),
		ApprovedBy:      string(p.ApprovedBy),
		RejectedBy:      string(p.RejectedBy),
		RejectionReason: p.RejectionReason,
		PublishedBy:     string(p.PublishedBy),
		Version:         p.Version,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       p.UpdatedAt.Format(time.RFC3339),
	}
	if p.Generation != nil {
		dto.Generation = &GenerationDTO{
			Algorithm:   p.Generation.Algorithm,
			EquityScore: p.Generation.EquityScore,
			GeneratedAt: p.Generation.GeneratedAt.Format(time.RFC3339),
		}
	}
	return dto
}

func toConflictDTOs(conflicts []astreinte.Conflict) []ConflictDTO {
	dtos := make([]ConflictDTO, len(conflicts))
	for i, c := range conflicts {
		users := make([]string, len(c.UserIDs))
		for j, u := range c.UserIDs {
			users[j] = string(u)
		}
		dtos[i] = ConflictDTO{
			Type:       string(c.Type),
			UserIDs:    users,
			Date:       c.Date.String(),
			Creneau:    string(c.Creneau),
			Severite:   string(c.Severity),
			Suggestion: c.Suggestion,
		}
	}
	return dtos
}

func toIndispoDTO(i *indispo.Indisponibilite) IndispoDTO {
	return IndispoDTO{
		ID:            string(i.ID),
		UserID:        string(i.UserID),
		Debut:         i.Period.Debut.String(),
		Fin:           i.Period.Fin.String(),
		Motif:         string(i.Motif),
		Description:   i.Description,
		Priorite:      string(i.Priorite),
		Statut:        string(i.Status),
		DecidedBy:     string(i.DecidedBy),
		RefusalReason: i.RefusalReason,
		Version:       i.Version,
		CreatedAt:     i.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     i.UpdatedAt.Format(time.RFC3339),
	}
}

func toHolidayDTO(h astreinte.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:    h.ID,
		Date:  h.Date.String(),
		Nom:   h.Nom,
		Type:  string(h.Type),
		Actif: h.Actif,
	}
}
