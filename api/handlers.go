/*
handlers.go - HTTP API handlers for the on-call planning system

PURPOSE:
  Exposes the planning engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Plannings:
    POST   /api/plannings                      Create empty draft
    POST   /api/plannings/generate             Generate a roster
    GET    /api/plannings                      List plannings
    GET    /api/plannings/{id}                 Get a planning
    GET    /api/plannings/{id}/conflits        Conflict report
    GET    /api/plannings/{id}/equite          Workload statistics
    POST   /api/plannings/{id}/soumettre       brouillon -> soumis
    POST   /api/plannings/{id}/approuver       soumis -> approuve
    POST   /api/plannings/{id}/rejeter         soumis -> rejete
    POST   /api/plannings/{id}/publier         approuve -> publie
    POST   /api/plannings/{id}/reediter        rejete -> brouillon
    POST   /api/plannings/{id}/resoudre-conflits  Refill under-staffed slots

  Gardes:
    POST   /api/plannings/{id}/gardes                       Add garde
    DELETE /api/plannings/{id}/gardes/{gardeId}             Delete garde
    POST   /api/plannings/{id}/gardes/{gardeId}/remplacer   Replace assignee
    POST   /api/plannings/{id}/gardes/{gardeId}/confirmer   Confirm
    POST   /api/plannings/{id}/gardes/{gardeId}/absent      Mark absent

  Indisponibilites:
    POST   /api/indisponibilites               Declare
    GET    /api/indisponibilites               List visible declarations
    GET    /api/indisponibilites/{id}          Get
    PUT    /api/indisponibilites/{id}          Amend (owner, pending only)
    POST   /api/indisponibilites/{id}/approuver
    POST   /api/indisponibilites/{id}/refuser
    POST   /api/indisponibilites/{id}/annuler

  Jours feries:
    GET    /api/jours-feries                   List
    POST   /api/jours-feries                   Create/update
    DELETE /api/jours-feries/{id}              Delete

AUTHENTICATION:
  The acting user is taken from the X-User-ID header and resolved
  through the directory. There is no credential check here; identity
  verification belongs to the gateway in front of this service.

ERROR HANDLING:
  Domain errors map to HTTP status through the classification helpers:
  - 400: Validation errors, invalid input
  - 401: Missing or unknown actor
  - 403: Authority check failed
  - 404: Entity not found
  - 409: Garde conflict, concurrent modification
  - 422: Workflow transition or staffing rule rejected
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - astreinte/errors.go: Error classification
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/astreinte"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/indispo"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Workflow  *astreinte.Workflow
	Detector  *astreinte.Detector
	Registry  *indispo.Registry
	Directory org.Directory
	Holidays  astreinte.HolidayStore
	Log       *logrus.Logger

	// Seed enables the /api/scenarios endpoints when set. Leave nil in
	// production deployments.
	Seed Seeder
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(wf *astreinte.Workflow, det *astreinte.Detector, reg *indispo.Registry, dir org.Directory, hol astreinte.HolidayStore, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Workflow:  wf,
		Detector:  det,
		Registry:  reg,
		Directory: dir,
		Holidays:  hol,
		Log:       log,
	}
}

// actor resolves the acting user from the X-User-ID header.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (org.User, bool) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		writeError(w, http.StatusUnauthorized, "Missing X-User-ID header", nil)
		return org.User{}, false
	}
	u, err := h.Directory.GetUser(r.Context(), org.UserID(id))
	if err != nil {
		h.writeDomainError(w, "Failed to resolve user", err)
		return org.User{}, false
	}
	if u == nil || !u.Actif {
		writeError(w, http.StatusUnauthorized, "Unknown or inactive user", nil)
		return org.User{}, false
	}
	return *u, true
}

// =============================================================================
// PLANNING HANDLERS
// =============================================================================

// CreatePlanning creates an empty draft.
func (h *Handler) CreatePlanning(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req CreatePlanningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	period, ok := parsePeriod(w, req.Debut, req.Fin)
	if !ok {
		return
	}

	p, err := h.Workflow.CreateDraft(r.Context(), actor, req.Scope.toScope(), period)
	if err != nil {
		h.writeDomainError(w, "Failed to create planning", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanningDTO(p))
}

// GeneratePlanning runs the scheduler and returns the draft with its
// conflict report.
func (h *Handler) GeneratePlanning(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req GeneratePlanningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	period, ok := parsePeriod(w, req.Debut, req.Fin)
	if !ok {
		return
	}

	p, conflicts, err := h.Workflow.Generate(r.Context(), actor, req.Scope.toScope(), period, req.Config.toConfig())
	if err != nil {
		h.writeDomainError(w, "Failed to generate planning", err)
		return
	}
	writeJSON(w, http.StatusCreated, PlanningWithConflictsDTO{
		Planning:  toPlanningDTO(p),
		Conflicts: toConflictDTOs(conflicts),
	})
}

// ListPlannings returns plannings matching the optional statut filter.
func (h *Handler) ListPlannings(w http.ResponseWriter, r *http.Request) {
	var filter astreinte.PlanningFilter
	if v := r.URL.Query().Get("statut"); v != "" {
		status := astreinte.PlanningStatus(v)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "Unknown statut", nil)
			return
		}
		filter.Status = &status
	}
	if v := r.URL.Query().Get("service_id"); v != "" {
		scope := astreinte.ServiceScope(org.ServiceID(v))
		filter.Scope = &scope
	} else if v := r.URL.Query().Get("secteur_id"); v != "" {
		scope := astreinte.SecteurScope(org.SecteurID(v))
		filter.Scope = &scope
	}

	plannings, err := h.Workflow.Plannings.ListPlannings(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, "Failed to list plannings", err)
		return
	}

	dtos := make([]PlanningDTO, len(plannings))
	for i, p := range plannings {
		dtos[i] = toPlanningDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPlanning returns a single planning.
func (h *Handler) GetPlanning(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPlanning(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toPlanningDTO(p))
}

// GetConflicts returns the conflict report of a planning.
func (h *Handler) GetConflicts(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPlanning(w, r)
	if !ok {
		return
	}
	conflicts, err := h.Detector.DetectConflicts(r.Context(), p)
	if err != nil {
		h.writeDomainError(w, "Failed to detect conflicts", err)
		return
	}
	writeJSON(w, http.StatusOK, toConflictDTOs(conflicts))
}

// GetEquity returns the workload distribution of a planning.
func (h *Handler) GetEquity(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPlanning(w, r)
	if !ok {
		return
	}

	stats := astreinte.ComputeWorkloadStats(p.AssignmentCounts())
	counts := make(map[string]int, len(stats.Counts))
	for uid, n := range stats.Counts {
		counts[string(uid)] = n
	}
	writeJSON(w, http.StatusOK, EquityDTO{
		Counts:      counts,
		Total:       stats.Total,
		Mean:        stats.Mean.StringFixed(4),
		StdDev:      stats.StdDev.StringFixed(4),
		EquityScore: stats.EquityScore(),
	})
}

func (h *Handler) loadPlanning(w http.ResponseWriter, r *http.Request) (*astreinte.Planning, bool) {
	id := astreinte.PlanningID(chi.URLParam(r, "id"))
	p, err := h.Workflow.Plannings.GetPlanning(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get planning", err)
		return nil, false
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Planning not found", nil)
		return nil, false
	}
	return p, true
}

// =============================================================================
// WORKFLOW TRANSITION HANDLERS
// =============================================================================

// SubmitPlanning moves brouillon -> soumis.
func (h *Handler) SubmitPlanning(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Workflow.Submit, "Failed to submit planning")
}

// ApprovePlanning moves soumis -> approuve.
func (h *Handler) ApprovePlanning(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Workflow.Approve, "Failed to approve planning")
}

// RejectPlanning moves soumis -> rejete with a mandatory reason.
func (h *Handler) RejectPlanning(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id := astreinte.PlanningID(chi.URLParam(r, "id"))
	p, err := h.Workflow.Reject(r.Context(), actor, id, req.Reason)
	if err != nil {
		h.writeDomainError(w, "Failed to reject planning", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanningDTO(p))
}

// PublishPlanning moves approuve -> publie.
func (h *Handler) PublishPlanning(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Workflow.Publish, "Failed to publish planning")
}

// ReeditPlanning moves rejete -> brouillon.
func (h *Handler) ReeditPlanning(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Workflow.Reedit, "Failed to re-edit planning")
}

type transitionFunc func(ctx context.Context, actor org.User, id astreinte.PlanningID) (*astreinte.Planning, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op transitionFunc, msg string) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id := astreinte.PlanningID(chi.URLParam(r, "id"))
	p, err := op(r.Context(), actor, id)
	if err != nil {
		h.writeDomainError(w, msg, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanningDTO(p))
}

// ResolveConflicts refills under-staffed slots of a mutable planning.
func (h *Handler) ResolveConflicts(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id := astreinte.PlanningID(chi.URLParam(r, "id"))
	p, conflicts, err := h.Workflow.ResoudreConflits(r.Context(), actor, id)
	if err != nil {
		h.writeDomainError(w, "Failed to resolve conflicts", err)
		return
	}
	writeJSON(w, http.StatusOK, PlanningWithConflictsDTO{
		Planning:  toPlanningDTO(p),
		Conflicts: toConflictDTOs(conflicts),
	})
}

// =============================================================================
// GARDE HANDLERS
// =============================================================================

// AddGarde appends a manual garde to a mutable planning.
func (h *Handler) AddGarde(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req AddGardeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := astreinte.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	id := astreinte.PlanningID(chi.URLParam(r, "id"))
	p, err := h.Workflow.AddGarde(r.Context(), actor, id, date,
		astreinte.Creneau(req.Creneau), req.Slot, org.UserID(req.UserID))
	if err != nil {
		h.writeDomainError(w, "Failed to add garde", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanningDTO(p))
}

// DeleteGarde removes a garde from a mutable planning.
func (h *Handler) DeleteGarde(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id := astreinte.PlanningID(chi.URLParam(r, "id"))
	gardeID := astreinte.GardeID(chi.URLParam(r, "gardeId"))
	p, err := h.Workflow.DeleteGarde(r.Context(), actor, id, gardeID)
	if err != nil {
		h.writeDomainError(w, "Failed to delete garde", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanningDTO(p))
}

// ReplaceGarde swaps the assignee of a garde, preserving the audit trail.
func (h *Handler) ReplaceGarde(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req ReplaceGardeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id := astreinte.PlanningID(chi.URLParam(r, "id"))
	gardeID := astreinte.GardeID(chi.URLParam(r, "gardeId"))
	p, err := h.Workflow.ReplaceGarde(r.Context(), actor, id, gardeID, org.UserID(req.NewUserID))
	if err != nil {
		h.writeDomainError(w, "Failed to replace garde", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanningDTO(p))
}

// ConfirmGarde acknowledges an upcoming guard.
func (h *Handler) ConfirmGarde(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id := astreinte.PlanningID(chi.URLParam(r, "id"))
	gardeID := astreinte.GardeID(chi.URLParam(r, "gardeId"))
	p, err := h.Workflow.ConfirmGarde(r.Context(), actor, id, gardeID)
	if err != nil {
		h.writeDomainError(w, "Failed to confirm garde", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanningDTO(p))
}

// MarkGardeAbsent records a no-show.
func (h *Handler) MarkGardeAbsent(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id := astreinte.PlanningID(chi.URLParam(r, "id"))
	gardeID := astreinte.GardeID(chi.URLParam(r, "gardeId"))
	p, err := h.Workflow.MarkAbsent(r.Context(), actor, id, gardeID)
	if err != nil {
		h.writeDomainError(w, "Failed to mark garde absent", err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanningDTO(p))
}

// =============================================================================
// INDISPONIBILITE HANDLERS
// =============================================================================

// CreateIndispo declares an unavailability period for the actor.
func (h *Handler) CreateIndispo(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req CreateIndispoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	period, ok := parsePeriod(w, req.Debut, req.Fin)
	if !ok {
		return
	}

	ind, err := h.Registry.Create(r.Context(), actor, period,
		indispo.Motif(req.Motif), req.Description, indispo.Priorite(req.Priorite))
	if err != nil {
		h.writeDomainError(w, "Failed to create indisponibilite", err)
		return
	}
	writeJSON(w, http.StatusCreated, toIndispoDTO(ind))
}

// ListIndispos returns the declarations visible to the actor.
func (h *Handler) ListIndispos(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var filter indispo.Filter
	if v := r.URL.Query().Get("user_id"); v != "" {
		uid := org.UserID(v)
		filter.UserID = &uid
	}
	if v := r.URL.Query().Get("statut"); v != "" {
		status := indispo.Status(v)
		filter.Status = &status
	}

	inds, err := h.Registry.List(r.Context(), actor, filter)
	if err != nil {
		h.writeDomainError(w, "Failed to list indisponibilites", err)
		return
	}

	dtos := make([]IndispoDTO, len(inds))
	for i, ind := range inds {
		dtos[i] = toIndispoDTO(ind)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetIndispo returns a single declaration.
func (h *Handler) GetIndispo(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id := indispo.IndispoID(chi.URLParam(r, "id"))
	ind, err := h.Registry.Get(r.Context(), actor, id)
	if err != nil {
		h.writeDomainError(w, "Failed to get indisponibilite", err)
		return
	}
	writeJSON(w, http.StatusOK, toIndispoDTO(ind))
}

// UpdateIndispo amends a pending declaration.
func (h *Handler) UpdateIndispo(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req CreateIndispoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	period, ok := parsePeriod(w, req.Debut, req.Fin)
	if !ok {
		return
	}

	id := indispo.IndispoID(chi.URLParam(r, "id"))
	ind, err := h.Registry.Update(r.Context(), actor, id, period,
		indispo.Motif(req.Motif), req.Description, indispo.Priorite(req.Priorite))
	if err != nil {
		h.writeDomainError(w, "Failed to update indisponibilite", err)
		return
	}
	writeJSON(w, http.StatusOK, toIndispoDTO(ind))
}

// ApproveIndispo accepts a pending declaration.
func (h *Handler) ApproveIndispo(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id := indispo.IndispoID(chi.URLParam(r, "id"))
	ind, err := h.Registry.Approve(r.Context(), actor, id)
	if err != nil {
		h.writeDomainError(w, "Failed to approve indisponibilite", err)
		return
	}
	writeJSON(w, http.StatusOK, toIndispoDTO(ind))
}

// RefuseIndispo declines a pending declaration with a mandatory reason.
func (h *Handler) RefuseIndispo(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req RefuseIndispoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id := indispo.IndispoID(chi.URLParam(r, "id"))
	ind, err := h.Registry.Refuse(r.Context(), actor, id, req.Reason)
	if err != nil {
		h.writeDomainError(w, "Failed to refuse indisponibilite", err)
		return
	}
	writeJSON(w, http.StatusOK, toIndispoDTO(ind))
}

// CancelIndispo withdraws a declaration.
func (h *Handler) CancelIndispo(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id := indispo.IndispoID(chi.URLParam(r, "id"))
	ind, err := h.Registry.Annule(r.Context(), actor, id)
	if err != nil {
		h.writeDomainError(w, "Failed to cancel indisponibilite", err)
		return
	}
	writeJSON(w, http.StatusOK, toIndispoDTO(ind))
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns all holidays.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Holidays.ListHolidays(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list holidays", err)
		return
	}
	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = toHolidayDTO(hol)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday creates or updates a holiday. Admin only.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if actor.Role != org.RoleAdmin {
		writeError(w, http.StatusForbidden, "Only an admin may manage holidays", nil)
		return
	}

	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := astreinte.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	hol := astreinte.Holiday{
		ID:    req.ID,
		Date:  date,
		Nom:   req.Nom,
		Type:  astreinte.HolidayType(req.Type),
		Actif: true,
	}
	if hol.ID == "" {
		hol.ID = "ferie-" + req.Date + "-" + req.Nom
	}
	if req.Actif != nil {
		hol.Actif = *req.Actif
	}

	if err := h.Holidays.SaveHoliday(r.Context(), hol); err != nil {
		h.writeDomainError(w, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(hol))
}

// DeleteHoliday removes a holiday. Admin only.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if actor.Role != org.RoleAdmin {
		writeError(w, http.StatusForbidden, "Only an admin may manage holidays", nil)
		return
	}

	if err := h.Holidays.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, "Failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func parsePeriod(w http.ResponseWriter, debut, fin string) (astreinte.Period, bool) {
	d, err := astreinte.ParseDate(debut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid debut format (use YYYY-MM-DD)", err)
		return astreinte.Period{}, false
	}
	f, err := astreinte.ParseDate(fin)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid fin format (use YYYY-MM-DD)", err)
		return astreinte.Period{}, false
	}
	return astreinte.Period{Debut: d, Fin: f}, true
}

// writeDomainError maps a domain error to an HTTP status.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case astreinte.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case astreinte.IsForbidden(err):
		writeError(w, http.StatusForbidden, message, err)
	case astreinte.IsRetryable(err):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, astreinte.ErrGardeConflict):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, astreinte.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case errors.Is(err, astreinte.ErrInsufficientStaffing):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case astreinte.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Log.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
