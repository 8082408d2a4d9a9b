/*
workflow.go - Planning lifecycle and garde mutation operations

PURPOSE:
  Governs how a roster moves from draft to published and who may touch it:

    brouillon ──▶ soumis ──▶ approuve ──▶ publie
        ▲                │
        └─── (re-edit) ──┴─▶ rejete

  publie and rejete are terminal, except rejete may return to brouillon
  through an explicit re-edit. After publication, individual gardes can
  only change through the replacement operation, which preserves the
  audit trail instead of deleting history.

AUTHORITY MODEL:
  Every guard runs through the single role-rank lookup (org.Rank) plus a
  scope-authority check: a chef_service rules their service, a
  chef_secteur rules their secteur (including its services), an admin
  rules everything. Approvals additionally require strictly higher rank
  than the submitter.

ATOMICITY:
  Each operation loads the planning, mutates a copy, and writes it back
  under an optimistic version check. An invalid transition or missing
  authority fails before any write; a version race fails with
  ErrConcurrentModification and no mutation.

SEE ALSO:
  - scheduler.go: draft generation feeding CreateFromGeneration
  - conflict.go: validation invoked after generation and on demand
*/
package astreinte

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// Workflow orchestrates the planning lifecycle.
type Workflow struct {
	Plannings PlanningStore
	Directory org.Directory
	Generator *Generator
	Detector  *Detector

	NewID func() string
	Now   func() time.Time
}

func (w *Workflow) newID() string {
	if w.NewID != nil {
		return w.NewID()
	}
	return uuid.NewString()
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now().UTC()
}

// =============================================================================
// AUTHORITY GUARDS
// =============================================================================

// scopeAuthority reports whether the actor's role reaches into the scope.
func (w *Workflow) scopeAuthority(ctx context.Context, actor org.User, scope Scope) (bool, error) {
	switch actor.Role {
	case org.RoleAdmin:
		return true, nil

	case org.RoleChefSecteur:
		if actor.SecteurID == nil {
			return false, nil
		}
		if scope.Kind == ScopeSecteur {
			return scope.SecteurID == *actor.SecteurID, nil
		}
		svc, err := w.Directory.GetService(ctx, scope.ServiceID)
		if err != nil {
			return false, err
		}
		return svc != nil && svc.SecteurID == *actor.SecteurID, nil

	case org.RoleChefService:
		return scope.Kind == ScopeService && actor.InService(scope.ServiceID), nil

	default:
		return false, nil
	}
}

func (w *Workflow) requireScopeAuthority(ctx context.Context, actor org.User, scope Scope, action string) error {
	ok, err := w.scopeAuthority(ctx, actor, scope)
	if err != nil {
		return err
	}
	if !ok {
		return &ForbiddenError{Actor: string(actor.ID), Action: action,
			Reason: fmt.Sprintf("no authority over %s", scope)}
	}
	return nil
}

func (w *Workflow) userRank(ctx context.Context, id org.UserID) (int, error) {
	if id == "" {
		return 0, nil
	}
	u, err := w.Directory.GetUser(ctx, id)
	if err != nil {
		return 0, err
	}
	if u == nil {
		return 0, nil
	}
	return org.Rank(u.Role), nil
}

// =============================================================================
// CREATION
// =============================================================================

// CreateDraft creates an empty draft roster the actor will fill manually.
func (w *Workflow) CreateDraft(ctx context.Context, actor org.User, scope Scope, period Period) (*Planning, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}
	if err := w.requireScopeAuthority(ctx, actor, scope, "create planning"); err != nil {
		return nil, err
	}

	now := w.now()
	p := &Planning{
		ID:        PlanningID(w.newID()),
		Scope:     scope,
		Period:    period,
		Status:    PlanningBrouillon,
		CreatedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.Plannings.SavePlanning(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Generate runs the fair-rotation scheduler, persists the draft, and
// returns it with the detector's full conflict report. An under-staffed
// roster is still saved: partial rosters are valid and completable.
func (w *Workflow) Generate(ctx context.Context, actor org.User, scope Scope, period Period, cfg GenerationConfig) (*Planning, []Conflict, error) {
	if err := w.requireScopeAuthority(ctx, actor, scope, "generate planning"); err != nil {
		return nil, nil, err
	}

	p, _, err := w.Generator.GenerateRoster(ctx, scope, period, cfg)
	if err != nil {
		return nil, nil, err
	}
	p.CreatedBy = actor.ID

	if err := w.Plannings.SavePlanning(ctx, p); err != nil {
		return nil, nil, err
	}

	conflicts, err := w.Detector.DetectConflicts(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	return p, conflicts, nil
}

// =============================================================================
// LIFECYCLE TRANSITIONS
// =============================================================================

func (w *Workflow) load(ctx context.Context, id PlanningID) (*Planning, error) {
	p, err := w.Plannings.GetPlanning(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("planning %s: %w", id, ErrNotFound)
	}
	return p, nil
}

// Submit moves brouillon -> soumis. Allowed for the creator or anyone with
// at least the creator's authority over the scope.
func (w *Workflow) Submit(ctx context.Context, actor org.User, id PlanningID) (*Planning, error) {
	p, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != PlanningBrouillon {
		return nil, &TransitionError{From: p.Status, Action: "submit"}
	}

	if actor.ID != p.CreatedBy {
		if err := w.requireScopeAuthority(ctx, actor, p.Scope, "submit planning"); err != nil {
			return nil, err
		}
		creatorRank, err := w.userRank(ctx, p.CreatedBy)
		if err != nil {
			return nil, err
		}
		if org.Rank(actor.Role) < creatorRank {
			return nil, &ForbiddenError{Actor: string(actor.ID), Action: "submit planning",
				Reason: "lower authority than the creator"}
		}
	}

	p.Status = PlanningSoumis
	p.SubmittedBy = actor.ID
	p.UpdatedAt = w.now()
	if err := w.Plannings.UpdatePlanning(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Approve moves soumis -> approuve. Requires scope authority and strictly
// higher rank than the submitter.
func (w *Workflow) Approve(ctx context.Context, actor org.User, id PlanningID) (*Planning, error) {
	p, err := w.reviewable(ctx, actor, id, "approve")
	if err != nil {
		return nil, err
	}

	p.Status = PlanningApprouve
	p.ApprovedBy = actor.ID
	p.UpdatedAt = w.now()
	if err := w.Plannings.UpdatePlanning(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Reject moves soumis -> rejete. A reason is mandatory.
func (w *Workflow) Reject(ctx context.Context, actor org.User, id PlanningID, reason string) (*Planning, error) {
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Message: "rejection requires a reason"}
	}
	p, err := w.reviewable(ctx, actor, id, "reject")
	if err != nil {
		return nil, err
	}

	p.Status = PlanningRejete
	p.RejectedBy = actor.ID
	p.RejectionReason = reason
	p.UpdatedAt = w.now()
	if err := w.Plannings.UpdatePlanning(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (w *Workflow) reviewable(ctx context.Context, actor org.User, id PlanningID, action string) (*Planning, error) {
	p, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != PlanningSoumis {
		return nil, &TransitionError{From: p.Status, Action: action}
	}
	if err := w.requireScopeAuthority(ctx, actor, p.Scope, action+" planning"); err != nil {
		return nil, err
	}
	submitterRank, err := w.userRank(ctx, p.SubmittedBy)
	if err != nil {
		return nil, err
	}
	if org.Rank(actor.Role) <= submitterRank {
		return nil, &ForbiddenError{Actor: string(actor.ID), Action: action + " planning",
			Reason: "requires strictly higher authority than the submitter"}
	}
	return p, nil
}

// Publish moves approuve -> publie. Only an admin or the approver may
// publish. After this, garde mutation is restricted to replacement.
func (w *Workflow) Publish(ctx context.Context, actor org.User, id PlanningID) (*Planning, error) {
	p, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != PlanningApprouve {
		return nil, &TransitionError{From: p.Status, Action: "publish"}
	}
	if actor.Role != org.RoleAdmin && actor.ID != p.ApprovedBy {
		return nil, &ForbiddenError{Actor: string(actor.ID), Action: "publish planning",
			Reason: "only an admin or the approver may publish"}
	}

	p.Status = PlanningPublie
	p.PublishedBy = actor.ID
	p.UpdatedAt = w.now()
	if err := w.Plannings.UpdatePlanning(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Reedit reopens a rejected planning as a draft for correction.
func (w *Workflow) Reedit(ctx context.Context, actor org.User, id PlanningID) (*Planning, error) {
	p, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != PlanningRejete {
		return nil, &TransitionError{From: p.Status, Action: "re-edit"}
	}
	if actor.ID != p.CreatedBy {
		if err := w.requireScopeAuthority(ctx, actor, p.Scope, "re-edit planning"); err != nil {
			return nil, err
		}
	}

	p.Status = PlanningBrouillon
	p.RejectedBy = ""
	p.RejectionReason = ""
	p.SubmittedBy = ""
	p.UpdatedAt = w.now()
	if err := w.Plannings.UpdatePlanning(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// =============================================================================
// GARDE MUTATIONS
// =============================================================================

// gardeMutable reports whether direct add/delete is allowed in the status.
func gardeMutable(s PlanningStatus) bool {
	return s == PlanningBrouillon || s == PlanningSoumis || s == PlanningRejete
}

// AddGarde appends a manual garde to a mutable planning.
func (w *Workflow) AddGarde(ctx context.Context, actor org.User, id PlanningID, date Date, creneau Creneau, slot int, user org.UserID) (*Planning, error) {
	p, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !gardeMutable(p.Status) {
		return nil, &TransitionError{From: p.Status, Action: "add garde to"}
	}
	if err := w.requireScopeAuthority(ctx, actor, p.Scope, "add garde"); err != nil {
		return nil, err
	}
	if !p.Period.Contains(date) {
		return nil, &ValidationError{Field: "date", Message: "outside the planning period"}
	}
	if err := w.checkAssignable(ctx, p, date, user, ""); err != nil {
		return nil, err
	}

	// The slot must not already be covered.
	for _, g := range p.Gardes {
		if g.Date.Equal(date) && g.Creneau == creneau && g.Slot == slot && g.Status.Covers() {
			return nil, fmt.Errorf("slot %s/%s/%d on %s: %w", creneau, p.Scope, slot, date, ErrGardeConflict)
		}
	}

	now := w.now()
	gardeType := GardeWeekend
	if !date.IsWeekend() {
		gardeType = GardeFerie
	}
	p.Gardes = append(p.Gardes, Garde{
		ID:        GardeID(w.newID()),
		Date:      date,
		Creneau:   creneau,
		Slot:      slot,
		UserID:    user,
		Type:      gardeType,
		Status:    GardePlanifie,
		CreatedAt: now,
		UpdatedAt: now,
	})
	p.UpdatedAt = now
	if err := w.Plannings.UpdatePlanning(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteGarde removes a garde from a mutable planning. Blocked once
// published: use ReplaceGarde to keep the coverage audit trail.
func (w *Workflow) DeleteGarde(ctx context.Context, actor org.User, id PlanningID, gardeID GardeID) (*Planning, error) {
	p, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !gardeMutable(p.Status) {
		return nil, &TransitionError{From: p.Status, Action: "delete garde from"}
	}
	if err := w.requireScopeAuthority(ctx, actor, p.Scope, "delete garde"); err != nil {
		return nil, err
	}

	idx := -1
	for i := range p.Gardes {
		if p.Gardes[i].ID == gardeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("garde %s: %w", gardeID, ErrNotFound)
	}

	p.Gardes = append(p.Gardes[:idx], p.Gardes[idx+1:]...)
	p.UpdatedAt = w.now()
	if err := w.Plannings.UpdatePlanning(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ReplaceGarde swaps the assignee of a garde while preserving history:
// the old garde becomes 'remplace' and points at its replacement. Allowed
// in every status except rejete, published rosters included. It is the
// only mutation a published roster accepts.
func (w *Workflow) ReplaceGarde(ctx context.Context, actor org.User, id PlanningID, gardeID GardeID, newUser org.UserID) (*Planning, error) {
	p, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == PlanningRejete {
		return nil, &TransitionError{From: p.Status, Action: "replace garde in"}
	}
	if err := w.requireScopeAuthority(ctx, actor, p.Scope, "replace garde"); err != nil {
		return nil, err
	}

	old := p.FindGarde(gardeID)
	if old == nil {
		return nil, fmt.Errorf("garde %s: %w", gardeID, ErrNotFound)
	}
	if !old.Status.Covers() {
		return nil, &ValidationError{Field: "garde", Message: "already replaced"}
	}
	if old.UserID == newUser {
		return nil, &ValidationError{Field: "user", Message: "replacement must change the assignee"}
	}
	if err := w.checkAssignable(ctx, p, old.Date, newUser, old.ID); err != nil {
		return nil, err
	}

	now := w.now()
	replacement := Garde{
		ID:        GardeID(w.newID()),
		Date:      old.Date,
		Creneau:   old.Creneau,
		Slot:      old.Slot,
		UserID:    newUser,
		Type:      GardeRemplacement,
		Status:    GardePlanifie,
		CreatedAt: now,
		UpdatedAt: now,
	}

	old.Status = GardeRemplace
	old.RemplacePar = &replacement.ID
	old.UpdatedAt = now
	p.Gardes = append(p.Gardes, replacement)
	p.UpdatedAt = now

	if err := w.Plannings.UpdatePlanning(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ConfirmGarde lets the assignee (or a chef) acknowledge an upcoming guard.
func (w *Workflow) ConfirmGarde(ctx context.Context, actor org.User, id PlanningID, gardeID GardeID) (*Planning, error) {
	return w.setGardeStatus(ctx, actor, id, gardeID, GardeConfirme, "confirm", GardePlanifie)
}

// MarkAbsent records that the assignee did not take the guard. The slot
// then shows up as under-staffed until a replacement is recorded.
func (w *Workflow) MarkAbsent(ctx context.Context, actor org.User, id PlanningID, gardeID GardeID) (*Planning, error) {
	return w.setGardeStatus(ctx, actor, id, gardeID, GardeAbsent, "mark absent", GardePlanifie, GardeConfirme)
}

func (w *Workflow) setGardeStatus(ctx context.Context, actor org.User, id PlanningID, gardeID GardeID, to GardeStatus, action string, from ...GardeStatus) (*Planning, error) {
	p, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != PlanningApprouve && p.Status != PlanningPublie {
		return nil, &TransitionError{From: p.Status, Action: action + " garde in"}
	}

	g := p.FindGarde(gardeID)
	if g == nil {
		return nil, fmt.Errorf("garde %s: %w", gardeID, ErrNotFound)
	}
	allowed := false
	for _, st := range from {
		if g.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, &ValidationError{Field: "garde",
			Message: fmt.Sprintf("cannot %s a garde in status %q", action, g.Status)}
	}

	if actor.ID != g.UserID {
		if err := w.requireScopeAuthority(ctx, actor, p.Scope, action+" garde"); err != nil {
			return nil, err
		}
	}

	g.Status = to
	g.UpdatedAt = w.now()
	p.UpdatedAt = g.UpdatedAt
	if err := w.Plannings.UpdatePlanning(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// checkAssignable validates that a user can take a garde on the date:
// they must exist, be active, and hold no other active garde that day
// (cross-scope), ignoring the garde being replaced.
func (w *Workflow) checkAssignable(ctx context.Context, p *Planning, date Date, user org.UserID, ignore GardeID) error {
	u, err := w.Directory.GetUser(ctx, user)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("user %s: %w", user, ErrNotFound)
	}
	if !u.Actif {
		return &ValidationError{Field: "user", Message: "inactive user"}
	}

	for _, g := range p.Gardes {
		if g.ID != ignore && g.UserID == user && g.Date.Equal(date) && g.Status.Active() {
			return fmt.Errorf("user %s already on duty %s: %w", user, date, ErrGardeConflict)
		}
	}
	others, err := w.Plannings.UserGardesOn(ctx, user, date)
	if err != nil {
		return err
	}
	for _, g := range others {
		if g.ID != ignore && p.FindGarde(g.ID) == nil {
			return fmt.Errorf("user %s already on duty %s in another scope: %w", user, date, ErrGardeConflict)
		}
	}
	return nil
}

// =============================================================================
// CONFLICT RESOLUTION
// =============================================================================

// ResoudreConflits re-runs candidate resolution for the under-staffed
// slots of a mutable planning, filling what it can, and returns the
// planning with its remaining conflicts. Detection output is never
// applied blindly: only sous_charge gaps are actionable here.
func (w *Workflow) ResoudreConflits(ctx context.Context, actor org.User, id PlanningID) (*Planning, []Conflict, error) {
	p, err := w.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !gardeMutable(p.Status) {
		return nil, nil, &TransitionError{From: p.Status, Action: "resolve conflicts of"}
	}
	if err := w.requireScopeAuthority(ctx, actor, p.Scope, "resolve conflicts"); err != nil {
		return nil, nil, err
	}

	conflicts, err := w.Detector.DetectConflicts(ctx, p)
	if err != nil {
		return nil, nil, err
	}

	cfg := DefaultGenerationConfig()
	if p.Generation != nil {
		cfg = p.Generation.Config
	}

	runLoad := p.AssignmentCounts()
	now := w.now()
	filled := false

	for _, c := range conflicts {
		if c.Type != ConflictSousCharge {
			continue
		}
		required, covered := w.slotGap(ctx, p, c)
		for slot := 0; slot < required; slot++ {
			if covered[slot] {
				continue
			}
			busy := make(map[org.UserID]bool)
			for _, g := range p.Gardes {
				if g.Date.Equal(c.Date) && g.Status.Active() {
					busy[g.UserID] = true
				}
			}
			candidates, err := w.Generator.Resolver.EligibleCandidates(ctx, c.Date, p.Scope, ResolveOptions{
				RespectUnavailability: cfg.RespecterIndisponibilites,
				IncludeChefService:    cfg.InclureChefService,
				PreferSeniority:       cfg.PrioriteAnciennete,
				UseStoredLoad:         cfg.EquilibrerCharge,
				ExtraLoad:             runLoad,
				BusyOn:                busy,
			})
			if err != nil {
				if IsInsufficientStaffing(err) {
					continue // still short; remains in the conflict list
				}
				return nil, nil, err
			}

			chosen := candidates[0].User
			gardeType := GardeWeekend
			if !c.Date.IsWeekend() {
				gardeType = GardeFerie
			}
			p.Gardes = append(p.Gardes, Garde{
				ID:        GardeID(w.newID()),
				Date:      c.Date,
				Creneau:   c.Creneau,
				Slot:      slot,
				UserID:    chosen.ID,
				Type:      gardeType,
				Status:    GardePlanifie,
				CreatedAt: now,
				UpdatedAt: now,
			})
			runLoad[chosen.ID]++
			filled = true
		}
	}

	if filled {
		p.UpdatedAt = now
		if err := w.Plannings.UpdatePlanning(ctx, p); err != nil {
			return nil, nil, err
		}
	}

	remaining, err := w.Detector.DetectConflicts(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	return p, remaining, nil
}

// slotGap returns the required slot count for the conflicted creneau and
// which slot indexes are already covered.
func (w *Workflow) slotGap(ctx context.Context, p *Planning, c Conflict) (int, map[int]bool) {
	required := 1
	if p.Scope.Kind == ScopeService {
		if svc, err := w.Directory.GetService(ctx, p.Scope.ServiceID); err == nil && svc != nil {
			required = svc.MinPersonnel
		}
	}
	covered := make(map[int]bool)
	for _, g := range p.Gardes {
		if g.Date.Equal(c.Date) && g.Creneau == c.Creneau && g.Status.Covers() {
			covered[g.Slot] = true
		}
	}
	return required, covered
}
