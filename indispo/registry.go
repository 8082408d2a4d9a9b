package indispo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/astreinte"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// Filter narrows listing queries. Nil fields match everything.
type Filter struct {
	UserID *org.UserID
	Status *Status
}

// Matches reports whether the declaration passes the filter.
func (f Filter) Matches(i *Indisponibilite) bool {
	if f.UserID != nil && i.UserID != *f.UserID {
		return false
	}
	if f.Status != nil && i.Status != *f.Status {
		return false
	}
	return true
}

// Store persists declarations. Get returns nil for an unknown id.
// Update enforces optimistic concurrency and returns
// astreinte.ErrConcurrentModification on a version mismatch.
type Store interface {
	Save(ctx context.Context, i *Indisponibilite) error
	Get(ctx context.Context, id IndispoID) (*Indisponibilite, error)
	Update(ctx context.Context, i *Indisponibilite) error
	List(ctx context.Context, f Filter) ([]*Indisponibilite, error)

	// ApprovedOn returns the approved declarations covering the date
	// for the user.
	ApprovedOn(ctx context.Context, user org.UserID, d astreinte.Date) ([]*Indisponibilite, error)
}

// Registry is the declaration service. It satisfies
// astreinte.UnavailabilityReader for the scheduler.
type Registry struct {
	Store     Store
	Directory org.Directory

	NewID func() string
	Now   func() time.Time
}

func (r *Registry) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}

func (r *Registry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// IsUnavailable reports whether the user has an approved declaration
// covering the date.
func (r *Registry) IsUnavailable(ctx context.Context, user org.UserID, d astreinte.Date) (bool, error) {
	approved, err := r.Store.ApprovedOn(ctx, user, d)
	if err != nil {
		return false, err
	}
	return len(approved) > 0, nil
}

// Create registers a new declaration for the actor, pending approval.
// Declarations are always self-service: nobody declares for someone else.
func (r *Registry) Create(ctx context.Context, actor org.User, period astreinte.Period, motif Motif, description string, priorite Priorite) (*Indisponibilite, error) {
	if priorite == "" {
		priorite = PrioriteNormale
	}
	now := r.now()
	ind := &Indisponibilite{
		ID:          IndispoID(r.newID()),
		UserID:      actor.ID,
		Period:      period,
		Motif:       motif,
		Description: description,
		Priorite:    priorite,
		Status:      StatusEnAttente,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := ind.Validate(); err != nil {
		return nil, err
	}
	if err := r.Store.Save(ctx, ind); err != nil {
		return nil, err
	}
	return ind, nil
}

// Update amends a pending declaration. Only the owner may amend, and only
// while the declaration is en_attente.
func (r *Registry) Update(ctx context.Context, actor org.User, id IndispoID, period astreinte.Period, motif Motif, description string, priorite Priorite) (*Indisponibilite, error) {
	ind, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ind.UserID != actor.ID {
		return nil, &astreinte.ForbiddenError{Actor: string(actor.ID), Action: "update indisponibilite",
			Reason: "not the owner"}
	}
	if ind.Status != StatusEnAttente {
		return nil, &astreinte.ValidationError{Field: "status",
			Message: fmt.Sprintf("cannot amend a declaration in status %q", ind.Status)}
	}

	ind.Period = period
	ind.Motif = motif
	ind.Description = description
	ind.Priorite = priorite
	if err := ind.Validate(); err != nil {
		return nil, err
	}
	ind.UpdatedAt = r.now()
	if err := r.Store.Update(ctx, ind); err != nil {
		return nil, err
	}
	return ind, nil
}

// Approve accepts a pending declaration. The actor must manage the owner.
func (r *Registry) Approve(ctx context.Context, actor org.User, id IndispoID) (*Indisponibilite, error) {
	ind, err := r.decidable(ctx, actor, id, "approve")
	if err != nil {
		return nil, err
	}
	ind.Status = StatusApprouve
	ind.DecidedBy = actor.ID
	ind.UpdatedAt = r.now()
	if err := r.Store.Update(ctx, ind); err != nil {
		return nil, err
	}
	return ind, nil
}

// Refuse declines a pending declaration. A reason is mandatory.
func (r *Registry) Refuse(ctx context.Context, actor org.User, id IndispoID, reason string) (*Indisponibilite, error) {
	if reason == "" {
		return nil, &astreinte.ValidationError{Field: "reason", Message: "refusal requires a reason"}
	}
	ind, err := r.decidable(ctx, actor, id, "refuse")
	if err != nil {
		return nil, err
	}
	ind.Status = StatusRefuse
	ind.DecidedBy = actor.ID
	ind.RefusalReason = reason
	ind.UpdatedAt = r.now()
	if err := r.Store.Update(ctx, ind); err != nil {
		return nil, err
	}
	return ind, nil
}

// Annule withdraws a declaration. The owner or an admin may cancel from
// any state except annule itself; an approved declaration stops blocking
// scheduling the moment it is cancelled.
func (r *Registry) Annule(ctx context.Context, actor org.User, id IndispoID) (*Indisponibilite, error) {
	ind, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ind.UserID != actor.ID && actor.Role != org.RoleAdmin {
		return nil, &astreinte.ForbiddenError{Actor: string(actor.ID), Action: "cancel indisponibilite",
			Reason: "only the owner or an admin may cancel"}
	}
	if ind.Status == StatusAnnule {
		return nil, &astreinte.ValidationError{Field: "status", Message: "already cancelled"}
	}

	ind.Status = StatusAnnule
	ind.UpdatedAt = r.now()
	if err := r.Store.Update(ctx, ind); err != nil {
		return nil, err
	}
	return ind, nil
}

// Get fetches a declaration, visible to its owner and managers.
func (r *Registry) Get(ctx context.Context, actor org.User, id IndispoID) (*Indisponibilite, error) {
	ind, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.visible(ctx, actor, ind); err != nil {
		return nil, err
	}
	return ind, nil
}

// List returns the declarations the actor is entitled to see: their own,
// plus those of everyone they manage.
func (r *Registry) List(ctx context.Context, actor org.User, f Filter) ([]*Indisponibilite, error) {
	all, err := r.Store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]*Indisponibilite, 0, len(all))
	for _, ind := range all {
		if r.visible(ctx, actor, ind) == nil {
			out = append(out, ind)
		}
	}
	return out, nil
}

func (r *Registry) load(ctx context.Context, id IndispoID) (*Indisponibilite, error) {
	ind, err := r.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ind == nil {
		return nil, fmt.Errorf("indisponibilite %s: %w", id, astreinte.ErrNotFound)
	}
	return ind, nil
}

func (r *Registry) decidable(ctx context.Context, actor org.User, id IndispoID, action string) (*Indisponibilite, error) {
	ind, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ind.Status != StatusEnAttente {
		return nil, &astreinte.ValidationError{Field: "status",
			Message: fmt.Sprintf("cannot %s a declaration in status %q", action, ind.Status)}
	}
	owner, err := r.Directory.GetUser(ctx, ind.UserID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fmt.Errorf("user %s: %w", ind.UserID, astreinte.ErrNotFound)
	}
	if !org.CanManage(actor, *owner) {
		return nil, &astreinte.ForbiddenError{Actor: string(actor.ID), Action: action + " indisponibilite",
			Reason: fmt.Sprintf("no authority over user %s", ind.UserID)}
	}
	return ind, nil
}

func (r *Registry) visible(ctx context.Context, actor org.User, ind *Indisponibilite) error {
	if ind.UserID == actor.ID {
		return nil
	}
	owner, err := r.Directory.GetUser(ctx, ind.UserID)
	if err != nil {
		return err
	}
	if owner != nil && org.CanManage(actor, *owner) {
		return nil
	}
	return &astreinte.ForbiddenError{Actor: string(actor.ID), Action: "view indisponibilite",
		Reason: "not the owner and not a manager"}
}
