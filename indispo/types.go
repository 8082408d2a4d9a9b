/*
Package indispo is the unavailability registry: collaborateurs declare
periods during which they cannot take on-call duty, and their chefs
approve or refuse the declarations.

KEY CONCEPTS:
  - Indisponibilite: a dated period with a reason (motif) and priority.
  - Lifecycle: en_attente -> approuve | refuse, any -> annule. Only
    approuve declarations block scheduling; pending ones do not.
  - Authority: owners create and cancel their own declarations; the
    management chain (org.CanManage) decides them.

The scheduler never imports this package directly. It consumes the
registry through the astreinte.UnavailabilityReader interface, which
*Registry satisfies.
*/
package indispo

import (
	"time"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/astreinte"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// IndispoID identifies a declaration.
type IndispoID string

// Motif is the declared reason for the unavailability.
type Motif string

const (
	MotifCongeAnnuel      Motif = "conge_annuel"
	MotifCongeMaladie     Motif = "conge_maladie"
	MotifMaternite        Motif = "maternite"
	MotifPaternite        Motif = "paternite"
	MotifFormation        Motif = "formation"
	MotifMission          Motif = "mission"
	MotifUrgenceFamiliale Motif = "urgence_familiale"
	MotifAutre            Motif = "autre"
)

// Valid reports whether m is a known motif.
func (m Motif) Valid() bool {
	switch m {
	case MotifCongeAnnuel, MotifCongeMaladie, MotifMaternite, MotifPaternite,
		MotifFormation, MotifMission, MotifUrgenceFamiliale, MotifAutre:
		return true
	}
	return false
}

// Priorite signals how urgently the declaration needs a decision.
type Priorite string

const (
	PrioriteNormale  Priorite = "normale"
	PrioriteUrgente  Priorite = "urgente"
	PrioriteCritique Priorite = "critique"
)

// Valid reports whether p is a known priority.
func (p Priorite) Valid() bool {
	return p == PrioriteNormale || p == PrioriteUrgente || p == PrioriteCritique
}

// Status is the lifecycle state of a declaration.
type Status string

const (
	StatusEnAttente Status = "en_attente"
	StatusApprouve  Status = "approuve"
	StatusRefuse    Status = "refuse"
	StatusAnnule    Status = "annule"
)

// Indisponibilite is a declared period of unavailability.
type Indisponibilite struct {
	ID          IndispoID
	UserID      org.UserID
	Period      astreinte.Period
	Motif       Motif
	Description string
	Priorite    Priorite
	Status      Status

	DecidedBy     org.UserID
	RefusalReason string

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Blocks reports whether the declaration blocks duty on the date.
func (i *Indisponibilite) Blocks(d astreinte.Date) bool {
	return i.Status == StatusApprouve && i.Period.Contains(d)
}

// Validate checks the declaration's fields, not its lifecycle state.
func (i *Indisponibilite) Validate() error {
	if i.UserID == "" {
		return &astreinte.ValidationError{Field: "user_id", Message: "required"}
	}
	if err := i.Period.Validate(); err != nil {
		return err
	}
	if !i.Motif.Valid() {
		return &astreinte.ValidationError{Field: "motif", Message: "unknown motif"}
	}
	if i.Motif == MotifAutre && i.Description == "" {
		return &astreinte.ValidationError{Field: "description", Message: "required when motif is autre"}
	}
	if !i.Priorite.Valid() {
		return &astreinte.ValidationError{Field: "priorite", Message: "unknown priority"}
	}
	return nil
}
