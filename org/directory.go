package org

import (
	"context"
	"errors"
	"sort"
)

// ErrUnknownScope is returned when a filter references a service or secteur
// that does not exist in the directory.
var ErrUnknownScope = errors.New("unknown organizational scope")

// =============================================================================
// DIRECTORY - Read-only topology access
// =============================================================================

// ScopeFilter narrows an ActiveUsers query. Nil fields mean "any".
type ScopeFilter struct {
	ServiceID *ServiceID
	SecteurID *SecteurID
	Roles     []Role
}

func (f ScopeFilter) matchesRole(r Role) bool {
	if len(f.Roles) == 0 {
		return true
	}
	for _, want := range f.Roles {
		if r == want {
			return true
		}
	}
	return false
}

// Matches reports whether a user passes the filter. Inactive users never match.
func (f ScopeFilter) Matches(u User) bool {
	if !u.Actif || !f.matchesRole(u.Role) {
		return false
	}
	if f.ServiceID != nil && !u.InService(*f.ServiceID) {
		return false
	}
	if f.SecteurID != nil && !u.InSecteur(*f.SecteurID) {
		return false
	}
	return true
}

// Directory is the read interface the scheduling core consumes.
// Implementations: store/sqlite (production), org.Static (tests),
// org.Cached (read-through cache wrapper).
type Directory interface {
	GetUser(ctx context.Context, id UserID) (*User, error)
	GetService(ctx context.Context, id ServiceID) (*Service, error)
	GetSecteur(ctx context.Context, id SecteurID) (*Secteur, error)

	// ActiveUsers returns active users matching the filter,
	// ordered by user id for determinism.
	ActiveUsers(ctx context.Context, filter ScopeFilter) ([]User, error)
}

// =============================================================================
// STATIC DIRECTORY - Fixture-backed implementation for tests and seeds
// =============================================================================

type Static struct {
	Users    map[UserID]User
	Services map[ServiceID]Service
	Secteurs map[SecteurID]Secteur
}

func NewStatic() *Static {
	return &Static{
		Users:    make(map[UserID]User),
		Services: make(map[ServiceID]Service),
		Secteurs: make(map[SecteurID]Secteur),
	}
}

func (d *Static) AddUser(u User) *Static       { d.Users[u.ID] = u; return d }
func (d *Static) AddService(s Service) *Static { d.Services[s.ID] = s; return d }
func (d *Static) AddSecteur(s Secteur) *Static { d.Secteurs[s.ID] = s; return d }

func (d *Static) GetUser(_ context.Context, id UserID) (*User, error) {
	u, ok := d.Users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (d *Static) GetService(_ context.Context, id ServiceID) (*Service, error) {
	s, ok := d.Services[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (d *Static) GetSecteur(_ context.Context, id SecteurID) (*Secteur, error) {
	s, ok := d.Secteurs[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (d *Static) ActiveUsers(_ context.Context, filter ScopeFilter) ([]User, error) {
	var users []User
	for _, u := range d.Users {
		if filter.Matches(u) {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}
