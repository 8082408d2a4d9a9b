// Package store provides PlanningStore and HolidayStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/astreinte"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds plannings and holidays in maps. It enforces the same
// uniqueness rules as the SQLite store: one covering garde per
// (scope, date, creneau, slot) and one active garde per (user, date)
// across all plannings.
type Memory struct {
	mu        sync.RWMutex
	plannings map[astreinte.PlanningID]*astreinte.Planning
	holidays  map[string]astreinte.Holiday
}

func NewMemory() *Memory {
	return &Memory{
		plannings: make(map[astreinte.PlanningID]*astreinte.Planning),
		holidays:  make(map[string]astreinte.Holiday),
	}
}

// SavePlanning inserts a new planning at version 1.
func (m *Memory) SavePlanning(_ context.Context, p *astreinte.Planning) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkGardesLocked(p); err != nil {
		return err
	}
	cp := clonePlanning(p)
	cp.Version = 1
	m.plannings[cp.ID] = cp
	p.Version = cp.Version
	return nil
}

// GetPlanning returns a copy of the planning, or nil if absent.
func (m *Memory) GetPlanning(_ context.Context, id astreinte.PlanningID) (*astreinte.Planning, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plannings[id]
	if !ok {
		return nil, nil
	}
	return clonePlanning(p), nil
}

// UpdatePlanning replaces the stored planning if the caller's version
// matches, then bumps the version.
func (m *Memory) UpdatePlanning(_ context.Context, p *astreinte.Planning) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.plannings[p.ID]
	if !ok {
		return astreinte.ErrNotFound
	}
	if current.Version != p.Version {
		return astreinte.ErrConcurrentModification
	}
	if err := m.checkGardesLocked(p); err != nil {
		return err
	}

	cp := clonePlanning(p)
	cp.Version = current.Version + 1
	m.plannings[cp.ID] = cp
	p.Version = cp.Version
	return nil
}

// ListPlannings returns matching plannings ordered by id.
func (m *Memory) ListPlannings(_ context.Context, f astreinte.PlanningFilter) ([]*astreinte.Planning, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*astreinte.Planning
	for _, p := range m.plannings {
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		if f.Scope != nil && p.Scope != *f.Scope {
			continue
		}
		out = append(out, clonePlanning(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UserGardesOn returns the user's active gardes on the date across all
// plannings.
func (m *Memory) UserGardesOn(_ context.Context, user org.UserID, d astreinte.Date) ([]astreinte.Garde, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []astreinte.Garde
	for _, p := range m.plannings {
		for _, g := range p.Gardes {
			if g.UserID == user && g.Date.Equal(d) && g.Status.Active() {
				out = append(out, g)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GardeCounts returns per-user covering garde counts for published
// plannings of the scope up to the date, the scheduler's load history.
func (m *Memory) GardeCounts(_ context.Context, scope astreinte.Scope, upTo astreinte.Date) (map[org.UserID]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[org.UserID]int)
	for _, p := range m.plannings {
		if p.Scope != scope || p.Status != astreinte.PlanningPublie {
			continue
		}
		for _, g := range p.Gardes {
			if g.Status.Covers() && g.Date.BeforeOrEqual(upTo) {
				counts[g.UserID]++
			}
		}
	}
	return counts, nil
}

// checkGardesLocked rejects a planning whose covering gardes collide
// with another planning's, by slot or by user-day.
func (m *Memory) checkGardesLocked(p *astreinte.Planning) error {
	for _, other := range m.plannings {
		if other.ID == p.ID {
			continue
		}
		for _, g := range p.Gardes {
			for _, og := range other.Gardes {
				if !g.Date.Equal(og.Date) {
					continue
				}
				if g.Status.Covers() && og.Status.Covers() &&
					p.Scope == other.Scope && g.Creneau == og.Creneau && g.Slot == og.Slot {
					return astreinte.ErrGardeConflict
				}
				if g.Status.Active() && og.Status.Active() && g.UserID == og.UserID {
					return astreinte.ErrGardeConflict
				}
			}
		}
	}
	return nil
}

func clonePlanning(p *astreinte.Planning) *astreinte.Planning {
	cp := *p
	cp.Gardes = make([]astreinte.Garde, len(p.Gardes))
	copy(cp.Gardes, p.Gardes)
	for i := range cp.Gardes {
		if r := cp.Gardes[i].RemplacePar; r != nil {
			id := *r
			cp.Gardes[i].RemplacePar = &id
		}
	}
	if p.Generation != nil {
		gen := *p.Generation
		cp.Generation = &gen
	}
	return &cp
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// SaveHoliday inserts or updates a holiday.
func (m *Memory) SaveHoliday(_ context.Context, h astreinte.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.ID] = h
	return nil
}

// DeleteHoliday removes a holiday. Unknown ids are a no-op.
func (m *Memory) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.holidays, id)
	return nil
}

// ListHolidays returns all holidays ordered by date.
func (m *Memory) ListHolidays(_ context.Context) ([]astreinte.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]astreinte.Holiday, 0, len(m.holidays))
	for _, h := range m.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// IsHoliday reports whether the date is an active holiday.
func (m *Memory) IsHoliday(d astreinte.Date) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, h := range m.holidays {
		if h.Actif && h.Date.Equal(d) {
			return true
		}
	}
	return false
}

// Holidays returns the active holidays of the year, ordered by date.
func (m *Memory) Holidays(year int) []astreinte.Holiday {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []astreinte.Holiday
	for _, h := range m.holidays {
		if h.Actif && h.Date.Year() == year {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
