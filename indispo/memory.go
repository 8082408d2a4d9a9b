package indispo

import (
	"context"
	"sort"
	"sync"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/astreinte"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// =============================================================================
// MEMORY STORE - In-memory Store implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	items map[IndispoID]*Indisponibilite
}

func NewMemory() *Memory {
	return &Memory{items: make(map[IndispoID]*Indisponibilite)}
}

func (m *Memory) Save(_ context.Context, i *Indisponibilite) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *i
	cp.Version = 1
	m.items[cp.ID] = &cp
	i.Version = cp.Version
	return nil
}

func (m *Memory) Get(_ context.Context, id IndispoID) (*Indisponibilite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ind, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *ind
	return &cp, nil
}

func (m *Memory) Update(_ context.Context, i *Indisponibilite) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.items[i.ID]
	if !ok {
		return astreinte.ErrNotFound
	}
	if current.Version != i.Version {
		return astreinte.ErrConcurrentModification
	}

	cp := *i
	cp.Version = current.Version + 1
	m.items[cp.ID] = &cp
	i.Version = cp.Version
	return nil
}

func (m *Memory) List(_ context.Context, f Filter) ([]*Indisponibilite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Indisponibilite
	for _, ind := range m.items {
		if f.Matches(ind) {
			cp := *ind
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ApprovedOn(_ context.Context, user org.UserID, d astreinte.Date) ([]*Indisponibilite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Indisponibilite
	for _, ind := range m.items {
		if ind.UserID == user && ind.Blocks(d) {
			cp := *ind
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
