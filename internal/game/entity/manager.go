package entity

// Manager tracks the live entities the viewer has applied.
type Manager struct {
	entities map[ID]Entity
}

// NewManager creates a new entity manager.
func NewManager() *Manager {
	return &Manager{
		entities: make(map[ID]Entity),
	}
}

// Apply records e, or forgets it when e is a deletion. It returns the
// previously live record for the same id, if any.
func (m *Manager) Apply(e Entity) (prev Entity, ok bool) {
	h := e.Header()
	prev, ok = m.entities[h.ID]
	if h.Deleted {
		delete(m.entities, h.ID)
	} else {
		m.entities[h.ID] = e
	}
	return prev, ok
}

// Get returns an entity by ID.
func (m *Manager) Get(id ID) (Entity, bool) {
	e, ok := m.entities[id]
	return e, ok
}

// Count returns the total number of live entities.
func (m *Manager) Count() int {
	return len(m.entities)
}

// CountByKind returns the number of live entities of a specific kind.
func (m *Manager) CountByKind(kind Kind) int {
	count := 0
	for _, e := range m.entities {
		if KindOf(e) == kind {
			count++
		}
	}
	return count
}

// All returns all live entities in no particular order.
func (m *Manager) All() []Entity {
	result := make([]Entity, 0, len(m.entities))
	for _, e := range m.entities {
		result = append(result, e)
	}
	return result
}
