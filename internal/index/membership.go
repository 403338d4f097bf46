package index

import (
	"sync"
	"time"
)

// Membership is the cached set of native ids known to be inside the managed
// subtree. It is the only copy of external tree state the engine keeps, and
// it is updated synchronously after every engine-issued mutation so reads
// observe the engine's own writes even though the provider's event stream
// is asynchronous.
type Membership struct {
	mu        sync.RWMutex
	ids       map[string]struct{}
	rebuiltAt time.Time
}

// NewMembership creates an empty membership cache.
func NewMembership() *Membership {
	return &Membership{ids: make(map[string]struct{})}
}

// Replace swaps the full id set, recording the rebuild time.
func (m *Membership) Replace(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m.ids[id] = struct{}{}
	}
	m.rebuiltAt = time.Now()
}

// Add marks ids as inside the managed subtree.
func (m *Membership) Add(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		m.ids[id] = struct{}{}
	}
}

// Remove drops ids from the set.
func (m *Membership) Remove(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		delete(m.ids, id)
	}
}

// Contains reports whether id is cached as managed.
func (m *Membership) Contains(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.ids[id]
	return ok
}

// IDs returns a copy of the cached id set.
func (m *Membership) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.ids))
	for id := range m.ids {
		out = append(out, id)
	}
	return out
}

// Len returns the number of cached ids.
func (m *Membership) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.ids)
}

// LastRebuild returns when the set was last fully rebuilt.
func (m *Membership) LastRebuild() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.rebuiltAt
}
