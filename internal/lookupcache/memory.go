package lookupcache

import (
	"context"
	"sync"
	"time"

	"marquee/internal/lookup"
	"marquee/internal/query"
)

// MemoryStore keeps entries for the lifetime of the process only.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	clock   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{entries: make(map[string]Entry), clock: o.clock}
}

func (m *MemoryStore) Get(_ context.Context, q query.NormalizedQuery) (Entry, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[q.Key()]
	m.mu.RUnlock()
	if !ok || !entry.FreshAt(m.clock()) {
		return Entry{}, false, nil
	}
	return entry.clone(), true, nil
}

func (m *MemoryStore) Put(_ context.Context, q query.NormalizedQuery, value *lookup.Candidate, decision string, confidence float64, ttl time.Duration) error {
	entry := newEntry(q, value, decision, confidence, ttl, m.clock())
	m.mu.Lock()
	m.entries[entry.Key] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Invalidate(_ context.Context, q query.NormalizedQuery) error {
	m.mu.Lock()
	delete(m.entries, q.Key())
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(context.Context) ([]Entry, error) {
	m.mu.RLock()
	entries := make([]Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		entries = append(entries, entry.clone())
	}
	m.mu.RUnlock()
	sortNewestFirst(entries)
	return entries, nil
}

func (m *MemoryStore) Prune(context.Context) (int, error) {
	now := m.clock()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, entry := range m.entries {
		if !entry.FreshAt(now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]Entry)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
