package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store: a mutex-guarded map with LRU order,
// a size cap, per-entry TTL, and a generation counter. Suitable for a
// single instance; use the redis backend when running more than one.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	order      []string
	maxSize    int
	ttl        time.Duration
	generation uint64
	now        func() time.Time
}

type memoryEntry struct {
	value    []byte
	storedAt time.Time
}

// NewMemory creates a memory cache. maxSize and ttl fall back to
// sane defaults when non-positive.
func NewMemory(maxSize int, ttl time.Duration) *Memory {
	if maxSize <= 0 {
		maxSize = 256
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Memory{
		entries: make(map[string]*memoryEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}

	if m.now().Sub(entry.storedAt) > m.ttl {
		delete(m.entries, key)
		m.removeFromOrder(key)
		return nil, false
	}

	m.moveToEnd(key)
	return entry.value, true
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; exists {
		m.entries[key] = &memoryEntry{value: value, storedAt: m.now()}
		m.moveToEnd(key)
		return
	}

	if len(m.entries) >= m.maxSize {
		m.evictOldest()
	}

	m.entries[key] = &memoryEntry{value: value, storedAt: m.now()}
	m.order = append(m.order, key)
}

// Clear implements Store: empties the map and bumps the generation
// in a single critical section.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*memoryEntry)
	m.order = m.order[:0]
	m.generation++
	return nil
}

// Generation implements Store.
func (m *Memory) Generation(_ context.Context) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Size returns the current entry count.
func (m *Memory) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) evictOldest() {
	if len(m.order) == 0 {
		return
	}
	oldest := m.order[0]
	m.order = m.order[1:]
	delete(m.entries, oldest)
}

func (m *Memory) moveToEnd(key string) {
	m.removeFromOrder(key)
	m.order = append(m.order, key)
}

func (m *Memory) removeFromOrder(key string) {
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
