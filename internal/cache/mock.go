package cache

import (
	"sync"
	"time"
)

// MockCache is an unbounded in-memory Cache for tests. TTLs are ignored.
type MockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits uint64
	miss uint64
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, found := m.data[key]
	if found {
		m.hits++
	} else {
		m.miss++
	}
	return val, found
}

func (m *MockCache) Set(key string, value []byte, _ time.Duration) {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
}

func (m *MockCache) Delete(key string) {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
}

func (m *MockCache) Clear() {
	m.mu.Lock()
	m.data = make(map[string][]byte)
	m.mu.Unlock()
}

func (m *MockCache) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Hits: m.hits, Misses: m.miss, Items: int64(len(m.data))}
}
