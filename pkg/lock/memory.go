package lock

import "sync"

// MemoryManager implements Manager in process memory. It is meant for tests
// and for callers that only need to exclude goroutines of one process.
type MemoryManager struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryManager creates an in-memory lock manager.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{held: make(map[string]struct{})}
}

// Acquire implements Manager.
func (m *MemoryManager) Acquire(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return false
	}
	m.held[key] = struct{}{}
	return true
}

// Release implements Manager.
func (m *MemoryManager) Release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
}

// Held reports whether key is currently locked.
func (m *MemoryManager) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[key]
	return ok
}
