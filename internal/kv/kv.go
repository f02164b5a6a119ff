package kv

import "sync"

// Store abstracts the durable key-value backend holding the serialized cart.
// Get reports absence via found=false; a nil error with found=false is a
// clean miss, not a failure.
type Store interface {
	Get(key string) (val []byte, found bool, err error)
	Set(key string, val []byte) error
	Delete(key string) error
	Close() error
}

// Memory is a simple thread-safe map store, used for tests and for running
// without a data directory.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := append([]byte(nil), v...)
	return out, true, nil
}

func (m *Memory) Set(key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), val...)
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Close() error { return nil }
