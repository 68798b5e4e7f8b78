package storage

import (
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and throwaway runs.
// Values are round-tripped through JSON so decode behavior matches the
// sqlite-backed store.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Read implements Store.
func (m *MemoryStore) Read(key string, v any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.values[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("%w: key %q: %v", ErrDecode, key, err)
	}
	return true, nil
}

// Write implements Store.
func (m *MemoryStore) Write(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}
	m.mu.Lock()
	m.values[key] = string(raw)
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

// SetRaw stores an unvalidated string value, bypassing serialization.
// Tests use it to simulate corrupt persisted JSON.
func (m *MemoryStore) SetRaw(key, raw string) {
	m.mu.Lock()
	m.values[key] = raw
	m.mu.Unlock()
}
