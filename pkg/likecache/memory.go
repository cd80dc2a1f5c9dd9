package likecache

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store implementation. State does not survive a
// process restart, so it is suitable for tests and throwaway sessions only.
type MemoryStore struct {
	mu     sync.RWMutex
	blobs  map[string][]byte
	closed bool
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
	}
}

// Load retrieves the blob for an event.
func (m *MemoryStore) Load(ctx context.Context, eventID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed{}
	}

	data, ok := m.blobs[eventID]
	if !ok {
		return nil, nil
	}

	// Return a copy to prevent mutations
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	return dataCopy, nil
}

// Save stores the blob for an event.
func (m *MemoryStore) Save(ctx context.Context, eventID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed{}
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	m.blobs[eventID] = dataCopy
	return nil
}

// Close shuts down the store and releases resources.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.blobs = nil
	return nil
}

// Count returns the number of events with a stored blob.
// This is for monitoring/testing purposes.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
