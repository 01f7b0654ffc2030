package memory

import (
	"context"
	"sync"

	"cartsync/application/ports"
)

// Store provides an in-memory implementation of ports.KeyValueStore
type Store struct {
	mu   sync.RWMutex
	data map[ports.StorageKey][]byte
}

// NewStore creates a new in-memory store
func NewStore() *Store {
	return &Store{
		data: make(map[ports.StorageKey][]byte),
	}
}

// Get returns a copy of the bytes stored under key
func (s *Store) Get(ctx context.Context, key ports.StorageKey) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.data[key]
	if !exists {
		return nil, ports.ErrKeyNotFound
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Put stores a copy of value under key
func (s *Store) Put(ctx context.Context, key ports.StorageKey, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = stored
	return nil
}

// Delete removes key
func (s *Store) Delete(ctx context.Context, key ports.StorageKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Len returns the number of stored keys
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
