package store

import (
	"context"
	"sync"
	"time"

	"github.com/Osamakahen/freo-wallet-sub001/core"
	"github.com/Osamakahen/freo-wallet-sub001/ports"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is an in-memory implementation of the Store port. It backs
// tests and single-process deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]entry
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() ports.Store {
	return &MemoryStore{data: make(map[string]entry)}
}

// Set stores a key with a value. A ttl <= 0 means no expiry; lazy expiry
// at the session layer still applies.
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.data[key] = e
	return nil
}

// Get retrieves a value by key.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return "", core.ErrNotFound
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return "", core.ErrNotFound
	}
	return e.value, nil
}

// Remove deletes a key. Idempotent.
func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Clear removes all data from the store.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]entry)
	return nil
}
