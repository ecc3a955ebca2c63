// Package memory is a process-local dedup.KVStore for tests and throwaway
// runs. Entries vanish on restart, so deduplication only holds within one
// process lifetime.
package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value    string
	deadline time.Time
}

// Store implements dedup.KVStore with a mutex-guarded map.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get implements dedup.KVStore.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || s.now().After(e.deadline) {
		delete(s.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

// Set implements dedup.KVStore.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{value: value, deadline: s.now().Add(ttl)}
	return nil
}
