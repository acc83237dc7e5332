package cache

import (
	"context"
	"sync"
)

// MemoryStore is an unbounded in-process cache. Entries live for the
// lifetime of the store and are never evicted; a batch run touches at most
// the identifiers it was given, so growth is bounded by the input.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]byte),
	}
}

// Get returns the cached payload for key, or ErrCacheMiss.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	payload, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("memory").Inc()
	return payload, nil
}

// Set stores the payload for key.
func (s *MemoryStore) Set(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	s.entries[key] = payload
	s.mu.Unlock()

	CacheSize.WithLabelValues("memory").Add(float64(len(payload)))
	return nil
}

// Len returns the number of cached entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
