// Package memcache keeps cache records in process memory.
package memcache

import (
	"context"
	"sync"

	"github.com/specialistvlad/burstgraph/internal/cache"
)

// Store is an in-memory cache.Store. Records are kept encoded, so callers
// never share mutable state with the store.
type Store struct {
	mu      sync.RWMutex
	records map[string][]byte
}

var _ cache.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{records: make(map[string][]byte)}
}

// Load implements cache.Store.
func (s *Store) Load(ctx context.Context, fingerprint string) (*cache.Record, error) {
	s.mu.RLock()
	data, ok := s.records[fingerprint]
	s.mu.RUnlock()
	if !ok {
		return nil, cache.ErrNotFound
	}
	return cache.Decode(data)
}

// Store implements cache.Store.
func (s *Store) Store(ctx context.Context, fingerprint string, rec *cache.Record) error {
	data, err := cache.Encode(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.records[fingerprint] = data
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close implements cache.Store.
func (s *Store) Close() error { return nil }
