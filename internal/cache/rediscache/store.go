// Package rediscache stores cache records in Redis.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/specialistvlad/burstgraph/internal/cache"
)

// KeyPrefix namespaces every key written by the store.
const KeyPrefix = "burstgraph:cache:"

// Store is a cache.Store backed by a Redis server.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

var _ cache.Store = (*Store)(nil)

// Open parses a redis:// URL, connects and pings the server. A zero ttl keeps
// records forever.
func Open(ctx context.Context, rawURL string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Store{client: client, ttl: ttl}, nil
}

// Load implements cache.Store.
func (s *Store) Load(ctx context.Context, fingerprint string) (*cache.Record, error) {
	data, err := s.client.Get(ctx, KeyPrefix+fingerprint).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache record: %w", err)
	}
	return cache.Decode(data)
}

// Store implements cache.Store.
func (s *Store) Store(ctx context.Context, fingerprint string, rec *cache.Record) error {
	data, err := cache.Encode(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, KeyPrefix+fingerprint, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache record: %w", err)
	}
	return nil
}

// Close implements cache.Store.
func (s *Store) Close() error {
	return s.client.Close()
}
