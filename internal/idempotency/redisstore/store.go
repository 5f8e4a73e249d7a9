// Package redisstore is an optional idempotency.Store backed by Redis,
// built on SetNX-as-reserve,
// Exists-as-check, Del-as-release).
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a Redis-backed idempotency.Store.
type Store struct {
	client *redis.Client
	prefix string
}

// New builds a Store that namespaces keys under prefix.
func New(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.fullKey(key), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redisstore: reserve: %w", err)
	}
	return ok, nil
}

func (s *Store) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.fullKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redisstore: check: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.fullKey(key)).Err(); err != nil {
		return fmt.Errorf("redisstore: release: %w", err)
	}
	return nil
}

func (s *Store) fullKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}
