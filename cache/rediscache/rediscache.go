// Package rediscache implements cache.CacheStore on top of
// github.com/redis/go-redis/v9, the same client the teacher's registry
// package wires up for its own Redis-backed state.
package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"goa.design/bridge/cache"
)

// Store is a cache.CacheStore backed by a Redis client.
type Store struct {
	client *redis.Client
	prefix string
}

// New wraps an existing *redis.Client. keyPrefix is prepended to every key,
// letting several gateways share one Redis instance without collisions.
func New(client *redis.Client, keyPrefix string) *Store {
	return &Store{client: client, prefix: keyPrefix}
}

var _ cache.CacheStore = (*Store)(nil)

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	var ttl time.Duration
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}
