// Package redis implements a cart slot on Redis.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultTTL keeps an untouched cart for thirty days.
const DefaultTTL = 30 * 24 * time.Hour

// Slot stores each cart as a string key. Every write refreshes the TTL.
type Slot struct {
	rdb *goredis.Client
	ttl time.Duration
}

// New creates a Redis slot. A ttl <= 0 uses DefaultTTL.
func New(rdb *goredis.Client, ttl time.Duration) *Slot {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Slot{rdb: rdb, ttl: ttl}
}

// Get retrieves the value stored under key.
func (s *Slot) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value under key.
func (s *Slot) Set(ctx context.Context, key, value string) error {
	return s.rdb.Set(ctx, key, value, s.ttl).Err()
}

// Delete removes key.
func (s *Slot) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
