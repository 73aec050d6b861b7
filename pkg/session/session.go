// Package session issues and tracks cart session ids.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates the session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Store issues session ids and keeps them alive.
type Store interface {
	Create(ctx context.Context) (string, error)
	Touch(ctx context.Context, id string) error
}

// RedisStore keeps sessions as "session:<id>" keys with a sliding TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore returns a Redis-backed session store.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := s.rdb.Set(ctx, key(id), time.Now().UTC().Format(time.RFC3339), s.ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *RedisStore) Touch(ctx context.Context, id string) error {
	ok, err := s.rdb.Expire(ctx, key(id), s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// MemoryStore keeps sessions in process.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	expires map[string]time.Time
}

// NewMemoryStore returns an in-memory session store. A nil now uses
// time.Now.
func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{ttl: ttl, now: now, expires: make(map[string]time.Time)}
}

func (s *MemoryStore) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	s.expires[id] = s.now().Add(s.ttl)
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryStore) Touch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expires[id]
	now := s.now()
	if !ok || !now.Before(exp) {
		delete(s.expires, id)
		return ErrNotFound
	}
	s.expires[id] = now.Add(s.ttl)
	return nil
}

func key(id string) string { return "session:" + id }
