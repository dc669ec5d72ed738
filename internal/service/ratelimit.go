package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimitStore acquires a short-lived lock per key. Acquire returns
// false when the key is still held.
type RateLimitStore interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

func rateLimitKey(userID uuid.UUID, action string) string {
	return fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)
}

// CheckAndSetRateLimit reports whether userID may perform action now
// and, if so, starts the cooldown. A nil store disables limiting.
func CheckAndSetRateLimit(ctx context.Context, store RateLimitStore, userID uuid.UUID, action string, limit time.Duration) (bool, error) {
	if store == nil {
		return true, nil
	}
	return store.Acquire(ctx, rateLimitKey(userID, action), limit)
}

func ClearRateLimit(ctx context.Context, store RateLimitStore, userID uuid.UUID, action string) error {
	if store == nil {
		return nil
	}
	return store.Release(ctx, rateLimitKey(userID, action))
}

type redisRateLimitStore struct {
	rdb *redis.Client
}

func NewRedisRateLimitStore(rdb *redis.Client) RateLimitStore {
	return &redisRateLimitStore{rdb: rdb}
}

func (s *redisRateLimitStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	wasSet, err := s.rdb.SetNX(ctx, key, "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}
	return wasSet, nil
}

func (s *redisRateLimitStore) Release(ctx context.Context, key string) error {
	_, err := s.rdb.Del(ctx, key).Result()
	return err
}

// memoryRateLimitStore is the single-process fallback for dev setups
// without redis. Expired entries are evicted lazily on access.
type memoryRateLimitStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRateLimitStore() RateLimitStore {
	return &memoryRateLimitStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *memoryRateLimitStore) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, held := s.entries[key]; held && now.Before(expiry) {
		return false, nil
	}
	for k, expiry := range s.entries {
		if !now.Before(expiry) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = now.Add(ttl)
	return true, nil
}

func (s *memoryRateLimitStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
