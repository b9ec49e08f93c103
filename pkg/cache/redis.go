package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wikiquiz/quizgen/pkg/quiz"
)

// RedisStore keeps cache entries in Redis with a server-side TTL. Entries
// are JSON-encoded and carry their own expiry so a read through a backend
// with a longer key TTL still never returns a stale quiz.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore creates a Redis-backed store with the given TTL.
// A non-positive TTL falls back to DefaultTTL.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Get returns the cached quiz for key, or ErrMiss if absent or expired.
func (s *RedisStore) Get(ctx context.Context, key string) (*quiz.Entry, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			cacheMisses.Inc()
			return nil, ErrMiss
		}
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = s.Delete(ctx, key)
		cacheMisses.Inc()
		return nil, ErrMiss
	}

	cacheHits.WithLabelValues(layerRedis).Inc()
	return entry.Value, nil
}

// Set stores value under key with a fresh expiry of now + TTL. Redis
// drops the key on its own once the TTL elapses.
func (s *RedisStore) Set(ctx context.Context, key string, value *quiz.Entry) error {
	now := time.Now()
	entry := Entry{
		Value:     value,
		ExpiresAt: now.Add(s.ttl),
		CachedAt:  now,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes the entry for key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// SweepExpired is a no-op for Redis: key TTLs already bound residency.
func (s *RedisStore) SweepExpired(ctx context.Context) error {
	return nil
}
