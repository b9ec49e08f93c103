package cache

import (
	"context"
	"sync"
	"time"

	"github.com/wikiquiz/quizgen/pkg/quiz"
)

// MemoryStore is an in-process TTL cache. It is safe for concurrent use;
// individual Get/Set operations are atomic with respect to each other.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
}

// NewMemoryStore creates a memory store with the given TTL.
// A non-positive TTL falls back to DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]Entry),
		ttl:     ttl,
	}
}

// Get returns the cached quiz for key, or ErrMiss if the key is unknown
// or the entry has expired. Expired entries are removed on detection.
func (s *MemoryStore) Get(ctx context.Context, key string) (*quiz.Entry, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		cacheMisses.Inc()
		return nil, ErrMiss
	}

	if entry.IsExpired() {
		s.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have
		// refreshed the entry since the read.
		if current, ok := s.entries[key]; ok && current.IsExpired() {
			delete(s.entries, key)
		}
		size := len(s.entries)
		s.mu.Unlock()

		cacheEntries.WithLabelValues(layerMemory).Set(float64(size))
		cacheMisses.Inc()
		return nil, ErrMiss
	}

	cacheHits.WithLabelValues(layerMemory).Inc()
	return entry.Value, nil
}

// Set stores value under key, overwriting any previous entry and
// stamping a fresh expiry of now + TTL.
func (s *MemoryStore) Set(ctx context.Context, key string, value *quiz.Entry) error {
	now := time.Now()

	s.mu.Lock()
	s.entries[key] = Entry{
		Value:     value,
		ExpiresAt: now.Add(s.ttl),
		CachedAt:  now,
	}
	size := len(s.entries)
	s.mu.Unlock()

	cacheEntries.WithLabelValues(layerMemory).Set(float64(size))
	return nil
}

// Delete removes the entry for key, if present.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	size := len(s.entries)
	s.mu.Unlock()

	cacheEntries.WithLabelValues(layerMemory).Set(float64(size))
	return nil
}

// SweepExpired removes all expired entries in one pass.
func (s *MemoryStore) SweepExpired(ctx context.Context) error {
	s.mu.Lock()
	for key, entry := range s.entries {
		if entry.IsExpired() {
			delete(s.entries, key)
		}
	}
	size := len(s.entries)
	s.mu.Unlock()

	cacheEntries.WithLabelValues(layerMemory).Set(float64(size))
	return nil
}

// Len returns the number of resident entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
