// Package cache provides the freshness cache for generated quizzes.
//
// The cache short-circuits the expensive fetch-and-generate pipeline for
// repeat requests within a TTL window. Two stores implement the same
// contract:
//
//   - MemoryStore: in-process map with lazy expiry (the default)
//   - RedisStore: Redis-backed entries with server-side TTL
//
// Expiry is lazy: Get never returns a stale entry and removes it on
// detection, so SweepExpired is a memory-bounding maintenance operation,
// not a correctness requirement.
//
// # Basic Usage
//
//	store := cache.NewMemoryStore(60 * time.Minute)
//
//	key := cache.DeriveKey("https://en.wikipedia.org/wiki/Go_(programming_language)")
//
//	entry, err := store.Get(ctx, key)
//	if errors.Is(err, cache.ErrMiss) {
//		// miss - fall through to the repository or the generation pipeline
//	}
//
//	if err := store.Set(ctx, key, result); err != nil {
//		return err
//	}
//
// # Limitations
//
// The cache is TTL-only. There is no capacity bound and no LRU eviction:
// the key space grows with the set of distinct article URLs requested
// within a TTL window. That is a known, accepted limitation; the periodic
// sweep bounds residency of expired entries, not key cardinality.
//
// # Metrics
//
// The stores export Prometheus metrics:
//
//   - quizgen_cache_hits_total{layer} - cache hits by store layer
//   - quizgen_cache_misses_total - cache misses
//   - quizgen_cache_entries{layer} - resident entries
//   - quizgen_cache_errors_total{operation} - store operation errors
package cache
