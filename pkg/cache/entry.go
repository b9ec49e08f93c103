package cache

import (
	"time"

	"github.com/wikiquiz/quizgen/pkg/quiz"
)

// Entry is a cached quiz with its expiry deadline.
type Entry struct {
	// Value is the cached quiz entry.
	Value *quiz.Entry `json:"value"`

	// ExpiresAt is when the entry becomes stale.
	ExpiresAt time.Time `json:"expires_at"`

	// CachedAt is when the entry was written.
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the entry has passed its expiry deadline.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}
