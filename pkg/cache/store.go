package cache

import (
	"context"
	"errors"
	"time"

	"github.com/wikiquiz/quizgen/pkg/quiz"
)

var (
	// ErrMiss indicates the requested key was not found or had expired.
	ErrMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a stored entry could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultTTL is the freshness window applied when no TTL is configured.
const DefaultTTL = 60 * time.Minute

// Store is the freshness cache contract shared by the memory and Redis
// backends. Get never returns an expired entry; expired entries are
// removed on detection. Set overwrites unconditionally and stamps a new
// expiry of now + TTL.
type Store interface {
	Get(ctx context.Context, key string) (*quiz.Entry, error)
	Set(ctx context.Context, key string, value *quiz.Entry) error
	Delete(ctx context.Context, key string) error

	// SweepExpired removes all expired entries. Optional maintenance:
	// lazy expiry in Get is the correctness guarantee, the sweep only
	// bounds memory.
	SweepExpired(ctx context.Context) error
}
