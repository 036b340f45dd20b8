// Package cache defines the key/value capability Persona clients use to
// remember validated tokens, acquired tokens and the signing
// certificate, with three backends:
//
//   - [Memory]: in-process, backed by go-cache
//   - [Redis]: shared, backed by the traced go-redis wrapper
//   - [Postgres]: durable, a single table through the traced pgx wrapper
//
// Callers treat every backend error as a miss; nothing in a cache ever
// decides an authorization outcome on its own.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache stores string values with a per-entry lifetime. A ttl of zero
// or less stores the value without expiry. Implementations must be safe
// for concurrent use, and Set must apply the value and its expiry
// atomically.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// IsMiss reports whether err means the key was not found.
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}
