package cache

import (
	"context"
	"errors"
	"time"

	"github.com/techfromsage/persona-go/pkg/clients/redis"
)

// redisCommands is the part of [*redis.Client] the backend calls.
type redisCommands interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
}

var _ redisCommands = (*redis.Client)(nil)

// Redis is a [Cache] shared by every process connected to the same
// server. Values are written with SET ... EX so the expiry lands with
// the value.
type Redis struct {
	client redisCommands
}

var _ Cache = (*Redis)(nil)

// NewRedis returns a Redis backend over client. The caller owns client
// and closes it.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Get returns the stored value, [ErrMiss] when the key does not exist,
// or the wrapper's classified error.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Set stores value under key for ttl.
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, key, value, ttl)
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	_, err := r.client.Del(ctx, key)
	return err
}
