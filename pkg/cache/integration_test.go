//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/techfromsage/persona-go/internal/testutil/containers"
	"github.com/techfromsage/persona-go/pkg/cache"
	"github.com/techfromsage/persona-go/pkg/clients/postgres"
	"github.com/techfromsage/persona-go/pkg/clients/redis"
)

// BackendSuite runs the same behavioural checks against the Redis and
// PostgreSQL backends.
type BackendSuite struct {
	suite.Suite

	ctx      context.Context
	redisRes *containers.RedisResult
	pgRes    *containers.PostgresResult
	redis    *redis.Client
	pg       *postgres.Client
	backends map[string]cache.Cache
}

func (s *BackendSuite) SetupSuite() {
	s.ctx = context.Background()

	redisRes, err := containers.StartRedis(s.ctx)
	require.NoError(s.T(), err)
	s.redisRes = redisRes
	s.redis, err = redis.NewClient(s.ctx, redis.Config{URI: redisRes.ConnString})
	require.NoError(s.T(), err)

	pgRes, err := containers.StartPostgres(s.ctx)
	require.NoError(s.T(), err)
	s.pgRes = pgRes
	s.pg, err = postgres.NewClient(s.ctx, postgres.Config{URI: pgRes.ConnString})
	require.NoError(s.T(), err)

	pgCache, err := cache.NewPostgres(s.pg)
	require.NoError(s.T(), err)
	require.NoError(s.T(), pgCache.EnsureSchema(s.ctx))

	s.backends = map[string]cache.Cache{
		"redis":    cache.NewRedis(s.redis),
		"postgres": pgCache,
	}
}

func (s *BackendSuite) TearDownSuite() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.pg != nil {
		s.pg.Close()
	}
	if s.redisRes != nil {
		_ = s.redisRes.Container.Terminate(s.ctx)
	}
	if s.pgRes != nil {
		_ = s.pgRes.Container.Terminate(s.ctx)
	}
}

func TestBackendIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(BackendSuite))
}

func (s *BackendSuite) TestRoundTripAndOverwrite() {
	for name, c := range s.backends {
		s.Run(name, func() {
			key := "it:" + name + ":public_key"
			_, err := c.Get(s.ctx, key)
			assert.True(s.T(), cache.IsMiss(err))

			require.NoError(s.T(), c.Set(s.ctx, key, "PEM-1", 10*time.Minute))
			require.NoError(s.T(), c.Set(s.ctx, key, "PEM-2", 10*time.Minute))

			v, err := c.Get(s.ctx, key)
			require.NoError(s.T(), err)
			assert.Equal(s.T(), "PEM-2", v)
		})
	}
}

func (s *BackendSuite) TestExpiry() {
	for name, c := range s.backends {
		s.Run(name, func() {
			key := "it:" + name + ":access_token"
			require.NoError(s.T(), c.Set(s.ctx, key, "OK", time.Second))

			assert.Eventually(s.T(), func() bool {
				_, err := c.Get(s.ctx, key)
				return cache.IsMiss(err)
			}, 5*time.Second, 100*time.Millisecond)
		})
	}
}
