package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techfromsage/persona-go/pkg/clients/redis"
	pserr "github.com/techfromsage/persona-go/pkg/errors"
)

// fakeRedis is an in-memory redis.Cmdable recording the expiry of every
// SET.
type fakeRedis struct {
	mu      sync.Mutex
	values  map[string]string
	ttls    map[string]time.Duration
	failGet error
	failSet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *goredis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := goredis.NewStringCmd(ctx)
	if f.failGet != nil {
		cmd.SetErr(f.failGet)
		return cmd
	}
	v, ok := f.values[key]
	if !ok {
		cmd.SetErr(goredis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := goredis.NewStatusCmd(ctx)
	if f.failSet != nil {
		cmd.SetErr(f.failSet)
		return cmd
	}
	f.values[key] = value.(string)
	f.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	cmd := goredis.NewIntCmd(ctx)
	cmd.SetVal(n)
	return cmd
}

func (f *fakeRedis) Ping(ctx context.Context) *goredis.StatusCmd {
	return goredis.NewStatusCmd(ctx)
}

func (f *fakeRedis) Close() error { return nil }

func TestRedis_GetSet(t *testing.T) {
	t.Parallel()
	fake := newFakeRedis()
	c := NewRedis(redis.NewFromClient(fake, nil))
	ctx := context.Background()

	_, err := c.Get(ctx, "obtain_token:abc")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "obtain_token:abc", `{"access_token":"t"}`, 3540*time.Second))
	assert.Equal(t, 3540*time.Second, fake.ttls["obtain_token:abc"])

	v, err := c.Get(ctx, "obtain_token:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"t"}`, v)

	require.NoError(t, c.Set(ctx, "forever", "v", -time.Second))
	assert.Equal(t, time.Duration(0), fake.ttls["forever"])

	require.NoError(t, c.Delete(ctx, "forever"))
	_, err = c.Get(ctx, "forever")
	assert.True(t, IsMiss(err))
}

func TestRedis_ErrorsAreNotMisses(t *testing.T) {
	t.Parallel()
	fake := newFakeRedis()
	fake.failGet = errors.New("LOADING Redis is loading the dataset in memory")
	fake.failSet = context.DeadlineExceeded
	c := NewRedis(redis.NewFromClient(fake, nil))
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	require.Error(t, err)
	assert.False(t, IsMiss(err))
	assert.True(t, pserr.HasCode(err, pserr.CodeInternalCache))

	err = c.Set(ctx, "k", "v", time.Minute)
	assert.True(t, pserr.HasCode(err, pserr.CodeTimeoutCache))
}
