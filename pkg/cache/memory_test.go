package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	t.Parallel()
	m := NewMemory(0)
	ctx := context.Background()

	_, err := m.Get(ctx, "public_key")
	assert.True(t, IsMiss(err))

	require.NoError(t, m.Set(ctx, "public_key", "PEM", 10*time.Minute))
	v, err := m.Get(ctx, "public_key")
	require.NoError(t, err)
	assert.Equal(t, "PEM", v)

	require.NoError(t, m.Set(ctx, "public_key", "PEM2", 10*time.Minute))
	v, _ = m.Get(ctx, "public_key")
	assert.Equal(t, "PEM2", v)
}

func TestMemory_Expiry(t *testing.T) {
	t.Parallel()
	m := NewMemory(0)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "access_token:abc", "OK", 20*time.Millisecond))
	require.NoError(t, m.Set(ctx, "forever", "v", 0))

	assert.Eventually(t, func() bool {
		_, err := m.Get(ctx, "access_token:abc")
		return IsMiss(err)
	}, time.Second, 5*time.Millisecond)

	v, err := m.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestMemory_Delete(t *testing.T) {
	t.Parallel()
	m := NewMemory(0)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v", time.Minute))
	assert.Equal(t, 1, m.Len())
	require.NoError(t, m.Delete(ctx, "k"))
	assert.Equal(t, 0, m.Len())

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	m := NewMemory(time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Set(ctx, "shared", "v", time.Minute)
			_, _ = m.Get(ctx, "shared")
		}()
	}
	wg.Wait()

	v, err := m.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}
