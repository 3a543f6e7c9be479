package securestore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisFromClient(client, ""), mr
}

// storeContract runs the behavior every Store implementation shares.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, KeyAccessToken)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, KeyAccessToken, "a1"))
	require.NoError(t, store.Set(ctx, KeyAccessToken, "a2"))
	v, err := store.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a2", v)

	require.NoError(t, store.Delete(ctx, KeyAccessToken))
	_, err = store.Get(ctx, KeyAccessToken)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx))
}

func TestStoreContract(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		storeContract(t, NewMemory())
	})
	t.Run("file", func(t *testing.T) {
		f, err := OpenFile(filepath.Join(t.TempDir(), "s.json"), "pass", fastKDF)
		require.NoError(t, err)
		storeContract(t, f)
	})
	t.Run("redis", func(t *testing.T) {
		r, _ := newTestRedis(t)
		storeContract(t, r)
	})
}

func TestRedis_UsesPrefix(t *testing.T) {
	r, mr := newTestRedis(t)
	require.NoError(t, r.Set(context.Background(), KeyRole, "collector"))

	v, err := mr.Get(DefaultRedisPrefix + KeyRole)
	require.NoError(t, err)
	assert.Equal(t, "collector", v)
}

func TestNewRedis_ConnectFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(RedisOptions{Addr: addr})
	assert.Error(t, err)
}

func TestMemory_Concurrent(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			_ = store.Set(ctx, key, "v")
			_, _ = store.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, store.Len())
}
