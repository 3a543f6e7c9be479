package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCategories() []Category {
	return []Category{
		{ID: "metal", Name: "Metal", Scraps: []Scrap{
			{ID: "steel", Name: "Steel", PricePerKg: 45},
			{ID: "copper", Name: "Copper", PricePerKg: 700, CategoryID: "metal"},
		}},
		{ID: "paper", Name: "Paper", Scraps: []Scrap{
			{ID: "cardboard", Name: "Cardboard", PricePerKg: 12},
		}},
	}
}

func TestSnapshot_Lookup(t *testing.T) {
	snap := NewSnapshot(testCategories(), time.Unix(0, 0))

	steel, ok := snap.Lookup("steel")
	require.True(t, ok)
	assert.Equal(t, 45.0, steel.PricePerKg)
	assert.Equal(t, "metal", steel.CategoryID, "category inherited from parent")

	_, ok = snap.Lookup("glass")
	assert.False(t, ok)
	assert.Equal(t, 3, snap.Len())
}

func TestSnapshot_ScrapsFor(t *testing.T) {
	snap := NewSnapshot(testCategories(), time.Now())

	scraps := snap.ScrapsFor([]string{"metal", "unknown"})
	require.Len(t, scraps, 2)
	assert.Equal(t, "Copper", scraps[0].Name)
	assert.Equal(t, "Steel", scraps[1].Name)

	assert.Empty(t, snap.ScrapsFor(nil))
}

func TestSnapshot_IsolatedFromInput(t *testing.T) {
	cats := testCategories()
	snap := NewSnapshot(cats, time.Now())
	cats[0].Scraps[0].PricePerKg = 1

	steel, _ := snap.Lookup("steel")
	assert.Equal(t, 45.0, steel.PricePerKg)

	c, ok := snap.Category("metal")
	require.True(t, ok)
	assert.Equal(t, 45.0, c.Scraps[0].PricePerKg)
}

func TestSnapshot_JSONRoundTripRebuildsIndex(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	data, err := json.Marshal(NewSnapshot(testCategories(), at))
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	_, ok := snap.Lookup("cardboard")
	assert.True(t, ok)
	assert.True(t, snap.FetchedAt().Equal(at))
}

type stubFetcher struct {
	calls int
	err   error
}

func (f *stubFetcher) ListCategories(context.Context) ([]Category, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return testCategories(), nil
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Hour), mr
}

func TestCache_PutGet(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)

	_, err := cache.Get(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.Put(ctx, NewSnapshot(testCategories(), time.Now())))
	assert.True(t, mr.Exists(DefaultCacheKey))
	assert.Equal(t, time.Hour, mr.TTL(DefaultCacheKey))

	snap, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Len())

	require.NoError(t, cache.Invalidate(ctx))
	_, err = cache.Get(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_CorruptEntry(t *testing.T) {
	cache, mr := newTestCache(t)
	require.NoError(t, mr.Set(DefaultCacheKey, "not gzip"))

	_, err := cache.Get(context.Background())
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrCacheMiss))
}

func TestService_ReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)
	fetcher := &stubFetcher{}
	svc := NewService(fetcher, cache, nil)

	_, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
}

func TestService_CorruptCacheFallsBack(t *testing.T) {
	cache, mr := newTestCache(t)
	require.NoError(t, mr.Set(DefaultCacheKey, "garbage"))
	fetcher := &stubFetcher{}

	snap, err := NewService(fetcher, cache, nil).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Len())
	assert.Equal(t, 1, fetcher.calls)
}

func TestService_WithoutCache(t *testing.T) {
	fetcher := &stubFetcher{}
	svc := NewService(fetcher, nil, nil)

	_, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	_, err = svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
	assert.NoError(t, svc.Invalidate(context.Background()))
}

func TestService_FetchError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewService(&stubFetcher{err: boom}, nil, nil).Snapshot(context.Background())
	assert.ErrorIs(t, err, boom)
}
