package stock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*SnapshotCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return NewSnapshotCache(client, ttl), mr
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, 0)
	ctx := context.Background()

	products := []Product{
		{ID: 1, Name: "Brake Pad", SKU: "BP-100", Stock: 42, LowStockThreshold: 10},
		{ID: 2, Name: "Oil Filter", SKU: "OF-200", Stock: 7, LowStockThreshold: 10},
	}
	require.NoError(t, cache.Save(ctx, products))

	loaded, err := cache.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, products, loaded)
}

func TestSnapshotCacheMissingKey(t *testing.T) {
	cache, _ := newTestCache(t, 0)
	loaded, err := cache.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestSnapshotCacheTTL(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, []Product{{ID: 1, Name: "Brake Pad"}}))

	mr.FastForward(2 * time.Minute)

	loaded, err := cache.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestSnapshotCacheNilSafe(t *testing.T) {
	var cache *SnapshotCache
	require.NoError(t, cache.Save(context.Background(), nil))
	loaded, err := cache.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, loaded)
}
