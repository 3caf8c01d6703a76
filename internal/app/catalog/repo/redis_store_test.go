package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
)

func newTestRedisStore(t *testing.T, clk clock.Clock) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	store, err := NewRedisStore(server.Addr(), "", 0, clk)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, server
}

func TestRedisStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T, clk clock.Clock) contracts.MetadataStore {
		store, _ := newTestRedisStore(t, clk)
		return store
	})
}

func TestRedisStore_DocumentLayout(t *testing.T) {
	store, server := newTestRedisStore(t, clock.NewMockClock(testEpoch))

	_, err := store.Set(context.Background(), "uno_jpg", domain.MetadataPatch{Title: domain.String("Arduino Uno")})
	require.NoError(t, err)

	raw, err := server.Get(redisKeyPrefix + "uno_jpg")
	require.NoError(t, err)
	assert.Contains(t, raw, `"title":"Arduino Uno"`)
}

func TestRedisStore_ScanManyKeys(t *testing.T) {
	store, _ := newTestRedisStore(t, clock.NewMockClock(testEpoch))
	ctx := context.Background()

	for i := 0; i < redisScanBatch+25; i++ {
		_, err := store.Set(ctx, fmt.Sprintf("item_%03d", i), domain.MetadataPatch{})
		require.NoError(t, err)
	}

	recs, err := store.Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, redisScanBatch+25)
}

func TestRedisStore_ServerDown(t *testing.T) {
	store, server := newTestRedisStore(t, clock.NewMockClock(testEpoch))
	server.Close()

	_, err := store.Get(context.Background(), "k")
	require.Error(t, err)
	assert.True(t, RedisError.Has(err))
}


func TestUnseenKeys(t *testing.T) {
	seen := make(map[string]struct{})

	first := unseenKeys([]string{"catalog:a", "catalog:b", "catalog:a"}, seen)
	assert.Equal(t, []string{"catalog:a", "catalog:b"}, first)

	second := unseenKeys([]string{"catalog:b", "catalog:c"}, seen)
	assert.Equal(t, []string{"catalog:c"}, second)
}
