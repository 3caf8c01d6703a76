package repo

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// runStoreContract exercises the MetadataStore behaviour every backend shares.
func runStoreContract(t *testing.T, newStore func(t *testing.T, clk clock.Clock) contracts.MetadataStore) {
	t.Run("get absent returns nil", func(t *testing.T) {
		store := newStore(t, clock.NewMockClock(testEpoch))

		rec, err := store.Get(context.Background(), "missing_jpg")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("set creates with defaults", func(t *testing.T) {
		store := newStore(t, clock.NewMockClock(testEpoch))

		rec, err := store.Set(context.Background(), "uno_jpg", domain.MetadataPatch{
			Name:  domain.String("uno.jpg"),
			Title: domain.String("Arduino Uno"),
		})
		require.NoError(t, err)
		assert.Equal(t, "uno_jpg", rec.StorageKey)
		assert.Equal(t, domain.DefaultCurrency, rec.Currency)
		assert.True(t, rec.InStock)
		assert.False(t, rec.Featured)

		got, err := store.Get(context.Background(), "uno_jpg")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "uno.jpg", got.Name)
		assert.Equal(t, "Arduino Uno", got.Title)
		assert.True(t, testEpoch.Equal(got.CreatedAt), "created_at %v", got.CreatedAt)
	})

	t.Run("partial write merges fields", func(t *testing.T) {
		clk := clock.NewMockClock(testEpoch)
		store := newStore(t, clk)
		ctx := context.Background()

		_, err := store.Set(ctx, "k", domain.MetadataPatch{Title: domain.String("A"), Category: domain.String("B")})
		require.NoError(t, err)

		clk.Advance(time.Minute)
		_, err = store.Set(ctx, "k", domain.MetadataPatch{Price: domain.Float(10)})
		require.NoError(t, err)

		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "A", got.Title)
		assert.Equal(t, "B", got.Category)
		require.NotNil(t, got.Price)
		assert.Equal(t, 10.0, *got.Price)
		assert.True(t, testEpoch.Equal(got.CreatedAt))
		assert.True(t, testEpoch.Add(time.Minute).Equal(got.UpdatedAt))
	})

	t.Run("empty title keeps the record", func(t *testing.T) {
		store := newStore(t, clock.NewMockClock(testEpoch))
		ctx := context.Background()

		_, err := store.Set(ctx, "k", domain.MetadataPatch{Title: domain.String("X"), Price: domain.Float(5)})
		require.NoError(t, err)
		_, err = store.Set(ctx, "k", domain.MetadataPatch{Title: domain.String("")})
		require.NoError(t, err)

		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.False(t, domain.IsVisible(got))
		require.NotNil(t, got.Price)
	})

	t.Run("clear price", func(t *testing.T) {
		store := newStore(t, clock.NewMockClock(testEpoch))
		ctx := context.Background()

		_, err := store.Set(ctx, "k", domain.MetadataPatch{Price: domain.Float(5)})
		require.NoError(t, err)
		_, err = store.Set(ctx, "k", domain.MetadataPatch{ClearPrice: true})
		require.NoError(t, err)

		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, got.Price)
	})

	t.Run("invalid patch rejected", func(t *testing.T) {
		store := newStore(t, clock.NewMockClock(testEpoch))

		_, err := store.Set(context.Background(), "k", domain.MetadataPatch{Price: domain.Float(-1)})
		assert.ErrorIs(t, err, domain.ErrInvalidPatch)

		got, err := store.Get(context.Background(), "k")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t, clock.NewMockClock(testEpoch))
		ctx := context.Background()

		_, err := store.Set(ctx, "k", domain.MetadataPatch{Title: domain.String("X")})
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, "k"))
		require.NoError(t, store.Delete(ctx, "never_existed"))

		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("scan returns every record", func(t *testing.T) {
		store := newStore(t, clock.NewMockClock(testEpoch))
		ctx := context.Background()

		for _, key := range []string{"a_jpg", "b_jpg", "c_jpg"} {
			_, err := store.Set(ctx, key, domain.MetadataPatch{Title: domain.String(key)})
			require.NoError(t, err)
		}
		require.NoError(t, store.Delete(ctx, "b_jpg"))

		recs, err := store.Scan(ctx)
		require.NoError(t, err)

		keys := make([]string, 0, len(recs))
		for _, r := range recs {
			keys = append(keys, r.StorageKey)
		}
		sort.Strings(keys)
		assert.Equal(t, []string{"a_jpg", "c_jpg"}, keys)
	})

	t.Run("probe", func(t *testing.T) {
		store := newStore(t, clock.NewMockClock(testEpoch))
		ctx := context.Background()

		require.NoError(t, Probe(ctx, store))

		recs, err := store.Scan(ctx)
		require.NoError(t, err)
		assert.Empty(t, recs, "probe record must be removed")
	})
}
