package get_product

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/reconcile"
	"github.com/light-bringer/storefront-catalog/internal/testutil"
)

func newQuery(stores *testutil.Stores) *Query {
	engine := reconcile.NewEngine(stores.Legacy, stores.Assets, stores.Metadata, reconcile.Options{
		LegacyFolder: testutil.AssetPrefix,
		AssetPrefix:  testutil.AssetPrefix,
	}, zap.NewNop(), nil)
	return NewQuery(engine)
}

func TestGetProduct(t *testing.T) {
	ctx := context.Background()
	stores := testutil.NewStores()
	stores.SeedLegacy(t, "uno.jpg")
	stores.SeedLegacy(t, "mega.jpg")
	stores.Annotate(t, "uno.jpg", domain.MetadataPatch{Title: domain.String("Arduino Uno"), Price: domain.Float(650)})
	q := newQuery(stores)

	t.Run("by name", func(t *testing.T) {
		p, err := q.Execute(ctx, &Request{Name: "uno.jpg"})
		require.NoError(t, err)
		assert.Equal(t, "Arduino Uno", p.Title)
		assert.Equal(t, "uno", p.ID)
	})

	t.Run("by id", func(t *testing.T) {
		p, err := q.Execute(ctx, &Request{ID: "uno"})
		require.NoError(t, err)
		assert.Equal(t, "uno.jpg", p.Name)
	})

	t.Run("hidden asset is not found on the storefront", func(t *testing.T) {
		_, err := q.Execute(ctx, &Request{Name: "mega.jpg"})
		assert.ErrorIs(t, err, domain.ErrAssetNotFound)
	})

	t.Run("hidden asset is visible to admins", func(t *testing.T) {
		p, err := q.Execute(ctx, &Request{Name: "mega.jpg", Mode: reconcile.ModeAdmin})
		require.NoError(t, err)
		assert.False(t, p.HasMetadata)
	})

	t.Run("unknown asset", func(t *testing.T) {
		_, err := q.Execute(ctx, &Request{ID: "nano", Mode: reconcile.ModeAdmin})
		assert.ErrorIs(t, err, domain.ErrAssetNotFound)
	})

	t.Run("empty request", func(t *testing.T) {
		_, err := q.Execute(ctx, &Request{})
		assert.ErrorIs(t, err, domain.ErrEmptyName)
	})
}

func TestGetProduct_SharedID(t *testing.T) {
	ctx := context.Background()
	stores := testutil.NewStores()
	stores.SeedLegacy(t, "uno.jpg")
	stores.SeedLegacy(t, "uno.png")
	stores.Annotate(t, "uno.png", domain.MetadataPatch{Title: domain.String("Arduino Uno")})
	q := newQuery(stores)

	p, err := q.Execute(ctx, &Request{ID: "uno"})
	require.NoError(t, err)
	assert.Equal(t, "uno.png", p.Name)
	assert.Equal(t, "Arduino Uno", p.Title)

	p, err = q.Execute(ctx, &Request{ID: "uno", Mode: reconcile.ModeAdmin})
	require.NoError(t, err)
	assert.Equal(t, "uno.jpg", p.Name)
}

func TestGetProduct_EnumerationFailure(t *testing.T) {
	stores := testutil.NewStores()
	stores.Legacy.FailList(errors.New("down"))

	_, err := newQuery(stores).Execute(context.Background(), &Request{Name: "uno.jpg"})
	require.Error(t, err)
	assert.True(t, domain.IsEnumerationFailure(err))
}
