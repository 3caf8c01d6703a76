package find_orphans

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/reconcile"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/usecases/delete_asset"
	"github.com/light-bringer/storefront-catalog/internal/testutil"
)

func newQuery(t *testing.T, stores *testutil.Stores) *Query {
	engine := reconcile.NewEngine(stores.Legacy, stores.Assets, stores.Metadata, reconcile.Options{
		LegacyFolder: testutil.AssetPrefix,
		AssetPrefix:  testutil.AssetPrefix,
	}, zap.NewNop(), nil)
	return NewQuery(engine, stores.Metadata, zaptest.NewLogger(t))
}

func TestFindOrphans(t *testing.T) {
	ctx := context.Background()
	stores := testutil.NewStores()
	stores.SeedLegacy(t, "uno.jpg")
	stores.SeedAsset(t, "mega.jpg")
	stores.Annotate(t, "uno.jpg", domain.MetadataPatch{Title: domain.String("Uno")})
	stores.Annotate(t, "gone.jpg", domain.MetadataPatch{Title: domain.String("Gone")})
	_, err := stores.Metadata.Set(ctx, "__probe_1234abcd", domain.MetadataPatch{Title: domain.String("probe")})
	require.NoError(t, err)

	q := newQuery(t, stores)

	resp, err := q.Execute(ctx, &Request{})
	require.NoError(t, err)
	require.Len(t, resp.MetadataOrphans, 1)
	assert.Equal(t, "gone_jpg", resp.MetadataOrphans[0].StorageKey)
	require.Len(t, resp.UnannotatedAssets, 1)
	assert.Equal(t, "mega.jpg", resp.UnannotatedAssets[0].Name)
	assert.Zero(t, resp.Purged)

	resp, err = q.Execute(ctx, &Request{Purge: true})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Purged)

	resp, err = q.Execute(ctx, &Request{})
	require.NoError(t, err)
	assert.Empty(t, resp.MetadataOrphans)
}

func TestFindOrphans_AfterPartialDelete(t *testing.T) {
	ctx := context.Background()
	stores := testutil.NewStores()
	asset := stores.SeedAsset(t, "uno.jpg")
	stores.Annotate(t, "uno.jpg", domain.MetadataPatch{Title: domain.String("Uno")})
	stores.Metadata.FailDelete(errors.New("timeout"))

	deleter := delete_asset.NewInteractor(stores.Assets, stores.Metadata, &testutil.RecordingInvalidator{},
		delete_asset.Options{}, zap.NewNop(), nil)
	_, err := deleter.Execute(ctx, &delete_asset.Request{RawName: asset.Name, Locator: asset.Locator})
	pde, ok := domain.AsPartialDelete(err)
	require.True(t, ok)
	require.Equal(t, domain.OrphanMetadata, pde.Kind)

	resp, err := newQuery(t, stores).Execute(ctx, &Request{})
	require.NoError(t, err)
	require.Len(t, resp.MetadataOrphans, 1)
	assert.Equal(t, pde.Key, resp.MetadataOrphans[0].StorageKey)
}

func TestFindOrphans_Failures(t *testing.T) {
	t.Run("scan", func(t *testing.T) {
		stores := testutil.NewStores()
		stores.Metadata.FailScan(errors.New("scan refused"))
		_, err := newQuery(t, stores).Execute(context.Background(), &Request{})
		assert.ErrorContains(t, err, "scan refused")
	})

	t.Run("listing", func(t *testing.T) {
		stores := testutil.NewStores()
		stores.Assets.FailList(errors.New("down"))
		_, err := newQuery(t, stores).Execute(context.Background(), &Request{})
		assert.True(t, domain.IsEnumerationFailure(err))
	})
}
