package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/queries/list_products"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/usecases/set_metadata"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/usecases/upload_asset"
	"github.com/light-bringer/storefront-catalog/internal/config"
	"github.com/light-bringer/storefront-catalog/internal/views"
)

func newOptions(t *testing.T, env map[string]string) *ServiceOptions {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.FromViper(config.New())
	require.NoError(t, err)

	opts, err := NewServiceOptions(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(opts.Close)
	return opts
}

func TestServiceOptions_MemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	opts := newOptions(t, map[string]string{"CATALOG_METADATA_PROPAGATION_DELAY": "5ms"})
	opts.MountViews(ctx)
	t.Cleanup(opts.UnmountViews)

	require.NoError(t, opts.Ready(ctx))

	asset, err := opts.UploadAsset.Execute(ctx, &upload_asset.Request{
		FileName: "uno.jpg",
		Body:     strings.NewReader("jpeg"),
		Size:     4,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(opts.Admin.Unannotated()) == 1
	}, 3*time.Second, 10*time.Millisecond)

	_, err = opts.SetMetadata.Execute(ctx, &set_metadata.Request{
		RawName: asset.Name,
		Locator: asset.Locator,
		Patch:   domain.MetadataPatch{Title: domain.String("Arduino Uno"), Price: domain.Float(650)},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(opts.Gallery.Search(views.GalleryQuery{Term: "uno"})) == 1
	}, 3*time.Second, 10*time.Millisecond)

	resp, err := opts.ListProducts.Execute(ctx, &list_products.Request{})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "Arduino Uno", resp.Products[0].Title)

	stats, err := opts.CatalogStats.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Visible)
}

func TestServiceOptions_BoltBackend(t *testing.T) {
	ctx := context.Background()
	opts := newOptions(t, map[string]string{
		"METADATA_BACKEND": "bolt",
		"BOLT_PATH":        filepath.Join(t.TempDir(), "catalog.db"),
	})

	require.NoError(t, opts.Ready(ctx))
	rec, err := opts.SetMetadata.Execute(ctx, &set_metadata.Request{
		RawName: "uno.jpg",
		Patch:   domain.MetadataPatch{Title: domain.String("Uno")},
	})
	require.NoError(t, err)
	assert.Equal(t, "uno_jpg", rec.StorageKey)
}

func TestServiceOptions_BadBackend(t *testing.T) {
	t.Setenv("METADATA_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")
	cfg, err := config.FromViper(config.New())
	require.NoError(t, err)

	_, err = NewServiceOptions(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}
