// Package testutil holds fixtures shared by the tests of several packages.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/blob"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/repo"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
)

const (
	LegacyBucket = "legacy"
	AssetBucket  = "assets"
	AssetPrefix  = "products"
	PublicBase   = "http://cdn.test"
)

// Epoch is the start time of every fixture clock.
var Epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Stores is an in-memory set of the three collaborating stores, each
// wrapped for fault injection.
type Stores struct {
	Clock    *clock.MockClock
	Legacy   *FlakyAssetStore
	Assets   *FlakyAssetStore
	Metadata *FlakyMetadataStore
}

// NewStores builds empty stores.
func NewStores() *Stores {
	clk := clock.NewMockClock(Epoch)
	return &Stores{
		Clock:    clk,
		Legacy:   NewFlakyAssetStore(blob.NewMemoryStore(LegacyBucket, PublicBase)),
		Assets:   NewFlakyAssetStore(blob.NewMemoryStore(AssetBucket, PublicBase)),
		Metadata: NewFlakyMetadataStore(repo.NewMemoryStore(clk)),
	}
}

// SeedLegacy puts a file into the legacy folder and returns its listing entry.
func (s *Stores) SeedLegacy(t *testing.T, name string) domain.RawAsset {
	t.Helper()
	return s.seed(t, s.Legacy, name)
}

// SeedAsset puts a file into the asset store and returns its listing entry.
func (s *Stores) SeedAsset(t *testing.T, name string) domain.RawAsset {
	t.Helper()
	return s.seed(t, s.Assets, name)
}

func (s *Stores) seed(t *testing.T, store *FlakyAssetStore, name string) domain.RawAsset {
	mem, ok := store.AssetBackend.(*blob.MemoryStore)
	require.True(t, ok, "fixture store is not in-memory")
	return mem.Seed(blob.UploadPath(AssetPrefix, name), []byte("data:"+name))
}

// Annotate writes metadata for a raw asset name.
func (s *Stores) Annotate(t *testing.T, rawName string, patch domain.MetadataPatch) *domain.MetadataRecord {
	t.Helper()
	rec, err := s.Metadata.Set(context.Background(), domain.DeriveKey(rawName), patch)
	require.NoError(t, err)
	return rec
}
