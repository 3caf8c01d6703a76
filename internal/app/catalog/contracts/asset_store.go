package contracts

import (
	"context"
	"io"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
)

// AssetStore holds the uploaded binaries. It never sees metadata.
type AssetStore interface {
	// Put stores body under path and returns the stored asset.
	Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) (domain.RawAsset, error)

	// Delete removes the object behind locator. It reports false when the
	// object did not exist.
	Delete(ctx context.Context, locator string) (bool, error)

	// List returns every object under prefix.
	List(ctx context.Context, prefix string) ([]domain.RawAsset, error)
}
