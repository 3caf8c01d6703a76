package contracts

import (
	"context"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
)

// Enumerator is the legacy listing source. It returns names and sizes only;
// the locator is built from the public URL pattern.
type Enumerator interface {
	List(ctx context.Context, folder string) ([]domain.RawAsset, error)
}
