package get_product

import (
	"context"
	"fmt"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/reconcile"
)

// Request identifies one product by its ID or by its raw asset name.
type Request struct {
	ID   string
	Name string
	Mode reconcile.Mode
}

// Query handles the get product query use case.
type Query struct {
	engine *reconcile.Engine
}

// NewQuery creates a new get product query.
func NewQuery(engine *reconcile.Engine) *Query {
	return &Query{engine: engine}
}

// Execute enumerates the assets and reconciles only the ones asked for. In
// storefront mode an asset that is not visible is reported as not found.
// IDs drop the extension, so uno.jpg and uno.png share the ID "uno"; every
// asset with the ID is reconciled and the first one that survives wins.
func (q *Query) Execute(ctx context.Context, req *Request) (*domain.Product, error) {
	if req.ID == "" && req.Name == "" {
		return nil, domain.ErrEmptyName
	}

	assets, err := q.engine.Enumerate(ctx)
	if err != nil {
		return nil, err
	}

	var match []domain.RawAsset
	for _, a := range assets {
		if (req.Name != "" && a.Name == req.Name) || (req.ID != "" && domain.ProductID(a.Name) == req.ID) {
			match = append(match, a)
		}
	}
	if len(match) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrAssetNotFound, describe(req))
	}

	mode := req.Mode
	if mode == "" {
		mode = reconcile.ModeStorefront
	}
	products, err := q.engine.ReconcileAssets(ctx, match, mode)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrAssetNotFound, describe(req))
	}
	return &products[0], nil
}

func describe(req *Request) string {
	if req.Name != "" {
		return req.Name
	}
	return "id " + req.ID
}
