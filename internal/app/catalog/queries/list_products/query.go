package list_products

import (
	"context"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/reconcile"
)

// DefaultLimit is the page size when the request leaves it unset.
const DefaultLimit = 50

// MaxLimit caps the page size.
const MaxLimit = 500

// Request contains filtering, ordering and pagination parameters.
type Request struct {
	Mode     reconcile.Mode
	Category string
	Featured *bool
	InStock  *bool
	Search   string
	Sort     domain.SortKey
	Desc     bool
	Limit    int
	Offset   int
}

// Response is one page of products.
type Response struct {
	Products []domain.Product `json:"products"`
	// Total counts the matches before paging.
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Query handles the list products query use case.
type Query struct {
	engine *reconcile.Engine
}

// NewQuery creates a new list products query.
func NewQuery(engine *reconcile.Engine) *Query {
	return &Query{engine: engine}
}

// Execute runs a full reconciliation and filters, sorts and pages it.
func (q *Query) Execute(ctx context.Context, req *Request) (*Response, error) {
	mode := req.Mode
	if mode == "" {
		mode = reconcile.ModeStorefront
	}

	products, err := q.engine.Reconcile(ctx, mode)
	if err != nil {
		return nil, err
	}

	filtered := products[:0]
	for _, p := range products {
		if !p.InCategory(req.Category) || !p.MatchesTerm(req.Search) {
			continue
		}
		if req.Featured != nil && p.Featured != *req.Featured {
			continue
		}
		if req.InStock != nil && p.InStock != *req.InStock {
			continue
		}
		filtered = append(filtered, p)
	}

	sortKey := req.Sort
	if sortKey == "" {
		sortKey = domain.SortByTitle
		if mode == reconcile.ModeAdmin {
			sortKey = domain.SortByName
		}
	}
	domain.SortProducts(filtered, sortKey, req.Desc)

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	resp := &Response{Total: len(filtered), Limit: limit, Offset: offset, Products: []domain.Product{}}
	if offset < len(filtered) {
		end := min(offset+limit, len(filtered))
		resp.Products = filtered[offset:end]
	}
	return resp, nil
}
