package catalog_stats

import (
	"context"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/reconcile"
)

// Stats summarizes the catalog. Stock and featured counts only consider
// visible products.
type Stats struct {
	Assets       int            `json:"assets"`
	WithMetadata int            `json:"with_metadata"`
	Visible      int            `json:"visible"`
	Hidden       int            `json:"hidden"`
	InStock      int            `json:"in_stock"`
	OutOfStock   int            `json:"out_of_stock"`
	Featured     int            `json:"featured"`
	Categories   map[string]int `json:"categories"`
}

// Query handles the catalog stats query use case.
type Query struct {
	engine *reconcile.Engine
}

// NewQuery creates a new catalog stats query.
func NewQuery(engine *reconcile.Engine) *Query {
	return &Query{engine: engine}
}

// Execute runs an admin reconciliation and counts it.
func (q *Query) Execute(ctx context.Context) (*Stats, error) {
	products, err := q.engine.Reconcile(ctx, reconcile.ModeAdmin)
	if err != nil {
		return nil, err
	}

	s := &Stats{Assets: len(products), Categories: map[string]int{}}
	for _, p := range products {
		if p.HasMetadata {
			s.WithMetadata++
		}
		if !p.Visible {
			s.Hidden++
			continue
		}
		s.Visible++
		if p.InStock {
			s.InStock++
		} else {
			s.OutOfStock++
		}
		if p.Featured {
			s.Featured++
		}
		if p.Category != "" {
			s.Categories[p.Category]++
		}
	}
	return s, nil
}
