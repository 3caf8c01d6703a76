package views

import (
	"go.uber.org/zap"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/reconcile"
	"github.com/light-bringer/storefront-catalog/internal/bus"
	"github.com/light-bringer/storefront-catalog/internal/metrics"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
)

const (
	HomeSlot = "home"
	// FeaturedLimit caps the featured strip.
	FeaturedLimit = 8
)

// Home is the storefront landing page.
type Home struct {
	*Cache
}

// NewHome creates the home view on a storefront reconciliation.
func NewHome(engine *reconcile.Engine, b *bus.Bus, clk clock.Clock, log *zap.Logger, m *metrics.Metrics) *Home {
	return &Home{Cache: NewCache(HomeSlot, EngineLoader(engine, reconcile.ModeStorefront), b, clk, log, m)}
}

// Featured returns featured products that have a price, by title.
func (h *Home) Featured() []domain.Product {
	var out []domain.Product
	for _, p := range h.products() {
		if p.Featured && p.Price != nil {
			out = append(out, p)
		}
	}
	domain.SortProducts(out, domain.SortByTitle, false)
	if len(out) > FeaturedLimit {
		out = out[:FeaturedLimit]
	}
	return out
}

// ByCategory returns the products of one category, by title.
func (h *Home) ByCategory(category string) []domain.Product {
	var out []domain.Product
	for _, p := range h.products() {
		if category != "" && p.InCategory(category) {
			out = append(out, p)
		}
	}
	domain.SortProducts(out, domain.SortByTitle, false)
	return out
}
