package views

import (
	"go.uber.org/zap"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/reconcile"
	"github.com/light-bringer/storefront-catalog/internal/bus"
	"github.com/light-bringer/storefront-catalog/internal/metrics"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
)

const AdminSlot = "admin"

// Admin lists every asset, annotated or not.
type Admin struct {
	*Cache
}

// NewAdmin creates the admin view on an admin reconciliation.
func NewAdmin(engine *reconcile.Engine, b *bus.Bus, clk clock.Clock, log *zap.Logger, m *metrics.Metrics) *Admin {
	return &Admin{Cache: NewCache(AdminSlot, EngineLoader(engine, reconcile.ModeAdmin), b, clk, log, m)}
}

// Products returns every asset by raw name.
func (a *Admin) Products() []domain.Product {
	out := a.products()
	domain.SortProducts(out, domain.SortByName, false)
	return out
}

// Unannotated returns the assets that are not visible yet.
func (a *Admin) Unannotated() []domain.Product {
	out := []domain.Product{}
	for _, p := range a.Products() {
		if !p.Visible {
			out = append(out, p)
		}
	}
	return out
}
