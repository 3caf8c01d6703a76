package views

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/reconcile"
	"github.com/light-bringer/storefront-catalog/internal/bus"
	"github.com/light-bringer/storefront-catalog/internal/metrics"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
)

const GallerySlot = "gallery"

// GalleryQuery filters the gallery.
type GalleryQuery struct {
	Term     string
	Category string
	SortDesc bool
}

// Gallery is the searchable storefront grid.
type Gallery struct {
	*Cache
}

// NewGallery creates the gallery view on a storefront reconciliation.
func NewGallery(engine *reconcile.Engine, b *bus.Bus, clk clock.Clock, log *zap.Logger, m *metrics.Metrics) *Gallery {
	return &Gallery{Cache: NewCache(GallerySlot, EngineLoader(engine, reconcile.ModeStorefront), b, clk, log, m)}
}

// Search matches the term against titles and descriptions and sorts by title.
func (g *Gallery) Search(q GalleryQuery) []domain.Product {
	out := []domain.Product{}
	for _, p := range g.products() {
		if p.InCategory(q.Category) && p.MatchesTerm(q.Term) {
			out = append(out, p)
		}
	}
	domain.SortProducts(out, domain.SortByTitle, q.SortDesc)
	return out
}

// Categories returns the distinct categories, sorted.
func (g *Gallery) Categories() []string {
	seen := map[string]string{}
	for _, p := range g.products() {
		c := strings.TrimSpace(p.Category)
		if c == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(c)]; !ok {
			seen[strings.ToLower(c)] = c
		}
	}
	out := make([]string, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}
