// Package reconcile joins asset listings with metadata lookups into
// products. It only reads: no store is ever written from here.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/metrics"
)

// Mode selects which products a pass returns.
type Mode string

const (
	// ModeStorefront keeps only visible products.
	ModeStorefront Mode = "storefront"
	// ModeAdmin keeps every asset, annotated or not.
	ModeAdmin Mode = "admin"
)

// DefaultConcurrency bounds parallel metadata lookups when Options leaves it unset.
const DefaultConcurrency = 8

// Options configures an Engine.
type Options struct {
	// LegacyFolder is listed on the enumerator.
	LegacyFolder string
	// AssetPrefix is listed on the asset store.
	AssetPrefix string
	// Concurrency bounds parallel metadata lookups.
	Concurrency int
}

// Engine reconciles the listings with the metadata store on every call.
// It keeps no state between passes.
type Engine struct {
	enumerator contracts.Enumerator
	assets     contracts.AssetStore
	metadata   contracts.MetadataStore
	opts       Options
	log        *zap.Logger
	metrics    *metrics.Metrics
}

// NewEngine creates an Engine. assets may be nil when uploads go straight
// into the legacy listing.
func NewEngine(
	enumerator contracts.Enumerator,
	assets contracts.AssetStore,
	metadata contracts.MetadataStore,
	opts Options,
	log *zap.Logger,
	m *metrics.Metrics,
) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Engine{
		enumerator: enumerator,
		assets:     assets,
		metadata:   metadata,
		opts:       opts,
		log:        log.Named("reconcile"),
		metrics:    m,
	}
}

// Reconcile lists every asset, looks up its metadata and merges them.
// A listing failure is returned as an EnumerationFailure and never as an
// empty catalog. Lookup failures are logged and the asset is treated as
// having no metadata. The result is unordered.
func (e *Engine) Reconcile(ctx context.Context, mode Mode) (products []domain.Product, err error) {
	started := time.Now()
	defer func() { e.metrics.ObserveReconcile(string(mode), started, err) }()

	assets, err := e.Enumerate(ctx)
	if err != nil {
		return nil, err
	}
	return e.ReconcileAssets(ctx, assets, mode)
}

// Enumerate returns the union of the legacy listing and the asset store
// listing. On a name clash the asset store entry wins.
func (e *Engine) Enumerate(ctx context.Context) ([]domain.RawAsset, error) {
	var legacy, stored []domain.RawAsset

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		legacy, err = e.enumerator.List(gctx, e.opts.LegacyFolder)
		if err != nil {
			return domain.EnumerationFailure.Wrap(fmt.Errorf("legacy listing of %q: %w", e.opts.LegacyFolder, err))
		}
		return nil
	})
	if e.assets != nil {
		g.Go(func() error {
			var err error
			stored, err = e.assets.List(gctx, e.opts.AssetPrefix)
			if err != nil {
				return domain.EnumerationFailure.Wrap(fmt.Errorf("asset store listing of %q: %w", e.opts.AssetPrefix, err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.log.Error("enumeration failed", zap.Error(err))
		return nil, err
	}

	return domain.UnionAssets(legacy, stored), nil
}

// ReconcileAssets runs the lookup and merge steps on a listing the caller
// already holds.
func (e *Engine) ReconcileAssets(ctx context.Context, assets []domain.RawAsset, mode Mode) ([]domain.Product, error) {
	records := make([]*domain.MetadataRecord, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, asset := range assets {
		g.Go(func() error {
			key := domain.DeriveKey(asset.Name)
			rec, err := e.metadata.Get(gctx, key)
			if err != nil {
				e.metrics.LookupFailed()
				e.log.Warn("metadata lookup failed",
					zap.String("asset", asset.Name),
					zap.String("key", key),
					zap.Error(domain.LookupFailure.Wrap(err)),
				)
				return nil
			}
			records[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	// A canceled pass would otherwise look like a catalog without metadata.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(assets))
	for i, asset := range assets {
		p := domain.Merge(asset, records[i])
		if mode == ModeStorefront && !p.Visible {
			continue
		}
		products = append(products, p)
	}

	e.log.Debug("reconciled",
		zap.String("mode", string(mode)),
		zap.Int("assets", len(assets)),
		zap.Int("products", len(products)),
	)
	return products, nil
}
