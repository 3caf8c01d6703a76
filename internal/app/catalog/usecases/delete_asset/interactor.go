package delete_asset

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/metrics"
)

// Request identifies the asset to delete.
type Request struct {
	RawName string
	Locator string
}

// Response reports what was removed.
type Response struct {
	Key string
	// AssetRemoved is false when the binary was already gone.
	AssetRemoved bool
}

// Options tunes the delete ordering.
type Options struct {
	// MetadataFirst deletes the record before the binary. A failed binary
	// delete then leaves an orphaned asset instead of orphaned metadata.
	MetadataFirst bool
}

// Interactor handles the delete asset use case. The two stores are not
// transactional with each other; a failure between the two steps is
// reported as a PartialDeleteFailure naming the orphaned side.
type Interactor struct {
	assets      contracts.AssetStore
	metadata    contracts.MetadataStore
	invalidator contracts.Invalidator
	opts        Options
	log         *zap.Logger
	metrics     *metrics.Metrics
}

// NewInteractor creates a new delete asset interactor.
func NewInteractor(
	assets contracts.AssetStore,
	metadata contracts.MetadataStore,
	invalidator contracts.Invalidator,
	opts Options,
	log *zap.Logger,
	m *metrics.Metrics,
) *Interactor {
	return &Interactor{
		assets:      assets,
		metadata:    metadata,
		invalidator: invalidator,
		opts:        opts,
		log:         log.Named("delete_asset"),
		metrics:     m,
	}
}

// Execute deletes the binary and the metadata record of one asset.
func (i *Interactor) Execute(ctx context.Context, req *Request) (*Response, error) {
	if strings.TrimSpace(req.RawName) == "" {
		return nil, domain.ErrEmptyName
	}
	if req.Locator == "" {
		return nil, fmt.Errorf("%w: no locator for %s", domain.ErrAssetNotFound, req.RawName)
	}

	key := domain.DeriveKey(req.RawName)
	log := i.log.With(zap.String("asset", req.RawName), zap.String("key", key))

	if i.opts.MetadataFirst {
		return i.metadataFirst(ctx, req, key, log)
	}
	return i.assetFirst(ctx, req, key, log)
}

func (i *Interactor) assetFirst(ctx context.Context, req *Request, key string, log *zap.Logger) (*Response, error) {
	// 1. Binary
	removed, err := i.assets.Delete(ctx, req.Locator)
	if err != nil {
		i.metrics.DeleteFailed("asset")
		log.Warn("asset delete failed, nothing changed", zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrAssetDeleteFailed, req.RawName, err)
	}

	// 2. Metadata
	if err := i.metadata.Delete(ctx, key); err != nil {
		i.metrics.DeleteFailed("orphan_metadata")
		log.Error("metadata orphaned after asset delete", zap.Error(err))
		i.invalidator.NotifyChanged()
		return nil, domain.PartialDeleteFailure.Wrap(&domain.PartialDeleteError{
			Kind:    domain.OrphanMetadata,
			RawName: req.RawName,
			Key:     key,
			Err:     err,
		})
	}

	log.Info("asset deleted", zap.Bool("asset_removed", removed))
	i.invalidator.NotifyChanged()
	return &Response{Key: key, AssetRemoved: removed}, nil
}

func (i *Interactor) metadataFirst(ctx context.Context, req *Request, key string, log *zap.Logger) (*Response, error) {
	// 1. Metadata
	if err := i.metadata.Delete(ctx, key); err != nil {
		i.metrics.DeleteFailed("metadata")
		log.Warn("metadata delete failed, nothing changed", zap.Error(err))
		return nil, fmt.Errorf("failed to delete metadata for %s: %w", req.RawName, err)
	}

	// 2. Binary
	removed, err := i.assets.Delete(ctx, req.Locator)
	if err != nil {
		i.metrics.DeleteFailed("orphan_asset")
		log.Error("asset orphaned after metadata delete", zap.Error(err))
		i.invalidator.NotifyChanged()
		return nil, domain.PartialDeleteFailure.Wrap(&domain.PartialDeleteError{
			Kind:    domain.OrphanAsset,
			RawName: req.RawName,
			Key:     key,
			Err:     err,
		})
	}

	log.Info("asset deleted", zap.Bool("asset_removed", removed))
	i.invalidator.NotifyChanged()
	return &Response{Key: key, AssetRemoved: removed}, nil
}
