package set_metadata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
)

// Request contains the metadata to merge into one asset's record.
type Request struct {
	RawName string
	// Locator is recorded as the record's public URL when the patch does
	// not set one. Optional.
	Locator string
	Patch   domain.MetadataPatch
}

// Interactor handles the set metadata use case.
type Interactor struct {
	store       contracts.MetadataStore
	invalidator contracts.Invalidator
	delay       time.Duration
	log         *zap.Logger
}

// NewInteractor creates a new set metadata interactor. delay is the
// propagation delay applied before the change is announced.
func NewInteractor(
	store contracts.MetadataStore,
	invalidator contracts.Invalidator,
	delay time.Duration,
	log *zap.Logger,
) *Interactor {
	return &Interactor{
		store:       store,
		invalidator: invalidator,
		delay:       delay,
		log:         log.Named("set_metadata"),
	}
}

// Execute merges the patch into the record keyed by the asset's storage key
// and returns the stored record. A non-empty title makes the asset visible
// and an empty one hides it; the record itself is never removed here.
func (i *Interactor) Execute(ctx context.Context, req *Request) (*domain.MetadataRecord, error) {
	// 1. Validate
	if strings.TrimSpace(req.RawName) == "" {
		return nil, domain.ErrEmptyName
	}
	if err := req.Patch.Validate(); err != nil {
		return nil, err
	}

	// 2. Fill in identity fields the admin did not set
	patch := req.Patch
	if patch.Name == nil {
		patch.Name = domain.String(req.RawName)
	}
	if patch.PublicURL == nil && req.Locator != "" {
		patch.PublicURL = domain.String(req.Locator)
	}

	// 3. Write
	key := domain.DeriveKey(req.RawName)
	rec, err := i.store.Set(ctx, key, patch)
	if err != nil {
		i.log.Warn("metadata write failed", zap.String("asset", req.RawName), zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to set metadata for %s: %w", req.RawName, err)
	}

	i.log.Info("metadata updated",
		zap.String("asset", req.RawName),
		zap.String("key", key),
		zap.Strings("fields", req.Patch.DirtyFields()),
		zap.Bool("visible", domain.IsVisible(rec)),
	)

	// 4. Announce once the write has completed
	i.invalidator.NotifyAfter(i.delay)
	i.invalidator.InvokeSlots()

	return rec, nil
}
