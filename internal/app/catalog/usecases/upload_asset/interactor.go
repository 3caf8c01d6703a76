package upload_asset

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
)

// Request contains one file to upload.
type Request struct {
	FileName    string
	ContentType string
	Body        io.Reader
	// Size is the body length, or -1 when unknown.
	Size int64
}

// Options tunes object naming.
type Options struct {
	// Prefix is the folder uploads go to.
	Prefix string
	// KeepOriginalName stores the file under its own name instead of
	// <unix-ms>-<name>. Re-uploading a name then overwrites the object.
	KeepOriginalName bool
}

// Interactor handles the upload asset use case.
type Interactor struct {
	assets      contracts.AssetStore
	invalidator contracts.Invalidator
	clock       clock.Clock
	opts        Options
	log         *zap.Logger
}

// NewInteractor creates a new upload asset interactor.
func NewInteractor(
	assets contracts.AssetStore,
	invalidator contracts.Invalidator,
	clk clock.Clock,
	opts Options,
	log *zap.Logger,
) *Interactor {
	return &Interactor{
		assets:      assets,
		invalidator: invalidator,
		clock:       clk,
		opts:        opts,
		log:         log.Named("upload_asset"),
	}
}

// Execute stores the file and announces the change. The new asset has no
// metadata and stays hidden until an admin gives it a title.
func (i *Interactor) Execute(ctx context.Context, req *Request) (domain.RawAsset, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(req.FileName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return domain.RawAsset{}, domain.ErrEmptyName
	}
	if req.Body == nil {
		return domain.RawAsset{}, fmt.Errorf("upload %s: empty body", name)
	}

	objectName := name
	if !i.opts.KeepOriginalName {
		objectName = fmt.Sprintf("%d-%s", i.clock.Now().UnixMilli(), name)
	}
	objectPath := path.Join(strings.Trim(i.opts.Prefix, "/"), objectName)

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	asset, err := i.assets.Put(ctx, objectPath, req.Body, req.Size, contentType)
	if err != nil {
		i.log.Warn("upload failed", zap.String("path", objectPath), zap.Error(err))
		return domain.RawAsset{}, fmt.Errorf("failed to upload %s: %w", name, err)
	}

	i.log.Info("asset uploaded",
		zap.String("path", objectPath),
		zap.Int64("size", asset.SizeBytes),
		zap.String("key", domain.DeriveKey(asset.Name)),
	)

	// No metadata was written, so there is nothing to wait for.
	i.invalidator.NotifyChanged()
	return asset, nil
}
