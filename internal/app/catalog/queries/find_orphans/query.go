package find_orphans

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/reconcile"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/repo"
)

// Request selects whether metadata orphans are removed once found.
type Request struct {
	Purge bool
}

// Response lists both kinds of mismatch between the two stores.
type Response struct {
	// MetadataOrphans are records whose key matches no listed asset.
	MetadataOrphans []*domain.MetadataRecord `json:"metadata_orphans"`
	// UnannotatedAssets are assets without any record.
	UnannotatedAssets []domain.RawAsset `json:"unannotated_assets"`
	// Purged counts the orphan records deleted.
	Purged int `json:"purged"`
}

// Query handles the find orphans query use case.
type Query struct {
	engine   *reconcile.Engine
	metadata contracts.MetadataStore
	log      *zap.Logger
}

// NewQuery creates a new find orphans query.
func NewQuery(engine *reconcile.Engine, metadata contracts.MetadataStore, log *zap.Logger) *Query {
	return &Query{engine: engine, metadata: metadata, log: log.Named("find_orphans")}
}

// Execute compares the asset listing with a full metadata scan.
func (q *Query) Execute(ctx context.Context, req *Request) (*Response, error) {
	assets, err := q.engine.Enumerate(ctx)
	if err != nil {
		return nil, err
	}
	records, err := q.metadata.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan metadata: %w", err)
	}

	listed := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		listed[domain.DeriveKey(a.Name)] = struct{}{}
	}
	annotated := make(map[string]struct{}, len(records))

	resp := &Response{
		MetadataOrphans:   []*domain.MetadataRecord{},
		UnannotatedAssets: []domain.RawAsset{},
	}
	for _, rec := range records {
		if repo.IsProbeKey(rec.StorageKey) {
			continue
		}
		annotated[rec.StorageKey] = struct{}{}
		if _, ok := listed[rec.StorageKey]; !ok {
			resp.MetadataOrphans = append(resp.MetadataOrphans, rec)
		}
	}
	for _, a := range assets {
		if _, ok := annotated[domain.DeriveKey(a.Name)]; !ok {
			resp.UnannotatedAssets = append(resp.UnannotatedAssets, a)
		}
	}

	sort.Slice(resp.MetadataOrphans, func(i, j int) bool {
		return resp.MetadataOrphans[i].StorageKey < resp.MetadataOrphans[j].StorageKey
	})
	sort.Slice(resp.UnannotatedAssets, func(i, j int) bool {
		return resp.UnannotatedAssets[i].Name < resp.UnannotatedAssets[j].Name
	})

	if req.Purge {
		for _, rec := range resp.MetadataOrphans {
			if err := q.metadata.Delete(ctx, rec.StorageKey); err != nil {
				return resp, fmt.Errorf("failed to purge orphan %s: %w", rec.StorageKey, err)
			}
			resp.Purged++
		}
	}

	q.log.Info("orphan scan",
		zap.Int("assets", len(assets)),
		zap.Int("records", len(records)),
		zap.Int("metadata_orphans", len(resp.MetadataOrphans)),
		zap.Int("unannotated", len(resp.UnannotatedAssets)),
		zap.Int("purged", resp.Purged),
	)
	return resp, nil
}
