package repo

import (
	"context"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/models/m_metadata"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
	"github.com/light-bringer/storefront-catalog/internal/pkg/committer"
	"github.com/light-bringer/storefront-catalog/internal/pkg/query"
)

const spannerScanPageSize = 500

// SpannerStore implements MetadataStore on the asset_metadata table.
type SpannerStore struct {
	client    *spanner.Client
	committer *committer.Committer
	model     *m_metadata.Model
	clock     clock.Clock
}

var _ contracts.MetadataStore = (*SpannerStore)(nil)

// NewSpannerStore creates a new SpannerStore.
func NewSpannerStore(client *spanner.Client, comm *committer.Committer, clk clock.Clock) *SpannerStore {
	return &SpannerStore{
		client:    client,
		committer: comm,
		model:     m_metadata.NewModel(),
		clock:     clk,
	}
}

// Get reads one row by primary key.
func (s *SpannerStore) Get(ctx context.Context, key string) (*domain.MetadataRecord, error) {
	row, err := s.client.Single().ReadRow(ctx, m_metadata.TableName, spanner.Key{key}, m_metadata.Columns)
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read metadata %s: %w", key, err)
	}

	var data m_metadata.Data
	if err := row.ToStruct(&data); err != nil {
		return nil, fmt.Errorf("failed to parse metadata %s: %w", key, err)
	}
	return dataToRecord(&data), nil
}

// Set merges patch into the row inside one read-write transaction. An
// existing row only has its dirty columns rewritten; a new row is written
// in full with defaults.
func (s *SpannerStore) Set(ctx context.Context, key string, patch domain.MetadataPatch) (*domain.MetadataRecord, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var merged *domain.MetadataRecord
	err := s.committer.ApplyInTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction, plan *committer.CommitPlan) error {
		now := s.clock.Now()

		row, err := txn.ReadRow(ctx, m_metadata.TableName, spanner.Key{key}, m_metadata.Columns)
		if err != nil {
			if spanner.ErrCode(err) != codes.NotFound {
				return fmt.Errorf("failed to read metadata %s: %w", key, err)
			}
			merged = domain.MergeMetadata(nil, key, patch, now)
			plan.Add(s.model.UpsertMut(recordToData(merged)))
			return nil
		}

		var data m_metadata.Data
		if err := row.ToStruct(&data); err != nil {
			return fmt.Errorf("failed to parse metadata %s: %w", key, err)
		}
		merged = domain.MergeMetadata(dataToRecord(&data), key, patch, now)
		plan.Add(s.model.UpdateMut(key, dirtyColumns(patch, merged)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// Delete removes the row.
func (s *SpannerStore) Delete(ctx context.Context, key string) error {
	plan := committer.NewPlan()
	plan.Add(s.model.DeleteMut(key))
	if err := s.committer.Apply(ctx, plan); err != nil {
		return fmt.Errorf("failed to delete metadata %s: %w", key, err)
	}
	return nil
}

// Scan reads the table in key order, one page at a time.
func (s *SpannerStore) Scan(ctx context.Context) ([]*domain.MetadataRecord, error) {
	scan := query.Keyset(m_metadata.TableName, m_metadata.StorageKey, spannerScanPageSize).
		Columns(m_metadata.Columns...)

	var (
		out     []*domain.MetadataRecord
		lastKey string
	)
	for {
		page, err := s.scanPage(ctx, scan.Page(lastKey))
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if scan.Last(len(page)) {
			return out, nil
		}
		lastKey = page[len(page)-1].StorageKey
	}
}

func (s *SpannerStore) scanPage(ctx context.Context, stmt spanner.Statement) ([]*domain.MetadataRecord, error) {
	iter := s.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	records := make([]*domain.MetadataRecord, 0, spannerScanPageSize)
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate metadata: %w", err)
		}

		var data m_metadata.Data
		if err := row.ToStruct(&data); err != nil {
			return nil, fmt.Errorf("failed to parse metadata: %w", err)
		}
		records = append(records, dataToRecord(&data))
	}
	return records, nil
}

// dirtyColumns maps the fields a patch touched to their merged column values.
func dirtyColumns(patch domain.MetadataPatch, merged *domain.MetadataRecord) map[string]interface{} {
	data := recordToData(merged)
	updates := make(map[string]interface{})

	for _, field := range patch.DirtyFields() {
		switch field {
		case domain.FieldName:
			updates[m_metadata.Name] = data.Name
		case domain.FieldTitle:
			updates[m_metadata.Title] = data.Title
		case domain.FieldDescription:
			updates[m_metadata.Description] = data.Description
		case domain.FieldCategory:
			updates[m_metadata.Category] = data.Category
		case domain.FieldPrice:
			updates[m_metadata.Price] = data.Price
		case domain.FieldCurrency:
			updates[m_metadata.Currency] = data.Currency
		case domain.FieldInStock:
			updates[m_metadata.InStock] = data.InStock
		case domain.FieldFeatured:
			updates[m_metadata.Featured] = data.Featured
		case domain.FieldTags:
			updates[m_metadata.Tags] = data.Tags
		case domain.FieldVideoURL:
			updates[m_metadata.VideoURL] = data.VideoURL
		case domain.FieldPublicURL:
			updates[m_metadata.PublicURL] = data.PublicURL
		}
	}

	updates[m_metadata.UpdatedAt] = data.UpdatedAt
	return updates
}

func recordToData(rec *domain.MetadataRecord) *m_metadata.Data {
	data := &m_metadata.Data{
		StorageKey:  rec.StorageKey,
		Name:        spanner.NullString{StringVal: rec.Name, Valid: true},
		Title:       spanner.NullString{StringVal: rec.Title, Valid: true},
		Description: spanner.NullString{StringVal: rec.Description, Valid: true},
		Category:    spanner.NullString{StringVal: rec.Category, Valid: true},
		Currency:    spanner.NullString{StringVal: rec.Currency, Valid: true},
		InStock:     spanner.NullBool{Bool: rec.InStock, Valid: true},
		Featured:    spanner.NullBool{Bool: rec.Featured, Valid: true},
		Tags:        rec.Tags,
		VideoURL:    spanner.NullString{StringVal: rec.VideoURL, Valid: rec.VideoURL != ""},
		PublicURL:   spanner.NullString{StringVal: rec.PublicURL, Valid: rec.PublicURL != ""},
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if rec.Price != nil {
		data.Price = spanner.NullFloat64{Float64: *rec.Price, Valid: true}
	}
	if data.Tags == nil {
		data.Tags = []string{}
	}
	return data
}

// dataToRecord fills NULL columns with the record defaults.
func dataToRecord(data *m_metadata.Data) *domain.MetadataRecord {
	rec := domain.NewMetadataRecord(data.StorageKey, data.CreatedAt)
	rec.Name = data.Name.StringVal
	rec.Title = data.Title.StringVal
	rec.Description = data.Description.StringVal
	rec.Category = data.Category.StringVal
	if data.Price.Valid {
		price := data.Price.Float64
		rec.Price = &price
	}
	if data.Currency.Valid && data.Currency.StringVal != "" {
		rec.Currency = data.Currency.StringVal
	}
	if data.InStock.Valid {
		rec.InStock = data.InStock.Bool
	}
	if data.Featured.Valid {
		rec.Featured = data.Featured.Bool
	}
	if data.Tags != nil {
		rec.Tags = append([]string{}, data.Tags...)
	}
	rec.VideoURL = data.VideoURL.StringVal
	rec.PublicURL = data.PublicURL.StringVal
	rec.UpdatedAt = data.UpdatedAt
	return rec
}
