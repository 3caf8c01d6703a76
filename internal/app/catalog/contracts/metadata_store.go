package contracts

import (
	"context"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
)

// MetadataStore is the keyed document store for admin-entered attributes.
// Writers follow last-write-wins with a field-level merge.
type MetadataStore interface {
	// Get returns the record for key, or nil and no error when absent.
	Get(ctx context.Context, key string) (*domain.MetadataRecord, error)

	// Set creates the record if needed, merges patch into it, stamps
	// UpdatedAt (and CreatedAt on create) and returns the stored record.
	Set(ctx context.Context, key string, patch domain.MetadataPatch) (*domain.MetadataRecord, error)

	// Delete removes the record. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Scan returns every record in the collection, unordered.
	Scan(ctx context.Context) ([]*domain.MetadataRecord, error)
}

