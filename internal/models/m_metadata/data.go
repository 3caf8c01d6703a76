package m_metadata

import (
	"time"

	"cloud.google.com/go/spanner"
)

// Data is one row of asset_metadata.
type Data struct {
	StorageKey  string              `spanner:"storage_key"`
	Name        spanner.NullString  `spanner:"name"`
	Title       spanner.NullString  `spanner:"title"`
	Description spanner.NullString  `spanner:"description"`
	Category    spanner.NullString  `spanner:"category"`
	Price       spanner.NullFloat64 `spanner:"price"`
	Currency    spanner.NullString  `spanner:"currency"`
	InStock     spanner.NullBool    `spanner:"in_stock"`
	Featured    spanner.NullBool    `spanner:"featured"`
	Tags        []string            `spanner:"tags"`
	VideoURL    spanner.NullString  `spanner:"video_url"`
	PublicURL   spanner.NullString  `spanner:"public_url"`
	CreatedAt   time.Time           `spanner:"created_at"`
	UpdatedAt   time.Time           `spanner:"updated_at"`
}
