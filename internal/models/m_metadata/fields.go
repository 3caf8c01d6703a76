package m_metadata

// Column names for the asset_metadata table.
const (
	TableName = "asset_metadata"

	StorageKey  = "storage_key"
	Name        = "name"
	Title       = "title"
	Description = "description"
	Category    = "category"
	Price       = "price"
	Currency    = "currency"
	InStock     = "in_stock"
	Featured    = "featured"
	Tags        = "tags"
	VideoURL    = "video_url"
	PublicURL   = "public_url"
	CreatedAt   = "created_at"
	UpdatedAt   = "updated_at"
)

// Columns lists every column in table order.
var Columns = []string{
	StorageKey,
	Name,
	Title,
	Description,
	Category,
	Price,
	Currency,
	InStock,
	Featured,
	Tags,
	VideoURL,
	PublicURL,
	CreatedAt,
	UpdatedAt,
}
