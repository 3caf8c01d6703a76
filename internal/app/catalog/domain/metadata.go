package domain

import "time"

// DefaultCurrency is applied to records created without an explicit currency.
const DefaultCurrency = "K"

// Field names for patch tracking. They double as JSON names on the wire.
const (
	FieldName        = "name"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldPrice       = "price"
	FieldCurrency    = "currency"
	FieldInStock     = "in_stock"
	FieldFeatured    = "featured"
	FieldTags        = "tags"
	FieldVideoURL    = "video_url"
	FieldPublicURL   = "public_url"
)

// MetadataRecord is the admin-entered document stored under a derived key.
// A missing record is a valid state: the asset simply has no metadata yet.
type MetadataRecord struct {
	StorageKey  string    `json:"storage_key"`
	Name        string    `json:"name,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       *float64  `json:"price"`
	Currency    string    `json:"currency"`
	InStock     bool      `json:"in_stock"`
	Featured    bool      `json:"featured"`
	Tags        []string  `json:"tags"`
	VideoURL    string    `json:"video_url,omitempty"`
	PublicURL   string    `json:"public_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewMetadataRecord returns an empty record carrying the storage defaults.
func NewMetadataRecord(key string, now time.Time) *MetadataRecord {
	return &MetadataRecord{
		StorageKey: key,
		Currency:   DefaultCurrency,
		InStock:    true,
		Featured:   false,
		Tags:       []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Clone returns a deep copy.
func (r *MetadataRecord) Clone() *MetadataRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Price != nil {
		p := *r.Price
		c.Price = &p
	}
	if r.Tags != nil {
		c.Tags = append([]string(nil), r.Tags...)
	}
	return &c
}

// MergeMetadata applies patch on top of existing (which may be nil) and
// returns the record to persist. Fields the patch leaves unset keep their
// stored value. CreatedAt is only stamped when the record is new.
func MergeMetadata(existing *MetadataRecord, key string, patch MetadataPatch, now time.Time) *MetadataRecord {
	var rec *MetadataRecord
	if existing == nil {
		rec = NewMetadataRecord(key, now)
	} else {
		rec = existing.Clone()
		rec.StorageKey = key
	}
	patch.ApplyTo(rec)
	rec.UpdatedAt = now
	return rec
}
