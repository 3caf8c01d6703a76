package domain

import (
	"sort"
	"strings"
	"time"
)

// Product is the merged read-time view of one asset and its metadata.
// Products are never persisted.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	StorageKey  string    `json:"storage_key"`
	Locator     string    `json:"locator"`
	SizeBytes   int64     `json:"size_bytes"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       *float64  `json:"price"`
	Currency    string    `json:"currency"`
	InStock     bool      `json:"in_stock"`
	Featured    bool      `json:"featured"`
	Tags        []string  `json:"tags"`
	VideoURL    string    `json:"video_url,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`

	// HasMetadata is true iff a record exists for the asset.
	HasMetadata bool `json:"has_metadata"`
	// Visible is true iff the record exists and carries a non-blank title.
	Visible bool `json:"visible"`
}

// Merge joins an asset with its record (nil when absent).
func Merge(asset RawAsset, rec *MetadataRecord) Product {
	p := Product{
		ID:         ProductID(asset.Name),
		Name:       asset.Name,
		StorageKey: DeriveKey(asset.Name),
		Locator:    asset.Locator,
		SizeBytes:  asset.SizeBytes,
		Tags:       []string{},
	}
	if rec == nil {
		return p
	}

	p.HasMetadata = true
	p.Visible = IsVisible(rec)
	p.Title = rec.Title
	p.Description = rec.Description
	p.Category = rec.Category
	if rec.Price != nil {
		price := *rec.Price
		p.Price = &price
	}
	p.Currency = rec.Currency
	p.InStock = rec.InStock
	p.Featured = rec.Featured
	if rec.Tags != nil {
		p.Tags = append([]string{}, rec.Tags...)
	}
	p.VideoURL = rec.VideoURL
	p.CreatedAt = rec.CreatedAt
	p.UpdatedAt = rec.UpdatedAt
	return p
}

// SortKey selects the ordering applied by SortProducts.
type SortKey string

const (
	SortByName      SortKey = "name"
	SortByTitle     SortKey = "title"
	SortByCategory  SortKey = "category"
	SortByPrice     SortKey = "price"
	SortByUpdatedAt SortKey = "updated_at"
)

// ParseSortKey maps a user-supplied value to a SortKey. Unknown values fall
// back to SortByTitle.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortByName, SortByTitle, SortByCategory, SortByPrice, SortByUpdatedAt:
		return k
	}
	return SortByTitle
}

// SortProducts orders products in place. Ties are broken by raw name so the
// result is deterministic. Products without a price sort after priced ones.
func SortProducts(products []Product, key SortKey, desc bool) {
	less := func(a, b Product) int {
		switch key {
		case SortByTitle:
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case SortByCategory:
			return strings.Compare(strings.ToLower(a.Category), strings.ToLower(b.Category))
		case SortByPrice:
			switch {
			case a.Price == nil && b.Price == nil:
				return 0
			case a.Price == nil:
				return 1
			case b.Price == nil:
				return -1
			case *a.Price < *b.Price:
				return -1
			case *a.Price > *b.Price:
				return 1
			}
			return 0
		case SortByUpdatedAt:
			return a.UpdatedAt.Compare(b.UpdatedAt)
		}
		return 0
	}

	sort.SliceStable(products, func(i, j int) bool {
		c := less(products[i], products[j])
		if desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return products[i].Name < products[j].Name
	})
}

// MatchesTerm reports whether term occurs in the title or description,
// ignoring case. An empty term matches everything.
func (p Product) MatchesTerm(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Description), term)
}

// InCategory reports whether the product belongs to category, ignoring
// case. An empty category matches everything.
func (p Product) InCategory(category string) bool {
	category = strings.TrimSpace(category)
	return category == "" || strings.EqualFold(p.Category, category)
}
