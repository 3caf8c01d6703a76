package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// MetadataPatch is a partial record. A nil field leaves the stored value as
// is; a set field overwrites it. ClearPrice resets the price to null.
type MetadataPatch struct {
	Name        *string
	Title       *string
	Description *string
	Category    *string
	Price       *float64
	ClearPrice  bool
	Currency    *string
	InStock     *bool
	Featured    *bool
	Tags        *[]string
	VideoURL    *string
	PublicURL   *string
}

// String, Float, Bool and Strings build patch fields inline.
func String(s string) *string { return &s }

func Float(f float64) *float64 { return &f }

func Bool(b bool) *bool { return &b }

func Strings(ss ...string) *[]string { return &ss }

// Dirty reports whether the patch touches the named field.
func (p MetadataPatch) Dirty(field string) bool {
	switch field {
	case FieldName:
		return p.Name != nil
	case FieldTitle:
		return p.Title != nil
	case FieldDescription:
		return p.Description != nil
	case FieldCategory:
		return p.Category != nil
	case FieldPrice:
		return p.Price != nil || p.ClearPrice
	case FieldCurrency:
		return p.Currency != nil
	case FieldInStock:
		return p.InStock != nil
	case FieldFeatured:
		return p.Featured != nil
	case FieldTags:
		return p.Tags != nil
	case FieldVideoURL:
		return p.VideoURL != nil
	case FieldPublicURL:
		return p.PublicURL != nil
	}
	return false
}

var patchFields = []string{
	FieldName, FieldTitle, FieldDescription, FieldCategory, FieldPrice, FieldCurrency,
	FieldInStock, FieldFeatured, FieldTags, FieldVideoURL, FieldPublicURL,
}

// DirtyFields returns the touched field names in a stable order.
func (p MetadataPatch) DirtyFields() []string {
	fields := make([]string, 0, len(patchFields))
	for _, f := range patchFields {
		if p.Dirty(f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// HasChanges returns true if any field is set.
func (p MetadataPatch) HasChanges() bool {
	return len(p.DirtyFields()) > 0
}

// Validate rejects patches no backend should store.
func (p MetadataPatch) Validate() error {
	if p.Price != nil {
		if math.IsNaN(*p.Price) || math.IsInf(*p.Price, 0) || *p.Price < 0 {
			return fmt.Errorf("%w: price must be a non-negative number", ErrInvalidPatch)
		}
		if p.ClearPrice {
			return fmt.Errorf("%w: price cannot be both set and cleared", ErrInvalidPatch)
		}
	}
	return nil
}

// ApplyTo overwrites the fields of rec that the patch sets.
func (p MetadataPatch) ApplyTo(rec *MetadataRecord) {
	if p.Name != nil {
		rec.Name = *p.Name
	}
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Description != nil {
		rec.Description = *p.Description
	}
	if p.Category != nil {
		rec.Category = *p.Category
	}
	if p.ClearPrice {
		rec.Price = nil
	}
	if p.Price != nil {
		price := *p.Price
		rec.Price = &price
	}
	if p.Currency != nil {
		rec.Currency = *p.Currency
	}
	if p.InStock != nil {
		rec.InStock = *p.InStock
	}
	if p.Featured != nil {
		rec.Featured = *p.Featured
	}
	if p.Tags != nil {
		rec.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.VideoURL != nil {
		rec.VideoURL = *p.VideoURL
	}
	if p.PublicURL != nil {
		rec.PublicURL = *p.PublicURL
	}
}

// UnmarshalJSON decodes a partial document. Absent keys stay nil and an
// explicit "price": null clears the price.
func (p *MetadataPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	unknown := make([]string, 0)
	for k := range raw {
		if !isPatchField(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: unknown fields %v", ErrInvalidPatch, unknown)
	}

	var out MetadataPatch
	decode := func(field string, dst interface{}) error {
		v, ok := raw[field]
		if !ok {
			return nil
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidPatch, field, err)
		}
		return nil
	}

	if v, ok := raw[FieldPrice]; ok && string(v) == "null" {
		out.ClearPrice = true
		delete(raw, FieldPrice)
	}

	for field, dst := range map[string]interface{}{
		FieldName:        &out.Name,
		FieldTitle:       &out.Title,
		FieldDescription: &out.Description,
		FieldCategory:    &out.Category,
		FieldPrice:       &out.Price,
		FieldCurrency:    &out.Currency,
		FieldInStock:     &out.InStock,
		FieldFeatured:    &out.Featured,
		FieldTags:        &out.Tags,
		FieldVideoURL:    &out.VideoURL,
		FieldPublicURL:   &out.PublicURL,
	} {
		if err := decode(field, dst); err != nil {
			return err
		}
	}

	*p = out
	return nil
}

func isPatchField(name string) bool {
	for _, f := range patchFields {
		if f == name {
			return true
		}
	}
	return false
}
