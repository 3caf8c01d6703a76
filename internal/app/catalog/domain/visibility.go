package domain

import "strings"

// IsVisible reports whether a record passes the visibility gate: an asset
// only becomes a storefront product once an admin has given it a title.
// A nil record is never visible.
func IsVisible(rec *MetadataRecord) bool {
	return rec != nil && strings.TrimSpace(rec.Title) != ""
}
