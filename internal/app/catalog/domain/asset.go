package domain

// RawAsset is one binary object as reported by a listing. It never carries
// metadata and is never persisted by this service.
type RawAsset struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Locator   string `json:"locator"`
}

// UnionAssets merges listings by raw name. When a name appears more than once
// the entry from the later listing wins, so callers pass the most
// authoritative listing last.
func UnionAssets(listings ...[]RawAsset) []RawAsset {
	index := make(map[string]int)
	out := make([]RawAsset, 0)
	for _, listing := range listings {
		for _, a := range listing {
			if i, ok := index[a.Name]; ok {
				out[i] = a
				continue
			}
			index[a.Name] = len(out)
			out = append(out, a)
		}
	}
	return out
}
