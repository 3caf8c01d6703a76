package repo

import (
	"encoding/json"
	"fmt"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
)

// Key-value backends store records as JSON documents.

func encodeRecord(rec *domain.MetadataRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata %s: %w", rec.StorageKey, err)
	}
	return data, nil
}

func decodeRecord(key string, data []byte) (*domain.MetadataRecord, error) {
	var rec domain.MetadataRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode metadata %s: %w", key, err)
	}
	if rec.StorageKey == "" {
		rec.StorageKey = key
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	return &rec, nil
}
