package repo

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
)

var metadataBucket = []byte("asset_metadata")

// BoltStore implements MetadataStore in an embedded bbolt file. bbolt
// serializes writers, so a merge runs inside a single Update transaction.
type BoltStore struct {
	db    *bbolt.DB
	clock clock.Clock
}

var _ contracts.MetadataStore = (*BoltStore)(nil)

// OpenBoltStore opens (or creates) the database file at path.
func OpenBoltStore(path string, clk clock.Clock) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metadataBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db, clock: clk}, nil
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get reads one document.
func (s *BoltStore) Get(ctx context.Context, key string) (*domain.MetadataRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *domain.MetadataRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(metadataBucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		var err error
		rec, err = decodeRecord(key, data)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata %s: %w", key, err)
	}
	return rec, nil
}

// Set merges patch into the stored document.
func (s *BoltStore) Set(ctx context.Context, key string, patch domain.MetadataPatch) (*domain.MetadataRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var merged *domain.MetadataRecord
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(metadataBucket)

		var existing *domain.MetadataRecord
		if data := b.Get([]byte(key)); data != nil {
			var err error
			if existing, err = decodeRecord(key, data); err != nil {
				return err
			}
		}

		merged = domain.MergeMetadata(existing, key, patch, s.clock.Now())
		encoded, err := encodeRecord(merged)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), encoded)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set metadata %s: %w", key, err)
	}
	return merged, nil
}

// Delete removes the document.
func (s *BoltStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(metadataBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete metadata %s: %w", key, err)
	}
	return nil
}

// Scan decodes every document in the bucket.
func (s *BoltStore) Scan(ctx context.Context) ([]*domain.MetadataRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*domain.MetadataRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(metadataBucket).ForEach(func(k, v []byte) error {
			rec, err := decodeRecord(string(k), v)
			if err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan metadata: %w", err)
	}
	return out, nil
}
