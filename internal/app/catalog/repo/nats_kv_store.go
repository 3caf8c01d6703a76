package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
)

const (
	natsKVTimeout       = 5 * time.Second
	natsKVMergeAttempts = 10
)

// ErrKVMaxRetriesExceeded is returned when a merge keeps losing the CAS race.
var ErrKVMaxRetriesExceeded = errors.New("kv: max retries exceeded")

// NATSKVStore implements MetadataStore on a JetStream key-value bucket.
// Merges are compare-and-swap on the entry revision.
type NATSKVStore struct {
	bucket jetstream.KeyValue
	clock  clock.Clock
}

var _ contracts.MetadataStore = (*NATSKVStore)(nil)

// OpenNATSKVStore binds to bucket, creating it when missing.
func OpenNATSKVStore(ctx context.Context, js jetstream.JetStream, bucket string, clk clock.Clock) (*NATSKVStore, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "storefront asset metadata",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open kv bucket %s: %w", bucket, err)
	}
	return NewNATSKVStore(kv, clk), nil
}

// NewNATSKVStore wraps an existing bucket.
func NewNATSKVStore(kv jetstream.KeyValue, clk clock.Clock) *NATSKVStore {
	return &NATSKVStore{bucket: kv, clock: clk}
}

func (s *NATSKVStore) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, natsKVTimeout)
}

// Get reads one entry.
func (s *NATSKVStore) Get(ctx context.Context, key string) (*domain.MetadataRecord, error) {
	ctx, cancel := s.applyTimeout(ctx)
	defer cancel()

	entry, err := s.bucket.Get(ctx, key)
	if err != nil {
		if isKVNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}
	return decodeRecord(key, entry.Value())
}

// Set merges patch into the entry, retrying when another writer bumped
// the revision in between.
func (s *NATSKVStore) Set(ctx context.Context, key string, patch domain.MetadataPatch) (*domain.MetadataRecord, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.applyTimeout(ctx)
	defer cancel()

	for attempt := 0; attempt < natsKVMergeAttempts; attempt++ {
		var (
			existing *domain.MetadataRecord
			revision uint64
		)
		entry, err := s.bucket.Get(ctx, key)
		switch {
		case err == nil:
			revision = entry.Revision()
			if existing, err = decodeRecord(key, entry.Value()); err != nil {
				return nil, err
			}
		case isKVNotFound(err):
		default:
			return nil, fmt.Errorf("kv get %s: %w", key, err)
		}

		merged := domain.MergeMetadata(existing, key, patch, s.clock.Now())
		encoded, err := encodeRecord(merged)
		if err != nil {
			return nil, err
		}

		if existing == nil {
			_, err = s.bucket.Create(ctx, key, encoded)
		} else {
			_, err = s.bucket.Update(ctx, key, encoded, revision)
		}
		if err == nil {
			return merged, nil
		}
		if !isKVConflict(err) {
			return nil, fmt.Errorf("kv put %s: %w", key, err)
		}
	}
	return nil, fmt.Errorf("kv put %s: %w", key, ErrKVMaxRetriesExceeded)
}

// Delete removes the entry. Deleting an absent key is not an error.
func (s *NATSKVStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.applyTimeout(ctx)
	defer cancel()

	if err := s.bucket.Delete(ctx, key); err != nil && !isKVNotFound(err) {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}

// Scan lists the bucket keys and reads each entry.
func (s *NATSKVStore) Scan(ctx context.Context) ([]*domain.MetadataRecord, error) {
	ctx, cancel := s.applyTimeout(ctx)
	defer cancel()

	keys, err := s.bucket.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("kv keys: %w", err)
	}

	out := make([]*domain.MetadataRecord, 0, len(keys))
	for _, key := range keys {
		entry, err := s.bucket.Get(ctx, key)
		if err != nil {
			if isKVNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("kv get %s: %w", key, err)
		}
		rec, err := decodeRecord(key, entry.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func isKVNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted)
}

func isKVConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence {
		return true
	}
	return strings.Contains(err.Error(), "wrong last sequence")
}
