package repo

import (
	"context"
	"sync"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
)

// MemoryStore is an in-process MetadataStore. It backs local development
// and the tests of every layer above the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*domain.MetadataRecord
	clock   clock.Clock
}

var _ contracts.MetadataStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*domain.MetadataRecord),
		clock:   clk,
	}
}

// Get returns a copy of the record, or nil when absent.
func (s *MemoryStore) Get(ctx context.Context, key string) (*domain.MetadataRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[key].Clone(), nil
}

// Set merges patch into the stored record under the write lock.
func (s *MemoryStore) Set(ctx context.Context, key string, patch domain.MetadataPatch) (*domain.MetadataRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := domain.MergeMetadata(s.records[key], key, patch, s.clock.Now())
	s.records[key] = merged
	return merged.Clone(), nil
}

// Delete removes the record.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// Scan returns copies of every record.
func (s *MemoryStore) Scan(ctx context.Context) ([]*domain.MetadataRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.MetadataRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}
