package repo

import (
	"context"

	"go.uber.org/zap"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
)

// LoggedStore wraps a MetadataStore with debug logging of every call.
type LoggedStore struct {
	log   *zap.Logger
	store contracts.MetadataStore
}

var _ contracts.MetadataStore = (*LoggedStore)(nil)

// NewLoggedStore wraps store. backend names the sub-logger.
func NewLoggedStore(log *zap.Logger, backend string, store contracts.MetadataStore) *LoggedStore {
	return &LoggedStore{log: log.Named("metadata").With(zap.String("backend", backend)), store: store}
}

// Get logs and forwards.
func (s *LoggedStore) Get(ctx context.Context, key string) (*domain.MetadataRecord, error) {
	rec, err := s.store.Get(ctx, key)
	s.log.Debug("Get", zap.String("key", key), zap.Bool("found", rec != nil), zap.Error(err))
	return rec, err
}

// Set logs and forwards.
func (s *LoggedStore) Set(ctx context.Context, key string, patch domain.MetadataPatch) (*domain.MetadataRecord, error) {
	rec, err := s.store.Set(ctx, key, patch)
	s.log.Debug("Set", zap.String("key", key), zap.Strings("fields", patch.DirtyFields()), zap.Error(err))
	return rec, err
}

// Delete logs and forwards.
func (s *LoggedStore) Delete(ctx context.Context, key string) error {
	err := s.store.Delete(ctx, key)
	s.log.Debug("Delete", zap.String("key", key), zap.Error(err))
	return err
}

// Scan logs and forwards.
func (s *LoggedStore) Scan(ctx context.Context) ([]*domain.MetadataRecord, error) {
	recs, err := s.store.Scan(ctx)
	s.log.Debug("Scan", zap.Int("records", len(recs)), zap.Error(err))
	return recs, err
}
