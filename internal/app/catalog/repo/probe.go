package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
)

const probeKeyPrefix = "__probe_"

// Probe writes, reads back and deletes a throwaway record. It is the
// readiness check for whichever backend is configured.
func Probe(ctx context.Context, store contracts.MetadataStore) error {
	key := probeKeyPrefix + uuid.NewString()[:8]
	title := "probe"

	if _, err := store.Set(ctx, key, domain.MetadataPatch{Title: &title}); err != nil {
		return fmt.Errorf("probe write failed: %w", err)
	}
	defer func() {
		_ = store.Delete(context.WithoutCancel(ctx), key)
	}()

	rec, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("probe read failed: %w", err)
	}
	if rec == nil || rec.Title != title {
		return fmt.Errorf("probe read returned unexpected record for %s", key)
	}
	return nil
}

// IsProbeKey reports whether key belongs to a probe record. Orphan scans
// skip them.
func IsProbeKey(key string) bool {
	return strings.HasPrefix(key, probeKeyPrefix)
}
