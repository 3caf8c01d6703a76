//go:build integration

package repo

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/spanner"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/models/m_metadata"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
	"github.com/light-bringer/storefront-catalog/internal/pkg/committer"
)

// setupSpannerTest connects to the emulator database migrated by cmd/migrate
// and empties the metadata table.
func setupSpannerTest(t *testing.T) *spanner.Client {
	t.Helper()

	if os.Getenv("SPANNER_EMULATOR_HOST") == "" {
		t.Skip("SPANNER_EMULATOR_HOST not set")
	}

	db := os.Getenv("SPANNER_DATABASE")
	if db == "" {
		db = "projects/test-project/instances/dev-instance/databases/storefront-catalog-test"
	}

	ctx := context.Background()
	client, err := spanner.NewClient(ctx, db)
	require.NoError(t, err, "failed to create Spanner client")

	clean := func() {
		_, err := client.Apply(ctx, []*spanner.Mutation{spanner.Delete(m_metadata.TableName, spanner.AllKeys())})
		require.NoError(t, err, "failed to clean database")
	}
	clean()
	t.Cleanup(func() {
		clean()
		client.Close()
	})
	return client
}

func TestSpannerStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T, clk clock.Clock) contracts.MetadataStore {
		client := setupSpannerTest(t)
		return NewSpannerStore(client, committer.NewCommitter(client), clk)
	})
}
