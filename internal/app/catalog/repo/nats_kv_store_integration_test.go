//go:build integration

package repo

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
)

func TestNATSKVStore(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}

	runStoreContract(t, func(t *testing.T, clk clock.Clock) contracts.MetadataStore {
		nc, err := nats.Connect(url)
		require.NoError(t, err)
		t.Cleanup(nc.Close)

		js, err := jetstream.New(nc)
		require.NoError(t, err)

		bucket := "test_metadata_" + uuid.NewString()[:8]
		store, err := OpenNATSKVStore(context.Background(), js, bucket, clk)
		require.NoError(t, err)
		t.Cleanup(func() { _ = js.DeleteKeyValue(context.Background(), bucket) })
		return store
	})
}
