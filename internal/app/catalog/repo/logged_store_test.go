package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
)

func TestLoggedStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T, clk clock.Clock) contracts.MetadataStore {
		return NewLoggedStore(zap.NewNop(), "memory", NewMemoryStore(clk))
	})
}

func TestLoggedStore_LogsCalls(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	store := NewLoggedStore(zap.New(core), "memory", NewMemoryStore(clock.NewMockClock(testEpoch)))
	ctx := context.Background()

	_, err := store.Set(ctx, "uno_jpg", domain.MetadataPatch{Title: domain.String("Arduino Uno"), Price: domain.Float(650)})
	require.NoError(t, err)
	_, err = store.Get(ctx, "uno_jpg")
	require.NoError(t, err)

	entries := logs.FilterMessage("Set").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "metadata", entries[0].LoggerName)
	assert.Equal(t, []interface{}{"title", "price"}, entries[0].ContextMap()["fields"])

	gets := logs.FilterMessage("Get").All()
	require.Len(t, gets, 1)
	assert.Equal(t, true, gets[0].ContextMap()["found"])
}
