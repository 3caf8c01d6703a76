//go:build integration

package bus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNATSRelay_TwoReplicas(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}

	connect := func() *nats.Conn {
		conn, err := nats.Connect(url)
		require.NoError(t, err)
		t.Cleanup(conn.Close)
		return conn
	}

	ctx := context.Background()
	subject := "catalog.test." + t.Name()

	busA, busB := newTestBus(t), newTestBus(t)
	relayA := NewNATSRelay(busA, connect(), subject, zaptest.NewLogger(t))
	relayB := NewNATSRelay(busB, connect(), subject, zaptest.NewLogger(t))
	require.NoError(t, relayA.Start(ctx))
	require.NoError(t, relayB.Start(ctx))
	t.Cleanup(func() {
		_ = relayA.Stop()
		_ = relayB.Stop()
	})

	gotA := make(chan Signal, 8)
	gotB := make(chan Signal, 8)
	busA.Subscribe(func(sig Signal) { gotA <- sig })
	busB.Subscribe(func(sig Signal) { gotB <- sig })

	busA.NotifyChanged()

	select {
	case sig := <-gotB:
		assert.Equal(t, SourceRelay, sig.Source)
		assert.Equal(t, relayA.Origin(), sig.Origin)
	case <-time.After(5 * time.Second):
		t.Fatal("replica B never saw the signal")
	}

	// A sees its own local signal once and never its echo.
	time.Sleep(200 * time.Millisecond)
	assert.Len(t, gotA, 1)
}
