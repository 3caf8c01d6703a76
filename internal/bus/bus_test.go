package bus

import (
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/light-bringer/storefront-catalog/internal/metrics"
)

const eventually = 2 * time.Second

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	b := New(zaptest.NewLogger(t), metrics.New())
	t.Cleanup(b.Close)
	return b
}

func TestBus_NotifyChanged(t *testing.T) {
	b := newTestBus(t)

	var first, second atomic.Int32
	b.Subscribe(func(Signal) { first.Add(1) })
	b.Subscribe(func(sig Signal) {
		assert.Equal(t, SourceLocal, sig.Source)
		second.Add(1)
	})

	b.NotifyChanged()
	b.NotifyChanged()

	require.Eventually(t, func() bool {
		return first.Load() == 2 && second.Load() == 2
	}, eventually, 5*time.Millisecond)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := newTestBus(t)

	var calls atomic.Int32
	unsubscribe := b.Subscribe(func(Signal) { calls.Add(1) })
	unsubscribe()
	unsubscribe()

	var other atomic.Int32
	b.Subscribe(func(Signal) { other.Add(1) })
	b.NotifyChanged()

	require.Eventually(t, func() bool { return other.Load() == 1 }, eventually, 5*time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestBus_PanickingListenerIsIsolated(t *testing.T) {
	b := newTestBus(t)

	var calls atomic.Int32
	b.Subscribe(func(Signal) { panic("boom") })
	b.Subscribe(func(Signal) { calls.Add(1) })

	b.NotifyChanged()
	b.NotifyChanged()

	require.Eventually(t, func() bool { return calls.Load() == 2 }, eventually, 5*time.Millisecond)
}

func TestBus_NotifyAfter(t *testing.T) {
	t.Run("fires once", func(t *testing.T) {
		b := newTestBus(t)
		got := make(chan Signal, 2)
		b.Subscribe(func(sig Signal) { got <- sig })

		b.NotifyAfter(10 * time.Millisecond)

		select {
		case sig := <-got:
			assert.Equal(t, SourceDelayed, sig.Source)
		case <-time.After(eventually):
			t.Fatal("delayed signal never arrived")
		}
	})

	t.Run("cancel", func(t *testing.T) {
		b := newTestBus(t)
		var calls atomic.Int32
		b.Subscribe(func(Signal) { calls.Add(1) })

		cancel := b.NotifyAfter(50 * time.Millisecond)
		cancel()
		cancel()

		time.Sleep(150 * time.Millisecond)
		assert.Zero(t, calls.Load())
	})

	t.Run("non-positive delay fires immediately", func(t *testing.T) {
		b := newTestBus(t)
		got := make(chan Signal, 1)
		b.Subscribe(func(sig Signal) { got <- sig })

		b.NotifyAfter(0)

		select {
		case sig := <-got:
			assert.Equal(t, SourceLocal, sig.Source)
		case <-time.After(eventually):
			t.Fatal("signal never arrived")
		}
	})
}

func TestBus_Slots(t *testing.T) {
	b := newTestBus(t)

	var home, gallery atomic.Int32
	releaseHome := b.RegisterSlot("home", func() { home.Add(1) })
	b.RegisterSlot("gallery", func() { gallery.Add(1) })

	assert.Equal(t, []string{"gallery", "home"}, b.Slots())
	assert.True(t, b.InvokeSlot("home"))
	assert.False(t, b.InvokeSlot("admin"))

	require.Eventually(t, func() bool { return home.Load() == 1 }, eventually, 5*time.Millisecond)

	b.InvokeSlots()
	require.Eventually(t, func() bool {
		return home.Load() == 2 && gallery.Load() == 1
	}, eventually, 5*time.Millisecond)

	releaseHome()
	assert.Equal(t, []string{"gallery"}, b.Slots())
}

func TestBus_StaleReleaseKeepsNewerSlot(t *testing.T) {
	b := newTestBus(t)

	var replaced atomic.Int32
	release := b.RegisterSlot("home", func() {})
	b.RegisterSlot("home", func() { replaced.Add(1) })
	release()

	assert.Equal(t, []string{"home"}, b.Slots())
	require.True(t, b.InvokeSlot("home"))
	require.Eventually(t, func() bool { return replaced.Load() == 1 }, eventually, 5*time.Millisecond)
}

func TestBus_Close(t *testing.T) {
	b := New(zaptest.NewLogger(t), nil)

	var calls atomic.Int32
	b.Subscribe(func(Signal) { calls.Add(1) })
	b.RegisterSlot("home", func() { calls.Add(1) })
	b.NotifyAfter(20 * time.Millisecond)

	b.Close()
	b.Close()
	b.NotifyChanged()

	assert.False(t, b.InvokeSlot("home"))
	assert.Empty(t, b.Slots())

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, calls.Load())

	unsubscribe := b.Subscribe(func(Signal) { calls.Add(1) })
	unsubscribe()
}

func TestNATSRelay_HandleRemote(t *testing.T) {
	b := newTestBus(t)
	relay := NewNATSRelay(b, nil, "", zaptest.NewLogger(t))
	assert.Equal(t, DefaultSubject, relay.subject)

	got := make(chan Signal, 4)
	b.Subscribe(func(sig Signal) { got <- sig })

	echo, err := json.Marshal(Signal{Origin: relay.Origin(), Source: SourceLocal})
	require.NoError(t, err)
	relay.handleRemote(&nats.Msg{Data: echo})
	relay.handleRemote(&nats.Msg{Data: []byte("{not json")})

	remote, err := json.Marshal(Signal{Origin: "replica-b", Source: SourceLocal})
	require.NoError(t, err)
	relay.handleRemote(&nats.Msg{Data: remote})

	select {
	case sig := <-got:
		assert.Equal(t, SourceRelay, sig.Source)
		assert.Equal(t, "replica-b", sig.Origin)
	case <-time.After(eventually):
		t.Fatal("remote signal was not re-emitted")
	}

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, got, "echo and malformed messages must be dropped")
}

func TestNATSRelay_DoesNotForwardRelayedSignals(t *testing.T) {
	relay := NewNATSRelay(newTestBus(t), nil, "x", zaptest.NewLogger(t))
	// conn is nil: forwarding a relayed signal would panic if attempted.
	assert.NotPanics(t, func() { relay.forward(Signal{Source: SourceRelay}) })
}
