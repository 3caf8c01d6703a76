// Package bus carries payload-less catalog invalidation signals from the
// mutations to whoever renders the catalog.
//
// Delivery is best-effort and fire-and-forget: every listener runs on its own
// goroutine, a panicking listener is recovered, and nothing is retried. A
// listener that unsubscribed before dispatch is never invoked.
package bus

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/light-bringer/storefront-catalog/internal/metrics"
)

// DefaultMetadataPropagationDelay is how long a metadata write waits before
// it is announced. Some metadata backends serve stale reads for a moment
// after a write; the delay only narrows that window.
const DefaultMetadataPropagationDelay = 400 * time.Millisecond

// Signal sources.
const (
	SourceLocal   = "local"
	SourceDelayed = "delayed"
	SourceRelay   = "relay"
	SourceSlot    = "slot"
)

// Signal is an invalidation. It carries no payload: receivers recompute
// everything.
type Signal struct {
	// Origin identifies the process that emitted the signal, when relayed.
	Origin string `json:"origin,omitempty"`
	Source string `json:"source"`
}

type listener struct {
	fn    func(Signal)
	alive atomic.Bool
}

type slot struct {
	id uint64
	fn func()
}

// Bus is the invalidation registry. The composition root owns one and hands
// it to every mutation and view.
type Bus struct {
	log     *zap.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]*listener
	slots     map[string]slot
	timers    map[uint64]*time.Timer
	closed    bool
}

// New creates an empty bus.
func New(log *zap.Logger, m *metrics.Metrics) *Bus {
	return &Bus{
		log:       log.Named("bus"),
		metrics:   m,
		listeners: make(map[uint64]*listener),
		slots:     make(map[string]slot),
		timers:    make(map[uint64]*time.Timer),
	}
}

// Subscribe registers fn for every future signal and returns the
// unsubscribe func. Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(fn func(Signal)) func() {
	l := &listener{fn: fn}
	l.alive.Store(true)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	b.nextID++
	id := b.nextID
	b.listeners[id] = l
	b.mu.Unlock()

	return func() {
		l.alive.Store(false)
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// NotifyChanged broadcasts a local signal.
func (b *Bus) NotifyChanged() {
	b.Emit(Signal{Source: SourceLocal})
}

// Emit broadcasts sig to every live listener.
func (b *Bus) Emit(sig Signal) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	targets := make([]*listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		targets = append(targets, l)
	}
	b.mu.Unlock()

	b.metrics.Invalidation(sig.Source)
	for _, l := range targets {
		go b.dispatch(l, sig)
	}
}

func (b *Bus) dispatch(l *listener, sig Signal) {
	if !l.alive.Load() {
		return
	}
	defer b.recoverListener("listener")
	l.fn(sig)
}

func (b *Bus) recoverListener(kind string) {
	if r := recover(); r != nil {
		b.log.Error("invalidation "+kind+" panicked", zap.String("panic", fmt.Sprint(r)))
	}
}

// NotifyAfter broadcasts a delayed signal once d has elapsed. The returned
// func cancels it if it has not fired yet. A non-positive d fires at once.
func (b *Bus) NotifyAfter(d time.Duration) (cancel func()) {
	if d <= 0 {
		b.NotifyChanged()
		return func() {}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	b.nextID++
	id := b.nextID
	b.timers[id] = time.AfterFunc(d, func() {
		b.mu.Lock()
		_, pending := b.timers[id]
		delete(b.timers, id)
		b.mu.Unlock()
		if pending {
			b.Emit(Signal{Source: SourceDelayed})
		}
	})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if t, ok := b.timers[id]; ok {
			t.Stop()
			delete(b.timers, id)
		}
	}
}

// RegisterSlot registers a named refresh callback. A slot with the same
// name is replaced. The returned release func removes only this
// registration, so a stale release cannot drop a newer slot.
func (b *Bus) RegisterSlot(name string, fn func()) (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	b.nextID++
	id := b.nextID
	b.slots[name] = slot{id: id, fn: fn}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.slots[name]; ok && s.id == id {
			delete(b.slots, name)
		}
	}
}

// InvokeSlot runs the named slot asynchronously and reports whether it
// was registered.
func (b *Bus) InvokeSlot(name string) bool {
	b.mu.Lock()
	s, ok := b.slots[name]
	closed := b.closed
	b.mu.Unlock()
	if !ok || closed {
		return false
	}

	b.metrics.Invalidation(SourceSlot)
	go b.runSlot(name, s.fn)
	return true
}

// InvokeSlots runs every registered slot.
func (b *Bus) InvokeSlots() {
	for _, name := range b.Slots() {
		b.InvokeSlot(name)
	}
}

func (b *Bus) runSlot(name string, fn func()) {
	defer b.recoverListener("slot " + name)
	fn()
}

// Slots returns the registered slot names in order.
func (b *Bus) Slots() []string {
	b.mu.Lock()
	names := make([]string, 0, len(b.slots))
	for name := range b.slots {
		names = append(names, name)
	}
	b.mu.Unlock()
	sort.Strings(names)
	return names
}

// Close drops every listener and slot and cancels pending delayed
// signals. Signals emitted afterwards are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, t := range b.timers {
		t.Stop()
		delete(b.timers, id)
	}
	for id, l := range b.listeners {
		l.alive.Store(false)
		delete(b.listeners, id)
	}
	b.slots = make(map[string]slot)
}
