// Package views holds the per-page product caches. A cache reloads the
// whole catalog on every invalidation; there are no deltas.
package views

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/reconcile"
	"github.com/light-bringer/storefront-catalog/internal/bus"
	"github.com/light-bringer/storefront-catalog/internal/metrics"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
)

// State is the load state of a cache.
type State int

const (
	StateLoading State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "loading"
}

// Snapshot is what a page renders. After a failed reload Products still
// holds the last good set and Err carries the failure.
type Snapshot struct {
	State    State
	Products []domain.Product
	Err      error
	LoadedAt time.Time
}

// Loader produces the full product set for a view.
type Loader func(ctx context.Context) ([]domain.Product, error)

// EngineLoader reconciles in mode on every load.
func EngineLoader(engine *reconcile.Engine, mode reconcile.Mode) Loader {
	return func(ctx context.Context) ([]domain.Product, error) {
		return engine.Reconcile(ctx, mode)
	}
}

// Cache is the state holder of one mounted view.
type Cache struct {
	name    string
	load    Loader
	bus     *bus.Bus
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	snap    Snapshot
	issued  uint64
	applied uint64
	mounted bool
	ctx     context.Context
	cancel  context.CancelFunc
	unsub   func()
	release func()
}

// NewCache creates an unmounted cache. name is also the bus slot name.
func NewCache(name string, load Loader, b *bus.Bus, clk clock.Clock, log *zap.Logger, m *metrics.Metrics) *Cache {
	return &Cache{
		name:    name,
		load:    load,
		bus:     b,
		clock:   clk,
		log:     log.Named("view").With(zap.String("view", name)),
		metrics: m,
	}
}

// Name returns the view name.
func (c *Cache) Name() string { return c.name }

// Mount subscribes to invalidations, registers the named slot and runs
// the initial load. ctx bounds every background reload until Unmount.
// The initial load error is returned, but the cache stays mounted and
// retries on the next signal.
func (c *Cache) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return nil
	}
	c.mounted = true
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.snap = Snapshot{State: StateLoading}
	c.mu.Unlock()

	unsub := c.bus.Subscribe(func(bus.Signal) { c.reloadInBackground() })
	release := c.bus.RegisterSlot(c.name, c.reloadInBackground)
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		unsub()
		release()
		return nil
	}
	c.unsub, c.release = unsub, release
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// Unmount detaches the cache. Loads still in flight are discarded when
// they complete.
func (c *Cache) Unmount() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = false
	cancel, unsub, release := c.cancel, c.unsub, c.release
	c.mu.Unlock()

	if unsub != nil {
		unsub()
		release()
	}
	cancel()
}

// Mounted reports whether the cache is live.
func (c *Cache) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

// Snapshot returns the current state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Refresh reloads synchronously and returns the load error, if any.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return nil
	}
	c.issued++
	gen := c.issued
	c.mu.Unlock()

	products, err := c.load(ctx)
	c.apply(gen, products, err)
	return err
}

func (c *Cache) reloadInBackground() {
	c.mu.Lock()
	ctx := c.ctx
	mounted := c.mounted
	c.mu.Unlock()
	if !mounted {
		return
	}
	if err := c.Refresh(ctx); err != nil {
		c.log.Warn("view reload failed", zap.Error(err))
	}
}

// apply keeps the result of load gen unless a newer load already landed
// or the view was unmounted meanwhile.
func (c *Cache) apply(gen uint64, products []domain.Product, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted {
		c.log.Debug("dropping load after unmount", zap.Uint64("generation", gen))
		return
	}
	if gen < c.applied {
		c.log.Debug("dropping stale load", zap.Uint64("generation", gen), zap.Uint64("applied", c.applied))
		return
	}
	c.applied = gen
	c.metrics.ViewRefreshed(c.name, err)

	if err != nil {
		c.snap.State = StateFailed
		c.snap.Err = err
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	c.snap = Snapshot{
		State:    StateReady,
		Products: products,
		LoadedAt: c.clock.Now(),
	}
}

func (c *Cache) products() []domain.Product {
	snap := c.Snapshot()
	out := make([]domain.Product, len(snap.Products))
	copy(out, snap.Products)
	return out
}
