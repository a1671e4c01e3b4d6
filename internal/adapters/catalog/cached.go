package catalog

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/startupforworld/coach/internal/domain/recommend"
	"github.com/startupforworld/coach/pkg/logger"
	"github.com/startupforworld/coach/pkg/metrics"
)

// Snapshot is an immutable catalog with its validity window.
type Snapshot struct {
	Products  recommend.Catalog `json:"products"`
	FetchedAt time.Time         `json:"fetched_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	// Fallback is set when Products is the built-in catalog.
	Fallback bool `json:"fallback"`
}

// Fresh reports whether the snapshot may be reused at now.
func (s Snapshot) Fresh(now time.Time) bool {
	return len(s.Products) > 0 && now.Before(s.ExpiresAt)
}

// Cached serves catalog snapshots from a Source, refetching after the TTL.
// Concurrent refreshes are coalesced. It never fails: when the source errors
// the last good snapshot is kept, or the fallback catalog is served.
type Cached struct {
	src        Source
	ttl        time.Duration
	retryAfter time.Duration
	fallback   recommend.Catalog
	now        func() time.Time
	log        logger.Logger

	group singleflight.Group
	mu    sync.RWMutex
	snap  Snapshot
}

// NewCached wraps src.
func NewCached(src Source, opts ...CachedOption) *Cached {
	c := &Cached{
		src:        src,
		ttl:        DefaultTTL,
		retryAfter: DefaultRetryAfter,
		fallback:   recommend.FallbackCatalog(),
		now:        time.Now,
		log:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current snapshot, refreshing it when stale.
func (c *Cached) Snapshot(ctx context.Context) Snapshot {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap.Fresh(c.now()) {
		return snap
	}

	v, _, _ := c.group.Do("refresh", func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx)), nil
	})
	return v.(Snapshot)
}

// Catalog returns the products of the current snapshot.
func (c *Cached) Catalog(ctx context.Context) recommend.Catalog {
	return c.Snapshot(ctx).Products
}

// Fetch lets a Cached be used as a Source.
func (c *Cached) Fetch(ctx context.Context) (recommend.Catalog, error) {
	return c.Catalog(ctx), nil
}

func (c *Cached) refresh(ctx context.Context) Snapshot {
	c.mu.RLock()
	current := c.snap
	c.mu.RUnlock()
	now := c.now()
	if current.Fresh(now) {
		return current
	}

	start := time.Now()
	products, err := c.src.Fetch(ctx)
	latency := float64(time.Since(start).Milliseconds())

	var next Snapshot
	switch {
	case err == nil && len(products) > 0:
		metrics.RecordCatalogFetch("ok", latency)
		next = Snapshot{Products: products, FetchedAt: now, ExpiresAt: now.Add(c.ttl)}
	case len(current.Products) > 0 && !current.Fallback:
		metrics.RecordCatalogFetch("stale", latency)
		c.log.Warn(ctx, "catalog refresh failed, keeping previous snapshot", logger.Error(err))
		next = current
		next.ExpiresAt = now.Add(c.retryAfter)
	default:
		metrics.RecordCatalogFetch("fallback", latency)
		c.log.Warn(ctx, "catalog unavailable, serving fallback catalog", logger.Error(err))
		next = Snapshot{Products: c.fallback, FetchedAt: now, ExpiresAt: now.Add(c.retryAfter), Fallback: true}
	}
	metrics.UpdateCatalogProducts(len(next.Products))

	c.mu.Lock()
	c.snap = next
	c.mu.Unlock()
	return next
}
