package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

// MemoryCache is the in-process read cache used when no Redis address is
// configured. Call Start to run expiry in the background and Stop to end it.
type MemoryCache struct {
	items *ttlcache.Cache[string, string]
}

func NewMemoryCache(defaultTTL time.Duration, capacity uint64) *MemoryCache {
	opts := []ttlcache.Option[string, string]{
		ttlcache.WithTTL[string, string](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, string](),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, string](capacity))
	}
	return &MemoryCache{items: ttlcache.New[string, string](opts...)}
}

func (c *MemoryCache) Start() { go c.items.Start() }

func (c *MemoryCache) Stop() { c.items.Stop() }

func (c *MemoryCache) Get(_ context.Context, key string) (string, error) {
	item := c.items.Get(key)
	if item == nil || item.IsExpired() {
		return "", ports.ErrCacheMiss
	}
	return item.Value(), nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	c.items.Set(key, value, ttl)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		c.items.Delete(key)
	}
	return nil
}

var _ ports.Cache = (*MemoryCache)(nil)
