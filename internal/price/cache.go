package price

import (
	"context"
	"sync"

	"github.com/quocanhngo/pricewatch/internal/model"
)

// Cache stores the last quote per symbol. Freshness is decided by Source,
// so implementations may keep stale entries around.
type Cache interface {
	Get(ctx context.Context, symbol string) (model.CachedPrice, bool, error)
	Set(ctx context.Context, symbol string, entry model.CachedPrice) error
	Snapshot(ctx context.Context) (map[string]model.CachedPrice, error)
}

// MemoryCache is a process-local Cache
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]model.CachedPrice
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]model.CachedPrice)}
}

func (c *MemoryCache) Get(_ context.Context, symbol string) (model.CachedPrice, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[symbol]
	return e, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, symbol string, entry model.CachedPrice) error {
	c.mu.Lock()
	c.entries[symbol] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Snapshot(_ context.Context) (map[string]model.CachedPrice, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]model.CachedPrice, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out, nil
}
