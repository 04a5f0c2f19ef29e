package revolve

import (
	"sync"

	"github.com/chazu/aulos/pkg/kernel"
)

// Cache stores revolution solids keyed by profile identity and angular
// resolution. It is an optimization only: a Builder with no cache builds
// every solid afresh and produces the same geometry.
type Cache interface {
	// Get returns the solid built for (id, resolution), if cached.
	Get(id string, resolution int) (kernel.Solid, bool)
	// Put stores s for (id, resolution). An entry for id at any other
	// resolution is invalidated.
	Put(id string, resolution int, s kernel.Solid)
	// Invalidate drops every entry for id.
	Invalidate(id string)
}

type cacheEntry struct {
	resolution int
	solid      kernel.Solid
}

// MemoryCache is a concurrency-safe in-memory Cache holding at most one
// resolution per profile.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry)}
}

// Get implements Cache.
func (c *MemoryCache) Get(id string, resolution int) (kernel.Solid, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok || e.resolution != resolution {
		return nil, false
	}
	return e.solid, true
}

// Put implements Cache.
func (c *MemoryCache) Put(id string, resolution int, s kernel.Solid) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = cacheEntry{resolution: resolution, solid: s}
}

// Invalidate implements Cache.
func (c *MemoryCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Len returns the number of cached profiles.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
