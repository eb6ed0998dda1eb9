package openmeteo

import (
	"context"
	"fmt"
	"sync"

	"github.com/industrisk/falloutsim/internal/domain"
)

// CachedTerrain wraps a TerrainProvider with an in-memory LRU cache.
// Terrain is static, so entries never expire; coordinates are rounded to
// four decimals (~11 m) for keying.
type CachedTerrain struct {
	inner domain.TerrainProvider
	cache *lruCache
}

// NewCachedTerrain creates a cache decorator around a terrain provider.
func NewCachedTerrain(inner domain.TerrainProvider, maxEntries int) *CachedTerrain {
	return &CachedTerrain{
		inner: inner,
		cache: newLRUCache(maxEntries),
	}
}

func (c *CachedTerrain) Elevation(ctx context.Context, at domain.Geo) (float64, error) {
	key := fmt.Sprintf("elev:%.4f,%.4f", at.Lat, at.Lon)
	if v, ok := c.cache.get(key); ok {
		return v, nil
	}
	v, err := c.inner.Elevation(ctx, at)
	if err != nil {
		return 0, err
	}
	c.cache.put(key, v)
	return v, nil
}

func (c *CachedTerrain) Slope(ctx context.Context, at domain.Geo) (float64, error) {
	key := fmt.Sprintf("slope:%.4f,%.4f", at.Lat, at.Lon)
	if v, ok := c.cache.get(key); ok {
		return v, nil
	}
	v, err := c.inner.Slope(ctx, at)
	if err != nil {
		return 0, err
	}
	c.cache.put(key, v)
	return v, nil
}

// lruCache is a simple thread-safe LRU cache for terrain values.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value float64
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
