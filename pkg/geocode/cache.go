package geocode

import "sync"

// Cache memoizes successful resolutions keyed by (provider, raw address).
// Entries are write-once: the first stored result for a key wins and is
// never invalidated or evicted for the cache's lifetime.
type Cache interface {
	Get(provider, addr string) (*Result, bool)
	Put(provider, addr string, r *Result)
}

type cacheKey struct {
	provider string
	addr     string
}

// MemoryCache is a mutex-guarded in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]Result
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[cacheKey]Result)}
}

// Get implements Cache.
func (c *MemoryCache) Get(provider, addr string) (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[cacheKey{provider, addr}]
	if !ok {
		return nil, false
	}
	cp := r
	return &cp, true
}

// Put implements Cache. A key already present is left untouched.
func (c *MemoryCache) Put(provider, addr string, r *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{provider, addr}
	if _, ok := c.entries[key]; ok {
		return
	}
	c.entries[key] = *r
}

// Len reports the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
