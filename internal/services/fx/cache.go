package fx

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long a fetched rate is reused.
const DefaultCacheTTL = 30 * time.Minute

type cachedRate struct {
	rate      float64
	fetchedAt time.Time
}

// RateCache holds spot rates keyed "{FROM}_{TO}". Entries are replaced on
// refresh and never evicted; expiry is checked on read.
type RateCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cachedRate
}

// NewRateCache creates a cache. A non-positive ttl uses DefaultCacheTTL.
func NewRateCache(ttl time.Duration) *RateCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RateCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedRate),
	}
}

func cacheKey(from, to string) string {
	return from + "_" + to
}

// Get returns a rate fetched less than ttl ago.
func (c *RateCache) Get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return 0, false
	}
	return e.rate, true
}

// Put stores a freshly fetched rate.
func (c *RateCache) Put(key string, rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedRate{rate: rate, fetchedAt: c.now()}
}

// Invalidate drops one entry.
func (c *RateCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAll drops every entry.
func (c *RateCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedRate)
}

// Size returns the number of entries, expired ones included.
func (c *RateCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
