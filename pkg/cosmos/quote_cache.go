package cosmos

import (
	"sync"
	"time"
)

// QuoteCache caches fee quotes so repeated settlements do not re-query the gateway
type QuoteCache struct {
	mu       sync.RWMutex
	cache    map[string]*cachedQuote
	cacheTTL time.Duration
}

type cachedQuote struct {
	coins     Coins
	timestamp time.Time
}

// NewQuoteCache creates a quote cache with the given TTL
func NewQuoteCache(cacheTTL time.Duration) *QuoteCache {
	return &QuoteCache{
		cache:    make(map[string]*cachedQuote),
		cacheTTL: cacheTTL,
	}
}

// Get returns a cached quote if it has not expired
func (c *QuoteCache) Get(key string) (Coins, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, exists := c.cache[key]
	if !exists {
		return nil, false
	}
	if time.Since(cached.timestamp) > c.cacheTTL {
		return nil, false
	}
	return cached.coins, true
}

// Set stores a quote with the current timestamp
func (c *QuoteCache) Set(key string, coins Coins) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[key] = &cachedQuote{
		coins:     coins,
		timestamp: time.Now(),
	}
}

// Clear removes all cached entries
func (c *QuoteCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*cachedQuote)
}

// Len returns the number of entries, expired ones included
func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
