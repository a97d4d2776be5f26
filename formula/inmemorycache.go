package formula

import (
	"sync"
	"time"
)

// InMemoryCache is a simple in-memory implementation of Cache.
// Thread-safe for concurrent access.
type InMemoryCache struct {
	formulas []*Formula
	cachedAt time.Time
	config   CacheConfig
	mu       sync.RWMutex
	isValid  bool
}

// NewInMemoryCache creates a new in-memory formula cache.
func NewInMemoryCache(config CacheConfig) *InMemoryCache {
	return &InMemoryCache{
		config:  config,
		isValid: false,
	}
}

// Get retrieves cached formulas.
// Returns nil if cache is invalid or expired.
func (c *InMemoryCache) Get() []*Formula {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.isValid {
		return nil
	}

	if c.config.TTL > 0 {
		if time.Since(c.cachedAt) > c.config.TTL {
			return nil
		}
	}

	// Return copy to prevent external modifications
	formulasCopy := make([]*Formula, len(c.formulas))
	copy(formulasCopy, c.formulas)
	return formulasCopy
}

// Set stores formulas in cache.
func (c *InMemoryCache) Set(formulas []*Formula) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Store copy to prevent external modifications
	c.formulas = make([]*Formula, len(formulas))
	copy(c.formulas, formulas)
	c.cachedAt = time.Now()
	c.isValid = true
}

// Invalidate clears the cache.
func (c *InMemoryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isValid = false
	c.formulas = nil
}

// IsValid returns true if cache contains valid data.
func (c *InMemoryCache) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.isValid {
		return false
	}

	if c.config.TTL > 0 {
		return time.Since(c.cachedAt) <= c.config.TTL
	}

	return true
}
