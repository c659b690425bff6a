// Package cache provides a small thread-safe TTL cache. The server uses it
// to hold recent balance snapshots for the read-only network-info endpoint
// so browsing clients do not hammer the RPC endpoint.
package cache

import (
	"sync"
	"time"
)

// Entry represents a cached value with its timestamp
type Entry struct {
	Value     interface{}
	Timestamp time.Time
}

// Cache provides thread-safe caching with TTL support
type Cache struct {
	data   map[string]*Entry
	mutex  sync.RWMutex
	ttl    time.Duration
	stopCh chan struct{}
}

// New creates a new Cache instance with the specified TTL
func New(ttl time.Duration) *Cache {
	c := &Cache{
		data:   make(map[string]*Entry),
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}

	go c.cleanup()

	return c
}

// Get retrieves a value from the cache if it exists and hasn't expired
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.data[key]
	if !exists {
		return nil, false
	}

	if time.Since(entry.Timestamp) > c.ttl {
		return nil, false
	}

	return entry.Value, true
}

// Set stores a value in the cache with the current timestamp
func (c *Cache) Set(key string, value interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = &Entry{
		Value:     value,
		Timestamp: time.Now(),
	}
}

// Delete removes a key from the cache
func (c *Cache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
}

// Size returns the number of entries in the cache
func (c *Cache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.data)
}

// cleanup runs periodically to remove expired entries
func (c *Cache) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cache) removeExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	for key, entry := range c.data {
		if now.Sub(entry.Timestamp) > c.ttl {
			delete(c.data, key)
		}
	}
}

// Stop stops the cleanup goroutine
func (c *Cache) Stop() {
	close(c.stopCh)
}
