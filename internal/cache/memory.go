package cache

import (
	"context"
	"time"

	"aicore/internal/storage"
)

// MemoryCache keeps results in a process-local TTL LRU
type MemoryCache struct {
	lru *storage.LRUCache
}

// NewMemoryCache creates a memory cache holding up to size entries
func NewMemoryCache(size int, defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{lru: storage.NewLRUCache(size, defaultTTL)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	data, ok := v.([]byte)
	return data, ok, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	if ttl <= 0 {
		c.lru.Set(key, stored)
		return nil
	}
	c.lru.SetWithTTL(key, stored, ttl)
	return nil
}

// CleanupExpired drops expired entries and returns how many were removed
func (c *MemoryCache) CleanupExpired() int {
	return c.lru.CleanupExpired()
}

// Stats exposes the underlying LRU counters
func (c *MemoryCache) Stats() storage.CacheStats {
	return c.lru.GetStats()
}
