package cache

import (
	"context"
	"time"
)

// LayeredCache puts a memory layer in front of a persistent layer (disk or redis)
type LayeredCache struct {
	memory     Cache
	persistent Cache
}

// NewLayeredCache creates a layered cache over the given layers
func NewLayeredCache(memory, persistent Cache) *LayeredCache {
	return &LayeredCache{
		memory:     memory,
		persistent: persistent,
	}
}

// NewMemoryDiskCache builds the default memory + disk layering
func NewMemoryDiskCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return NewLayeredCache(NewMemoryCache(memoryTTL, 10*time.Minute), NewDiskCache(diskDir, diskTTL))
}

// Get checks memory first, then the persistent layer, promoting hits
func (c *LayeredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, found := c.memory.Get(ctx, key); found {
		return val, true
	}

	if val, found := c.persistent.Get(ctx, key); found {
		_ = c.memory.Set(ctx, key, val, 0)
		return val, true
	}

	return nil, false
}

// Set stores value in both layers
func (c *LayeredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.persistent.Set(ctx, key, value, ttl)
}

// Delete removes key from both layers
func (c *LayeredCache) Delete(ctx context.Context, key string) error {
	_ = c.memory.Delete(ctx, key)
	return c.persistent.Delete(ctx, key)
}

// Clear empties both layers
func (c *LayeredCache) Clear(ctx context.Context) error {
	_ = c.memory.Clear(ctx)
	return c.persistent.Clear(ctx)
}
