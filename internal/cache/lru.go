package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCache is a thread-safe LRU cache for preview frame data, bounded both by
// entry count and by total bytes.
type LRUCache struct {
	items   *lru.Cache[string, []byte]
	size    atomic.Int64
	maxSize int64 // max size in bytes
}

// NewLRUCache creates a new LRU cache with the specified capacity and max size in bytes
func NewLRUCache(capacity int, maxSizeBytes int64) (*LRUCache, error) {
	c := &LRUCache{maxSize: maxSizeBytes}

	items, err := lru.NewWithEvict[string, []byte](capacity, func(_ string, data []byte) {
		c.size.Add(-int64(len(data)))
	})
	if err != nil {
		return nil, err
	}
	c.items = items
	return c, nil
}

func (c *LRUCache) Get(key string) ([]byte, bool) {
	return c.items.Get(key)
}

// Set adds or updates an item, evicting the oldest entries until the byte
// budget holds.
func (c *LRUCache) Set(key string, data []byte) {
	dataSize := int64(len(data))

	// If single item is larger than max size, don't cache it
	if dataSize > c.maxSize {
		return
	}

	if old, ok := c.items.Peek(key); ok {
		c.size.Add(-int64(len(old)))
	}
	c.items.Add(key, data)
	c.size.Add(dataSize)

	for c.size.Load() > c.maxSize && c.items.Len() > 0 {
		c.items.RemoveOldest()
	}
}

func (c *LRUCache) Delete(key string) {
	c.items.Remove(key)
}

func (c *LRUCache) Clear() {
	c.items.Purge()
}

func (c *LRUCache) Len() int {
	return c.items.Len()
}

// Size returns the current size in bytes
func (c *LRUCache) Size() int64 {
	return c.size.Load()
}
