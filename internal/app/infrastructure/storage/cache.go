package storage

import (
	"time"

	"github.com/maypok86/otter/v2"
)

// Cache is a bounded in-memory map whose entries expire a fixed time after they were written.
type Cache[T any] struct {
	outer *otter.Cache[string, T]
}

func NewCache[T any](capacity int, ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		outer: otter.Must(&otter.Options[string, T]{
			MaximumSize:      capacity,
			InitialCapacity:  min(capacity, 64),
			ExpiryCalculator: otter.ExpiryWriting[string, T](ttl),
		}),
	}
}

func (c *Cache[T]) Set(key string, val T) {
	c.outer.Set(key, val)
}

func (c *Cache[T]) Get(key string) (T, bool) {
	return c.outer.GetIfPresent(key)
}

func (c *Cache[T]) ClearKey(key string) {
	c.outer.Invalidate(key)
}

func (c *Cache[T]) ClearAll() {
	c.outer.InvalidateAll()
}
