package store

import (
	"sync"
)

// keyedCache is a small typed cache keyed by string. The store uses it to
// memoize per-namespace local getter views, which must be dropped wholesale
// whenever the flat getter registry is rebuilt (install, module registration,
// hot update).
type keyedCache[T any] struct {
	data sync.Map
}

func newKeyedCache[T any]() *keyedCache[T] {
	return &keyedCache[T]{}
}

func (c *keyedCache[T]) Load(key string) (T, bool) {
	value, ok := c.data.Load(key)
	if !ok {
		var zero T
		return zero, false
	}
	return value.(T), true
}

func (c *keyedCache[T]) Store(key string, value T) {
	c.data.Store(key, value)
}

// LoadOrCompute returns the cached value for key, computing and caching it on
// a miss. Concurrent misses may both compute; one result wins.
func (c *keyedCache[T]) LoadOrCompute(key string, compute func() T) T {
	if v, ok := c.Load(key); ok {
		return v
	}
	v := compute()
	actual, _ := c.data.LoadOrStore(key, v)
	return actual.(T)
}

func (c *keyedCache[T]) Clear() {
	c.data.Range(func(key, value any) bool {
		c.data.Delete(key)
		return true
	})
}

func (c *keyedCache[T]) Size() int {
	count := 0
	c.data.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}
