package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// Entry is a key/value pair together with its cost.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
	Cost  int64
}

// LRU is a cost-weighted LRU map. Costs below 1 count as 1.
//
// An entry whose cost exceeds the capacity is still admitted; it evicts
// everything else and stays until the next insertion.
type LRU[K comparable, V any] struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[K]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

// NewLRU creates an LRU holding at most capacity cost units.
func NewLRU[K comparable, V any](capacity int64) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		capacity:  capacity,
		items:     make(map[K]*list.Element),
		evictList: list.New(),
	}
}

// Get returns the value for k and marks it most recently used.
func (c *LRU[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[k]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(el)
		return el.Value.(*Entry[K, V]).Value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Peek returns the value for k without touching recency or stats.
func (c *LRU[K, V]) Peek(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[k]; ok {
		return el.Value.(*Entry[K, V]).Value, true
	}
	var zero V
	return zero, false
}

// Add inserts or replaces k and returns the entries evicted to make room.
func (c *LRU[K, V]) Add(k K, v V, cost int64) []Entry[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(k, v, cost)
	return c.evict(k)
}

// Update atomically replaces the value of k with fn's result. fn receives the
// current value and whether it exists; returning keep=false removes k.
func (c *LRU[K, V]) Update(k K, fn func(old V, ok bool) (v V, cost int64, keep bool)) []Entry[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	var old V
	el, ok := c.items[k]
	if ok {
		old = el.Value.(*Entry[K, V]).Value
	}
	v, cost, keep := fn(old, ok)
	if !keep {
		if ok {
			c.removeElement(el)
		}
		return nil
	}
	c.set(k, v, cost)
	return c.evict(k)
}

// Remove deletes k.
func (c *LRU[K, V]) Remove(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[k]; ok {
		e := c.removeElement(el)
		return e.Value, true
	}
	var zero V
	return zero, false
}

// RemoveOldest deletes and returns the least recently used entry.
func (c *LRU[K, V]) RemoveOldest() (Entry[K, V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el := c.evictList.Back()
	if el == nil {
		return Entry[K, V]{}, false
	}
	return *c.removeElement(el), true
}

// Purge removes and returns every entry, oldest first.
func (c *LRU[K, V]) Purge() []Entry[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry[K, V], 0, len(c.items))
	for el := c.evictList.Back(); el != nil; el = c.evictList.Back() {
		out = append(out, *c.removeElement(el))
	}
	return out
}

// Len returns the number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Size returns the summed cost of all entries.
func (c *LRU[K, V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Capacity returns the configured capacity.
func (c *LRU[K, V]) Capacity() int64 {
	return c.capacity
}

// Stats returns hit/miss counters of Get.
func (c *LRU[K, V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *LRU[K, V]) set(k K, v V, cost int64) {
	if cost < 1 {
		cost = 1
	}
	if el, ok := c.items[k]; ok {
		e := el.Value.(*Entry[K, V])
		c.size += cost - e.Cost
		e.Value = v
		e.Cost = cost
		c.evictList.MoveToFront(el)
		return
	}
	c.items[k] = c.evictList.PushFront(&Entry[K, V]{Key: k, Value: v, Cost: cost})
	c.size += cost
}

// evict trims to capacity, never evicting keep.
func (c *LRU[K, V]) evict(keep K) []Entry[K, V] {
	var evicted []Entry[K, V]
	for c.size > c.capacity {
		el := c.evictList.Back()
		if el == nil {
			break
		}
		if el.Value.(*Entry[K, V]).Key == keep {
			if el.Prev() == nil {
				break
			}
			el = el.Prev()
		}
		evicted = append(evicted, *c.removeElement(el))
	}
	return evicted
}

func (c *LRU[K, V]) removeElement(el *list.Element) *Entry[K, V] {
	c.evictList.Remove(el)
	e := el.Value.(*Entry[K, V])
	delete(c.items, e.Key)
	c.size -= e.Cost
	return e
}
