package cache

import (
	"hash/maphash"
)

const numShards = 64

// ShardedLRU distributes entries across 64 LRUs to reduce lock contention.
// Recency is tracked per shard.
type ShardedLRU[K comparable, V any] struct {
	shards [numShards]*LRU[K, V]
	seed   maphash.Seed
}

// NewShardedLRU creates a sharded LRU. The capacity is divided evenly across
// all shards.
func NewShardedLRU[K comparable, V any](capacity int64) *ShardedLRU[K, V] {
	shardCapacity := capacity / numShards
	if shardCapacity < 1 {
		shardCapacity = 1
	}

	s := &ShardedLRU[K, V]{seed: maphash.MakeSeed()}
	for i := range numShards {
		s.shards[i] = NewLRU[K, V](shardCapacity)
	}
	return s
}

func (s *ShardedLRU[K, V]) shard(k K) *LRU[K, V] {
	return s.shards[maphash.Comparable(s.seed, k)%numShards]
}

// Get returns the value for k.
func (s *ShardedLRU[K, V]) Get(k K) (V, bool) {
	return s.shard(k).Get(k)
}

// Add inserts or replaces k.
func (s *ShardedLRU[K, V]) Add(k K, v V, cost int64) []Entry[K, V] {
	return s.shard(k).Add(k, v, cost)
}

// Update atomically recomputes the value of k (see LRU.Update).
func (s *ShardedLRU[K, V]) Update(k K, fn func(old V, ok bool) (V, int64, bool)) []Entry[K, V] {
	return s.shard(k).Update(k, fn)
}

// Remove deletes k.
func (s *ShardedLRU[K, V]) Remove(k K) (V, bool) {
	return s.shard(k).Remove(k)
}

// Len returns the number of entries across all shards.
func (s *ShardedLRU[K, V]) Len() int {
	total := 0
	for i := range numShards {
		total += s.shards[i].Len()
	}
	return total
}

// Stats returns aggregated hit/miss statistics.
func (s *ShardedLRU[K, V]) Stats() (hits, misses int64) {
	for i := range numShards {
		h, m := s.shards[i].Stats()
		hits += h
		misses += m
	}
	return hits, misses
}

// Purge empties every shard.
func (s *ShardedLRU[K, V]) Purge() {
	for i := range numShards {
		s.shards[i].Purge()
	}
}
