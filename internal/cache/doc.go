// Package cache provides the caches of the identity layer.
//
// # LRU and ShardedLRU
//
// LRU is a cost-weighted least-recently-used map. ShardedLRU spreads keys over
// 64 independently locked LRUs (maphash selection) for hot concurrent paths
// such as the nid→UUID reverse cache.
//
// # Residency ("hold in memory")
//
// Residency bounds how many shard tables stay on the heap. Every shard that is
// materialized registers itself with Touch; the least recently touched ones
// are asked to Evict once the bound (or the resource controller's memory
// limit) is exceeded. Eviction callbacks run outside the residency lock.
//
// # WriteBack ("write to disk")
//
// WriteBack tracks units with unwritten mutations so that a flush can find
// them. Residency and WriteBack cooperate through the unit itself: a unit
// asked to Evict while it is pending in WriteBack writes itself first, and
// refuses the eviction if that write fails. A dirty unit is therefore never
// dropped before it is durable.
//
// Both structures are meant to be created once per database and shared by
// every map that belongs to it.
package cache
