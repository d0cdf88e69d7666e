// Package identity resolves UUIDs to compact int32 identifiers (nids).
//
// A Map partitions the UUID space into 256 shards by the low byte of the
// UUID hash code. Each shard is an independently locked open-addressed table.
// Nids are issued from one monotonic counter starting after math.MinInt32;
// a UUID is bound to exactly one nid forever, while one nid may carry several
// UUIDs (aliases).
//
// # Storage strategies
//
// New creates a map whose shards live in memory for the life of the process.
// Open creates a map backed by a blobstore.Store: every shard is persisted as
// "{shard}-uuid-nid.map" and the nid high-water mark as "map.params". Shards
// are loaded on first access and may be evicted from memory by the shared
// residency cache. A shard with unwritten changes is written before it is
// evicted; Write flushes every dirty shard and the high-water mark.
//
//	m, err := identity.Open(ctx, store, identity.WithMaxResidentShards(64))
//	nid, err := m.GetOrAssign(ctx, u)
//	err = m.Write(ctx)
//
// # Reverse lookups
//
// KeysForValue scans every shard unless the reverse cache was enabled with
// EnableInverseCache, in which case nids seen since then are answered from a
// bounded cache.
package identity
