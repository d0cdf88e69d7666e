// Package hash provides the hashing primitives of the identity layer.
//
// # CRC32-Castagnoli (CRC32C)
//
// Every persisted shard table and spine carries a CRC32C trailer:
//
//	checksum := hash.CRC32C(data)
//
// Go's crc32 package uses hardware instructions (SSE4.2, ARM CRC) when available.
//
// # UUID hash codes
//
// Shard placement must stay stable across restarts and across the systems that
// wrote the original shard files, so UUIDHashCode reproduces the JVM's
// java.util.UUID#hashCode bit for bit:
//
//	hilo := msb ^ lsb
//	hashCode := int32(hilo>>32) ^ int32(hilo)
//
// Mix64 is an unrelated, well-distributed finalizer used for open-addressing
// probe sequences. It must never be used for shard placement.
package hash
