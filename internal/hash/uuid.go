package hash

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

// Words splits a UUID into its most and least significant 64-bit halves.
func Words(u uuid.UUID) (msb, lsb uint64) {
	return binary.BigEndian.Uint64(u[0:8]), binary.BigEndian.Uint64(u[8:16])
}

// FromWords is the inverse of Words.
func FromWords(msb, lsb uint64) uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint64(u[0:8], msb)
	binary.BigEndian.PutUint64(u[8:16], lsb)
	return u
}

// UUIDHashCode returns the java.util.UUID hash code of u.
func UUIDHashCode(u uuid.UUID) int32 {
	msb, lsb := Words(u)
	hilo := msb ^ lsb
	return int32(hilo>>32) ^ int32(hilo)
}

// ShardIndex maps u to one of 256 shards: the signed low byte of the hash
// code, shifted into [0,256).
func ShardIndex(u uuid.UUID) int {
	return int(int8(UUIDHashCode(u))) - math.MinInt8
}

// Mix64 is the splitmix64 finalizer.
//
//go:nosplit
func Mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// MixWords hashes a (msb, lsb) pair for probe sequences.
func MixWords(msb, lsb uint64) uint64 {
	return Mix64(msb ^ Mix64(lsb+0x9e3779b97f4a7c15))
}
