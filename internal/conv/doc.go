// Package conv provides checked integer conversions for binary formats.
//
// Use them for counts and lengths written to or read from storage. For
// conversions that are provably safe by construction (loop indices, masked
// values), use direct type casts instead.
package conv
