// Package sparseset provides ordered, duplicate-free sets of int32 values
// with in-place set algebra.
//
// Two backings implement Set:
//
//   - Bitmap: a compressed roaring bitmap. It is the default and supports
//     And, Or, AndNot and Xor directly on the other operand's bitmap when
//     both sides are bitmaps. A Bitmap is not safe for concurrent mutation.
//   - Concurrent: an ordered B-tree behind a read/write lock, for sets that
//     are mutated from several goroutines without external locking. Set
//     algebra on this backing returns ErrUnsupported.
//
// Iteration is always in ascending signed order. Any set can be made
// read-only, after which every mutation returns ErrReadOnly.
package sparseset
