// Package blobstore provides the named-blob storage that persistent identity
// maps write their shards to.
//
// Store is the interface for whole-blob reads and atomic replacement.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: a directory on the local file system
//   - MemoryStore: process memory, for tests
//   - s3.Store: Amazon S3
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
// Implement Store to support other backends:
//
//	type Store interface {
//	    Get(ctx, name) ([]byte, error)    // ErrNotFound if missing
//	    Put(ctx, name, data) error        // atomic replace
//	    Delete(ctx, name) error           // nil if missing
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
