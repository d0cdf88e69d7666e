// Package fs provides the filesystem seam of the local blob store.
//
//   - [File] and [FileSystem] abstract the few os calls the store needs.
//   - [LocalFS] is the production implementation.
//   - [FaultyFS] injects write, sync and close failures so tests can prove
//     that a failed shard flush is reported and never half-applied.
//
// [WriteFileAtomic] is the only way shard and parameter files are written:
// temp file, fsync, rename over the target, fsync of the directory. A reader
// therefore sees either the previous complete file or the new one.
//
// The package does not take context.Context: local file operations are not
// interruptible at the syscall level.
package fs
