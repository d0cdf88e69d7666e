// Package resource bounds the global resources of the identity layer.
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                           Controller                             │
//	├──────────────┬────────────────┬───────────────┬──────────────────┤
//	│ Memory       │ Shard loads    │ Background    │ IO rate          │
//	│ (fail-fast)  │ (semaphore)    │ workers (sem) │ (token bucket)   │
//	├──────────────┼────────────────┼───────────────┼──────────────────┤
//	│ AcquireMemory│ AcquireLoad    │ AcquireBack-  │ AcquireIO        │
//	│ ReleaseMemory│ ReleaseLoad    │ ground        │                  │
//	└──────────────┴────────────────┴───────────────┴──────────────────┘
//
// Shard loads are the only blocking disk reads of the identity layer. The
// load semaphore caps how many shards are read concurrently, so a burst of
// cold shard faults cannot open an unbounded number of files.
//
// A Controller is created once per database and shared by every component
// that belongs to it. All methods are safe for concurrent use, and all of
// them are no-ops on a nil *Controller.
package resource
