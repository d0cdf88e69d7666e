package identity

import "time"

// Metrics receives instrumentation events from a Map.
// Implementations must be safe for concurrent use.
type Metrics interface {
	// RecordAssign is called for every newly issued nid.
	RecordAssign(duration time.Duration)

	// RecordShardLoad is called after a shard was read from storage.
	RecordShardLoad(shard int, bytes int, duration time.Duration, err error)

	// RecordShardFlush is called after a shard was written to storage.
	RecordShardFlush(shard int, bytes int, duration time.Duration, err error)

	// RecordEviction is called when a shard left memory.
	RecordEviction(shard int)

	// RecordInverseScan is called after a full reverse-lookup scan.
	RecordInverseScan(found int, duration time.Duration)
}

// NoopMetrics discards all events.
type NoopMetrics struct{}

func (NoopMetrics) RecordAssign(time.Duration)                      {}
func (NoopMetrics) RecordShardLoad(int, int, time.Duration, error)  {}
func (NoopMetrics) RecordShardFlush(int, int, time.Duration, error) {}
func (NoopMetrics) RecordEviction(int)                              {}
func (NoopMetrics) RecordInverseScan(int, time.Duration)            {}
