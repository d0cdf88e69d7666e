package termid

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/termid/identity"
)

// MetricsCollector receives instrumentation events from the identity map.
// Implement this interface to integrate with monitoring systems, or use
// metrics/prometheus.Collector.
type MetricsCollector = identity.Metrics

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector = identity.NoopMetrics

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AssignCount      atomic.Int64
	AssignTotalNanos atomic.Int64
	ShardLoads       atomic.Int64
	ShardLoadErrors  atomic.Int64
	ShardLoadBytes   atomic.Int64
	ShardFlushes     atomic.Int64
	ShardFlushErrors atomic.Int64
	ShardFlushBytes  atomic.Int64
	Evictions        atomic.Int64
	InverseScans     atomic.Int64
	InverseScanKeys  atomic.Int64
	InverseScanNanos atomic.Int64
}

var _ MetricsCollector = (*BasicMetricsCollector)(nil)

// RecordAssign implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAssign(duration time.Duration) {
	b.AssignCount.Add(1)
	b.AssignTotalNanos.Add(duration.Nanoseconds())
}

// RecordShardLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordShardLoad(_ int, bytes int, _ time.Duration, err error) {
	b.ShardLoads.Add(1)
	b.ShardLoadBytes.Add(int64(bytes))
	if err != nil {
		b.ShardLoadErrors.Add(1)
	}
}

// RecordShardFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordShardFlush(_ int, bytes int, _ time.Duration, err error) {
	b.ShardFlushes.Add(1)
	if err != nil {
		b.ShardFlushErrors.Add(1)
		return
	}
	b.ShardFlushBytes.Add(int64(bytes))
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction(int) {
	b.Evictions.Add(1)
}

// RecordInverseScan implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInverseScan(found int, duration time.Duration) {
	b.InverseScans.Add(1)
	b.InverseScanKeys.Add(int64(found))
	b.InverseScanNanos.Add(duration.Nanoseconds())
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AssignCount:      b.AssignCount.Load(),
		AssignAvgNanos:   avg(b.AssignTotalNanos.Load(), b.AssignCount.Load()),
		ShardLoads:       b.ShardLoads.Load(),
		ShardLoadErrors:  b.ShardLoadErrors.Load(),
		ShardLoadBytes:   b.ShardLoadBytes.Load(),
		ShardFlushes:     b.ShardFlushes.Load(),
		ShardFlushErrors: b.ShardFlushErrors.Load(),
		ShardFlushBytes:  b.ShardFlushBytes.Load(),
		Evictions:        b.Evictions.Load(),
		InverseScans:     b.InverseScans.Load(),
		InverseScanKeys:  b.InverseScanKeys.Load(),
		InverseAvgNanos:  avg(b.InverseScanNanos.Load(), b.InverseScans.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AssignCount      int64
	AssignAvgNanos   int64
	ShardLoads       int64
	ShardLoadErrors  int64
	ShardLoadBytes   int64
	ShardFlushes     int64
	ShardFlushErrors int64
	ShardFlushBytes  int64
	Evictions        int64
	InverseScans     int64
	InverseScanKeys  int64
	InverseAvgNanos  int64
}
