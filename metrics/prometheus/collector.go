// Package prometheus exports identity map metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	c, err := termidprom.NewCollector(termidprom.WithRegisterer(reg))
//	db, err := termid.Open(ctx, termid.Local(dir), termid.WithMetricsCollector(c))
package prometheus

import (
	"errors"
	"time"

	"github.com/hupe1980/termid/identity"
	"github.com/prometheus/client_golang/prometheus"
)

var _ identity.Metrics = (*Collector)(nil)

// Collector implements identity.Metrics with Prometheus vectors.
type Collector struct {
	assignLatency  prometheus.Histogram
	shardIOLatency *prometheus.HistogramVec
	shardIOBytes   *prometheus.CounterVec
	evictions      prometheus.Counter
	scanLatency    prometheus.Histogram
	scanKeys       prometheus.Histogram
}

type options struct {
	namespace   string
	constLabels prometheus.Labels
	registerer  prometheus.Registerer
}

// Option configures a Collector.
type Option func(o *options)

// WithNamespace sets the metric namespace (default "termid").
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithConstLabels adds labels to every metric, e.g. the map name when
// several maps share a registry.
func WithConstLabels(l prometheus.Labels) Option {
	return func(o *options) {
		o.constLabels = l
	}
}

// WithRegisterer sets the registerer (default prometheus.DefaultRegisterer).
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = r
	}
}

// NewCollector creates and registers a Collector. Metrics that are already
// registered with an identical descriptor are reused.
func NewCollector(optFns ...Option) (*Collector, error) {
	o := options{
		namespace:  "termid",
		registerer: prometheus.DefaultRegisterer,
	}
	for _, fn := range optFns {
		fn(&o)
	}

	c := &Collector{
		assignLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   o.namespace,
			Name:        "assign_duration_seconds",
			Help:        "Time to issue a new nid, including shard locking and loading.",
			ConstLabels: o.constLabels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		shardIOLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   o.namespace,
			Name:        "shard_io_duration_seconds",
			Help:        "Latency of shard loads and flushes.",
			ConstLabels: o.constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"op", "status"}),
		shardIOBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Name:        "shard_io_bytes_total",
			Help:        "Bytes of shard blobs read and written.",
			ConstLabels: o.constLabels,
		}, []string{"op"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Name:        "shard_evictions_total",
			Help:        "Shards evicted from memory.",
			ConstLabels: o.constLabels,
		}),
		scanLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   o.namespace,
			Name:        "inverse_scan_duration_seconds",
			Help:        "Latency of full reverse-lookup scans.",
			ConstLabels: o.constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
		scanKeys: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   o.namespace,
			Name:        "inverse_scan_keys",
			Help:        "UUIDs found per reverse-lookup scan.",
			ConstLabels: o.constLabels,
			Buckets:     []float64{0, 1, 2, 4, 8, 16, 64},
		}),
	}

	if o.registerer == nil {
		return c, nil
	}

	var err error
	c.assignLatency = register(o.registerer, c.assignLatency, &err)
	c.shardIOLatency = register(o.registerer, c.shardIOLatency, &err)
	c.shardIOBytes = register(o.registerer, c.shardIOBytes, &err)
	c.evictions = register(o.registerer, c.evictions, &err)
	c.scanLatency = register(o.registerer, c.scanLatency, &err)
	c.scanKeys = register(o.registerer, c.scanKeys, &err)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// register registers col, returning the existing collector if an identical
// one is already registered. The first failure is stored in errp.
func register[C prometheus.Collector](r prometheus.Registerer, col C, errp *error) C {
	if *errp != nil {
		return col
	}
	if err := r.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		*errp = err
	}
	return col
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordAssign implements identity.Metrics.
func (c *Collector) RecordAssign(d time.Duration) {
	c.assignLatency.Observe(d.Seconds())
}

// RecordShardLoad implements identity.Metrics.
func (c *Collector) RecordShardLoad(_ int, bytes int, d time.Duration, err error) {
	c.shardIOLatency.WithLabelValues("load", status(err)).Observe(d.Seconds())
	c.shardIOBytes.WithLabelValues("load").Add(float64(bytes))
}

// RecordShardFlush implements identity.Metrics.
func (c *Collector) RecordShardFlush(_ int, bytes int, d time.Duration, err error) {
	c.shardIOLatency.WithLabelValues("flush", status(err)).Observe(d.Seconds())
	if err == nil {
		c.shardIOBytes.WithLabelValues("flush").Add(float64(bytes))
	}
}

// RecordEviction implements identity.Metrics.
func (c *Collector) RecordEviction(int) {
	c.evictions.Inc()
}

// RecordInverseScan implements identity.Metrics.
func (c *Collector) RecordInverseScan(found int, d time.Duration) {
	c.scanLatency.Observe(d.Seconds())
	c.scanKeys.Observe(float64(found))
}
