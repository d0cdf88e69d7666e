package termid

import (
	"log/slog"

	"github.com/hupe1980/termid/identity"
	"github.com/hupe1980/termid/resource"
)

// Compression selects the block compression of persisted shards.
type Compression = identity.Compression

const (
	CompressionNone = identity.CompressionNone
	CompressionLZ4  = identity.CompressionLZ4
	CompressionZSTD = identity.CompressionZSTD
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	caches           *identity.Caches
	resources        *resource.Controller
	maxResident      int
	compression      Compression
	preload          bool
	inverseCache     bool
	inverseCapacity  int
}

// Option configures Open.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &termid.BasicMetricsCollector{}
//	db, _ := termid.Open(ctx, termid.InMemory(), termid.WithMetricsCollector(metrics))
//	// ... use db ...
//	stats := metrics.GetStats()
//	fmt.Printf("Assigned: %d, Avg latency: %dns\n", stats.AssignCount, stats.AssignAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := termid.NewJSONLogger(slog.LevelInfo)
//	db, _ := termid.Open(ctx, termid.Local("./ids"), termid.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithCaches shares shard residency and write-back tracking with other
// databases. It overrides WithMaxResidentShards and WithResources.
//
//	caches := identity.NewCaches(64, nil, nil)
//	a, _ := termid.Open(ctx, termid.Local("./a"), termid.WithCaches(caches))
//	b, _ := termid.Open(ctx, termid.Local("./b"), termid.WithCaches(caches))
func WithCaches(c *identity.Caches) Option {
	return func(o *options) {
		o.caches = c
	}
}

// WithResources sets the memory, load, flush and IO limits.
func WithResources(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithMaxResidentShards bounds the number of shards kept in memory.
// Only meaningful for persistent backends.
func WithMaxResidentShards(n int) Option {
	return func(o *options) {
		o.maxResident = n
	}
}

// WithCompression sets the compression of written shards.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithPreload loads all persisted shards during Open.
func WithPreload() Option {
	return func(o *options) {
		o.preload = true
	}
}

// WithInverseCache enables the nid to UUID cache used by UUIDs and UUIDsOf.
// capacity bounds the number of cached nids; 0 uses the default.
func WithInverseCache(capacity int) Option {
	return func(o *options) {
		o.inverseCache = true
		o.inverseCapacity = capacity
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	return o
}

// identityOptions translates o for the identity package.
func (o options) identityOptions() []identity.Option {
	optFns := []identity.Option{
		identity.WithLogger(o.logger.Logger),
		identity.WithMetrics(o.metricsCollector),
		identity.WithCompression(o.compression),
		identity.WithMaxResidentShards(o.maxResident),
		identity.WithResourceController(o.resources),
		identity.WithInverseCacheCapacity(o.inverseCapacity),
	}
	if o.caches != nil {
		optFns = append(optFns, identity.WithCaches(o.caches))
	}
	if o.preload {
		optFns = append(optFns, identity.WithPreload())
	}
	if o.inverseCache {
		optFns = append(optFns, identity.WithInverseCache())
	}
	return optFns
}
