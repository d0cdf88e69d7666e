package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hupe1980/termid/internal/cache"
	"github.com/hupe1980/termid/internal/compress"
	"github.com/hupe1980/termid/resource"
)

// DefaultInverseCacheCapacity is the default number of nids held by the
// reverse cache.
const DefaultInverseCacheCapacity = 1 << 20

// Compression selects the block compression of persisted shards.
type Compression = compress.Type

const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	return compress.ParseType(s)
}

// Caches are the process-wide structures that coordinate memory pressure
// across maps: the residency cache (which shards stay in memory), the
// write-back set (which shards hold unwritten changes) and the resource
// controller. Several maps may share one Caches.
type Caches struct {
	residency *cache.Residency
	writeBack *cache.WriteBack
	resources *resource.Controller
}

// NewCaches keeps at most maxResident shards in memory across all maps that
// use the returned Caches. rc may be nil for default limits.
func NewCaches(maxResident int, rc *resource.Controller, logger *slog.Logger) *Caches {
	if rc == nil {
		rc = resource.NewController(resource.Config{})
	}
	return &Caches{
		residency: cache.NewResidency(maxResident, rc, logger),
		writeBack: cache.NewWriteBack(),
		resources: rc,
	}
}

// Resources returns the resource controller.
func (c *Caches) Resources() *resource.Controller {
	return c.resources
}

// ResidentShards returns the number of shards registered as resident.
func (c *Caches) ResidentShards() int {
	return c.residency.Len()
}

// EvictAll writes and unloads every resident shard of the maps sharing c.
// Shards whose write fails stay in memory and their errors are joined.
func (c *Caches) EvictAll(ctx context.Context) error {
	return errors.Join(c.residency.EvictAll(ctx)...)
}

// DirtyShards returns the number of shards with unwritten changes.
func (c *Caches) DirtyShards() int {
	return c.writeBack.Len()
}

type options struct {
	logger          *slog.Logger
	metrics         Metrics
	caches          *Caches
	resources       *resource.Controller
	maxResident     int
	compression     Compression
	preload         bool
	inverseEnabled  bool
	inverseCapacity int
}

// Option configures a Map.
type Option func(o *options)

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics receiver.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithCaches shares caches with other maps. It overrides
// WithMaxResidentShards and WithResourceController.
func WithCaches(c *Caches) Option {
	return func(o *options) {
		o.caches = c
	}
}

// WithMaxResidentShards bounds the number of shards kept in memory
// (cache.DefaultMaxResident if n <= 0).
func WithMaxResidentShards(n int) Option {
	return func(o *options) {
		o.maxResident = n
	}
}

// WithResourceController sets the controller for memory, shard loads,
// flush workers and IO rate.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithCompression sets the compression of written shards. Reading detects
// the compression of each shard.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithPreload loads every persisted shard during Open, failing on the first
// unreadable one.
func WithPreload() Option {
	return func(o *options) {
		o.preload = true
	}
}

// WithInverseCache enables the reverse cache from the start.
func WithInverseCache() Option {
	return func(o *options) {
		o.inverseEnabled = true
	}
}

// WithInverseCacheCapacity bounds the number of nids in the reverse cache.
func WithInverseCacheCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.inverseCapacity = n
		}
	}
}

func buildOptions(optFns []Option) options {
	o := options{
		metrics:         NoopMetrics{},
		compression:     CompressionNone,
		inverseCapacity: DefaultInverseCacheCapacity,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.metrics == nil {
		o.metrics = NoopMetrics{}
	}
	if o.caches == nil {
		o.caches = NewCaches(o.maxResident, o.resources, o.logger)
	}
	return o
}
