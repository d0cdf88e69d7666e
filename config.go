package termid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hupe1980/termid/blobstore"
	"github.com/hupe1980/termid/blobstore/minio"
	"github.com/hupe1980/termid/blobstore/s3"
	"github.com/hupe1980/termid/identity"
	"github.com/hupe1980/termid/resource"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"gopkg.in/yaml.v3"
)

// Config is the file form of Open's arguments.
//
//	backend:
//	  type: local
//	  dir: /var/lib/termid
//	compression: zstd
//	max_resident_shards: 64
//	inverse_cache:
//	  enabled: true
//	  capacity: 100000
//	resources:
//	  max_concurrent_loads: 8
//	log:
//	  level: info
//	  format: json
type Config struct {
	Backend           BackendConfig      `yaml:"backend"`
	Compression       string             `yaml:"compression"`
	MaxResidentShards int                `yaml:"max_resident_shards"`
	Preload           bool               `yaml:"preload"`
	InverseCache      InverseCacheConfig `yaml:"inverse_cache"`
	Resources         ResourceConfig     `yaml:"resources"`
	Log               LogConfig          `yaml:"log"`
}

// BackendConfig selects the backend. Type is one of memory, local, s3 or
// minio.
type BackendConfig struct {
	Type   string `yaml:"type"`
	Dir    string `yaml:"dir"`    // local
	Bucket string `yaml:"bucket"` // s3, minio
	Prefix string `yaml:"prefix"` // s3, minio

	// MinIO connection. Credentials may be left empty and supplied through
	// MINIO_ACCESS_KEY / MINIO_SECRET_KEY.
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
}

// InverseCacheConfig configures the nid to UUID cache.
type InverseCacheConfig struct {
	Enabled  bool `yaml:"enabled"`
	Capacity int  `yaml:"capacity"`
}

// ResourceConfig mirrors resource.Config.
type ResourceConfig struct {
	MemoryLimitBytes     int64 `yaml:"memory_limit_bytes"`
	MaxConcurrentLoads   int64 `yaml:"max_concurrent_loads"`
	MaxBackgroundWorkers int64 `yaml:"max_background_workers"`
	IOLimitBytesPerSec   int64 `yaml:"io_limit_bytes_per_sec"`
}

// LogConfig configures the logger. Level is debug, info, warn, error or
// off; Format is text or json.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseConfig(f)
}

// ParseConfig decodes a YAML config. Unknown fields are rejected.
func ParseConfig(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// OpenConfig opens the DB described by cfg. Extra options are applied after
// the ones derived from cfg.
func OpenConfig(ctx context.Context, cfg *Config, optFns ...Option) (*DB, error) {
	backend, err := cfg.BackendFor()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return Open(ctx, backend, append(opts, optFns...)...)
}

// BackendFor returns the configured backend.
func (c *Config) BackendFor() (Backend, error) {
	b := c.Backend
	switch strings.ToLower(b.Type) {
	case "", "memory":
		return InMemory(), nil
	case "local":
		if b.Dir == "" {
			return Backend{}, fmt.Errorf("%w: local backend needs dir", ErrInvalidConfig)
		}
		return Local(b.Dir), nil
	case "s3":
		if b.Bucket == "" {
			return Backend{}, fmt.Errorf("%w: s3 backend needs bucket", ErrInvalidConfig)
		}
		return Backend{
			name: "s3:" + b.Bucket,
			store: func(ctx context.Context) (blobstore.Store, error) {
				return s3.NewStoreFromConfig(ctx, b.Bucket, b.Prefix)
			},
		}, nil
	case "minio":
		if b.Bucket == "" || b.Endpoint == "" {
			return Backend{}, fmt.Errorf("%w: minio backend needs endpoint and bucket", ErrInvalidConfig)
		}
		return Backend{
			name: "minio:" + b.Bucket,
			store: func(context.Context) (blobstore.Store, error) {
				access, secret := b.AccessKey, b.SecretKey
				if access == "" {
					access = os.Getenv("MINIO_ACCESS_KEY")
				}
				if secret == "" {
					secret = os.Getenv("MINIO_SECRET_KEY")
				}
				client, err := miniogo.New(b.Endpoint, &miniogo.Options{
					Creds:  credentials.NewStaticV4(access, secret, ""),
					Secure: b.Secure,
				})
				if err != nil {
					return nil, err
				}
				return minio.NewStore(client, b.Bucket, b.Prefix), nil
			},
		}, nil
	default:
		return Backend{}, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, b.Type)
	}
}

// Options converts c to Open options.
func (c *Config) Options() ([]Option, error) {
	compression, err := identity.ParseCompression(c.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	logger, err := c.Log.logger()
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithLogger(logger),
		WithCompression(compression),
		WithMaxResidentShards(c.MaxResidentShards),
		WithResources(resource.NewController(resource.Config{
			MemoryLimitBytes:     c.Resources.MemoryLimitBytes,
			MaxConcurrentLoads:   c.Resources.MaxConcurrentLoads,
			MaxBackgroundWorkers: c.Resources.MaxBackgroundWorkers,
			IOLimitBytesPerSec:   c.Resources.IOLimitBytesPerSec,
		})),
	}
	if c.Preload {
		opts = append(opts, WithPreload())
	}
	if c.InverseCache.Enabled {
		opts = append(opts, WithInverseCache(c.InverseCache.Capacity))
	}
	return opts, nil
}

func (c LogConfig) logger() (*Logger, error) {
	level := strings.ToLower(c.Level)
	if level == "off" {
		return NoopLogger(), nil
	}
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.Level)
		}
	}
	switch strings.ToLower(c.Format) {
	case "", "text":
		return NewTextLogger(lvl), nil
	case "json":
		return NewJSONLogger(lvl), nil
	default:
		return nil, fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Format)
	}
}
