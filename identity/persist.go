package identity

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/termid/blobstore"
	"github.com/hupe1980/termid/internal/cache"
	"github.com/hupe1980/termid/internal/compress"
	"github.com/hupe1980/termid/internal/uuidtable"
	"golang.org/x/sync/errgroup"
)

const paramsName = "map.params"

// Open creates a map persisted in store, resuming from the shards and
// high-water mark found there. It fails if the stored parameters are
// unreadable, or if shards exist without parameters.
func Open(ctx context.Context, store blobstore.Store, optFns ...Option) (*Map, error) {
	o := buildOptions(optFns)
	m := newMap(o)
	m.store = store

	names, err := store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("identity: list store: %w", err)
	}

	shardsOnDisk := 0
	for _, name := range names {
		if name == paramsName {
			m.hasParams = true
			continue
		}
		if i, ok := parseShardBlobName(name); ok {
			m.shards[i].onDisk = true
			shardsOnDisk++
		}
	}
	for _, s := range m.shards {
		s.counted = !s.onDisk
	}

	if m.hasParams {
		mark, err := m.readParams(ctx)
		if err != nil {
			return nil, err
		}
		m.counter.Store(mark)
		m.persisted = mark
	} else if shardsOnDisk > 0 {
		return nil, fmt.Errorf("%w: %d shards without %s", ErrCorrupt, shardsOnDisk, paramsName)
	}

	if o.preload {
		if err := m.preload(ctx); err != nil {
			return nil, err
		}
	}

	m.logger.InfoContext(ctx, "identity map opened",
		"shards_on_disk", shardsOnDisk, "max_nid", m.MaxNid(), "preload", o.preload)
	return m, nil
}

func (m *Map) readParams(ctx context.Context) (int32, error) {
	data, err := m.store.Get(ctx, paramsName)
	if err != nil {
		return 0, fmt.Errorf("identity: read %s: %w", paramsName, err)
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("%w: %s has %d bytes", ErrCorrupt, paramsName, len(data))
	}
	return int32(binary.BigEndian.Uint32(data)), nil
}

func (m *Map) preload(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(int(m.caches.resources.Config().MaxConcurrentLoads))
	for _, s := range m.shards {
		if !s.onDisk {
			continue
		}
		g.Go(func() error {
			return s.view(gctx, func(*uuidtable.Table) {})
		})
	}
	return g.Wait()
}

// persistParams writes the current high-water mark if it is ahead of the
// stored one, or unconditionally if force is set. It runs before every shard
// write so that no stored shard holds a nid above the stored mark.
func (m *Map) persistParams(ctx context.Context, force bool) error {
	m.paramsMu.Lock()
	defer m.paramsMu.Unlock()

	mark := m.counter.Load()
	if !force && m.hasParams && m.persisted >= mark {
		return nil
	}

	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(mark))
	if err := m.store.Put(ctx, paramsName, buf[:]); err != nil {
		return fmt.Errorf("identity: write %s: %w", paramsName, err)
	}
	m.persisted = mark
	m.hasParams = true
	return nil
}

// writeShard stores the serialized table of shard i.
func (m *Map) writeShard(ctx context.Context, i int, table []byte) error {
	start := time.Now()
	data, err := compress.Encode(table, m.compression)
	if err == nil {
		err = m.persistParams(ctx, false)
	}
	if err == nil {
		err = m.caches.resources.AcquireIO(ctx, len(data))
	}
	if err == nil {
		err = m.store.Put(ctx, shardBlobName(i), data)
	}
	m.metrics.RecordShardFlush(i, len(data), time.Since(start), err)
	if err != nil {
		m.logger.ErrorContext(ctx, "shard write failed", "shard", i, "error", err)
		return &ShardError{Shard: i, Op: "write", Err: err}
	}
	return nil
}

// Write persists every dirty shard of this map and the high-water mark.
// Shards that fail stay dirty and are retried by the next Write; their
// errors are joined.
func (m *Map) Write(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.write(ctx)
}

func (m *Map) write(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	start := time.Now()
	dirty := m.caches.writeBack.Len()
	flushErr := m.caches.writeBack.Flush(ctx, m.owns, m.caches.resources.BackgroundLimit())
	paramsErr := m.persistParams(ctx, true)

	if err := errors.Join(flushErr, paramsErr); err != nil {
		m.logger.ErrorContext(ctx, "identity map write failed", "error", err)
		return err
	}
	m.logger.InfoContext(ctx, "identity map written",
		"pending", dirty, "max_nid", m.MaxNid(), "duration", time.Since(start))
	return nil
}

func (m *Map) owns(f cache.Flusher) bool {
	s, ok := f.(*shard)
	return ok && s.m == m
}

// Close writes a persistent map and releases its shards. Further calls
// return ErrClosed.
func (m *Map) Close(ctx context.Context) error {
	if m.closed.Swap(true) {
		return ErrClosed
	}
	if m.store == nil {
		return nil
	}

	err := m.write(ctx)
	for _, s := range m.shards {
		s.drop()
	}
	return err
}
