package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/termid/blobstore"
	"github.com/hupe1980/termid/internal/compress"
	"github.com/hupe1980/termid/internal/uuidtable"
)

const shardSuffix = "-uuid-nid.map"

func shardBlobName(i int) string {
	return strconv.Itoa(i) + shardSuffix
}

// parseShardBlobName returns the shard index of a shard blob name.
func parseShardBlobName(name string) (int, bool) {
	digits, ok := strings.CutSuffix(name, shardSuffix)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(digits)
	if err != nil || i < 0 || i >= NumShards || strconv.Itoa(i) != digits {
		return 0, false
	}
	return i, true
}

// shard is one independently locked partition of a Map.
//
// In disk mode table is nil while the shard is not in memory. Lock order is
// flushMu, then mu; the residency and write-back caches are never called
// while holding mu except for WriteBack.Mark/Unmark, which take only their
// own lock.
type shard struct {
	m   *Map
	idx int

	flushMu sync.Mutex // serializes blob writes of this shard

	mu      sync.RWMutex
	table   *uuidtable.Table
	onDisk  bool   // a blob exists in the store
	count   int    // entries, valid if counted
	counted bool   // count is known without loading
	dirty   bool   // table has changes not yet written
	version uint64 // bumped on every mutation
}

func (s *shard) persistent() bool {
	return s.m.store != nil
}

// view runs fn with the table under the read lock, loading it first if
// needed.
func (s *shard) view(ctx context.Context, fn func(t *uuidtable.Table)) error {
	for {
		s.mu.RLock()
		if t := s.table; t != nil {
			fn(t)
			size := t.SizeBytes()
			s.mu.RUnlock()
			s.touch(ctx, size)
			return nil
		}
		s.mu.RUnlock()

		if err := s.ensureLoaded(ctx); err != nil {
			return err
		}
	}
}

// update runs fn with the table under the write lock. If fn reports a
// change the shard becomes dirty.
func (s *shard) update(ctx context.Context, fn func(t *uuidtable.Table) (bool, error)) error {
	s.mu.Lock()
	if s.table == nil {
		if err := s.loadLocked(ctx); err != nil {
			s.mu.Unlock()
			return err
		}
	}

	changed, err := fn(s.table)
	if changed {
		s.version++
		s.count = s.table.Len()
		s.counted = true
		if s.persistent() && !s.dirty {
			s.dirty = true
			s.m.caches.writeBack.Mark(s)
		}
	}
	size := s.table.SizeBytes()
	s.mu.Unlock()

	s.touch(ctx, size)
	return err
}

func (s *shard) touch(ctx context.Context, size int64) {
	if s.persistent() {
		s.m.caches.residency.Touch(ctx, s, size)
	}
}

func (s *shard) ensureLoaded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table != nil {
		return nil
	}
	return s.loadLocked(ctx)
}

// loadLocked materializes the table. Must hold mu.
func (s *shard) loadLocked(ctx context.Context) error {
	if !s.onDisk {
		s.table = uuidtable.New(0)
		s.count, s.counted = 0, true
		return nil
	}

	m := s.m
	rc := m.caches.resources
	if err := rc.AcquireLoad(ctx); err != nil {
		return &ShardError{Shard: s.idx, Op: "load", Err: err}
	}
	start := time.Now()
	data, err := m.store.Get(ctx, shardBlobName(s.idx))
	rc.ReleaseLoad()

	t, err := decodeShard(data, err)
	m.metrics.RecordShardLoad(s.idx, len(data), time.Since(start), err)
	if err != nil {
		m.logger.ErrorContext(ctx, "shard load failed", "shard", s.idx, "error", err)
		return &ShardError{Shard: s.idx, Op: "load", Err: err}
	}

	s.table = t
	s.count, s.counted = t.Len(), true
	m.loads.Add(1)
	m.logger.DebugContext(ctx, "shard loaded", "shard", s.idx, "entries", t.Len(), "bytes", len(data))
	return nil
}

func decodeShard(data []byte, getErr error) (*uuidtable.Table, error) {
	if getErr != nil {
		if errors.Is(getErr, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: shard blob missing", ErrCorrupt)
		}
		return nil, getErr
	}
	raw, err := compress.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	t, err := uuidtable.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return t, nil
}

// Evict implements cache.Resident. A dirty shard is written first and
// stays in memory if that fails.
func (s *shard) Evict(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return nil
	}
	if s.dirty {
		data, err := s.table.MarshalBinary()
		if err != nil {
			return &ShardError{Shard: s.idx, Op: "write", Err: err}
		}
		if err := s.m.writeShard(ctx, s.idx, data); err != nil {
			return err
		}
		s.markCleanLocked()
	}

	s.table = nil
	s.m.evictions.Add(1)
	s.m.metrics.RecordEviction(s.idx)
	s.m.logger.DebugContext(ctx, "shard evicted", "shard", s.idx)
	return nil
}

// Flush implements cache.Flusher. The table is serialized under the lock
// and written without it; changes made meanwhile keep the shard dirty.
func (s *shard) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if !s.dirty || s.table == nil {
		s.mu.Unlock()
		return nil
	}
	data, err := s.table.MarshalBinary()
	version := s.version
	s.mu.Unlock()
	if err != nil {
		return &ShardError{Shard: s.idx, Op: "write", Err: err}
	}

	err = s.m.writeShard(ctx, s.idx, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return err
	}
	s.onDisk = true
	if s.version == version {
		s.markCleanLocked()
	} else {
		// Still dirty; WriteBack dropped it when the flush began.
		s.m.caches.writeBack.Mark(s)
	}
	return nil
}

func (s *shard) markCleanLocked() {
	s.onDisk = true
	s.dirty = false
	s.m.caches.writeBack.Unmark(s)
}

// drop releases the table without writing. Used by Close after a
// successful flush.
func (s *shard) drop() {
	s.mu.Lock()
	if !s.dirty {
		s.table = nil
	}
	s.mu.Unlock()
	s.m.caches.residency.Forget(s)
}

// entries returns the entry count, loading the shard if it was never counted.
func (s *shard) entries(ctx context.Context) (int, error) {
	s.mu.RLock()
	if s.counted {
		n := s.count
		s.mu.RUnlock()
		return n, nil
	}
	s.mu.RUnlock()

	n := 0
	if err := s.view(ctx, func(t *uuidtable.Table) { n = t.Len() }); err != nil {
		return 0, err
	}
	return n, nil
}
