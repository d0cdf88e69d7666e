package identity

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/termid/blobstore"
	"github.com/hupe1980/termid/internal/cache"
	"github.com/hupe1980/termid/internal/hash"
	"github.com/hupe1980/termid/internal/uuidtable"
	"golang.org/x/sync/singleflight"
)

// NumShards is the fixed number of shards of a Map.
const NumShards = 256

// NoNid is the counter value before the first nid is issued. It is never a
// valid nid.
const NoNid int32 = math.MinInt32

// Map is a concurrent UUID to nid map. It is safe for concurrent use.
type Map struct {
	shards [NumShards]*shard

	store       blobstore.Store // nil for in-memory maps
	caches      *Caches
	compression Compression
	logger      *slog.Logger
	metrics     Metrics

	counter atomic.Int32 // last issued nid

	paramsMu  sync.Mutex
	persisted int32 // high-water mark in the store
	hasParams bool

	writeMu sync.Mutex
	closed  atomic.Bool

	inverseEnabled atomic.Bool
	inverse        *cache.ShardedLRU[int32, []uuid.UUID]
	aliasStarted   atomic.Uint64
	aliasFinished  atomic.Uint64
	scans          singleflight.Group

	loads     atomic.Int64
	evictions atomic.Int64
}

func newMap(o options) *Map {
	m := &Map{
		caches:      o.caches,
		compression: o.compression,
		logger:      o.logger,
		metrics:     o.metrics,
		persisted:   NoNid,
		inverse:     cache.NewShardedLRU[int32, []uuid.UUID](int64(o.inverseCapacity)),
	}
	m.counter.Store(NoNid)
	m.inverseEnabled.Store(o.inverseEnabled)
	for i := range m.shards {
		m.shards[i] = &shard{m: m, idx: i}
	}
	return m
}

// New creates an in-memory map.
func New(optFns ...Option) *Map {
	m := newMap(buildOptions(optFns))
	for _, s := range m.shards {
		s.table = uuidtable.New(0)
		s.counted = true
	}
	return m
}

func (m *Map) shardFor(u uuid.UUID) *shard {
	return m.shards[hash.ShardIndex(u)]
}

func (m *Map) checkOpen() error {
	if m.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Get returns the nid bound to u. It never allocates.
func (m *Map) Get(ctx context.Context, u uuid.UUID) (int32, bool, error) {
	if err := m.checkOpen(); err != nil {
		return 0, false, err
	}
	var (
		nid int32
		ok  bool
	)
	err := m.shardFor(u).view(ctx, func(t *uuidtable.Table) {
		nid, ok = t.Get(u)
	})
	return nid, ok, err
}

// Contains reports whether u is bound.
func (m *Map) Contains(ctx context.Context, u uuid.UUID) (bool, error) {
	_, ok, err := m.Get(ctx, u)
	return ok, err
}

// GetOrAssign returns the nid bound to u, issuing the next nid if u is
// unbound. Concurrent callers racing on the same UUID all receive the one
// nid issued for it.
func (m *Map) GetOrAssign(ctx context.Context, u uuid.UUID) (int32, error) {
	nid, ok, err := m.Get(ctx, u)
	if err != nil || ok {
		return nid, err
	}

	start := time.Now()
	epoch, quiet := m.aliasEpoch()
	assigned := false
	err = m.shardFor(u).update(ctx, func(t *uuidtable.Table) (bool, error) {
		// Re-check: another goroutine may have won the race.
		if v, ok := t.Get(u); ok {
			nid = v
			return false, nil
		}
		n, err := m.allocate()
		if err != nil {
			return false, err
		}
		t.Put(u, n)
		nid, assigned = n, true
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	if assigned {
		m.cacheAssigned(nid, u, epoch, quiet)
		m.metrics.RecordAssign(time.Since(start))
	}
	return nid, nil
}

// Put binds u to nid. It reports true for a new binding and false if the
// same binding already existed. Binding a UUID already bound to another nid
// returns ErrAlreadyBound. A nid above MaxNid advances the high-water mark.
func (m *Map) Put(ctx context.Context, u uuid.UUID, nid int32) (bool, error) {
	if err := m.checkOpen(); err != nil {
		return false, err
	}
	if nid == NoNid {
		return false, fmt.Errorf("%w: %d", ErrInvalidNid, nid)
	}

	m.aliasStarted.Add(1)
	defer m.aliasFinished.Add(1)

	added := false
	err := m.shardFor(u).update(ctx, func(t *uuidtable.Table) (bool, error) {
		if v, ok := t.Get(u); ok {
			if v == nid {
				return false, nil
			}
			return false, fmt.Errorf("%w: %s is bound to %d, not %d", ErrAlreadyBound, u, v, nid)
		}
		m.advance(nid)
		t.Put(u, nid)
		added = true
		return true, nil
	})
	if err != nil {
		return false, err
	}

	if added {
		m.cacheAlias(nid, u)
	}
	return added, nil
}

// allocate issues the next nid.
func (m *Map) allocate() (int32, error) {
	for {
		cur := m.counter.Load()
		if cur == math.MaxInt32 {
			return 0, ErrNidSpaceExhausted
		}
		if m.counter.CompareAndSwap(cur, cur+1) {
			return cur + 1, nil
		}
	}
}

// advance raises the high-water mark to at least nid.
func (m *Map) advance(nid int32) {
	for {
		cur := m.counter.Load()
		if cur >= nid || m.counter.CompareAndSwap(cur, nid) {
			return
		}
	}
}

// Evict unloads every resident shard sharing this map's caches. Unwritten
// changes are written first; loaded shards come back on demand.
func (m *Map) Evict(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.caches.EvictAll(ctx)
}

// MaxNid returns the last issued nid, or NoNid if none was issued.
func (m *Map) MaxNid() int32 {
	return m.counter.Load()
}

// Len returns the number of bound UUIDs. In disk mode it loads shards whose
// size is not yet known.
func (m *Map) Len(ctx context.Context) (int, error) {
	if err := m.checkOpen(); err != nil {
		return 0, err
	}
	total := 0
	for _, s := range m.shards {
		n, err := s.entries(ctx)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Range calls fn for every binding, shard by shard, until fn returns false.
// Each shard is copied under its lock; bindings added while ranging may or
// may not be observed.
func (m *Map) Range(ctx context.Context, fn func(u uuid.UUID, nid int32) bool) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	for _, s := range m.shards {
		var batch []entry
		if err := s.view(ctx, func(t *uuidtable.Table) {
			batch = make([]entry, 0, t.Len())
			for u, nid := range t.All() {
				batch = append(batch, entry{u, nid})
			}
		}); err != nil {
			return err
		}
		for _, e := range batch {
			if !fn(e.u, e.nid) {
				return nil
			}
		}
	}
	return nil
}

type entry struct {
	u   uuid.UUID
	nid int32
}

// Persistent reports whether the map is backed by a store.
func (m *Map) Persistent() bool {
	return m.store != nil
}

// Stats is a point-in-time summary of a Map.
type Stats struct {
	MaxNid         int32
	ResidentShards int
	DirtyShards    int
	Loads          int64
	Evictions      int64
	InverseEnabled bool
	InverseEntries int
}

// Stats returns current statistics.
func (m *Map) Stats() Stats {
	st := Stats{
		MaxNid:         m.MaxNid(),
		Loads:          m.loads.Load(),
		Evictions:      m.evictions.Load(),
		InverseEnabled: m.inverseEnabled.Load(),
		InverseEntries: m.inverse.Len(),
	}
	for _, s := range m.shards {
		s.mu.RLock()
		if s.table != nil {
			st.ResidentShards++
		}
		if s.dirty {
			st.DirtyShards++
		}
		s.mu.RUnlock()
	}
	return st
}
