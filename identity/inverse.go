package identity

import (
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/termid/internal/uuidtable"
)

// EnableInverseCache turns on the reverse cache. It cannot be turned off.
func (m *Map) EnableInverseCache() {
	if !m.inverseEnabled.Swap(true) {
		m.logger.Info("inverse cache enabled")
	}
}

// InverseCacheEnabled reports whether the reverse cache is on.
func (m *Map) InverseCacheEnabled() bool {
	return m.inverseEnabled.Load()
}

// KeysForValue returns every UUID bound to nid. Without the reverse cache,
// or on a cache miss, it scans all shards.
func (m *Map) KeysForValue(ctx context.Context, nid int32) ([]uuid.UUID, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	enabled := m.inverseEnabled.Load()
	if enabled {
		if keys, ok := m.inverse.Get(nid); ok {
			return slices.Clone(keys), nil
		}
	}

	v, err, shared := m.scans.Do(strconv.FormatInt(int64(nid), 10), func() (any, error) {
		return m.scan(ctx, nid)
	})
	if err != nil {
		return nil, err
	}
	res := v.(scanResult)
	if shared && !m.aliasQuietSince(res.epoch) {
		// The shared scan may predate a binding made by this caller.
		if res, err = m.scan(ctx, nid); err != nil {
			return nil, err
		}
	}
	keys := res.keys

	if enabled && len(keys) > 0 {
		m.inverse.Update(nid, func(old []uuid.UUID, ok bool) ([]uuid.UUID, int64, bool) {
			if !res.quiet || !m.aliasQuietSince(res.epoch) {
				// An alias may have been bound after the scan passed its
				// shard; only keep what was cached already.
				return old, 1, ok
			}
			return union(old, keys), 1, true
		})
	}
	return slices.Clone(keys), nil
}

// scanResult carries the alias epoch observed before the scan started, so
// that every caller sharing a scan judges it by the same start point.
type scanResult struct {
	keys  []uuid.UUID
	epoch uint64
	quiet bool
}

func (m *Map) scan(ctx context.Context, nid int32) (scanResult, error) {
	epoch, quiet := m.aliasEpoch()
	start := time.Now()
	var keys []uuid.UUID
	for _, s := range m.shards {
		if err := s.view(ctx, func(t *uuidtable.Table) {
			keys = append(keys, t.KeysFor(nid)...)
		}); err != nil {
			return scanResult{}, err
		}
	}
	m.metrics.RecordInverseScan(len(keys), time.Since(start))
	m.logger.DebugContext(ctx, "inverse scan", "nid", nid, "found", len(keys), "duration", time.Since(start))
	return scanResult{keys: keys, epoch: epoch, quiet: quiet}, nil
}

// aliasEpoch returns the number of alias bindings started so far and
// whether none was in flight.
func (m *Map) aliasEpoch() (uint64, bool) {
	started := m.aliasStarted.Load()
	return started, m.aliasFinished.Load() == started
}

// aliasQuietSince reports that no alias binding started after epoch and
// none is in flight. Every alias that completed before epoch was visible to
// a scan that began after it.
func (m *Map) aliasQuietSince(epoch uint64) bool {
	return m.aliasStarted.Load() == epoch && m.aliasFinished.Load() == epoch
}

// cacheAssigned records a freshly issued nid. The entry is complete unless
// an alias was bound concurrently.
func (m *Map) cacheAssigned(nid int32, u uuid.UUID, epoch uint64, quiet bool) {
	if !m.inverseEnabled.Load() {
		return
	}
	m.inverse.Update(nid, func(old []uuid.UUID, ok bool) ([]uuid.UUID, int64, bool) {
		if !ok && (!quiet || !m.aliasQuietSince(epoch)) {
			return nil, 0, false
		}
		return union(old, []uuid.UUID{u}), 1, true
	})
}

// cacheAlias extends an existing entry. Absent entries are left absent
// because they would be incomplete.
func (m *Map) cacheAlias(nid int32, u uuid.UUID) {
	if !m.inverseEnabled.Load() {
		return
	}
	m.inverse.Update(nid, func(old []uuid.UUID, ok bool) ([]uuid.UUID, int64, bool) {
		if !ok {
			return nil, 0, false
		}
		return union(old, []uuid.UUID{u}), 1, true
	})
}

// union returns a new slice holding a followed by the elements of b not in
// a. Published slices are never modified.
func union(a, b []uuid.UUID) []uuid.UUID {
	out := slices.Clone(a)
	for _, u := range b {
		if !slices.Contains(out, u) {
			out = append(out, u)
		}
	}
	return out
}
