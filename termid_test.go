package termid

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hupe1980/termid/blobstore"
	"github.com/hupe1980/termid/identity"
	"github.com/hupe1980/termid/sparseset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_InMemory(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, InMemory())
	require.NoError(t, err)
	defer db.Close(ctx)

	assert.False(t, db.Identities().Persistent())

	u := uuid.New()
	_, ok, err := db.Lookup(ctx, u)
	require.NoError(t, err)
	assert.False(t, ok)

	nid, err := db.Resolve(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, NoNid+1, nid)

	got, ok, err := db.Lookup(ctx, u)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, nid, got)

	require.NoError(t, db.Commit(ctx), "commit is a no-op in memory")
}

func TestResolveString(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, InMemory())
	require.NoError(t, err)

	u := uuid.New()
	a, err := db.ResolveString(ctx, u.String())
	require.NoError(t, err)
	b, err := db.Resolve(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = db.ResolveString(ctx, "not-a-uuid")
	assert.Error(t, err)
}

func TestBind(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, InMemory())
	require.NoError(t, err)

	u1, u2 := uuid.New(), uuid.New()
	nid, err := db.Resolve(ctx, u1)
	require.NoError(t, err)

	added, err := db.Bind(ctx, u2, nid)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = db.Bind(ctx, u2, nid)
	require.NoError(t, err)
	assert.False(t, added)

	_, err = db.Bind(ctx, u2, nid+1)
	assert.ErrorIs(t, err, ErrAlreadyBound)

	_, err = db.Bind(ctx, uuid.New(), NoNid)
	assert.ErrorIs(t, err, ErrInvalidNid)

	keys, err := db.UUIDs(ctx, nid)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{u1, u2}, keys)
}

func TestSetOfAndUUIDsOf(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, InMemory(), WithInverseCache(16))
	require.NoError(t, err)

	uuids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	set, err := db.SetOf(ctx, uuids...)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []int32{NoNid + 1, NoNid + 2, NoNid + 3}, set.ToArray())

	// Resolving again yields the same set.
	again, err := db.SetOf(ctx, uuids[2], uuids[0], uuids[1])
	require.NoError(t, err)
	assert.True(t, sparseset.Equal(set, again))

	got, err := db.UUIDsOf(ctx, set)
	require.NoError(t, err)
	assert.Equal(t, uuids, got, "ascending nid order equals issue order")

	// Nids without bindings contribute nothing.
	got, err = db.UUIDsOf(ctx, sparseset.Of(0, 1))
	require.NoError(t, err)
	assert.Empty(t, got)

	// Works for the concurrent backing too.
	cs := sparseset.NewConcurrent()
	require.NoError(t, cs.Add(NoNid+2))
	got, err = db.UUIDsOf(ctx, cs)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{uuids[1]}, got)
}

func TestSetOf_RunCompacted(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, InMemory())
	require.NoError(t, err)

	uuids := make([]uuid.UUID, 1000)
	for i := range uuids {
		uuids[i] = uuid.New()
	}
	set, err := db.SetOf(ctx, uuids...)
	require.NoError(t, err)

	plain := sparseset.Of(set.ToArray()...)
	assert.True(t, sparseset.Equal(plain, set))
	assert.Less(t, set.SizeBytes(), plain.SizeBytes())
}

func TestEvict(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Local(t.TempDir()))
	require.NoError(t, err)
	defer db.Close(ctx)

	want := map[uuid.UUID]int32{}
	for range 200 {
		u := uuid.New()
		nid, err := db.Resolve(ctx, u)
		require.NoError(t, err)
		want[u] = nid
	}

	require.NoError(t, db.Evict(ctx))
	assert.Zero(t, db.Stats().ResidentShards)

	for u, nid := range want {
		got, ok, err := db.Lookup(ctx, u)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, nid, got)
	}
}

func TestOpen_LocalRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	metrics := &BasicMetricsCollector{}

	db, err := Open(ctx, Local(dir), WithMetricsCollector(metrics), WithCompression(CompressionLZ4))
	require.NoError(t, err)

	want := map[uuid.UUID]int32{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 250 {
				u := uuid.New()
				nid, err := db.Resolve(ctx, u)
				assert.NoError(t, err)
				mu.Lock()
				want[u] = nid
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.NoError(t, db.Commit(ctx))
	require.NoError(t, db.Close(ctx))
	require.NoError(t, db.Close(ctx), "second Close returns the first result")

	_, err = db.Resolve(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrClosed)

	st := metrics.GetStats()
	assert.Equal(t, int64(1000), st.AssignCount)
	assert.Positive(t, st.ShardFlushes)
	assert.Zero(t, st.ShardFlushErrors)

	db, err = Open(ctx, Local(dir), WithMetricsCollector(metrics))
	require.NoError(t, err)
	defer db.Close(ctx)

	n, err := db.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1000, n)
	assert.Equal(t, NoNid+1000, db.Stats().MaxNid)
	for u, nid := range want {
		got, ok, err := db.Lookup(ctx, u)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, nid, got)
	}
	assert.Positive(t, metrics.GetStats().ShardLoads)
}

func TestOpen_Remote(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	db, err := Open(ctx, Remote(store))
	require.NoError(t, err)
	_, err = db.Resolve(ctx, uuid.New())
	require.NoError(t, err)
	require.NoError(t, db.Commit(ctx))
	assert.Equal(t, 2, store.Len(), "params and one shard")
}

func TestOpen_CorruptStore(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "map.params", []byte{1}))

	_, err := Open(ctx, Remote(store))
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.True(t, strings.Contains(err.Error(), "remote"))
}

func TestWithCaches_Shared(t *testing.T) {
	ctx := context.Background()
	caches := identity.NewCaches(3, nil, nil)

	a, err := Open(ctx, Local(t.TempDir()), WithCaches(caches))
	require.NoError(t, err)
	b, err := Open(ctx, Local(t.TempDir()), WithCaches(caches))
	require.NoError(t, err)

	for range 100 {
		_, err := a.Resolve(ctx, uuid.New())
		require.NoError(t, err)
		_, err = b.Resolve(ctx, uuid.New())
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, caches.ResidentShards(), 3)

	require.NoError(t, errors.Join(a.Close(ctx), b.Close(ctx)))
	assert.Zero(t, caches.DirtyShards())
}
