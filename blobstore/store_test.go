package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/termid/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "b.map", []byte("two")))
	require.NoError(t, s.Put(ctx, "a.map", []byte("one")))
	require.NoError(t, s.Put(ctx, "params", []byte{1, 2, 3, 4}))

	data, err := s.Get(ctx, "a.map")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), data)

	require.NoError(t, s.Put(ctx, "a.map", []byte("uno")))
	data, err = s.Get(ctx, "a.map")
	require.NoError(t, err)
	assert.Equal(t, []byte("uno"), data)

	names, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.map", "b.map", "params"}, names)

	names, err = s.List(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.map"}, names)

	require.NoError(t, s.Delete(ctx, "b.map"))
	require.NoError(t, s.Delete(ctx, "b.map"))
	_, err = s.Get(ctx, "b.map")
	assert.ErrorIs(t, err, ErrNotFound)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, s.Put(cctx, "x", nil), context.Canceled)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	testStore(t, s)
	assert.Equal(t, 2, s.Len())
}

func TestLocalStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	s, err := NewLocalStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, s.Root())
	testStore(t, s)
}

func TestLocalStore_InvalidName(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "a/b", `a\b`} {
		assert.Error(t, s.Put(context.Background(), name, nil), name)
	}
}

func TestLocalStore_FailedPutKeepsPreviousContent(t *testing.T) {
	dir := t.TempDir()
	faulty := fs.NewFaultyFS(nil)
	s, err := NewLocalStore(dir, WithFileSystem(faulty))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "shard.map", []byte("v1")))

	faulty.AddRule("shard.map", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
	err = s.Put(ctx, "shard.map", []byte("v2"))
	assert.ErrorIs(t, err, fs.ErrInjected)

	faulty.ClearRules()
	data, err := s.Get(ctx, "shard.map")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), data)

	names, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"shard.map"}, names)

	// No temporary files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
