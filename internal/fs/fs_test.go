package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, lfs.MkdirAll(dir, 0755))

	fpath := filepath.Join(dir, "test.txt")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)

	_, err = f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.NoError(t, f.Sync())

	info, err := f.Stat()
	assert.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
	assert.NoError(t, f.Close())

	entries, err := lfs.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)

	newPath := filepath.Join(dir, "renamed.txt")
	assert.NoError(t, lfs.Rename(fpath, newPath))
	assert.NoError(t, lfs.Remove(newPath))
	_, err = lfs.Stat(newPath)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFileAtomic(t *testing.T) {
	tmp := t.TempDir()
	name := filepath.Join(tmp, "7-uuid-nid.map")

	require.NoError(t, WriteFileAtomic(Default, name, []byte("v1"), 0o644))
	require.NoError(t, WriteFileAtomic(Default, name, []byte("version-2"), 0o644))

	data, err := ReadFile(Default, name)
	require.NoError(t, err)
	assert.Equal(t, "version-2", string(data))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteFileAtomic_FailureKeepsPrevious(t *testing.T) {
	tmp := t.TempDir()
	name := filepath.Join(tmp, "map.params")
	require.NoError(t, WriteFileAtomic(Default, name, []byte("old"), 0o644))

	for _, fault := range []Fault{
		{FailAfterBytes: 1},
		{FailAfterBytes: -1, FailOnSync: true},
		{FailAfterBytes: -1, FailOnClose: true},
		{FailAfterBytes: -1, FailOnRename: true},
	} {
		ffs := NewFaultyFS(nil)
		ffs.AddRule("map.params", fault)

		err := WriteFileAtomic(ffs, name, []byte("new content"), 0o644)
		require.ErrorIs(t, err, ErrInjected)
		assert.Equal(t, 1, ffs.Hits())

		data, err := ReadFile(Default, name)
		require.NoError(t, err)
		assert.Equal(t, "old", string(data))
	}

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFaultyFS_PassThroughWithoutRules(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})

	dir := filepath.Join(tmp, "d")
	require.NoError(t, ffs.MkdirAll(dir, 0o755))
	require.NoError(t, WriteFileAtomic(ffs, filepath.Join(dir, "a"), []byte("x"), 0o644))

	entries, err := ffs.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 0, ffs.Hits())
}
