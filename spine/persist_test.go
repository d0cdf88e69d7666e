package spine

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntMap_SaveLoad(t *testing.T) {
	m := NewIntMap(WithSegmentSize(100))
	for _, k := range []int32{0, 99, 100, 5000} {
		require.NoError(t, m.Put(k, -k))
	}
	require.NoError(t, m.Put(7, math.MaxInt32))

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	got, err := LoadIntMap(&buf)
	require.NoError(t, err)
	assert.Equal(t, 100, got.SegmentSize())
	assert.Equal(t, m.Len(), got.Len())
	assert.Equal(t, m.Segments(), got.Segments())
	for k, v := range m.All() {
		gv, ok := got.Get(k)
		require.True(t, ok, "key %d", k)
		assert.Equal(t, v, gv)
	}
	assert.False(t, got.ContainsKey(1))
}

func TestLongMap_SaveLoad(t *testing.T) {
	m := NewLongMap()
	for _, k := range sparseKeys {
		require.NoError(t, m.Put(k, int64(k)<<33))
	}

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	got, err := LoadLongMap(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.Len(), got.Len())
	for _, k := range sparseKeys {
		v, ok := got.Get(k)
		require.True(t, ok)
		assert.Equal(t, int64(k)<<33, v)
	}

	// Loaded maps keep growing normally.
	require.NoError(t, got.Put(2_000_000, 1))
	assert.Equal(t, m.Len()+1, got.Len())
}

func TestLoad_Errors(t *testing.T) {
	m := NewIntMap()
	require.NoError(t, m.Put(5, 5))
	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))
	data := buf.Bytes()

	_, err := LoadLongMap(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = LoadIntMap(bytes.NewReader(data[:len(data)-1]))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	bad := append([]byte(nil), data...)
	bad[16] = 7 // segment flag
	_, err = LoadIntMap(bytes.NewReader(bad))
	assert.ErrorIs(t, err, ErrCorrupt)
}
