package uuidtable

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hupe1980/termid/internal/hash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_PutGetRemove(t *testing.T) {
	tbl := New(0)
	a, b := uuid.New(), uuid.New()

	_, replaced := tbl.Put(a, 1)
	assert.False(t, replaced)
	_, replaced = tbl.Put(b, 2)
	assert.False(t, replaced)

	v, ok := tbl.Get(a)
	require.True(t, ok)
	assert.Equal(t, int32(1), v)

	prev, replaced := tbl.Put(a, 3)
	assert.True(t, replaced)
	assert.Equal(t, int32(1), prev)
	assert.Equal(t, 2, tbl.Len())

	v, ok = tbl.Remove(a)
	require.True(t, ok)
	assert.Equal(t, int32(3), v)
	assert.False(t, tbl.Contains(a))
	assert.True(t, tbl.Contains(b))
	assert.Equal(t, 1, tbl.Len())

	_, ok = tbl.Remove(a)
	assert.False(t, ok)
}

func TestTable_GrowsAndKeepsEntries(t *testing.T) {
	tbl := New(0)
	keys := make([]uuid.UUID, 10_000)
	for i := range keys {
		keys[i] = uuid.New()
		tbl.Put(keys[i], int32(i))
	}
	assert.Equal(t, len(keys), tbl.Len())
	assert.Greater(t, tbl.Capacity(), len(keys))

	for i, k := range keys {
		v, ok := tbl.Get(k)
		require.True(t, ok)
		require.Equal(t, int32(i), v)
	}
}

func TestTable_RehashBuildsFreshArrays(t *testing.T) {
	tbl := New(0)
	capacity := tbl.Capacity()
	keys := make([]uuid.UUID, capacity*maxLoadPercent/100)
	for i := range keys {
		keys[i] = uuid.New()
		tbl.Put(keys[i], int32(i))
	}
	require.Equal(t, capacity, tbl.Capacity())
	oldStates, oldMsb, oldLsb, oldVals := tbl.states, tbl.msb, tbl.lsb, tbl.vals

	last := uuid.New()
	keys = append(keys, last)
	tbl.Put(last, int32(len(keys)-1))
	require.Greater(t, tbl.Capacity(), capacity)

	// The previous arrays still hold every entry, so nothing was written
	// into them during the copy.
	full := 0
	for i, st := range oldStates {
		if st != slotFull {
			continue
		}
		full++
		v, ok := tbl.Get(hash.FromWords(oldMsb[i], oldLsb[i]))
		require.True(t, ok)
		assert.Equal(t, oldVals[i], v)
	}
	assert.Equal(t, len(keys), full)
	assert.Equal(t, len(keys), tbl.Len())
	for i, k := range keys {
		v, ok := tbl.Get(k)
		require.True(t, ok)
		assert.Equal(t, int32(i), v)
	}
}

func TestTable_TombstonesAreReclaimed(t *testing.T) {
	tbl := New(8)
	capacity := tbl.Capacity()
	keep := uuid.New()
	tbl.Put(keep, 42)

	// Churn far more keys than the table holds; rehash must compact
	// tombstones instead of growing without bound.
	for i := range 10 * capacity {
		u := uuid.New()
		tbl.Put(u, int32(i))
		tbl.Remove(u)
	}

	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, capacity, tbl.Capacity())
	v, ok := tbl.Get(keep)
	require.True(t, ok)
	assert.Equal(t, int32(42), v)
}

func TestTable_AllAndKeysFor(t *testing.T) {
	tbl := New(0)
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	tbl.Put(a, 7)
	tbl.Put(b, 7)
	tbl.Put(c, 8)

	seen := map[uuid.UUID]int32{}
	for k, v := range tbl.All() {
		seen[k] = v
	}
	assert.Equal(t, map[uuid.UUID]int32{a: 7, b: 7, c: 8}, seen)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, tbl.KeysFor(7))
	assert.Empty(t, tbl.KeysFor(9))
}

func TestMarshal_RoundTrip(t *testing.T) {
	tbl := New(0)
	for i := range 1000 {
		tbl.Put(uuid.New(), int32(i)-500)
	}
	tbl.Remove(uuid.Nil) // no-op

	data, err := tbl.MarshalBinary()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, tbl.Len(), got.Len())
	for k, v := range tbl.All() {
		gv, ok := got.Get(k)
		require.True(t, ok)
		require.Equal(t, v, gv)
	}
}

func TestUnmarshal_Corrupt(t *testing.T) {
	tbl := New(0)
	tbl.Put(uuid.New(), 1)
	data, err := tbl.MarshalBinary()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"short", func(b []byte) []byte { return b[:8] }},
		{"magic", func(b []byte) []byte { b[0] ^= 0xff; return b }},
		{"version", func(b []byte) []byte { b[4] = 9; return b }},
		{"truncated", func(b []byte) []byte { return b[:len(b)-1] }},
		{"bitflip", func(b []byte) []byte { b[headerSize+3] ^= 1; return b }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := tt.mutate(append([]byte(nil), data...))
			_, err := Unmarshal(buf)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}
