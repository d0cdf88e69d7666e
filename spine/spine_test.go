package spine

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sparseKeys = []int32{0, 1023, 1024, 1_000_000}

func TestIntMap_Sparsity(t *testing.T) {
	m := NewIntMap()
	for _, k := range sparseKeys {
		require.NoError(t, m.Put(k, k*2))
	}
	for _, k := range sparseKeys {
		v, ok := m.Get(k)
		require.True(t, ok)
		assert.Equal(t, k*2, v)
	}

	assert.False(t, m.ContainsKey(1))
	assert.False(t, m.ContainsKey(1025))
	assert.False(t, m.ContainsKey(500_000), "segment never allocated")
	assert.False(t, m.ContainsKey(math.MaxInt32))
	assert.False(t, m.ContainsKey(-1))

	assert.Equal(t, len(sparseKeys), m.Len())
	assert.Equal(t, 3, m.Segments()) // 0, 1, 976
}

func TestIntMap_NegativeIndex(t *testing.T) {
	m := NewIntMap()
	assert.ErrorIs(t, m.Put(-1, 1), ErrNegativeIndex)
	_, _, err := m.GetAndUpdate(-5, func(int32, bool) int32 { return 0 })
	assert.ErrorIs(t, err, ErrNegativeIndex)
}

func TestIntMap_FormerSentinelIsStorable(t *testing.T) {
	m := NewIntMap()
	require.NoError(t, m.Put(7, math.MaxInt32))
	v, ok := m.Get(7)
	require.True(t, ok)
	assert.Equal(t, int32(math.MaxInt32), v)

	l := NewLongMap()
	require.NoError(t, l.Put(7, math.MaxInt64))
	lv, ok := l.Get(7)
	require.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64), lv)

	// Zero is a value, not absence.
	require.NoError(t, m.Put(8, 0))
	assert.True(t, m.ContainsKey(8))
}

func TestIntMap_GetAndUpdateCounter(t *testing.T) {
	m := NewIntMap(WithSegmentSize(16))
	const goroutines = 16
	const increments = 1000

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range increments {
				_, _, err := m.GetAndUpdate(int32(i%50), func(old int32, _ bool) int32 { return old + 1 })
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	total := int32(0)
	m.ForEach(func(_ int32, v int32) bool {
		total += v
		return true
	})
	assert.Equal(t, int32(goroutines*increments), total)
	assert.Equal(t, 50, m.Len())
}

func TestLongMap_GetAndUpdate(t *testing.T) {
	m := NewLongMap()

	old, ok, err := m.GetAndUpdate(3, func(old int64, ok bool) int64 {
		assert.False(t, ok)
		return 10
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), old)

	old, ok, err = m.GetAndUpdate(3, func(old int64, ok bool) int64 { return old * 3 })
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(10), old)

	v, _ := m.Get(3)
	assert.Equal(t, int64(30), v)
	assert.Equal(t, 1, m.Len())
}

func TestLongMap_ConcurrentGrowth(t *testing.T) {
	m := NewLongMap(WithSegmentSize(64))
	const goroutines = 8
	const perGoroutine = 5000

	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perGoroutine {
				k := int32(i*goroutines + g)
				assert.NoError(t, m.Put(k, int64(k)*10))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*perGoroutine, m.Len())
	prev := int32(-1)
	count := 0
	for k, v := range m.All() {
		require.Greater(t, k, prev)
		require.Equal(t, int64(k)*10, v)
		prev = k
		count++
	}
	assert.Equal(t, goroutines*perGoroutine, count)
}

func TestForEach_StopsEarly(t *testing.T) {
	m := NewIntMap()
	for k := range int32(10) {
		require.NoError(t, m.Put(k, k))
	}
	var seen []int32
	m.ForEach(func(k, _ int32) bool {
		seen = append(seen, k)
		return k < 2
	})
	assert.Equal(t, []int32{0, 1, 2}, seen)
}

func TestObjectMap(t *testing.T) {
	type payload struct{ name string }
	m := NewObjectMap[*payload]()

	require.NoError(t, m.Put(1_000_000, &payload{name: "x"}))
	v, ok := m.Get(1_000_000)
	require.True(t, ok)
	assert.Equal(t, "x", v.name)

	_, ok = m.Get(0)
	assert.False(t, ok)
	_, ok = m.Get(-1)
	assert.False(t, ok)
	assert.ErrorIs(t, m.Put(-1, nil), ErrNegativeIndex)
	assert.Equal(t, 1, m.Segments())

	// A stored nil is still present.
	require.NoError(t, m.Put(2, nil))
	v, ok = m.Get(2)
	assert.True(t, ok)
	assert.Nil(t, v)

	_, _, err := m.GetAndUpdate(2, func(old *payload, _ bool) *payload { return old })
	assert.ErrorIs(t, err, ErrUnsupported)
}
