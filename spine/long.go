package spine

import (
	"iter"
	"sync"
	"sync/atomic"
)

type longSegment struct {
	mu      sync.Mutex // serializes absent->present transitions
	present []atomic.Uint64
	vals    []atomic.Int64
}

func newLongSegment(size int) *longSegment {
	return &longSegment{
		present: make([]atomic.Uint64, (size+63)/64),
		vals:    make([]atomic.Int64, size),
	}
}

func (s *longSegment) isPresent(off int) bool {
	return s.present[off/64].Load()&(1<<(off%64)) != 0
}

// setPresent must be called with mu held, after the value is stored.
func (s *longSegment) setPresent(off int) {
	s.present[off/64].Or(1 << (off % 64))
}

func (s *longSegment) get(off int) (int64, bool) {
	if !s.isPresent(off) {
		return 0, false
	}
	return s.vals[off].Load(), true
}

// LongMap is a spine of int64 values.
type LongMap struct {
	segs  *segments[longSegment]
	count atomic.Int64
}

// NewLongMap creates an empty LongMap.
func NewLongMap(optFns ...Option) *LongMap {
	o := buildOptions(optFns)
	return &LongMap{segs: newSegments(o.segmentSize, newLongSegment)}
}

// Put stores v at k.
func (m *LongMap) Put(k int32, v int64) error {
	if err := checkIndex(k); err != nil {
		return err
	}
	idx, off := m.segs.locate(k)
	seg := m.segs.getOrGrow(idx)

	if seg.isPresent(off) {
		seg.vals[off].Store(v)
		return nil
	}

	seg.mu.Lock()
	seg.vals[off].Store(v)
	if !seg.isPresent(off) {
		seg.setPresent(off)
		m.count.Add(1)
	}
	seg.mu.Unlock()
	return nil
}

// Get returns the value at k.
func (m *LongMap) Get(k int32) (int64, bool) {
	if k < 0 {
		return 0, false
	}
	idx, off := m.segs.locate(k)
	seg := m.segs.get(idx)
	if seg == nil {
		return 0, false
	}
	return seg.get(off)
}

// ContainsKey reports whether k holds a value.
func (m *LongMap) ContainsKey(k int32) bool {
	_, ok := m.Get(k)
	return ok
}

// GetAndUpdate atomically replaces the value at k with fn(old, ok) and
// returns the previous state. fn may run more than once under contention.
func (m *LongMap) GetAndUpdate(k int32, fn func(old int64, ok bool) int64) (int64, bool, error) {
	if err := checkIndex(k); err != nil {
		return 0, false, err
	}
	idx, off := m.segs.locate(k)
	seg := m.segs.getOrGrow(idx)

	if !seg.isPresent(off) {
		seg.mu.Lock()
		if !seg.isPresent(off) {
			seg.vals[off].Store(fn(0, false))
			seg.setPresent(off)
			m.count.Add(1)
			seg.mu.Unlock()
			return 0, false, nil
		}
		seg.mu.Unlock()
	}

	for {
		old := seg.vals[off].Load()
		if seg.vals[off].CompareAndSwap(old, fn(old, true)) {
			return old, true, nil
		}
	}
}

// Len returns the number of present keys.
func (m *LongMap) Len() int {
	return int(m.count.Load())
}

// Segments returns the number of allocated segments.
func (m *LongMap) Segments() int {
	return m.segs.allocated()
}

// SegmentSize returns the number of slots per segment.
func (m *LongMap) SegmentSize() int {
	return m.segs.size
}

// ForEach calls fn for every present key in ascending order until fn
// returns false.
func (m *LongMap) ForEach(fn func(k int32, v int64) bool) {
	for k, v := range m.All() {
		if !fn(k, v) {
			return
		}
	}
}

// All yields every present key and its value in ascending key order.
func (m *LongMap) All() iter.Seq2[int32, int64] {
	return func(yield func(int32, int64) bool) {
		size := m.segs.size
		for i, seg := range m.segs.snapshot() {
			if seg == nil {
				continue
			}
			for off := range seg.vals {
				if v, ok := seg.get(off); ok {
					if !yield(int32(i*size+off), v) {
						return
					}
				}
			}
		}
	}
}
