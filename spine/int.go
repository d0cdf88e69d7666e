package spine

import (
	"iter"
	"sync/atomic"
)

// presentBit marks a used IntMap slot; the low 32 bits hold the value.
const presentBit = uint64(1) << 32

type intSegment struct {
	slots []atomic.Uint64
}

func newIntSegment(size int) *intSegment {
	return &intSegment{slots: make([]atomic.Uint64, size)}
}

func packInt(v int32) uint64 { return presentBit | uint64(uint32(v)) }

func unpackInt(w uint64) (int32, bool) {
	return int32(uint32(w)), w&presentBit != 0
}

// IntMap is a spine of int32 values.
type IntMap struct {
	segs  *segments[intSegment]
	count atomic.Int64
}

// NewIntMap creates an empty IntMap.
func NewIntMap(optFns ...Option) *IntMap {
	o := buildOptions(optFns)
	return &IntMap{segs: newSegments(o.segmentSize, newIntSegment)}
}

func (m *IntMap) slot(k int32, grow bool) *atomic.Uint64 {
	if k < 0 {
		return nil
	}
	idx, off := m.segs.locate(k)
	var seg *intSegment
	if grow {
		seg = m.segs.getOrGrow(idx)
	} else {
		seg = m.segs.get(idx)
	}
	if seg == nil {
		return nil
	}
	return &seg.slots[off]
}

// Put stores v at k.
func (m *IntMap) Put(k int32, v int32) error {
	if err := checkIndex(k); err != nil {
		return err
	}
	old := m.slot(k, true).Swap(packInt(v))
	if old&presentBit == 0 {
		m.count.Add(1)
	}
	return nil
}

// Get returns the value at k.
func (m *IntMap) Get(k int32) (int32, bool) {
	s := m.slot(k, false)
	if s == nil {
		return 0, false
	}
	return unpackInt(s.Load())
}

// ContainsKey reports whether k holds a value.
func (m *IntMap) ContainsKey(k int32) bool {
	_, ok := m.Get(k)
	return ok
}

// GetAndUpdate atomically replaces the value at k with fn(old, ok) and
// returns the previous state. fn may run more than once under contention.
func (m *IntMap) GetAndUpdate(k int32, fn func(old int32, ok bool) int32) (int32, bool, error) {
	if err := checkIndex(k); err != nil {
		return 0, false, err
	}
	s := m.slot(k, true)
	for {
		w := s.Load()
		old, ok := unpackInt(w)
		if s.CompareAndSwap(w, packInt(fn(old, ok))) {
			if !ok {
				m.count.Add(1)
			}
			return old, ok, nil
		}
	}
}

// Len returns the number of present keys.
func (m *IntMap) Len() int {
	return int(m.count.Load())
}

// Segments returns the number of allocated segments.
func (m *IntMap) Segments() int {
	return m.segs.allocated()
}

// SegmentSize returns the number of slots per segment.
func (m *IntMap) SegmentSize() int {
	return m.segs.size
}

// ForEach calls fn for every present key in ascending order until fn
// returns false.
func (m *IntMap) ForEach(fn func(k int32, v int32) bool) {
	for k, v := range m.All() {
		if !fn(k, v) {
			return
		}
	}
}

// All yields every present key and its value in ascending key order.
func (m *IntMap) All() iter.Seq2[int32, int32] {
	return func(yield func(int32, int32) bool) {
		size := m.segs.size
		for i, seg := range m.segs.snapshot() {
			if seg == nil {
				continue
			}
			for off := range seg.slots {
				if v, ok := unpackInt(seg.slots[off].Load()); ok {
					if !yield(int32(i*size+off), v) {
						return
					}
				}
			}
		}
	}
}
