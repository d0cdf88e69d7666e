package spine

import "sync/atomic"

type objectSegment[T any] struct {
	slots []atomic.Pointer[T]
}

// ObjectMap is a spine of arbitrary values. It offers no atomic update;
// callers that read-modify-write must synchronize themselves.
type ObjectMap[T any] struct {
	segs *segments[objectSegment[T]]
}

// NewObjectMap creates an empty ObjectMap.
func NewObjectMap[T any](optFns ...Option) *ObjectMap[T] {
	o := buildOptions(optFns)
	return &ObjectMap[T]{
		segs: newSegments(o.segmentSize, func(size int) *objectSegment[T] {
			return &objectSegment[T]{slots: make([]atomic.Pointer[T], size)}
		}),
	}
}

// Put stores v at k.
func (m *ObjectMap[T]) Put(k int32, v T) error {
	if err := checkIndex(k); err != nil {
		return err
	}
	idx, off := m.segs.locate(k)
	m.segs.getOrGrow(idx).slots[off].Store(&v)
	return nil
}

// Get returns the value at k.
func (m *ObjectMap[T]) Get(k int32) (T, bool) {
	var zero T
	if k < 0 {
		return zero, false
	}
	idx, off := m.segs.locate(k)
	seg := m.segs.get(idx)
	if seg == nil {
		return zero, false
	}
	p := seg.slots[off].Load()
	if p == nil {
		return zero, false
	}
	return *p, true
}

// GetAndUpdate always returns ErrUnsupported: arbitrary values cannot be
// compared and swapped generically.
func (m *ObjectMap[T]) GetAndUpdate(int32, func(old T, ok bool) T) (T, bool, error) {
	var zero T
	return zero, false, ErrUnsupported
}

// Segments returns the number of allocated segments.
func (m *ObjectMap[T]) Segments() int {
	return m.segs.allocated()
}
