package spine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// DefaultSegmentSize is the number of slots per segment.
const DefaultSegmentSize = 1024

var (
	// ErrNegativeIndex is returned when writing at a negative key.
	ErrNegativeIndex = errors.New("spine: negative index")

	// ErrUnsupported is returned by operations a spine variant does not offer.
	ErrUnsupported = errors.New("spine: unsupported operation")
)

// Option configures a spine.
type Option func(o *options)

type options struct {
	segmentSize int
}

// WithSegmentSize sets the number of slots per segment.
func WithSegmentSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.segmentSize = n
		}
	}
}

func buildOptions(optFns []Option) options {
	o := options{segmentSize: DefaultSegmentSize}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// segments is the growable segment list shared by all spine variants.
type segments[S any] struct {
	size  int
	list  atomic.Pointer[[]*S]
	mu    sync.Mutex // guards growth of list
	alloc func(size int) *S
}

func newSegments[S any](size int, alloc func(int) *S) *segments[S] {
	s := &segments[S]{size: size, alloc: alloc}
	empty := make([]*S, 0)
	s.list.Store(&empty)
	return s
}

func (s *segments[S]) locate(k int32) (seg, off int) {
	return int(k) / s.size, int(k) % s.size
}

// get returns segment idx or nil if it was never allocated.
func (s *segments[S]) get(idx int) *S {
	list := *s.list.Load()
	if idx >= len(list) {
		return nil
	}
	return list[idx]
}

// getOrGrow returns segment idx, allocating it if needed.
func (s *segments[S]) getOrGrow(idx int) *S {
	if seg := s.get(idx); seg != nil {
		return seg
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Reload under lock: another writer may have grown far enough.
	current := *s.list.Load()
	if idx < len(current) && current[idx] != nil {
		return current[idx]
	}

	grown := current
	if idx >= len(grown) {
		grown = make([]*S, idx+1)
		copy(grown, current)
	} else {
		grown = append([]*S(nil), current...)
	}
	grown[idx] = s.alloc(s.size)

	s.list.Store(&grown)
	return grown[idx]
}

// snapshot returns the segment list as of now.
func (s *segments[S]) snapshot() []*S {
	return *s.list.Load()
}

// allocated counts non-nil segments.
func (s *segments[S]) allocated() int {
	n := 0
	for _, seg := range s.snapshot() {
		if seg != nil {
			n++
		}
	}
	return n
}

// install replaces the list wholesale; used by loaders before publication.
func (s *segments[S]) install(list []*S) {
	s.list.Store(&list)
}

func checkIndex(k int32) error {
	if k < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeIndex, k)
	}
	return nil
}
