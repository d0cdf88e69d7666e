package sparseset

import (
	"errors"
	"iter"
)

var (
	// ErrReadOnly is returned when mutating a read-only set.
	ErrReadOnly = errors.New("sparseset: set is read-only")

	// ErrUnsupported is returned for operations a backing does not implement.
	ErrUnsupported = errors.New("sparseset: operation not supported by this backing")
)

// Kind identifies the backing of a Set.
type Kind uint8

const (
	// KindBitmap is the roaring bitmap backing.
	KindBitmap Kind = iota
	// KindConcurrent is the lock-protected ordered tree backing.
	KindConcurrent
)

func (k Kind) String() string {
	switch k {
	case KindBitmap:
		return "bitmap"
	case KindConcurrent:
		return "concurrent"
	default:
		return "unknown"
	}
}

// Mode selects the backing built by New.
type Mode uint8

const (
	// ModeDefault builds a Bitmap.
	ModeDefault Mode = iota
	// ModeThreadSafe builds a Concurrent set.
	ModeThreadSafe
)

// Iterator is a forward-only cursor over a set.
type Iterator interface {
	HasNext() bool
	Next() int32
}

// Set is an ordered set of int32 values.
type Set interface {
	Add(v int32) error
	Remove(v int32) error
	Contains(v int32) bool
	Clear() error
	Len() int
	IsEmpty() bool

	// And, Or, AndNot and Xor mutate the receiver in place and return it.
	And(other Set) (Set, error)
	Or(other Set) (Set, error)
	AndNot(other Set) (Set, error)
	Xor(other Set) (Set, error)

	// All yields the elements in ascending order. The set is read when the
	// sequence is ranged, not when All is called; mutating the set while
	// ranging over it is undefined.
	All() iter.Seq[int32]
	// Backward yields the elements in descending order.
	Backward() iter.Seq[int32]
	Iterator() Iterator
	ReverseIterator() Iterator
	ToArray() []int32

	MakeReadOnly()
	ReadOnly() bool
	Kind() Kind
}

// New creates an empty set with the backing selected by mode.
func New(mode Mode) Set {
	if mode == ModeThreadSafe {
		return NewConcurrent()
	}
	return NewBitmap()
}

// Of builds a bitmap set holding vals.
func Of(vals ...int32) *Bitmap {
	b := NewBitmap()
	b.addMany(vals)
	return b
}

// FromSeq builds a bitmap set from seq.
func FromSeq(seq iter.Seq[int32]) *Bitmap {
	b := NewBitmap()
	for v := range seq {
		_ = b.Add(v)
	}
	return b
}

// Equal reports whether a and b hold the same elements, regardless of
// backing.
func Equal(a, b Set) bool {
	if a.Len() != b.Len() {
		return false
	}
	nextB, stop := iter.Pull(b.All())
	defer stop()
	for va := range a.All() {
		vb, ok := nextB()
		if !ok || va != vb {
			return false
		}
	}
	_, more := nextB()
	return !more
}

// HashCode returns the ordered polynomial hash 31*h+e over the ascending
// elements of s, wrapping at 32 bits. Equal sets hash equally.
func HashCode(s Set) int32 {
	var h int32
	for v := range s.All() {
		h = 31*h + v
	}
	return h
}

type sliceIterator struct {
	vals []int32
	pos  int
}

func (it *sliceIterator) HasNext() bool { return it.pos < len(it.vals) }

func (it *sliceIterator) Next() int32 {
	v := it.vals[it.pos]
	it.pos++
	return v
}
