package sparseset

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

// signFlip maps int32 onto uint32 so that unsigned order equals signed order.
const signFlip = 0x80000000

func toKey(v int32) uint32 { return uint32(v) ^ signFlip }

func fromKey(k uint32) int32 { return int32(k ^ signFlip) }

// Bitmap is a Set backed by a roaring bitmap.
type Bitmap struct {
	rb       *roaring.Bitmap
	readOnly bool
}

var _ Set = (*Bitmap)(nil)

// NewBitmap creates an empty bitmap set.
func NewBitmap() *Bitmap {
	return &Bitmap{rb: roaring.New()}
}

func (b *Bitmap) addMany(vals []int32) {
	keys := make([]uint32, len(vals))
	for i, v := range vals {
		keys[i] = toKey(v)
	}
	b.rb.AddMany(keys)
}

// Add inserts v.
func (b *Bitmap) Add(v int32) error {
	if b.readOnly {
		return ErrReadOnly
	}
	b.rb.Add(toKey(v))
	return nil
}

// Remove deletes v.
func (b *Bitmap) Remove(v int32) error {
	if b.readOnly {
		return ErrReadOnly
	}
	b.rb.Remove(toKey(v))
	return nil
}

// Contains reports whether v is present.
func (b *Bitmap) Contains(v int32) bool {
	return b.rb.Contains(toKey(v))
}

// Clear removes all elements.
func (b *Bitmap) Clear() error {
	if b.readOnly {
		return ErrReadOnly
	}
	b.rb.Clear()
	return nil
}

// Len returns the number of elements.
func (b *Bitmap) Len() int {
	return int(b.rb.GetCardinality())
}

// IsEmpty reports whether the set has no elements.
func (b *Bitmap) IsEmpty() bool {
	return b.rb.IsEmpty()
}

// operand returns other's elements as a roaring bitmap, sharing it when
// other is itself a Bitmap.
func operand(other Set) *roaring.Bitmap {
	if ob, ok := other.(*Bitmap); ok {
		return ob.rb
	}
	rb := roaring.New()
	for v := range other.All() {
		rb.Add(toKey(v))
	}
	return rb
}

func (b *Bitmap) algebra(other Set, op func(*roaring.Bitmap)) (Set, error) {
	if b.readOnly {
		return b, ErrReadOnly
	}
	op(operand(other))
	return b, nil
}

// And keeps only elements also in other.
func (b *Bitmap) And(other Set) (Set, error) { return b.algebra(other, b.rb.And) }

// Or adds every element of other.
func (b *Bitmap) Or(other Set) (Set, error) { return b.algebra(other, b.rb.Or) }

// AndNot removes every element of other.
func (b *Bitmap) AndNot(other Set) (Set, error) { return b.algebra(other, b.rb.AndNot) }

// Xor keeps elements in exactly one of the two sets.
func (b *Bitmap) Xor(other Set) (Set, error) { return b.algebra(other, b.rb.Xor) }

// All yields the elements in ascending order.
func (b *Bitmap) All() iter.Seq[int32] {
	return func(yield func(int32) bool) {
		if b.rb.IsEmpty() {
			return
		}
		it := b.rb.Iterator()
		for it.HasNext() {
			if !yield(fromKey(it.Next())) {
				return
			}
		}
	}
}

// Backward yields the elements in descending order.
func (b *Bitmap) Backward() iter.Seq[int32] {
	return func(yield func(int32) bool) {
		if b.rb.IsEmpty() {
			return
		}
		it := b.rb.ReverseIterator()
		for it.HasNext() {
			if !yield(fromKey(it.Next())) {
				return
			}
		}
	}
}

type roaringIterator struct {
	it roaring.IntIterable
}

func (r roaringIterator) HasNext() bool { return r.it.HasNext() }
func (r roaringIterator) Next() int32   { return fromKey(r.it.Next()) }

// Iterator returns an ascending iterator.
func (b *Bitmap) Iterator() Iterator {
	return roaringIterator{it: b.rb.Iterator()}
}

// ReverseIterator returns a descending iterator.
func (b *Bitmap) ReverseIterator() Iterator {
	return roaringIterator{it: b.rb.ReverseIterator()}
}

// ToArray returns the elements in ascending order.
func (b *Bitmap) ToArray() []int32 {
	keys := b.rb.ToArray()
	out := make([]int32, len(keys))
	for i, k := range keys {
		out[i] = fromKey(k)
	}
	return out
}

// MakeReadOnly forbids further mutation.
func (b *Bitmap) MakeReadOnly() { b.readOnly = true }

// ReadOnly reports whether the set rejects mutation.
func (b *Bitmap) ReadOnly() bool { return b.readOnly }

// Kind returns KindBitmap.
func (b *Bitmap) Kind() Kind { return KindBitmap }

// Clone returns a mutable deep copy.
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{rb: b.rb.Clone()}
}

// SizeBytes returns the serialized size of the bitmap.
func (b *Bitmap) SizeBytes() uint64 {
	return b.rb.GetSizeInBytes()
}

// Optimize converts containers to run-length encoding where smaller.
func (b *Bitmap) Optimize() {
	b.rb.RunOptimize()
}
