package sparseset

import (
	"iter"
	"sync"
	"sync/atomic"

	"github.com/google/btree"
)

const btreeDegree = 32

// Concurrent is a Set safe for use by multiple goroutines. Iteration runs
// over a copy-on-write clone taken when it starts.
type Concurrent struct {
	mu       sync.RWMutex
	tree     *btree.BTreeG[int32]
	readOnly atomic.Bool
}

var _ Set = (*Concurrent)(nil)

// NewConcurrent creates an empty concurrent set.
func NewConcurrent() *Concurrent {
	return &Concurrent{tree: btree.NewOrderedG[int32](btreeDegree)}
}

// Add inserts v.
func (c *Concurrent) Add(v int32) error {
	if c.readOnly.Load() {
		return ErrReadOnly
	}
	c.mu.Lock()
	c.tree.ReplaceOrInsert(v)
	c.mu.Unlock()
	return nil
}

// Remove deletes v.
func (c *Concurrent) Remove(v int32) error {
	if c.readOnly.Load() {
		return ErrReadOnly
	}
	c.mu.Lock()
	c.tree.Delete(v)
	c.mu.Unlock()
	return nil
}

// Contains reports whether v is present.
func (c *Concurrent) Contains(v int32) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.Has(v)
}

// Clear removes all elements.
func (c *Concurrent) Clear() error {
	if c.readOnly.Load() {
		return ErrReadOnly
	}
	c.mu.Lock()
	c.tree.Clear(false)
	c.mu.Unlock()
	return nil
}

// Len returns the number of elements.
func (c *Concurrent) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.Len()
}

// IsEmpty reports whether the set has no elements.
func (c *Concurrent) IsEmpty() bool {
	return c.Len() == 0
}

// And is not supported on this backing.
func (c *Concurrent) And(Set) (Set, error) { return c, ErrUnsupported }

// Or is not supported on this backing.
func (c *Concurrent) Or(Set) (Set, error) { return c, ErrUnsupported }

// AndNot is not supported on this backing.
func (c *Concurrent) AndNot(Set) (Set, error) { return c, ErrUnsupported }

// Xor is not supported on this backing.
func (c *Concurrent) Xor(Set) (Set, error) { return c, ErrUnsupported }

// snapshot returns a lazily copied tree. Clone marks shared nodes on the
// receiver, so it needs the write lock.
func (c *Concurrent) snapshot() *btree.BTreeG[int32] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree.Len() == 0 {
		return nil
	}
	return c.tree.Clone()
}

// All yields the elements in ascending order.
func (c *Concurrent) All() iter.Seq[int32] {
	return func(yield func(int32) bool) {
		if snap := c.snapshot(); snap != nil {
			snap.Ascend(yield)
		}
	}
}

// Backward yields the elements in descending order.
func (c *Concurrent) Backward() iter.Seq[int32] {
	return func(yield func(int32) bool) {
		if snap := c.snapshot(); snap != nil {
			snap.Descend(yield)
		}
	}
}

// Iterator returns an ascending iterator over a snapshot.
func (c *Concurrent) Iterator() Iterator {
	return &sliceIterator{vals: c.ToArray()}
}

// ReverseIterator returns a descending iterator over a snapshot.
func (c *Concurrent) ReverseIterator() Iterator {
	vals := c.ToArray()
	for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
		vals[i], vals[j] = vals[j], vals[i]
	}
	return &sliceIterator{vals: vals}
}

// ToArray returns the elements in ascending order.
func (c *Concurrent) ToArray() []int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]int32, 0, c.tree.Len())
	c.tree.Ascend(func(v int32) bool {
		out = append(out, v)
		return true
	})
	return out
}

// MakeReadOnly forbids further mutation.
func (c *Concurrent) MakeReadOnly() { c.readOnly.Store(true) }

// ReadOnly reports whether the set rejects mutation.
func (c *Concurrent) ReadOnly() bool { return c.readOnly.Load() }

// Kind returns KindConcurrent.
func (c *Concurrent) Kind() Kind { return KindConcurrent }
