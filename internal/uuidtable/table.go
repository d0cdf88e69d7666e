package uuidtable

import (
	"iter"

	"github.com/google/uuid"
	"github.com/hupe1980/termid/internal/hash"
)

const (
	slotEmpty uint8 = iota
	slotFull
	slotDeleted
)

const (
	minCapacity = 16
	// maxLoadPercent bounds full+deleted slots before a rehash.
	maxLoadPercent = 70
)

// Table maps UUIDs to int32 values using linear probing with tombstones.
type Table struct {
	msb    []uint64
	lsb    []uint64
	vals   []int32
	states []uint8

	count      int
	tombstones int
	mask       uint64
}

// New creates a table sized for at least hint entries.
func New(hint int) *Table {
	capacity := minCapacity
	for capacity*maxLoadPercent/100 < hint {
		capacity <<= 1
	}
	t := &Table{}
	t.alloc(capacity)
	return t
}

func (t *Table) alloc(capacity int) {
	t.msb = make([]uint64, capacity)
	t.lsb = make([]uint64, capacity)
	t.vals = make([]int32, capacity)
	t.states = make([]uint8, capacity)
	t.mask = uint64(capacity - 1)
	t.count = 0
	t.tombstones = 0
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return t.count
}

// Capacity returns the number of slots.
func (t *Table) Capacity() int {
	return len(t.states)
}

// SizeBytes estimates the heap footprint of the slot arrays.
func (t *Table) SizeBytes() int64 {
	return int64(len(t.states)) * (8 + 8 + 4 + 1)
}

// find returns the slot holding (msb, lsb) or -1.
func (t *Table) find(msb, lsb uint64) int {
	i := hash.MixWords(msb, lsb) & t.mask
	for {
		switch t.states[i] {
		case slotEmpty:
			return -1
		case slotFull:
			if t.msb[i] == msb && t.lsb[i] == lsb {
				return int(i)
			}
		}
		i = (i + 1) & t.mask
	}
}

// Get returns the value bound to u.
func (t *Table) Get(u uuid.UUID) (int32, bool) {
	msb, lsb := hash.Words(u)
	if i := t.find(msb, lsb); i >= 0 {
		return t.vals[i], true
	}
	return 0, false
}

// Contains reports whether u has a value.
func (t *Table) Contains(u uuid.UUID) bool {
	msb, lsb := hash.Words(u)
	return t.find(msb, lsb) >= 0
}

// Put binds u to v and returns the previous value, if any.
func (t *Table) Put(u uuid.UUID, v int32) (prev int32, replaced bool) {
	msb, lsb := hash.Words(u)
	return t.put(msb, lsb, v)
}

func (t *Table) put(msb, lsb uint64, v int32) (int32, bool) {
	i := hash.MixWords(msb, lsb) & t.mask
	firstFree := -1
	for {
		switch t.states[i] {
		case slotEmpty:
			if firstFree < 0 {
				firstFree = int(i)
			}
			t.insertAt(firstFree, msb, lsb, v)
			return 0, false
		case slotDeleted:
			if firstFree < 0 {
				firstFree = int(i)
			}
		case slotFull:
			if t.msb[i] == msb && t.lsb[i] == lsb {
				prev := t.vals[i]
				t.vals[i] = v
				return prev, true
			}
		}
		i = (i + 1) & t.mask
	}
}

func (t *Table) insertAt(slot int, msb, lsb uint64, v int32) {
	if t.states[slot] == slotDeleted {
		t.tombstones--
	}
	t.msb[slot] = msb
	t.lsb[slot] = lsb
	t.vals[slot] = v
	t.states[slot] = slotFull
	t.count++

	if (t.count+t.tombstones)*100 > len(t.states)*maxLoadPercent {
		t.rehash()
	}
}

// Remove deletes u and returns its value.
func (t *Table) Remove(u uuid.UUID) (int32, bool) {
	msb, lsb := hash.Words(u)
	i := t.find(msb, lsb)
	if i < 0 {
		return 0, false
	}
	v := t.vals[i]
	t.states[i] = slotDeleted
	t.msb[i], t.lsb[i], t.vals[i] = 0, 0, 0
	t.count--
	t.tombstones++
	return v, true
}

// rehash copies live entries into freshly allocated arrays, dropping
// tombstones, and swaps them in. The table doubles only when live entries
// alone would keep it above half the load bound.
func (t *Table) rehash() {
	capacity := len(t.states)
	if t.count*100 > capacity*maxLoadPercent/2 {
		capacity <<= 1
	}

	next := &Table{}
	next.alloc(capacity)
	for i, st := range t.states {
		if st != slotFull {
			continue
		}
		j := hash.MixWords(t.msb[i], t.lsb[i]) & next.mask
		for next.states[j] != slotEmpty {
			j = (j + 1) & next.mask
		}
		next.msb[j] = t.msb[i]
		next.lsb[j] = t.lsb[i]
		next.vals[j] = t.vals[i]
		next.states[j] = slotFull
		next.count++
	}
	*t = *next
}

// All yields every entry in slot order.
func (t *Table) All() iter.Seq2[uuid.UUID, int32] {
	return func(yield func(uuid.UUID, int32) bool) {
		for i, s := range t.states {
			if s != slotFull {
				continue
			}
			if !yield(hash.FromWords(t.msb[i], t.lsb[i]), t.vals[i]) {
				return
			}
		}
	}
}

// KeysFor returns every key bound to v.
func (t *Table) KeysFor(v int32) []uuid.UUID {
	var out []uuid.UUID
	for i, s := range t.states {
		if s == slotFull && t.vals[i] == v {
			out = append(out, hash.FromWords(t.msb[i], t.lsb[i]))
		}
	}
	return out
}
