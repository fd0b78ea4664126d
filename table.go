// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package robinhood is a Go implementation of an open-addressing hash table
// using Robin Hood hashing with backward-shift deletion. See also:
// https://programming.guide/robin-hood-hashing.html and
// https://codecapsule.com/2013/11/17/robin-hood-hashing-backward-shift-deletion/.
//
// # Robin Hood hashing
//
// A Table stores its elements directly in a single array of slots, using
// linear probing to resolve collisions. The displacement of an element is
// the distance between the slot it occupies and the slot its hash selects
// (its ideal bucket), wrapping around at the end of the array. During
// insertion an incoming element "steals" the slot of any resident that is
// closer to its own ideal bucket than the incoming element is to its own.
// The evicted resident then continues probing. This keeps the variance of
// displacements low and establishes the ordering invariant that the
// displacement of the element at slot i+1 is at most one more than the
// displacement of the element at slot i.
//
// Lookups exploit that invariant: a probe can stop as soon as it reaches a
// resident whose displacement is smaller than the distance travelled so far,
// since the key being searched for would have displaced that resident.
//
// Deletion does not use tombstones. The hole left by a removed element is
// closed by shifting every following displaced element one slot backwards
// until an empty slot or an element sitting in its ideal bucket is reached.
//
// # Layout
//
// The slot array has capacity+1 entries where capacity is a power of 2 (at
// least 8). Each slot carries a hash word: 0 marks an empty slot, 1 marks
// the end sentinel that always occupies the final index, and any value with
// the top bit set is the hash of a filled slot. Because filled hashes always
// have the top bit set they never collide with the reserved codes. Iteration
// advances while the current slot is empty, which stops both at filled
// slots and at the sentinel without a separate bounds check.
//
// The table grows by doubling when inserting another element would push the
// load factor above the maximum fill level (0.7 by default). Growth
// allocates a new array and re-inserts every element. The capacity never
// shrinks.
//
// Table is the storage engine. Map and Set are thin wrappers that store
// key/value entries and bare keys respectively.
package robinhood

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	debug = false

	minCapacity         = 8
	defaultMaxFillLevel = 0.7
	// The slot array holds capacity+1 slots, which must fit in an int.
	maxCapacity = 1 << (bits.UintSize - 2)

	emptyHash uintptr = 0
	endHash   uintptr = 1
	filledBit uintptr = 1 << (bits.UintSize - 1)
)

// Slot is a single cell of the table's backing array. A slot is empty, the
// end sentinel, or filled with one element.
type Slot[E any] struct {
	hash uintptr
	elem E
}

func (s *Slot[E]) filled() bool {
	return s.hash&filledBit != 0
}

// setEmpty vacates the slot. Zeroing the element drops any references it
// held.
func (s *Slot[E]) setEmpty() {
	*s = Slot[E]{}
}

// Table is an unordered collection of elements of type E, indexed by a key of
// type K extracted from each element. No two elements in a Table have equal
// keys. By default keys are hashed with the same hash function as Go's
// builtin map[K]V and compared with ==; both can be replaced with the
// WithHash and WithEqual options.
//
// Elements are addressed by positions, which are slot indexes. A position is
// valid if it refers to a filled slot or to End(). Any mutation of the table
// invalidates every position except the one returned by that mutation.
//
// A Table is NOT goroutine-safe.
type Table[K comparable, E any] struct {
	hash  hashFn[K]
	equal func(a, b K) bool
	key   func(e *E) K
	seed  uintptr
	// The allocator to use for the slots slice.
	allocator Allocator[E]
	// slots is capacity+1 in length. slots[capacity] is always the end
	// sentinel. An unallocated table has capacity 0 and a single sentinel
	// slot, which makes Begin() == End() without special casing.
	slots []Slot[E]
	// The number of buckets (always 0 or a power of 2). capacity-1 is used as
	// a mask to compute h%capacity.
	capacity uintptr
	// The number of filled slots (i.e. the number of elements in the table).
	used         int
	maxFillLevel float64
}

// NewTable constructs a new Table with room for at least initialCapacity
// elements before growing. If initialCapacity is 0 the table starts out with
// zero capacity and allocates on the first insert. The zero value for a
// Table is not usable. The key function extracts
// the key from an element; it must return the same key for an element for
// as long as the element is stored in the table.
func NewTable[K comparable, E any](
	initialCapacity int, key func(e *E) K, options ...option[K, E],
) *Table[K, E] {
	t := &Table[K, E]{}
	t.init(initialCapacity, key, options...)
	return t
}

func (t *Table[K, E]) init(initialCapacity int, key func(e *E) K, options ...option[K, E]) {
	*t = Table[K, E]{
		hash:         defaultHash[K],
		equal:        equalKeys[K],
		key:          key,
		seed:         uintptr(fastrand64()),
		allocator:    defaultAllocator[E]{},
		slots:        makeEndSlots[E](),
		maxFillLevel: defaultMaxFillLevel,
	}

	for _, op := range options {
		op.apply(t)
	}

	if initialCapacity > 0 {
		t.checkCapacity(initialCapacity)
	}
	t.checkInvariants()
}

func makeEndSlots[E any]() []Slot[E] {
	return []Slot[E]{{hash: endHash}}
}

// Close releases the table's memory back to its configured allocator. It is
// unnecessary to close a table using the default allocator. The table is
// empty and unallocated after Close and may be reused.
func (t *Table[K, E]) Close() {
	if t.capacity > 0 {
		clear(t.slots)
		t.allocator.Free(t.slots)
	}
	t.slots = makeEndSlots[E]()
	t.capacity = 0
	t.used = 0
}

// Len returns the number of elements in the table.
func (t *Table[K, E]) Len() int {
	return t.used
}

// Empty returns true if the table holds no elements.
func (t *Table[K, E]) Empty() bool {
	return t.used == 0
}

// Capacity returns the number of buckets in the table. It is 0 for a table
// that has not allocated yet, and a power of 2 otherwise.
func (t *Table[K, E]) Capacity() int {
	return int(t.capacity)
}

// MaxFillLevel returns the load factor above which the table grows.
func (t *Table[K, E]) MaxFillLevel() float64 {
	return t.maxFillLevel
}

// SetMaxFillLevel changes the load factor above which the table grows. The
// level must be in the range (0, 1). If the current load factor exceeds the
// new level the table grows immediately.
func (t *Table[K, E]) SetMaxFillLevel(maxFillLevel float64) {
	validateMaxFillLevel(maxFillLevel)
	t.maxFillLevel = maxFillLevel
	if t.capacity > 0 {
		t.checkCapacity(0)
	}
	t.checkInvariants()
}

func validateMaxFillLevel(f float64) {
	// A level of 1 would allow every bucket to fill, leaving probes without
	// an empty slot to terminate on.
	if !(f > 0 && f < 1) {
		panic(errors.AssertionFailedf("max fill level %v must be in (0, 1)", f))
	}
}

// Insert inserts e into the table unless an element with an equal key is
// already present. It returns the position of the inserted element and
// true, or the position of the existing element and false.
//
// The returned position is the bucket where e landed before any
// displacement of later residents, which is where e itself is stored.
func (t *Table[K, E]) Insert(e E) (pos int, inserted bool) {
	// Growth is checked before probing, even if e turns out to be a
	// duplicate, so that the probe below always finds an empty slot.
	t.checkCapacity(1)
	k := t.key(&e)
	h := t.hash(noescapePtr(&k), t.seed)
	i, inserted := t.uncheckedInsert(h, e)
	t.checkInvariants()
	return int(i), inserted
}

// uncheckedInsert places e with hash h using Robin Hood displacement. The
// caller guarantees there is at least one empty slot.
func (t *Table[K, E]) uncheckedInsert(h uintptr, e E) (uintptr, bool) {
	h |= filledBit
	target := t.bucketIndex(h)
	current := target
	inserted := t.capacity // capacity is never a valid bucket
	if debug {
		fmt.Printf("insert(%v): hash=%x target=%d\n", t.key(&e), h, target)
	}

	for {
		s := &t.slots[current]
		if !s.filled() {
			s.hash = h
			s.elem = e
			t.used++
			if inserted == t.capacity {
				inserted = current
			}
			if debug {
				fmt.Printf("insert(placed): index=%d used=%d\n", current, t.used)
			}
			return inserted, true
		}

		if s.hash == h && t.equal(t.key(&s.elem), t.key(&e)) {
			if debug {
				fmt.Printf("insert(exists): index=%d\n", current)
			}
			return current, false
		}

		// Steal the slot if the candidate is further from its ideal bucket
		// than the resident is from its own.
		entryTarget := t.bucketIndex(s.hash)
		if t.displacement(current, target) > t.displacement(current, entryTarget) {
			if inserted == t.capacity {
				inserted = current
			}
			if debug {
				fmt.Printf("insert(swap): index=%d evicting=%v\n", current, t.key(&s.elem))
			}
			s.elem, e = e, s.elem
			s.hash, h = h, s.hash
			target = entryTarget
		}
		current = t.bucketIndex(current + 1)
	}
}

// Find returns the position of the element with the specified key, or End()
// if the key is not present.
func (t *Table[K, E]) Find(key K) int {
	if t.capacity == 0 {
		return t.End()
	}

	h := t.hash(noescapePtr(&key), t.seed) | filledBit
	target := t.bucketIndex(h)
	if debug {
		fmt.Printf("find(%v): hash=%x target=%d\n", key, h, target)
	}

	for current := target; ; current = t.bucketIndex(current + 1) {
		s := &t.slots[current]
		if !s.filled() {
			if debug {
				fmt.Printf("find(not-found): index=%d empty\n", current)
			}
			return t.End()
		}
		if s.hash == h && t.equal(t.key(&s.elem), key) {
			return int(current)
		}
		// If we have travelled further than the resident has, the key would
		// have displaced the resident on insertion, so it is not present.
		if t.displacement(current, target) > t.displacement(current, s.hash) {
			if debug {
				fmt.Printf("find(not-found): index=%d early exit\n", current)
			}
			return t.End()
		}
	}
}

// Erase removes the element at pos, which must refer to a filled slot, and
// returns the position of the next element in iteration order (or End()).
func (t *Table[K, E]) Erase(pos int) int {
	if invariants {
		if pos < 0 || pos >= int(t.capacity) || !t.slots[pos].filled() {
			panic(errors.AssertionFailedf("erase of invalid position %d\n%s", pos, t.debugString()))
		}
	}

	hole := uintptr(pos)
	for {
		next := t.bucketIndex(hole + 1)
		s := &t.slots[next]
		// Stop at an empty slot or at an element already in its ideal bucket;
		// neither may move backwards.
		if !s.filled() || t.displacement(next, s.hash) == 0 {
			break
		}
		if debug {
			fmt.Printf("erase(shift): %d -> %d\n", next, hole)
		}
		t.slots[hole] = *s
		hole = next
	}
	t.slots[hole].setEmpty()
	t.used--
	if debug {
		fmt.Printf("erase: index=%d vacated=%d used=%d\n", pos, hole, t.used)
	}
	t.checkInvariants()

	// The slot at pos may now hold a shifted element, so scanning starts at
	// pos rather than after it.
	return t.scan(uintptr(pos))
}

// EraseRange erases elements starting at first until the position returned
// by the erasure equals last, and returns that boundary position.
func (t *Table[K, E]) EraseRange(first, last int) int {
	for first != last {
		first = t.Erase(first)
	}
	return first
}

// Reserve ensures that the table can hold n elements in total without
// growing.
func (t *Table[K, E]) Reserve(n int) {
	if n > t.used {
		t.checkCapacity(n - t.used)
	}
	t.checkInvariants()
}

// Clear removes all elements from the table, retaining its capacity.
func (t *Table[K, E]) Clear() {
	for i := uintptr(0); i < t.capacity; i++ {
		t.slots[i].setEmpty()
	}
	t.used = 0
	t.checkInvariants()
}

// Begin returns the position of the first element in iteration order, or
// End() if the table is empty.
func (t *Table[K, E]) Begin() int {
	return t.scan(0)
}

// End returns the position one past the last element: the index of the end
// sentinel.
func (t *Table[K, E]) End() int {
	return int(t.capacity)
}

// Next returns the position of the element following pos in iteration
// order, or End(). pos must not be End().
func (t *Table[K, E]) Next(pos int) int {
	return t.scan(uintptr(pos) + 1)
}

// At returns a pointer to the element at pos, which must refer to a filled
// slot. The element may be modified in place, but not in a way that changes
// its key. The pointer is invalidated by the next mutation of the table.
func (t *Table[K, E]) At(pos int) *E {
	if invariants {
		if pos < 0 || pos >= int(t.capacity) || !t.slots[pos].filled() {
			panic(errors.AssertionFailedf("access of invalid position %d", pos))
		}
	}
	return &t.slots[pos].elem
}

// All calls yield sequentially for each element present in the table, in
// iteration order. If yield returns false, All stops the iteration. The
// table can be mutated during iteration, but mutations may cause elements to
// be skipped or visited twice.
func (t *Table[K, E]) All(yield func(e *E) bool) {
	// Snapshot the slots so that iteration stays in bounds if the table is
	// resized during iteration.
	slots := t.slots
	for i := 0; i < len(slots)-1; i++ {
		if slots[i].filled() {
			if !yield(&slots[i].elem) {
				return
			}
		}
	}
}

// Equal returns true if t and o hold the same number of elements and the
// elements are pairwise equal according to eq when both tables are walked
// in iteration order.
//
// The comparison is order-sensitive: Robin Hood placement depends on the
// insertion history, so two tables holding the same keys built in different
// orders can compare unequal. A table always compares equal to its Clone.
func (t *Table[K, E]) Equal(o *Table[K, E], eq func(a, b *E) bool) bool {
	if t.used != o.used {
		return false
	}
	for i, j := t.Begin(), o.Begin(); i != t.End(); i, j = t.Next(i), o.Next(j) {
		if !eq(&t.slots[i].elem, &o.slots[j].elem) {
			return false
		}
	}
	return true
}

// Clone returns a copy of the table with the same capacity, configuration
// and slot layout.
func (t *Table[K, E]) Clone() *Table[K, E] {
	c := *t
	if t.capacity > 0 {
		c.slots = t.allocator.Alloc(len(t.slots))
		copy(c.slots, t.slots)
	} else {
		c.slots = makeEndSlots[E]()
	}
	c.checkInvariants()
	return &c
}

// scan returns the first position at or after i that is not empty. The end
// sentinel is not empty, which bounds the scan.
func (t *Table[K, E]) scan(i uintptr) int {
	for t.slots[i].hash == emptyHash {
		i++
	}
	return int(i)
}

// bucketIndex returns h%capacity.
func (t *Table[K, E]) bucketIndex(h uintptr) uintptr {
	return h & (t.capacity - 1)
}

// displacement returns the wrap-around distance from bucket target (or the
// bucket of hash target) forward to bucket current.
func (t *Table[K, E]) displacement(current, target uintptr) uintptr {
	return t.bucketIndex(current - target)
}

// checkCapacity grows the table by doubling until inserting additional more
// elements keeps the load factor at or below maxFillLevel.
func (t *Table[K, E]) checkCapacity(additional int) {
	if t.maxFillLevel == 0 {
		panic(errors.AssertionFailedf("use of an uninitialized table: the zero value is not usable"))
	}
	newCapacity := t.capacity
	if newCapacity == 0 {
		newCapacity = minCapacity
	}
	for float64(t.used+additional)/float64(newCapacity) > t.maxFillLevel {
		if newCapacity >= maxCapacity {
			panic(errors.AssertionFailedf("capacity overflow: cannot hold %d elements", t.used+additional))
		}
		newCapacity *= 2
	}
	if newCapacity == t.capacity {
		return
	}
	t.resize(newCapacity)
}

// resize allocates a new slot array of the specified capacity and
// re-inserts every element of the old array into it, then releases the old
// array. We know that no insertion here will find an already present key.
func (t *Table[K, E]) resize(newCapacity uintptr) {
	oldSlots, oldCapacity := t.slots, t.capacity

	slots := t.allocator.Alloc(int(newCapacity) + 1)
	clear(slots)
	slots[newCapacity].hash = endHash

	t.slots = slots
	t.capacity = newCapacity
	t.used = 0

	if debug {
		fmt.Printf("resize: capacity=%d->%d\n", oldCapacity, newCapacity)
	}

	for i := uintptr(0); i < oldCapacity; i++ {
		s := &oldSlots[i]
		if !s.filled() {
			continue
		}
		// The stored hash already has the filled bit set; uncheckedInsert
		// sets it again, which is a no-op.
		t.uncheckedInsert(s.hash, s.elem)
	}

	if oldCapacity > 0 {
		clear(oldSlots)
		t.allocator.Free(oldSlots)
	}
}

func (t *Table[K, E]) checkInvariants() {
	if invariants {
		if len(t.slots) != int(t.capacity)+1 {
			panic(errors.AssertionFailedf("invariant failed: %d slots for capacity %d",
				len(t.slots), t.capacity))
		}
		if t.capacity != 0 && (t.capacity < minCapacity || t.capacity&(t.capacity-1) != 0) {
			panic(errors.AssertionFailedf("invariant failed: capacity %d", t.capacity))
		}
		// Verify the sentinel is good.
		if h := t.slots[t.capacity].hash; h != endHash {
			panic(errors.AssertionFailedf("invariant failed: slot(%d): expected end, but found %x\n%s",
				t.capacity, h, t.debugString()))
		}
		if t.capacity > 0 && float64(t.used)/float64(t.capacity) > t.maxFillLevel {
			panic(errors.AssertionFailedf("invariant failed: load %d/%d exceeds %v",
				t.used, t.capacity, t.maxFillLevel))
		}

		// For every filled slot, verify we can retrieve the key using Find
		// and that the Robin Hood ordering holds with respect to the previous
		// slot.
		var used int
		for i := uintptr(0); i < t.capacity; i++ {
			s := &t.slots[i]
			switch {
			case s.hash == emptyHash:
			case s.hash == endHash:
				panic(errors.AssertionFailedf("invariant failed: slot(%d): unexpected end", i))
			case !s.filled():
				panic(errors.AssertionFailedf("invariant failed: slot(%d): bad hash %x", i, s.hash))
			default:
				used++
				if pos := t.Find(t.key(&s.elem)); pos != int(i) {
					panic(errors.AssertionFailedf("invariant failed: slot(%d): %v found at %d\n%s",
						i, t.key(&s.elem), pos, t.debugString()))
				}
				prev := &t.slots[t.bucketIndex(i-1)]
				d := t.displacement(i, s.hash)
				if d > 0 && (!prev.filled() || d > t.displacement(t.bucketIndex(i-1), prev.hash)+1) {
					panic(errors.AssertionFailedf("invariant failed: slot(%d): displacement %d breaks ordering\n%s",
						i, d, t.debugString()))
				}
			}
		}

		if used != t.used {
			panic(errors.AssertionFailedf("invariant failed: found %d used slots, but used count is %d\n%s",
				used, t.used, t.debugString()))
		}
	}
}

func (t *Table[K, E]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  used=%d  max-fill=%.2f\n", t.capacity, t.used, t.maxFillLevel)
	for i := range t.slots {
		switch s := &t.slots[i]; s.hash {
		case emptyHash:
			fmt.Fprintf(&buf, "  %4d: empty\n", i)
		case endHash:
			fmt.Fprintf(&buf, "  %4d: end\n", i)
		default:
			fmt.Fprintf(&buf, "  %4d: %v [hash=%x target=%d dist=%d]\n", i, t.key(&s.elem),
				s.hash, t.bucketIndex(s.hash), t.displacement(uintptr(i), s.hash))
		}
	}
	return buf.String()
}
