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

package robinhood

func identity[K comparable](k *K) K {
	return *k
}

// Set is an unordered set of keys stored in a Robin Hood Table. Options are
// those of a Table[K, K].
//
// A Set is NOT goroutine-safe.
type Set[K comparable] struct {
	table Table[K, K]
}

// NewSet constructs a new Set with room for initialCapacity keys before
// growing. The zero value for a Set is not usable.
func NewSet[K comparable](initialCapacity int, options ...option[K, K]) *Set[K] {
	s := &Set[K]{}
	s.table.init(initialCapacity, identity[K], options...)
	return s
}

// Insert adds key to the set, returning false if it was already present.
func (s *Set[K]) Insert(key K) bool {
	_, inserted := s.table.Insert(key)
	return inserted
}

// Has returns true if key is in the set.
func (s *Set[K]) Has(key K) bool {
	return s.table.Find(key) != s.table.End()
}

// Delete removes key from the set, returning true if it was present.
func (s *Set[K]) Delete(key K) bool {
	pos := s.table.Find(key)
	if pos == s.table.End() {
		return false
	}
	s.table.Erase(pos)
	return true
}

// All calls yield sequentially for each key in the set. If yield returns
// false, All stops the iteration.
func (s *Set[K]) All(yield func(key K) bool) {
	s.table.All(func(k *K) bool {
		return yield(*k)
	})
}

// Len returns the number of keys in the set.
func (s *Set[K]) Len() int {
	return s.table.Len()
}

// Empty returns true if the set holds no keys.
func (s *Set[K]) Empty() bool {
	return s.table.Empty()
}

// Clear removes all keys, retaining the set's capacity.
func (s *Set[K]) Clear() {
	s.table.Clear()
}

// Reserve ensures the set can hold n keys without growing.
func (s *Set[K]) Reserve(n int) {
	s.table.Reserve(n)
}

// Capacity returns the number of buckets in the set.
func (s *Set[K]) Capacity() int {
	return s.table.Capacity()
}

// Stats returns displacement statistics for the set.
func (s *Set[K]) Stats() Stats {
	return s.table.Stats()
}

// Clone returns a copy of the set.
func (s *Set[K]) Clone() *Set[K] {
	return &Set[K]{table: *s.table.Clone()}
}

// Equal returns true if s and o hold the same keys in the same iteration
// order. See Table.Equal for why sets holding the same keys can compare
// unequal.
func (s *Set[K]) Equal(o *Set[K]) bool {
	return s.table.Equal(&o.table, func(a, b *K) bool { return s.table.equal(*a, *b) })
}

// Close releases the set's memory back to its configured allocator.
func (s *Set[K]) Close() {
	s.table.Close()
}
