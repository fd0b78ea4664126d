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

import "github.com/cockroachdb/errors"

// ErrNotFound is returned by Map.At when the key is not present.
var ErrNotFound = errors.New("key not found")

// Entry is the element stored by a Map.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

func entryKey[K comparable, V any](e *Entry[K, V]) K {
	return e.Key
}

// Map is an unordered map from keys to values with Put, Get, Delete, and All
// operations, stored in a Robin Hood Table. Options are those of a
// Table[K, Entry[K, V]].
//
// A Map is NOT goroutine-safe.
type Map[K comparable, V any] struct {
	table Table[K, Entry[K, V]]
}

// NewMap constructs a new Map with room for initialCapacity entries before
// growing. The zero value for a Map is not usable.
func NewMap[K comparable, V any](initialCapacity int, options ...option[K, Entry[K, V]]) *Map[K, V] {
	m := &Map[K, V]{}
	m.table.init(initialCapacity, entryKey[K, V], options...)
	return m
}

// Put inserts an entry into the map, overwriting an existing value if an
// entry with the same key already exists.
func (m *Map[K, V]) Put(key K, value V) {
	pos, inserted := m.table.Insert(Entry[K, V]{Key: key, Value: value})
	if !inserted {
		m.table.At(pos).Value = value
	}
}

// Insert inserts an entry into the map if no entry with the same key exists.
// It returns false, leaving the map unchanged, if the key is already
// present.
func (m *Map[K, V]) Insert(key K, value V) bool {
	_, inserted := m.table.Insert(Entry[K, V]{Key: key, Value: value})
	return inserted
}

// Get retrieves the value from the map for the specified key, returning
// ok=false if the key is not present.
func (m *Map[K, V]) Get(key K) (value V, ok bool) {
	pos := m.table.Find(key)
	if pos == m.table.End() {
		return value, false
	}
	return m.table.At(pos).Value, true
}

// At retrieves the value from the map for the specified key, returning an
// error wrapping ErrNotFound if the key is not present.
func (m *Map[K, V]) At(key K) (V, error) {
	v, ok := m.Get(key)
	if !ok {
		return v, errors.Wrapf(ErrNotFound, "key %v", key)
	}
	return v, nil
}

// Has returns true if the map contains the specified key.
func (m *Map[K, V]) Has(key K) bool {
	return m.table.Find(key) != m.table.End()
}

// Delete deletes the entry corresponding to the specified key from the map,
// returning true if it was present.
func (m *Map[K, V]) Delete(key K) bool {
	pos := m.table.Find(key)
	if pos == m.table.End() {
		return false
	}
	m.table.Erase(pos)
	return true
}

// All calls yield sequentially for each key and value present in the map. If
// yield returns false, All stops the iteration.
func (m *Map[K, V]) All(yield func(key K, value V) bool) {
	m.table.All(func(e *Entry[K, V]) bool {
		return yield(e.Key, e.Value)
	})
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	return m.table.Len()
}

// Empty returns true if the map holds no entries.
func (m *Map[K, V]) Empty() bool {
	return m.table.Empty()
}

// Clear deletes all entries from the map, retaining its capacity.
func (m *Map[K, V]) Clear() {
	m.table.Clear()
}

// Reserve ensures the map can hold n entries without growing.
func (m *Map[K, V]) Reserve(n int) {
	m.table.Reserve(n)
}

// Capacity returns the number of buckets in the map.
func (m *Map[K, V]) Capacity() int {
	return m.table.Capacity()
}

// Stats returns displacement statistics for the map.
func (m *Map[K, V]) Stats() Stats {
	return m.table.Stats()
}

// Clone returns a copy of the map.
func (m *Map[K, V]) Clone() *Map[K, V] {
	return &Map[K, V]{table: *m.table.Clone()}
}

// EqualFunc returns true if m and o hold the same entries in the same
// iteration order, comparing values with eq. See Table.Equal for why maps
// holding the same entries can compare unequal.
func (m *Map[K, V]) EqualFunc(o *Map[K, V], eq func(a, b V) bool) bool {
	return m.table.Equal(&o.table, func(a, b *Entry[K, V]) bool {
		return m.table.equal(a.Key, b.Key) && eq(a.Value, b.Value)
	})
}

// MapEqual is EqualFunc for maps with comparable values.
func MapEqual[K, V comparable](a, b *Map[K, V]) bool {
	return a.EqualFunc(b, func(x, y V) bool { return x == y })
}

// Close releases the map's memory back to its configured allocator.
func (m *Map[K, V]) Close() {
	m.table.Close()
}
