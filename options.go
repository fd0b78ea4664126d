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

// option provide an interface to do work on Table while it is being created.
type option[K comparable, E any] interface {
	apply(t *Table[K, E])
}

type hashOption[K comparable, E any] struct {
	hash func(key *K, seed uintptr) uintptr
}

func (op hashOption[K, E]) apply(t *Table[K, E]) {
	t.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a
// Table[K,E]. The seed is chosen randomly per table unless WithSeed is used.
// Only the low bits of the hash select a bucket, so the function should mix
// its input well.
func WithHash[K comparable, E any](hash func(key *K, seed uintptr) uintptr) option[K, E] {
	return hashOption[K, E]{hash}
}

type equalOption[K comparable, E any] struct {
	equal func(a, b K) bool
}

func (op equalOption[K, E]) apply(t *Table[K, E]) {
	t.equal = op.equal
}

// WithEqual is an option to specify the key equality predicate to use for a
// Table[K,E] in place of ==. Keys that are equal must hash identically.
func WithEqual[K comparable, E any](equal func(a, b K) bool) option[K, E] {
	return equalOption[K, E]{equal}
}

type maxFillLevelOption[K comparable, E any] struct {
	maxFillLevel float64
}

func (op maxFillLevelOption[K, E]) apply(t *Table[K, E]) {
	validateMaxFillLevel(op.maxFillLevel)
	t.maxFillLevel = op.maxFillLevel
}

// WithMaxFillLevel is an option to specify the load factor above which a
// Table[K,E] grows. It must be in the range (0, 1); the default is 0.7.
func WithMaxFillLevel[K comparable, E any](maxFillLevel float64) option[K, E] {
	return maxFillLevelOption[K, E]{maxFillLevel}
}

type seedOption[K comparable, E any] struct {
	seed uintptr
}

func (op seedOption[K, E]) apply(t *Table[K, E]) {
	t.seed = op.seed
}

// WithSeed is an option to fix the seed passed to the hash function instead
// of choosing one randomly. Tables sharing a seed and a hash function place
// keys in the same buckets.
func WithSeed[K comparable, E any](seed uintptr) option[K, E] {
	return seedOption[K, E]{seed}
}

// Allocator specifies an interface for allocating and releasing memory used
// by a Table. The default allocator utilizes Go's builtin make() and allows
// the GC to reclaim memory.
//
// If the allocator is manually managing memory and requires that slots be
// freed then Table.Close must be called in order to ensure Free is called.
type Allocator[E any] interface {
	// Alloc should return a slice equivalent to make([]Slot[E], n).
	Alloc(n int) []Slot[E]

	// Free can optionally release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by Alloc. The slice
	// has been cleared of elements before it is passed to Free.
	Free(v []Slot[E])
}

type defaultAllocator[E any] struct{}

func (defaultAllocator[E]) Alloc(n int) []Slot[E] {
	return make([]Slot[E], n)
}

func (defaultAllocator[E]) Free(v []Slot[E]) {
}

type allocatorOption[K comparable, E any] struct {
	allocator Allocator[E]
}

func (op allocatorOption[K, E]) apply(t *Table[K, E]) {
	t.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for a
// Table[K,E].
func WithAllocator[K comparable, E any](allocator Allocator[E]) option[K, E] {
	return allocatorOption[K, E]{allocator}
}
