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

import (
	"hash/maphash"
	"math/rand/v2"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

type hashFn[K any] func(key *K, seed uintptr) uintptr

// processSeed keys the runtime hasher. Tables derive their own hash
// functions from it by mixing in a per-table seed.
var processSeed = maphash.MakeSeed()

// defaultHash hashes keys with the same hash function as Go's builtin
// map[K]V.
func defaultHash[K comparable](key *K, seed uintptr) uintptr {
	return uintptr(mix64(maphash.Comparable(processSeed, *key) ^ uint64(seed)))
}

// StringHash hashes string keys with xxHash64. It can be passed to WithHash
// for tables keyed by strings.
func StringHash(key *string, seed uintptr) uintptr {
	return uintptr(mix64(xxhash.Sum64String(*key) ^ uint64(seed)))
}

func equalKeys[K comparable](a, b K) bool {
	return a == b
}

// mix64 is the splitmix64 finalizer. It is a bijection, so distinct seeds
// yield distinct bucket assignments for the same key.
func mix64(h uint64) uint64 {
	h ^= h >> 30
	h *= 0xbf58476d1ce4e5b9
	h ^= h >> 27
	h *= 0x94d049bb133111eb
	h ^= h >> 31
	return h
}

func fastrand64() uint64 {
	return rand.Uint64()
}

// noescape hides a pointer from escape analysis.  noescape is
// the identity function but escape analysis doesn't think the
// output depends on the input.  noescape is inlined and currently
// compiles down to zero instructions.
// USE CAREFULLY!
//
//go:nosplit
//go:nocheckptr
func noescape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}

func noescapePtr[T any](p *T) *T {
	return (*T)(noescape(unsafe.Pointer(p)))
}
