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
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringHash(t *testing.T) {
	a, b := "hello", "hel"+"lo"
	require.Equal(t, StringHash(&a, 1), StringHash(&b, 1))
	require.NotEqual(t, StringHash(&a, 1), StringHash(&a, 2))

	c := "world"
	require.NotEqual(t, StringHash(&a, 1), StringHash(&c, 1))
}

func TestDefaultHash(t *testing.T) {
	x, y := 12345, 12345
	require.Equal(t, defaultHash(&x, 7), defaultHash(&y, 7))
	require.NotEqual(t, defaultHash(&x, 7), defaultHash(&x, 8))

	type point struct{ x, y int }
	p, q := point{1, 2}, point{1, 2}
	require.Equal(t, defaultHash(&p, 0), defaultHash(&q, 0))
}

func TestMix64(t *testing.T) {
	require.Equal(t, uint64(0), mix64(0))

	// Consecutive inputs land in distinct low-bit buckets often enough to
	// keep sequential keys from clustering.
	const buckets = 64
	seen := make(map[uint64]bool)
	for i := uint64(1); i <= buckets; i++ {
		seen[mix64(i)&(buckets-1)] = true
	}
	require.Greater(t, len(seen), buckets/2)
}

func TestHashSpread(t *testing.T) {
	// Sequential string keys hashed with xxhash should fill a table with a
	// short maximum probe length.
	tbl := NewTable[string, string](0, identity[string], WithHash[string, string](StringHash))
	for i := 0; i < 10000; i++ {
		tbl.Insert(strconv.Itoa(i))
	}
	s := tbl.Stats()
	require.Equal(t, 10000, s.Len)
	require.Less(t, s.MeanDisplacement, 2.0)
	require.Less(t, s.MaxDisplacement, 40)
}
