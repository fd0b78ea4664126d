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
	"fmt"
	"strings"
)

// Stats describes the shape of a Table. A successful Find of an element
// visits displacement+1 slots, so the displacement distribution is the
// distribution of probe lengths for hits.
type Stats struct {
	Len          int
	Capacity     int
	LoadFactor   float64
	MaxFillLevel float64
	// MaxDisplacement is the largest distance of any element from its ideal
	// bucket.
	MaxDisplacement int
	// MeanDisplacement is the average distance of the elements from their
	// ideal buckets.
	MeanDisplacement float64
	// Histogram[d] is the number of elements with displacement d. It has
	// MaxDisplacement+1 entries, or none for an empty table.
	Histogram []int
}

// Stats computes displacement statistics by walking every slot.
func (t *Table[K, E]) Stats() Stats {
	s := Stats{
		Len:          t.used,
		Capacity:     int(t.capacity),
		MaxFillLevel: t.maxFillLevel,
	}
	if t.capacity == 0 {
		return s
	}
	s.LoadFactor = float64(t.used) / float64(t.capacity)

	var total int
	for i := uintptr(0); i < t.capacity; i++ {
		slot := &t.slots[i]
		if !slot.filled() {
			continue
		}
		d := int(t.displacement(i, slot.hash))
		for len(s.Histogram) <= d {
			s.Histogram = append(s.Histogram, 0)
		}
		s.Histogram[d]++
		total += d
		if d > s.MaxDisplacement {
			s.MaxDisplacement = d
		}
	}
	if t.used > 0 {
		s.MeanDisplacement = float64(total) / float64(t.used)
	}
	return s
}

func (s Stats) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "len=%d  capacity=%d  load=%.3f  max-fill=%.2f\n",
		s.Len, s.Capacity, s.LoadFactor, s.MaxFillLevel)
	fmt.Fprintf(&buf, "displacement: max=%d  mean=%.3f\n", s.MaxDisplacement, s.MeanDisplacement)
	for d, n := range s.Histogram {
		fmt.Fprintf(&buf, "  %4d: %d\n", d, n)
	}
	return buf.String()
}
