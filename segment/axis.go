// Copyright 2020-2021 Dolthub, Inc.
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

package segment

import (
	"sort"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
)

// Axis is one constrained column's sorted key array, as observed in a
// SQL result, plus a key->offset map for O(1) coordinate lookup. Per
// spec.md §3, "Axis keys are the sorted distinct values observed in the
// SQL result."
type Axis struct {
	BitPos   int
	Datatype predicate.Datatype
	Keys     []predicate.Value
	offset   map[interface{}]int
}

// NewAxis builds an Axis from a set of observed keys (deduplicated and
// sorted by dt's comparator) plus whether a NULL was observed, which
// becomes a synthetic trailing slot so NULL always has a stable offset.
func NewAxis(bitPos int, dt predicate.Datatype, keys []predicate.Value, hasNull bool) *Axis {
	sorted := dedupeSorted(dt, keys)
	if hasNull {
		sorted = append(sorted, nil)
	}
	a := &Axis{BitPos: bitPos, Datatype: dt, Keys: sorted, offset: make(map[interface{}]int, len(sorted))}
	for i, k := range sorted {
		a.offset[normalizeKey(k)] = i
	}
	return a
}

func dedupeSorted(dt predicate.Datatype, keys []predicate.Value) []predicate.Value {
	var nonNull []predicate.Value
	for _, k := range keys {
		if k != nil {
			nonNull = append(nonNull, k)
		}
	}
	sort.Slice(nonNull, func(i, j int) bool { return predicate.Compare(dt, nonNull[i], nonNull[j]) < 0 })
	if len(nonNull) == 0 {
		return nil
	}
	out := nonNull[:1]
	for _, v := range nonNull[1:] {
		if predicate.Compare(dt, out[len(out)-1], v) != 0 {
			out = append(out, v)
		}
	}
	return out
}

func normalizeKey(v predicate.Value) interface{} {
	if v == nil {
		return nullKey{}
	}
	return v
}

type nullKey struct{}

// RestoreAxis rebuilds an Axis from an already-sorted, already-deduped
// key list (extcache round-trip: the keys were sorted once by NewAxis
// before being serialised, so re-sorting on restore would be wasted
// work and, worse, could silently mask a corrupted cache entry).
func RestoreAxis(bitPos int, dt predicate.Datatype, sortedKeys []predicate.Value) *Axis {
	a := &Axis{BitPos: bitPos, Datatype: dt, Keys: sortedKeys, offset: make(map[interface{}]int, len(sortedKeys))}
	for i, k := range sortedKeys {
		a.offset[normalizeKey(k)] = i
	}
	return a
}

// Len returns the number of distinct positions on this axis, including
// the synthetic NULL slot if one was observed.
func (a *Axis) Len() int {
	return len(a.Keys)
}

// Offset returns the row-major offset of v on this axis, and whether v
// was observed at all (a value absent from the axis cannot be addressed
// in this segment's body).
func (a *Axis) Offset(v predicate.Value) (int, bool) {
	off, ok := a.offset[normalizeKey(v)]
	return off, ok
}
