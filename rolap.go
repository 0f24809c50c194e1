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

// Package rolap is the top-level facade spec.md §6 names: lookup, load,
// flush, cancel, shutdown, and generateDrillThroughSql, wired over the
// lower-level bitkey/predicate/star/aggmatch/sqlgen/cache/loader packages.
// It is constructed explicitly per query engine (spec.md §9: "treat as a
// context-scoped service passed explicitly... so tests can construct
// isolated instances"), never as a process-wide singleton.
package rolap

import (
	"sort"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/bitkey"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/sqlgen"
)

// ColumnValue is one (column, value) pair of a CellRequest's ordered
// constraint sequence.
type ColumnValue struct {
	BitPos int
	Value  predicate.Value
}

// CellRequest is a single multidimensional cell lookup, per spec.md §3:
// a measure, an ordered sequence of (column, value) constraints, and two
// flags carried on the request (BuildBatches and the loader do not read
// them).
type CellRequest struct {
	StarName   string
	MeasureBitPos int
	Aggregator sqlgen.Aggregator

	// NonDistinctEquivalent mirrors sqlgen.Measure's field, required when
	// Aggregator is sqlgen.CountDistinct.
	NonDistinctEquivalent sqlgen.Aggregator

	Columns []ColumnValue

	// ExtendedContext marks a request for the star's "expanded level"
	// (parent-chain) columns, per the teacher's own parent-child level
	// convention. No code in this module reads it, so those columns are
	// not added to the generated query.
	ExtendedContext bool

	// DrillThrough marks a request whose answer is row-level detail
	// rather than an aggregated cell; GenerateDrillThroughSQL is the
	// entry point for these instead of Lookup/Load.
	DrillThrough bool

	// Slicer is the compound (cross-column) predicate set constraining
	// this request, e.g. compound member selections from an MDX slicer
	// axis. Nil or empty means no compound constraints.
	Slicer []predicate.Predicate
}

// ConstrainedColumns derives the bit key of every column this request
// constrains, per spec.md §3 ("Derived: a constrained-columns bit key").
func (r CellRequest) ConstrainedColumns(width int) bitkey.Key {
	k := bitkey.New(width)
	for _, cv := range r.Columns {
		k = k.Set(cv.BitPos)
	}
	return k
}

// hasCompoundPredicates reports whether this request carries any Slicer
// predicates, the condition that forces the fact table in the AggStar
// matcher (spec.md §4.3 "Compound predicates force the fact table").
func (r CellRequest) hasCompoundPredicates() bool {
	return len(r.Slicer) > 0
}

// AggregationKey identifies a logical aggregation that may be served by
// one or more segments: star identity, constrained-columns bit key, and
// a sorted (by constrained-columns bit key) list of compound predicates,
// per spec.md §3. Equality is structural, not pointer identity.
type AggregationKey struct {
	StarName           string
	ConstrainedColumns bitkey.Key
	Predicates         []predicate.Predicate
}

// NewAggregationKey builds a key, sorting preds by their constrained
// bit key's HashKey() so construction order never affects equality
// (spec.md §3's "Invariant: the compound predicate list is sorted by
// its bit key for determinism").
func NewAggregationKey(starName string, cols bitkey.Key, preds []predicate.Predicate) AggregationKey {
	sorted := append([]predicate.Predicate(nil), preds...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ConstrainedColumns().HashKey() < sorted[j].ConstrainedColumns().HashKey()
	})
	return AggregationKey{StarName: starName, ConstrainedColumns: cols, Predicates: sorted}
}

// Equal implements spec.md §8's "Aggregation-key equality" testable
// property: two keys with equal constrained-columns bit keys, equal
// star identity, and equal compound-predicate lists compare equal.
func (k AggregationKey) Equal(other AggregationKey) bool {
	if k.StarName != other.StarName || !k.ConstrainedColumns.Equal(other.ConstrainedColumns) {
		return false
	}
	if len(k.Predicates) != len(other.Predicates) {
		return false
	}
	for i := range k.Predicates {
		if !k.Predicates[i].EqualPredicate(other.Predicates[i]) {
			return false
		}
	}
	return true
}

// stringKey renders a value suitable for use as a Go map key, since
// AggregationKey holds slices and predicate.Predicate values that are
// not comparable with ==.
func (k AggregationKey) stringKey() string {
	s := k.StarName + "|" + k.ConstrainedColumns.HashKey() + "|"
	for _, p := range k.Predicates {
		s += p.ConstrainedColumns().HashKey() + ":" + hashString(p.Hash()) + ","
	}
	return s
}

func hashString(h uint64) string {
	const hex = "0123456789abcdef"
	b := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		b[i] = hex[h&0xf]
		h >>= 4
	}
	return string(b)
}
