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

// Package sqlgen assembles SELECT/FROM/WHERE/GROUP BY/GROUPING SETS SQL
// from a query specification, including the distinct-count rewrite for
// dialects that cannot express COUNT(DISTINCT ...) in the required
// shape, per spec.md §4.4.
package sqlgen

import (
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/star"
)

// Aggregator names a SQL aggregate function.
type Aggregator int

const (
	Sum Aggregator = iota
	Min
	Max
	Count
	CountDistinct
	Avg
)

// Measure is one SELECTed aggregate.
type Measure struct {
	Column     *star.Column
	Aggregator Aggregator

	// NonDistinctEquivalent is the aggregator the outer query of a
	// distinct rewrite uses over the inner query's already-deduplicated
	// rows, e.g. Count for a CountDistinct measure. Required whenever
	// Aggregator is CountDistinct.
	NonDistinctEquivalent Aggregator
}

// GroupingSet is one element of a GROUP BY GROUPING SETS list: the
// columns it groups by (a subset of Spec.Columns, by bit position).
// spec.md requires the list to be topologically ordered: the first
// (detailed) set's columns are a superset of every later set's.
type GroupingSet struct {
	Columns []int
}

// Spec is the input to Build: the columns, predicates, measures, and
// optional grouping-sets list for one query.
type Spec struct {
	Star  *star.Star
	Table *star.Table // the fact table or the matched AggStar's table

	// Columns lists, by bit position, every column this query projects
	// and groups by (when GroupingSets is empty) or the detailed set's
	// columns (when it is not).
	Columns []int

	// ColumnPredicates constrains a column by bit position. A column
	// present in Columns but absent here (or mapped to a literal-true
	// predicate) is projected unconstrained.
	ColumnPredicates map[int]*predicate.ColumnPredicate

	// ExtraPredicates are compound (cross-column / slicer-member)
	// predicates appended to WHERE.
	ExtraPredicates []predicate.Predicate

	Measures []Measure

	// GroupingSets, when non-empty, requests GROUP BY GROUPING SETS
	// instead of a plain GROUP BY.
	GroupingSets []GroupingSet

	// OrderBy requests a stable row order (ORDER BY every projected
	// column), used by callers that need deterministic axis
	// construction order from the result set.
	OrderBy bool
}

// ColumnType describes one SELECTed column's effective name and
// datatype, returned by Build and by GenerateDrillThroughSQL alongside
// the generated SQL text.
type ColumnType struct {
	Alias    string
	Datatype predicate.Datatype
}
