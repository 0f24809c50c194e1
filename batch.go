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

package rolap

import (
	"sort"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/sqlgen"
)

// Batch is a group of CellRequests that share an AggregationKey and a
// measure: spec.md §4.2's "Invariant: for a given aggregation key, all
// batched requests share the same column shape and compound predicates,
// so a single SQL query satisfies them." Because loader.Job targets
// exactly one measure (segment.Body holds one float64 per cell), a
// Batch is further scoped to one (measure, aggregator) pair; requests
// needing several measures at the same column shape produce one Batch
// per measure, sharing the same Key.
type Batch struct {
	Key        AggregationKey
	MeasureBitPos int
	Aggregator sqlgen.Aggregator
	NonDistinctEquivalent sqlgen.Aggregator

	// ColumnPredicates is the per-column union of every batched
	// request's constraint on that column (spec.md §4.2: "per
	// constrained column, the union of per-request value-sets,
	// producing one column predicate per column").
	ColumnPredicates map[int]*predicate.ColumnPredicate

	Requests []CellRequest
}

// batchGroupKey identifies one (AggregationKey, measure, aggregator)
// group while BuildBatches accumulates requests; AggregationKey itself
// is not comparable with == (it embeds slices), so grouping uses its
// stringKey() alongside the measure/aggregator pair.
type batchGroupKey struct {
	agg        string
	measure    int
	aggregator sqlgen.Aggregator
}

// BuildBatches implements spec.md §4.2: group requests by aggregation
// key (and, since this implementation's loader targets one measure per
// job, also by measure+aggregator), then union each group's per-column
// constraints into one ColumnPredicate per column.
//
// width is the star's bit-key width (needed to derive each request's
// constrained-columns bit key); dt resolves a column's Datatype so the
// per-column union predicate can be built (required by predicate.List).
// starID resolves a request's star name to the numeric id threaded into
// synthesised ColumnRef values purely so they match star.Column.Ref()'s
// shape; resolution itself keys off BitPos alone, not StarID.
func BuildBatches(reqs []CellRequest, width int, starID func(starName string) uint32, dt func(bitPos int) predicate.Datatype) []Batch {
	groups := map[batchGroupKey]*Batch{}
	var order []batchGroupKey

	for _, r := range reqs {
		cols := r.ConstrainedColumns(width)
		key := NewAggregationKey(r.StarName, cols, r.Slicer)
		gk := batchGroupKey{agg: key.stringKey(), measure: r.MeasureBitPos, aggregator: r.Aggregator}

		b, ok := groups[gk]
		if !ok {
			b = &Batch{
				Key:                   key,
				MeasureBitPos:         r.MeasureBitPos,
				Aggregator:            r.Aggregator,
				NonDistinctEquivalent: r.NonDistinctEquivalent,
				ColumnPredicates:      map[int]*predicate.ColumnPredicate{},
			}
			groups[gk] = b
			order = append(order, gk)
		}
		b.Requests = append(b.Requests, r)

		for _, cv := range r.Columns {
			existing, ok := b.ColumnPredicates[cv.BitPos]
			value := predicate.EqualValue(width, predicate.ColumnRef{StarID: starID(r.StarName), BitPos: cv.BitPos}, dt(cv.BitPos), cv.Value)
			if !ok {
				b.ColumnPredicates[cv.BitPos] = value
				continue
			}
			merged, ok := existing.OrColumn(value)
			if !ok {
				// OrColumn only fails to reduce to a single predicate for
				// shapes this engine never constructs here (a minus
				// predicate); EqualValue/OrColumn of value predicates
				// always reduces, so this is unreachable in practice.
				continue
			}
			b.ColumnPredicates[cv.BitPos] = merged
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].agg < order[j].agg })
	out := make([]Batch, len(order))
	for i, gk := range order {
		out[i] = *groups[gk]
	}
	return out
}
