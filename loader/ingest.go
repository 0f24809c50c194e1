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

package loader

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	querypb "gopkg.in/src-d/go-vitess.v0/vt/proto/query"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/cache"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/internal/sqlval"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/sqlgen"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/star"
)

// cohortAccum is the working state one Cohort accumulates while the
// result set streams by: the raw coordinate + measure value of every
// row belonging to it, plus the distinct values observed per axis
// (spec.md §4.6 step 3, "group rows by which default segment they
// belong to").
type cohortAccum struct {
	cohort      Cohort
	colIndex    []int // index into the row's dims slice, one per cohort.Columns entry
	axisValues  map[int][]predicate.Value
	axisHasNull map[int]bool
	rows        []rowRecord
}

type rowRecord struct {
	coord []predicate.Value
	value float64
}

// ingest implements spec.md §4.6 steps 2-6: stream the cursor, assign
// each row to its grouping-set cohort, accumulate per-axis distinct
// values and row tuples, then materialise a dense or sparse Body per
// cohort once the cursor is exhausted.
func ingest(ctx context.Context, plan Plan, cursor RowCursor, types []sqlgen.ColumnType, cfg Config, log *logrus.Entry) (map[uint64]cache.Outcome, error) {
	numCols := len(plan.Spec.Columns)
	numMeasures := len(plan.Spec.Measures)
	if numMeasures != 1 {
		// A segment's Body holds a single float64 per cell (spec.md §3);
		// one Job always targets exactly one measure, so its Cohorts'
		// Headers each carry a single MeasureID. A caller wanting several
		// measures issues one Job per measure -- sharing the generated SQL
		// across them is a batching optimisation this loader does not
		// attempt.
		return nil, rolaperr.Internal.New("loader.Job requires exactly one measure per Spec")
	}
	hasGroupingSets := len(plan.Spec.GroupingSets) > 0

	colBitPos := make([]int, numCols)
	copy(colBitPos, plan.Spec.Columns)
	bitToColIdx := make(map[int]int, numCols)
	colVtType := make([]querypb.Type, numCols)
	for i, bit := range colBitPos {
		bitToColIdx[bit] = i
		col := plan.Star.Column(bit)
		colVtType[i] = sqlval.VitessTypeOf(col.Datatype)
	}
	measureVtType := sqlval.VitessTypeOf(predicate.Numeric)

	accums := make([]*cohortAccum, len(plan.Cohorts))
	cohortByColSig := map[string]*cohortAccum{}
	for i, c := range plan.Cohorts {
		idx := make([]int, len(c.Columns))
		for j, bit := range c.Columns {
			ci, ok := bitToColIdx[bit]
			if !ok {
				return nil, rolaperr.Internal.New("cohort column not present in spec columns")
			}
			idx[j] = ci
		}
		a := &cohortAccum{
			cohort:      c,
			colIndex:    idx,
			axisValues:  map[int][]predicate.Value{},
			axisHasNull: map[int]bool{},
		}
		accums[i] = a
		cohortByColSig[colSignature(c.Columns)] = a
	}

	totalFields := numCols + numMeasures
	if hasGroupingSets {
		totalFields += numCols
	}
	row := make([]interface{}, totalFields)
	dest := make([]interface{}, totalFields)
	for i := range dest {
		dest[i] = &row[i]
	}

	rowCount := int64(0)
	for cursor.Next() {
		select {
		case <-ctx.Done():
			return nil, rolaperr.ExecutionCancelled.New("execution cancelled during segment load")
		default:
		}
		rowCount++
		if cfg.ResultLimit > 0 && rowCount > cfg.ResultLimit {
			return nil, rolaperr.ResourceLimitExceeded.New("segment load exceeded the configured result-row limit")
		}

		// Scan mirrors database/sql.Rows.Scan: dest holds pointers, the
		// cursor writes through them into row.
		if err := cursor.Scan(dest...); err != nil {
			return nil, rolaperr.SqlFailure.New(err.Error())
		}

		dims := row[:numCols]
		measureVals := row[numCols : numCols+numMeasures]

		var present []int // bit positions actually grouped-by on this row
		if hasGroupingSets {
			flags := row[numCols+numMeasures:]
			for i, bit := range colBitPos {
				n, err := sqlval.DecodeInt64(flags[i])
				if err != nil {
					return nil, err
				}
				if n == 0 {
					present = append(present, bit)
				}
			}
		} else {
			present = colBitPos
		}

		a, ok := cohortByColSig[colSignature(present)]
		if !ok {
			// A combination GROUPING SETS produced that no cohort asked
			// for: the caller's Cohorts list didn't mirror Spec.GroupingSets.
			return nil, rolaperr.Internal.New("result row belongs to no declared cohort")
		}

		coord := make([]predicate.Value, len(a.cohort.Columns))
		for j, ci := range a.colIndex {
			v, err := sqlval.Decode(colVtType[ci], dims[ci])
			if err != nil {
				return nil, err
			}
			coord[j] = v
			bit := a.cohort.Columns[j]
			if v == nil {
				a.axisHasNull[bit] = true
			} else {
				a.axisValues[bit] = append(a.axisValues[bit], v)
			}
		}

		measure, err := sqlval.DecodeFloat64(measureVtType, measureVals[0])
		if err != nil {
			return nil, err
		}
		a.rows = append(a.rows, rowRecord{coord: coord, value: measure})
	}

	out := make(map[uint64]cache.Outcome, len(accums))
	for _, a := range accums {
		body, err := materialize(plan.Star, a, cfg)
		if err != nil {
			out[a.cohort.Header.Hash()] = cache.Outcome{Err: err}
			continue
		}
		out[a.cohort.Header.Hash()] = cache.Outcome{Body: body}
	}
	return out, nil
}

func materialize(s *star.Star, a *cohortAccum, cfg Config) (*segment.Body, error) {
	axes := make([]*segment.Axis, len(a.cohort.Columns))
	for i, bit := range a.cohort.Columns {
		col := s.Column(bit)
		axes[i] = segment.NewAxis(bit, col.Datatype, a.axisValues[bit], a.axisHasNull[bit])
	}

	possible, overflowed := possibleCellCount(axes)
	actual := int64(len(a.rows))
	sparse := segment.DensityDecision(possible, overflowed, actual, cfg.SparseSegmentCountThreshold, cfg.SparseSegmentDensityThreshold)

	var body *segment.Body
	if sparse {
		body = segment.NewSparseBody(axes, possible, actual)
	} else {
		body = segment.NewDenseBody(axes)
	}
	for _, r := range a.rows {
		body.Set(r.coord, r.value)
	}
	return body, nil
}

func possibleCellCount(axes []*segment.Axis) (int64, bool) {
	result := int64(1)
	for _, a := range axes {
		n := int64(a.Len())
		if n == 0 {
			return 0, false
		}
		if result > math.MaxInt64/n {
			return 0, true
		}
		result *= n
	}
	return result, false
}

// colSignature renders a bit-position list into a comparable key,
// independent of GroupingSet iteration order (the planner is required to
// keep spec.Columns order within each set already, but this guards
// against a caller supplying a re-ordered Cohort.Columns).
func colSignature(bits []int) string {
	cp := append([]int(nil), bits...)
	for i := 1; i < len(cp); i++ {
		for j := i; j > 0 && cp[j-1] > cp[j]; j-- {
			cp[j-1], cp[j] = cp[j], cp[j-1]
		}
	}
	var sb []byte
	for _, b := range cp {
		sb = append(sb, []byte(cast.ToString(b))...)
		sb = append(sb, ',')
	}
	return string(sb)
}

