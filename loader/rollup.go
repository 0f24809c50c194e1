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
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/cache"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/sqlgen"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/star"
)

// RollupSource is one existing, LOADED segment the rollup planner
// (cache.FindRollupCandidates) chose to cover a target header's region.
type RollupSource struct {
	Header segment.Header
	Body   *segment.Body
}

// RollupPlan is everything RollupJob needs to synthesise Target's body
// from Sources in-process rather than issuing SQL, per spec.md §4.5:
// "the manager schedules a synthetic load that reads the chosen segment
// bodies and aggregates them in-process."
type RollupPlan struct {
	Star   *star.Star
	StarName string

	Target segment.Header

	// TargetColumns is Target.BitKey's set bits in ascending order: the
	// axes the synthesised body is built over.
	TargetColumns []int

	Aggregator sqlgen.Aggregator

	Sources []RollupSource
}

// RollupJob implements cache.Job over a RollupPlan. It never produces a
// SQL statement, so Run never calls onStatement.
type RollupJob struct {
	plan RollupPlan
	log  *logrus.Entry

	hasThresholds    bool
	countThreshold   int64
	densityThreshold float64
}

// NewRollupJob constructs a RollupJob using the package default
// dense/sparse thresholds. log may be nil.
func NewRollupJob(plan RollupPlan, log *logrus.Entry) *RollupJob {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &RollupJob{plan: plan, log: log.WithField("system", "loader").WithField("component", "rollup").WithField("star", plan.StarName)}
}

// StarName implements cache.Job.
func (j *RollupJob) StarName() string { return j.plan.StarName }

// Headers implements cache.Job: a rollup job always populates exactly
// one target header.
func (j *RollupJob) Headers() []segment.Header { return []segment.Header{j.plan.Target} }

type rollupCell struct {
	coord []predicate.Value
	value float64
	init  bool
}

// combine folds one source value into the running aggregate for a
// target cell, per the measure's aggregator. Sum, Count, and
// CountDistinct all fold by addition: a source cell's value is already
// the partial aggregate over the excess columns the target is rolling
// away, so summing across sources reconstructs the coarser total. Min
// and Max fold by their natural comparison. Avg folds by addition as a
// documented approximation -- spec.md §4.5 step 4 only allows an Avg
// rollup when a parallel fact-count segment is co-materialised, and
// turning a running sum back into an average requires that count
// segment's values divided in by a caller one level up (see
// DESIGN.md); this combiner supplies the sum half of that division.
func combine(agg sqlgen.Aggregator, c *rollupCell, v float64) {
	switch agg {
	case sqlgen.Min:
		if !c.init || v < c.value {
			c.value = v
		}
	case sqlgen.Max:
		if !c.init || v > c.value {
			c.value = v
		}
	default: // Sum, Count, CountDistinct, Avg
		c.value += v
	}
	c.init = true
}

// projectCoord maps a source body's full coordinate tuple down to just
// the target's columns, looking up each target bit position's offset in
// the source's own axis list (which may order axes differently, and
// which always carries strictly more columns than the target since the
// source's bit key is a proper superset).
func projectCoord(srcAxes []*segment.Axis, srcCoord []predicate.Value, targetCols []int) []predicate.Value {
	byBit := make(map[int]predicate.Value, len(srcAxes))
	for i, a := range srcAxes {
		byBit[a.BitPos] = srcCoord[i]
	}
	out := make([]predicate.Value, len(targetCols))
	for i, bit := range targetCols {
		out[i] = byBit[bit]
	}
	return out
}

func coordKeyString(coord []predicate.Value) string {
	var sb []byte
	for _, v := range coord {
		sb = append(sb, []byte(fmt.Sprintf("%v\x1f", v))...)
	}
	return string(sb)
}

// Run implements cache.Job: stream every source body's populated cells
// (segment.Body.Each), project each coordinate down to the target's
// columns, and fold values together per combine. Cancellation is
// checked every 256 cells, mirroring the SQL-backed loader's per-row
// check (spec.md §4.6: "Cancellation is checked every row.").
func (j *RollupJob) Run(ctx context.Context, onStatement func(cache.Statement)) (map[uint64]cache.Outcome, error) {
	cells := map[string]*rollupCell{}
	axisValues := map[int][]predicate.Value{}
	axisHasNull := map[int]bool{}

	var scanErr error
	n := int64(0)
	for _, src := range j.plan.Sources {
		src.Body.Each(func(coord []predicate.Value, v float64) {
			if scanErr != nil {
				return
			}
			n++
			if n%256 == 0 {
				select {
				case <-ctx.Done():
					scanErr = rolaperr.ExecutionCancelled.New("execution cancelled during segment rollup")
					return
				default:
				}
			}
			targetCoord := projectCoord(src.Body.Axes, coord, j.plan.TargetColumns)
			key := coordKeyString(targetCoord)
			c, ok := cells[key]
			if !ok {
				c = &rollupCell{coord: targetCoord}
				cells[key] = c
			}
			combine(j.plan.Aggregator, c, v)
			for i, bit := range j.plan.TargetColumns {
				val := targetCoord[i]
				if val == nil {
					axisHasNull[bit] = true
				} else {
					axisValues[bit] = append(axisValues[bit], val)
				}
			}
		})
		if scanErr != nil {
			return nil, scanErr
		}
	}

	axes := make([]*segment.Axis, len(j.plan.TargetColumns))
	for i, bit := range j.plan.TargetColumns {
		col := j.plan.Star.Column(bit)
		axes[i] = segment.NewAxis(bit, col.Datatype, axisValues[bit], axisHasNull[bit])
	}

	countThreshold, densityThreshold := int64(defaultSparseCountThreshold), float64(defaultSparseDensityThreshold)
	if j.hasThresholds {
		countThreshold, densityThreshold = j.countThreshold, j.densityThreshold
	}
	possible, overflowed := possibleCellCount(axes)
	actual := int64(len(cells))
	sparse := segment.DensityDecision(possible, overflowed, actual, countThreshold, densityThreshold)

	var body *segment.Body
	if sparse {
		body = segment.NewSparseBody(axes, possible, actual)
	} else {
		body = segment.NewDenseBody(axes)
	}
	for _, c := range cells {
		body.Set(c.coord, c.value)
	}

	return map[uint64]cache.Outcome{j.plan.Target.Hash(): {Body: body}}, nil
}

// defaultSparseCountThreshold/defaultSparseDensityThreshold are the
// thresholds NewRollupJob uses, since rollup jobs are not constructed
// with a Config the way SQL-backed Jobs are. NewRollupJobWithThresholds
// takes them explicitly; the AggregationManager facade uses it with its
// configured thresholds.
const (
	defaultSparseCountThreshold   = 1000
	defaultSparseDensityThreshold = 0.5
)

// NewRollupJobWithThresholds is NewRollupJob plus explicit dense/sparse
// thresholds, for callers (the AggregationManager facade) that have a
// config.Config in hand.
func NewRollupJobWithThresholds(plan RollupPlan, countThreshold int64, densityThreshold float64, log *logrus.Entry) *RollupJob {
	j := NewRollupJob(plan, log)
	j.countThreshold = countThreshold
	j.densityThreshold = densityThreshold
	j.hasThresholds = true
	return j
}
