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

package loader_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/bitkey"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/dialect"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/execctx"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/loader"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/sqlgen"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/star"
)

// fakeCursor replays a fixed slice of rows, positionally matching
// whatever SELECT list the test's Spec would have produced.
type fakeCursor struct {
	rows   [][]interface{}
	cursor int
	closed bool
}

func (c *fakeCursor) Next() bool {
	if c.cursor >= len(c.rows) {
		return false
	}
	c.cursor++
	return true
}

func (c *fakeCursor) Scan(dest ...interface{}) error {
	row := c.rows[c.cursor-1]
	for i := range dest {
		p := dest[i].(*interface{})
		*p = row[i]
	}
	return nil
}

func (c *fakeCursor) Close() error {
	c.closed = true
	return nil
}

type fakeExecutor struct {
	cursor *fakeCursor
}

func (e *fakeExecutor) Execute(ctx context.Context, sqlText string, types []sqlgen.ColumnType, locus execctx.Locus, onStatement func(loader.Statement)) (loader.RowCursor, error) {
	return e.cursor, nil
}

func newSalesStar() *star.Star {
	fact := &star.Table{Name: "sales_fact"}
	s := star.New(1, fact, 3)
	s.AddColumn(&star.Column{BitPos: 0, Name: "region", Datatype: predicate.String, Table: fact, ParentBitPos: -1})
	s.AddColumn(&star.Column{BitPos: 1, Name: "product", Datatype: predicate.String, Table: fact, ParentBitPos: -1})
	s.AddColumn(&star.Column{BitPos: 2, Name: "amount", Datatype: predicate.Numeric, Table: fact, ParentBitPos: -1})
	return s
}

func newPlan(t *testing.T, s *star.Star, cursor *fakeCursor) (loader.Plan, *loader.Job, dialect.Capabilities) {
	t.Helper()
	caps, err := dialect.Get("mysql")
	require.NoError(t, err)

	spec := &sqlgen.Spec{
		Star:             s,
		Table:            s.Fact,
		Columns:          []int{0, 1},
		ColumnPredicates: map[int]*predicate.ColumnPredicate{},
		Measures:         []sqlgen.Measure{{Column: s.Column(2), Aggregator: sqlgen.Sum}},
	}
	header := segment.NewHeader(1, 1, 1, 0, bitkey.Of(3, 0, 1), nil, nil)
	plan := loader.Plan{
		Star:     s,
		StarName: "sales",
		Spec:     spec,
		Cohorts:  []loader.Cohort{{Header: header, Columns: []int{0, 1}}},
	}
	builder := sqlgen.NewBuilder(caps)
	exec := &fakeExecutor{cursor: cursor}
	job := loader.NewJob(plan, builder, exec, execctx.Locus{}, loader.Config{
		SparseSegmentCountThreshold:   1000,
		SparseSegmentDensityThreshold: 0.5,
	}, nil)
	return plan, job, caps
}

func TestJobRunBuildsDenseBody(t *testing.T) {
	s := newSalesStar()
	cursor := &fakeCursor{rows: [][]interface{}{
		{"east", "widget", int64(10)},
		{"east", "gadget", int64(20)},
		{"west", "widget", int64(5)},
	}}
	plan, job, _ := newPlan(t, s, cursor)

	outcomes, err := job.Run(context.Background(), func(loader.Statement) {})
	require.NoError(t, err)
	require.True(t, cursor.closed)

	h := plan.Cohorts[0].Header
	outcome, ok := outcomes[h.Hash()]
	require.True(t, ok)
	require.NoError(t, outcome.Err)
	require.NotNil(t, outcome.Body)
	require.False(t, outcome.Body.Sparse)

	v, ok := outcome.Body.Get([]predicate.Value{"east", "widget"})
	require.True(t, ok)
	require.Equal(t, float64(10), v)

	v, ok = outcome.Body.Get([]predicate.Value{"west", "widget"})
	require.True(t, ok)
	require.Equal(t, float64(5), v)

	_, ok = outcome.Body.Get([]predicate.Value{"west", "gadget"})
	require.False(t, ok)
}

func TestJobRunBuildsSparseBodyWhenConfigured(t *testing.T) {
	s := newSalesStar()
	var rows [][]interface{}
	for i := 0; i < 4; i++ {
		rows = append(rows, []interface{}{"east", "widget", int64(i)})
	}
	cursor := &fakeCursor{rows: rows}

	// Force sparse by using a count threshold of zero and a density
	// threshold that always wins once possible > 0.
	caps, err := dialect.Get("mysql")
	require.NoError(t, err)
	spec := &sqlgen.Spec{
		Star:             s,
		Table:            s.Fact,
		Columns:          []int{0, 1},
		ColumnPredicates: map[int]*predicate.ColumnPredicate{},
		Measures:         []sqlgen.Measure{{Column: s.Column(2), Aggregator: sqlgen.Sum}},
	}
	header := segment.NewHeader(1, 1, 1, 0, bitkey.Of(3, 0, 1), nil, nil)
	plan := loader.Plan{
		Star:     s,
		StarName: "sales",
		Spec:     spec,
		Cohorts:  []loader.Cohort{{Header: header, Columns: []int{0, 1}}},
	}
	builder := sqlgen.NewBuilder(caps)
	exec := &fakeExecutor{cursor: cursor}
	sparseJob := loader.NewJob(plan, builder, exec, execctx.Locus{}, loader.Config{
		SparseSegmentCountThreshold:   0,
		SparseSegmentDensityThreshold: 1000,
	}, nil)

	outcomes, err := sparseJob.Run(context.Background(), func(loader.Statement) {})
	require.NoError(t, err)
	h := plan.Cohorts[0].Header
	outcome := outcomes[h.Hash()]
	require.NoError(t, outcome.Err)
	require.True(t, outcome.Body.Sparse)
}

func TestJobRunDemultiplexesGroupingSets(t *testing.T) {
	s := newSalesStar()
	caps, err := dialect.Get("ansi")
	require.NoError(t, err)

	spec := &sqlgen.Spec{
		Star:             s,
		Table:            s.Fact,
		Columns:          []int{0, 1},
		ColumnPredicates: map[int]*predicate.ColumnPredicate{},
		Measures:         []sqlgen.Measure{{Column: s.Column(2), Aggregator: sqlgen.Sum}},
		GroupingSets: []sqlgen.GroupingSet{
			{Columns: []int{0, 1}},
			{Columns: []int{0}},
		},
	}

	detailHeader := segment.NewHeader(1, 1, 1, 0, bitkey.Of(3, 0, 1), nil, nil)
	rollupHeader := segment.NewHeader(1, 1, 1, 0, bitkey.Of(3, 0), nil, nil)
	plan := loader.Plan{
		Star:     s,
		StarName: "sales",
		Spec:     spec,
		Cohorts: []loader.Cohort{
			{Header: detailHeader, Columns: []int{0, 1}},
			{Header: rollupHeader, Columns: []int{0}},
		},
	}

	// Row shape: c0, c1, m0, g0, g1 (detail and grouping-indicator columns
	// trail, matching sqlgen's groupByClause SELECT ordering).
	cursor := &fakeCursor{rows: [][]interface{}{
		{"east", "widget", int64(10), int64(0), int64(0)},
		{"east", nil, int64(10), int64(0), int64(1)},
	}}

	builder := sqlgen.NewBuilder(caps)
	exec := &fakeExecutor{cursor: cursor}
	job := loader.NewJob(plan, builder, exec, execctx.Locus{}, loader.Config{
		SparseSegmentCountThreshold:   1000,
		SparseSegmentDensityThreshold: 0.5,
	}, nil)

	outcomes, err := job.Run(context.Background(), func(loader.Statement) {})
	require.NoError(t, err)

	detail := outcomes[detailHeader.Hash()]
	require.NoError(t, detail.Err)
	v, ok := detail.Body.Get([]predicate.Value{"east", "widget"})
	require.True(t, ok)
	require.Equal(t, float64(10), v)

	rollup := outcomes[rollupHeader.Hash()]
	require.NoError(t, rollup.Err)
	v, ok = rollup.Body.Get([]predicate.Value{"east"})
	require.True(t, ok)
	require.Equal(t, float64(10), v)
}
