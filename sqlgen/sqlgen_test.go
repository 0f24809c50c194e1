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

package sqlgen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/dialect"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/sqlgen"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/star"
)

// newSalesStar mirrors aggmatch_test.go's fixture: level bits {l1,l2,l3}
// at bit positions 0-2, measure "sumx" at bit 3, all on the fact table.
func newSalesStar() *star.Star {
	fact := &star.Table{Name: "fact_sales"}
	s := star.New(1, fact, 4)
	s.AddColumn(&star.Column{BitPos: 0, Name: "l1", Datatype: predicate.String, ParentBitPos: -1, Table: fact})
	s.AddColumn(&star.Column{BitPos: 1, Name: "l2", Datatype: predicate.String, ParentBitPos: -1, Table: fact})
	s.AddColumn(&star.Column{BitPos: 2, Name: "l3", Datatype: predicate.String, ParentBitPos: -1, Table: fact})
	s.AddColumn(&star.Column{BitPos: 3, Name: "sumx", Datatype: predicate.Numeric, ParentBitPos: -1, Table: fact})
	return s
}

func ansiCaps() dialect.Capabilities {
	c, err := dialect.Get("ansi")
	if err != nil {
		panic(err)
	}
	return c
}

func mysqlCaps() dialect.Capabilities {
	c, err := dialect.Get("mysql")
	if err != nil {
		panic(err)
	}
	return c
}

func TestBuildDirectSingleColumnList(t *testing.T) {
	s := newSalesStar()
	b := sqlgen.NewBuilder(ansiCaps())

	spec := &sqlgen.Spec{
		Star:    s,
		Table:   s.Fact,
		Columns: []int{0},
		ColumnPredicates: map[int]*predicate.ColumnPredicate{
			0: predicate.List(4, s.Column(0).Ref(), predicate.String, "a", "b"),
		},
		Measures: []sqlgen.Measure{{Column: s.Column(3), Aggregator: sqlgen.Sum}},
	}

	sql, types, err := b.Build(spec)
	require.NoError(t, err)
	require.Equal(t,
		`SELECT t0.l1 AS c0, SUM(t0.sumx) AS m0 FROM fact_sales AS t0 WHERE t0.l1 IN ('a', 'b') GROUP BY t0.l1`,
		sql)
	require.Equal(t, []sqlgen.ColumnType{
		{Alias: "c0", Datatype: predicate.String},
		{Alias: "m0", Datatype: predicate.Numeric},
	}, types)
}

func TestBuildDirectSkipsLiteralTruePredicate(t *testing.T) {
	s := newSalesStar()
	b := sqlgen.NewBuilder(ansiCaps())

	spec := &sqlgen.Spec{
		Star:    s,
		Table:   s.Fact,
		Columns: []int{0},
		ColumnPredicates: map[int]*predicate.ColumnPredicate{
			0: predicate.True(4, s.Column(0).Ref(), predicate.String),
		},
		Measures: []sqlgen.Measure{{Column: s.Column(3), Aggregator: sqlgen.Count}},
	}

	sql, _, err := b.Build(spec)
	require.NoError(t, err)
	require.NotContains(t, sql, "WHERE")
}

// TestDistinctRewrite is spec.md §8 scenario 2: rows (a,1),(a,1),(a,2),(b,2)
// de-duplicated on (dim, measure-input) then counted per dim should yield
// a=2, b=1. This asserts the generated shape, since the SQL itself isn't
// executed here.
func TestDistinctRewrite(t *testing.T) {
	s := newSalesStar()
	caps := mysqlCaps() // AllowsCountDistinct but not AllowsMultipleCountDistinct
	caps.AllowsCountDistinct = false
	b := sqlgen.NewBuilder(caps)

	spec := &sqlgen.Spec{
		Star:    s,
		Table:   s.Fact,
		Columns: []int{0},
		Measures: []sqlgen.Measure{
			{Column: s.Column(3), Aggregator: sqlgen.CountDistinct, NonDistinctEquivalent: sqlgen.Count},
		},
	}

	sql, types, err := b.Build(spec)
	require.NoError(t, err)
	require.Contains(t, sql, "SELECT DISTINCT")
	require.Contains(t, sql, "FROM (")
	require.Contains(t, sql, ") AS dummyname")
	require.Contains(t, sql, "GROUP BY d0")
	require.Equal(t, []sqlgen.ColumnType{
		{Alias: "c0", Datatype: predicate.String},
		{Alias: "m0", Datatype: predicate.Numeric},
	}, types)
}

func TestDistinctRewriteFallsBackToGroupByWhenInnerDistinctDisallowed(t *testing.T) {
	s := newSalesStar()
	caps := mysqlCaps()
	caps.AllowsCountDistinct = false
	caps.AllowsInnerDistinct = false
	b := sqlgen.NewBuilder(caps)

	spec := &sqlgen.Spec{
		Star:    s,
		Table:   s.Fact,
		Columns: []int{0},
		Measures: []sqlgen.Measure{
			{Column: s.Column(3), Aggregator: sqlgen.CountDistinct, NonDistinctEquivalent: sqlgen.Count},
		},
	}

	sql, _, err := b.Build(spec)
	require.NoError(t, err)
	require.NotContains(t, sql, "SELECT DISTINCT")
	require.Contains(t, sql, "GROUP BY t0.l1")
	require.NotContains(t, sql, "GROUP BY t0.l1 AS")
}

func TestDistinctRewriteRejectsGroupingSets(t *testing.T) {
	s := newSalesStar()
	caps := mysqlCaps()
	caps.AllowsCountDistinct = false
	b := sqlgen.NewBuilder(caps)

	spec := &sqlgen.Spec{
		Star:         s,
		Table:        s.Fact,
		Columns:      []int{0, 1},
		GroupingSets: []sqlgen.GroupingSet{{Columns: []int{0, 1}}, {Columns: []int{0}}},
		Measures: []sqlgen.Measure{
			{Column: s.Column(3), Aggregator: sqlgen.CountDistinct, NonDistinctEquivalent: sqlgen.Count},
		},
	}

	_, _, err := b.Build(spec)
	require.Error(t, err)
}

// TestGroupingSets is spec.md §8 scenario 3's SQL shape: a rollup request
// across {l1,l2} and {l1} emits GROUPING SETS, not a plain GROUP BY, and
// a GROUPING() projection per column so the loader can demultiplex rows.
func TestGroupingSets(t *testing.T) {
	s := newSalesStar()
	b := sqlgen.NewBuilder(ansiCaps())

	spec := &sqlgen.Spec{
		Star:    s,
		Table:   s.Fact,
		Columns: []int{0, 1},
		GroupingSets: []sqlgen.GroupingSet{
			{Columns: []int{0, 1}},
			{Columns: []int{0}},
		},
		Measures: []sqlgen.Measure{{Column: s.Column(3), Aggregator: sqlgen.Sum}},
	}

	sql, _, err := b.Build(spec)
	require.NoError(t, err)
	require.Contains(t, sql, "GROUP BY GROUPING SETS ((t0.l1, t0.l2), (t0.l1))")
	require.Contains(t, sql, "GROUPING(t0.l1) AS g0")
	require.Contains(t, sql, "GROUPING(t0.l2) AS g1")
}

func TestGroupingSetsRejectedWhenDialectLacksSupport(t *testing.T) {
	s := newSalesStar()
	b := sqlgen.NewBuilder(mysqlCaps()) // SupportsGroupingSets is false

	spec := &sqlgen.Spec{
		Star:    s,
		Table:   s.Fact,
		Columns: []int{0, 1},
		GroupingSets: []sqlgen.GroupingSet{
			{Columns: []int{0, 1}},
			{Columns: []int{0}},
		},
		Measures: []sqlgen.Measure{{Column: s.Column(3), Aggregator: sqlgen.Sum}},
	}

	_, _, err := b.Build(spec)
	require.Error(t, err)
}

func TestGroupingSetsRejectsNonTopologicalOrder(t *testing.T) {
	s := newSalesStar()
	b := sqlgen.NewBuilder(ansiCaps())

	spec := &sqlgen.Spec{
		Star:    s,
		Table:   s.Fact,
		Columns: []int{0, 1},
		GroupingSets: []sqlgen.GroupingSet{
			{Columns: []int{0}},
			{Columns: []int{0, 1}},
		},
		Measures: []sqlgen.Measure{{Column: s.Column(3), Aggregator: sqlgen.Sum}},
	}

	_, _, err := b.Build(spec)
	require.Error(t, err)
}

func TestOrderByEmitsOrderByClause(t *testing.T) {
	s := newSalesStar()
	b := sqlgen.NewBuilder(ansiCaps())

	spec := &sqlgen.Spec{
		Star:     s,
		Table:    s.Fact,
		Columns:  []int{0},
		OrderBy:  true,
		Measures: []sqlgen.Measure{{Column: s.Column(3), Aggregator: sqlgen.Sum}},
	}

	sql, _, err := b.Build(spec)
	require.NoError(t, err)
	require.Contains(t, sql, "ORDER BY t0.l1")
}
