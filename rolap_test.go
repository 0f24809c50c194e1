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

package rolap_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	rolap "github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/cache"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/config"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/execctx"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/loader"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/sqlgen"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/star"
)

// fakeCursor and fakeExecutor mirror loader_test.go's fakes: a fixed
// slice of rows replayed once, standing in for the JDBC-equivalent row
// cursor spec.md §6 names as an outbound dependency.
type fakeCursor struct {
	rows   [][]interface{}
	cursor int
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

func (c *fakeCursor) Close() error { return nil }

type fakeExecutor struct {
	rows [][]interface{}
}

func (e *fakeExecutor) Execute(ctx context.Context, sqlText string, types []sqlgen.ColumnType, locus execctx.Locus, onStatement func(loader.Statement)) (loader.RowCursor, error) {
	return &fakeCursor{rows: e.rows}, nil
}

func newRegionStar() *star.Star {
	fact := &star.Table{Name: "fact_sales"}
	s := star.New(1, fact, 2)
	s.AddColumn(&star.Column{BitPos: 0, Name: "region", Datatype: predicate.String, ParentBitPos: -1, Table: fact})
	s.AddColumn(&star.Column{BitPos: 1, Name: "amount", Datatype: predicate.Numeric, ParentBitPos: -1, Table: fact})
	return s
}

func testConfig() config.Config {
	return config.Config{
		UseAggregates:                 true,
		Dialect:                       "ansi",
		SparseSegmentCountThreshold:   1000,
		SparseSegmentDensityThreshold: 0.5,
		ResultLimit:                   1_000_000,
		SQLExecutorThreads:            2,
		CacheExecutorThreads:          2,
	}
}

// TestLookupMissLoadThenHit exercises the facade's public contract end
// to end: a miss on an unregistered segment, a Load that issues SQL
// through the fake executor, and a subsequent Lookup hit against the
// installed segment -- spec.md §6's lookup/load pair.
func TestLookupMissLoadThenHit(t *testing.T) {
	s := newRegionStar()
	exec := &fakeExecutor{rows: [][]interface{}{
		{"east", 10.0},
		{"west", 20.0},
	}}

	m, err := rolap.New(testConfig(), exec, nil, nil)
	require.NoError(t, err)
	defer m.Shutdown()

	m.RegisterStar("sales", s, 1, 1, 1)

	execID := execctx.NewID()
	req := rolap.CellRequest{
		StarName:   "sales",
		MeasureBitPos: 1,
		Aggregator: sqlgen.Sum,
		Columns:    []rolap.ColumnValue{{BitPos: 0, Value: "east"}},
	}

	res, err := m.Lookup(req, execID)
	require.NoError(t, err)
	require.Equal(t, cache.Miss, res.Kind)

	width, err := m.StarWidth("sales")
	require.NoError(t, err)

	batches := rolap.BuildBatches([]rolap.CellRequest{req}, width,
		func(string) uint32 { return s.ID },
		func(bitPos int) predicate.Datatype { return s.Column(bitPos).Datatype })
	require.Len(t, batches, 1)

	futures, err := m.Load(context.Background(), batches[0], execID)
	require.NoError(t, err)
	require.Len(t, futures, 1)

	for _, f := range futures {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		body, werr := f.Wait(ctx)
		require.NoError(t, werr)
		require.NotNil(t, body)
	}

	res, err = m.Lookup(req, execID)
	require.NoError(t, err)
	require.Equal(t, cache.Hit, res.Kind)
	require.NotNil(t, res.Body)
}

// TestLookupUnregisteredStarErrors exercises headerFor/starEntry's error
// path: a request naming a star that was never RegisterStar'd fails
// fast rather than panicking.
func TestLookupUnregisteredStarErrors(t *testing.T) {
	m, err := rolap.New(testConfig(), &fakeExecutor{}, nil, nil)
	require.NoError(t, err)
	defer m.Shutdown()

	_, err = m.Lookup(rolap.CellRequest{StarName: "missing"}, execctx.NewID())
	require.Error(t, err)
}

// TestGenerateDrillThroughSQLCountOnly exercises the pure SQL-text entry
// point spec.md §6 names, which never executes anything itself.
func TestGenerateDrillThroughSQLCountOnly(t *testing.T) {
	s := newRegionStar()
	m, err := rolap.New(testConfig(), &fakeExecutor{}, nil, nil)
	require.NoError(t, err)
	defer m.Shutdown()
	m.RegisterStar("sales", s, 1, 1, 1)

	sql, types, err := m.GenerateDrillThroughSQL("sales", []int{1}, nil, true)
	require.NoError(t, err)
	require.Contains(t, sql, "COUNT(")
	require.Len(t, types, 1)
}
