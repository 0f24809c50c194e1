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

package predicate_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
)

type fakeCtx struct{}

func (fakeCtx) ColumnExpr(col predicate.ColumnRef) string {
	return fmt.Sprintf("c%d", col.BitPos)
}

func (fakeCtx) Quote(dt predicate.Datatype, v predicate.Value) string {
	if dt == predicate.String {
		return fmt.Sprintf("'%v'", v)
	}
	return fmt.Sprintf("%v", v)
}

func render(t *testing.T, p *predicate.ColumnPredicate) string {
	t.Helper()
	var b strings.Builder
	ok, err := p.ToSQL(fakeCtx{}, &b)
	require.NoError(t, err)
	require.True(t, ok)
	return b.String()
}

func col(pos int) predicate.ColumnRef { return predicate.ColumnRef{StarID: 1, BitPos: pos} }

func TestListSQLDeterministic(t *testing.T) {
	p := predicate.List(8, col(0), predicate.Numeric, 1, 3, nil)
	require.Equal(t, "(c0 IN (1, 3) OR c0 IS NULL)", render(t, p))
}

func TestListSQLOnlyNull(t *testing.T) {
	p := predicate.List(8, col(0), predicate.Numeric, nil)
	require.Equal(t, "c0 IS NULL", render(t, p))
}

func TestListSQLSingleNonNullPlusNull(t *testing.T) {
	p := predicate.List(8, col(0), predicate.Numeric, 5, nil)
	require.Equal(t, "(c0 = 5 OR c0 IS NULL)", render(t, p))
}

func TestListSQLAllNonNull(t *testing.T) {
	p := predicate.List(8, col(0), predicate.Numeric, 3, 1, 2)
	require.Equal(t, "c0 IN (1, 2, 3)", render(t, p))
}

func TestListSQLSingletonCollapsesToValue(t *testing.T) {
	p := predicate.List(8, col(0), predicate.Numeric, 7)
	require.Equal(t, predicate.KindValue, p.Kind)
	require.Equal(t, "c0 = 7", render(t, p))
}

func TestEvaluateRoundTrip(t *testing.T) {
	universe := []predicate.Value{1, 2, 3, 4, nil, 5}
	p := predicate.List(8, col(0), predicate.Numeric, 1, 3, nil)
	for _, v := range universe {
		want := v == nil || v == 1 || v == 3
		require.Equal(t, want, p.Evaluate(v), "v=%v", v)
	}
}

func TestMinusIntersectInvariant(t *testing.T) {
	universe := []predicate.Value{1, 2, 3, 4, 5, nil}
	p := predicate.List(8, col(0), predicate.Numeric, 1, 2, 3, 4, nil)
	q := predicate.List(8, col(0), predicate.Numeric, 2, 4)
	diff := p.Minus(q)
	for _, v := range universe {
		require.Equal(t, p.Evaluate(v) && !q.Evaluate(v), diff.Evaluate(v), "v=%v", v)
	}
}

func TestMinusLiteralTrueFalse(t *testing.T) {
	p := predicate.List(8, col(0), predicate.Numeric, 1, 2)
	require.Equal(t, predicate.KindFalse, p.Minus(predicate.True(8, col(0), predicate.Numeric)).Kind)

	allFalse := predicate.False(8, col(0), predicate.Numeric)
	result := p.Minus(allFalse)
	require.True(t, result.EqualConstraint(p))
}

func TestIntersectSelectivity(t *testing.T) {
	p := predicate.List(8, col(0), predicate.Numeric, 1, 2, 3, 4)
	q := predicate.List(8, col(0), predicate.Numeric, 2, 4, 9)
	ov, err := p.Intersect(q)
	require.NoError(t, err)
	require.Equal(t, 0.5, ov.Selectivity)
	matched, _ := ov.Matched.Enumerate()
	require.ElementsMatch(t, []predicate.Value{2, 4}, matched)
}

func TestIntersectOverMinusUnsupported(t *testing.T) {
	p := predicate.List(8, col(0), predicate.Numeric, 1, 2)
	m := predicate.NewMinus(predicate.True(8, col(0), predicate.Numeric), p)
	_, err := p.Intersect(m)
	require.Error(t, err)
}

func TestNumericValidation(t *testing.T) {
	p := predicate.List(8, col(0), predicate.Numeric, "abc")
	var b strings.Builder
	_, err := p.ToSQL(fakeCtx{}, &b)
	require.Error(t, err)
}

func TestRangeEvaluateNullSortsLow(t *testing.T) {
	p := predicate.RangeBetween(8, col(0), predicate.Numeric,
		predicate.Bound{Value: 2, Strict: false},
		predicate.Bound{Value: 10, Strict: false})
	require.False(t, p.Evaluate(nil))
	require.False(t, p.Evaluate(1))
	require.True(t, p.Evaluate(2))
	require.True(t, p.Evaluate(5))
	require.False(t, p.Evaluate(11))
}

func TestEqualConstraintModuloOrder(t *testing.T) {
	a := predicate.List(8, col(0), predicate.Numeric, 1, 2, 3)
	b := predicate.List(8, col(0), predicate.Numeric, 3, 2, 1)
	require.True(t, a.EqualConstraint(b))
}

func TestCompoundAndOrSQL(t *testing.T) {
	a := predicate.List(8, col(0), predicate.Numeric, 1, 2)
	b := predicate.List(8, col(1), predicate.Numeric, 3)
	and := predicate.NewAnd(8, a, b)
	var buf strings.Builder
	ok, err := and.ToSQL(fakeCtx{}, &buf)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "(c0 IN (1, 2) AND c1 = 3)", buf.String())
}

func TestCompoundConstrainedColumns(t *testing.T) {
	a := predicate.List(8, col(0), predicate.Numeric, 1)
	b := predicate.List(8, col(3), predicate.Numeric, 2)
	and := predicate.NewAnd(8, a, b)
	require.Equal(t, []int{0, 3}, and.ConstrainedColumns().Bits())
}

func TestCompoundHashOrderIndependent(t *testing.T) {
	a := predicate.List(8, col(0), predicate.Numeric, 1)
	b := predicate.List(8, col(1), predicate.Numeric, 2)
	h1 := predicate.NewAnd(8, a, b).Hash()
	h2 := predicate.NewAnd(8, b, a).Hash()
	require.Equal(t, h1, h2)
}

func TestTupleAndCompoundMemberSet(t *testing.T) {
	tuple1 := predicate.NewTuple(8, predicate.MemberEquality{Column: col(0), Datatype: predicate.String, MemberSQL: "c0 = 'a'"})
	tuple2 := predicate.NewTuple(8, predicate.MemberEquality{Column: col(0), Datatype: predicate.String, MemberSQL: "c0 = 'b'"})
	set := predicate.NewCompoundMemberSet(8, tuple1, tuple2)

	var buf strings.Builder
	ok, err := set.ToSQL(fakeCtx{}, &buf)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "(c0 = 'a' OR c0 = 'b')", buf.String())
}

func TestEqualPredicateCompoundModuloChildOrder(t *testing.T) {
	a := predicate.List(8, col(0), predicate.Numeric, 1)
	b := predicate.List(8, col(1), predicate.Numeric, 2)
	p1 := predicate.NewAnd(8, a, b)
	p2 := predicate.NewAnd(8, b, a)
	require.True(t, p1.EqualPredicate(p2))
}
