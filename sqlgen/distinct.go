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

package sqlgen

import (
	"fmt"
	"strings"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/dialect"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
)

// buildDistinct implements the distinct-count rewrite (spec.md §4.4): an
// inner query de-duplicates (dimension, measure-input) tuples, and an
// outer query re-aggregates over the already-distinct rows using each
// measure's NonDistinctEquivalent. Used whenever the dialect cannot
// express the requested COUNT(DISTINCT ...) shape directly.
func (b *Builder) buildDistinct(spec *Spec) (string, []ColumnType, error) {
	if !b.Caps.AllowsFromQuery {
		return "", nil, rolaperr.DialectCapabilityMismatch.New("dialect does not allow a query in FROM for the distinct rewrite")
	}

	where, err := b.whereFragments(spec)
	if err != nil {
		return "", nil, err
	}

	dimAliases := make([]string, len(spec.Columns))
	dimExprs := make([]string, len(spec.Columns))
	var innerSelects []string
	var types []ColumnType
	for i, bitPos := range spec.Columns {
		col := b.cur.Column(bitPos)
		if col == nil {
			return "", nil, rolaperr.Internal.New(fmt.Sprintf("unknown column bit %d", bitPos))
		}
		expr := b.columnExpr(col)
		alias := fmt.Sprintf("d%d", i)
		dimAliases[i] = alias
		dimExprs[i] = expr
		innerSelects = append(innerSelects, fmt.Sprintf("%s AS %s", expr, alias))
		types = append(types, ColumnType{Alias: fmt.Sprintf("c%d", i), Datatype: col.Datatype})
	}

	measureAliases := make([]string, len(spec.Measures))
	measureExprs := make([]string, len(spec.Measures))
	for i, m := range spec.Measures {
		if m.Aggregator == CountDistinct && m.NonDistinctEquivalent == CountDistinct {
			return "", nil, rolaperr.Internal.New("CountDistinct measure missing NonDistinctEquivalent")
		}
		expr := b.columnExpr(m.Column)
		alias := fmt.Sprintf("m%d", i)
		measureAliases[i] = alias
		measureExprs[i] = expr
		innerSelects = append(innerSelects, fmt.Sprintf("%s AS %s", expr, alias))
		types = append(types, ColumnType{Alias: alias, Datatype: predicate.Numeric})
	}

	var inner strings.Builder
	inner.WriteString("SELECT ")
	if b.Caps.AllowsInnerDistinct {
		inner.WriteString("DISTINCT ")
	}
	inner.WriteString(strings.Join(innerSelects, ", "))
	inner.WriteString(" FROM ")
	inner.WriteString(b.fromClause())
	if len(where) > 0 {
		inner.WriteString(" WHERE ")
		inner.WriteString(strings.Join(where, " AND "))
	}
	if !b.Caps.AllowsInnerDistinct {
		inner.WriteString(" GROUP BY ")
		inner.WriteString(strings.Join(append(dimExprs, measureExprs...), ", "))
	}

	outerSelects := make([]string, 0, len(dimAliases)+len(measureAliases))
	for i, alias := range dimAliases {
		outerSelects = append(outerSelects, fmt.Sprintf("%s AS c%d", alias, i))
	}
	for i, m := range spec.Measures {
		agg := m.Aggregator
		if agg == CountDistinct {
			agg = m.NonDistinctEquivalent
		}
		outerSelects = append(outerSelects, fmt.Sprintf("%s AS %s", agg.Render(b.Caps, measureAliases[i]), measureAliases[i]))
	}

	subAlias := b.Caps.GroupingAlias(dialect.DummyAlias)
	var outer strings.Builder
	outer.WriteString("SELECT ")
	outer.WriteString(strings.Join(outerSelects, ", "))
	outer.WriteString(" FROM (")
	outer.WriteString(inner.String())
	outer.WriteString(") AS ")
	outer.WriteString(subAlias)
	if len(dimAliases) > 0 {
		outer.WriteString(" GROUP BY ")
		outer.WriteString(strings.Join(dimAliases, ", "))
	}
	if spec.OrderBy && len(dimAliases) > 0 {
		outer.WriteString(" ORDER BY ")
		outer.WriteString(strings.Join(dimAliases, ", "))
	}

	return outer.String(), types, nil
}
