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
	"sort"
	"strings"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/dialect"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/star"
)

// Builder assembles SQL text for a single Spec at a time. It is not
// safe for concurrent use; callers create one per query (or reuse one
// sequentially, since Build resets builder state).
type Builder struct {
	Caps dialect.Capabilities

	cur      *star.Star
	aliasOf  map[*star.Table]string
	ordered  []*star.Table
	tblCount int
}

// NewBuilder returns a Builder for the given dialect capabilities.
func NewBuilder(caps dialect.Capabilities) *Builder {
	return &Builder{Caps: caps}
}

func (b *Builder) reset(s *star.Star) {
	b.cur = s
	b.aliasOf = map[*star.Table]string{}
	b.ordered = nil
	b.tblCount = 0
}

// TableAlias implements star.QueryContext.
func (b *Builder) TableAlias(t *star.Table) string {
	if a, ok := b.aliasOf[t]; ok {
		return a
	}
	alias := t.Alias
	if alias == "" {
		alias = fmt.Sprintf("t%d", b.tblCount)
	}
	b.tblCount++
	b.aliasOf[t] = alias
	b.ordered = append(b.ordered, t)
	return alias
}

// ColumnExpr implements predicate.SQLContext: resolves a ColumnRef
// against the star currently being built and renders its SQL expression,
// registering its table in the FROM list as a side effect.
func (b *Builder) ColumnExpr(ref predicate.ColumnRef) string {
	col := b.cur.Column(ref.BitPos)
	if col == nil {
		panic(rolaperr.Internal.New(fmt.Sprintf("unknown column bit %d", ref.BitPos)))
	}
	return b.columnExpr(col)
}

func (b *Builder) columnExpr(col *star.Column) string {
	b.TableAlias(col.Table)
	if col.Expr != nil {
		return col.Expr(b)
	}
	return fmt.Sprintf("%s.%s", b.TableAlias(col.Table), col.Name)
}

// Quote implements predicate.SQLContext.
func (b *Builder) Quote(dt predicate.Datatype, v predicate.Value) string {
	return b.Caps.Quote(dt, v)
}

// Build renders spec to SQL text and the column-type metadata for its
// SELECT list, choosing the distinct rewrite automatically when any
// measure needs a count-distinct the dialect cannot express directly.
func (b *Builder) Build(spec *Spec) (string, []ColumnType, error) {
	b.reset(spec.Star)

	needsRewrite, err := b.needsDistinctRewrite(spec)
	if err != nil {
		return "", nil, err
	}
	if needsRewrite {
		if len(spec.GroupingSets) > 0 {
			return "", nil, rolaperr.DialectCapabilityMismatch.New("distinct rewrite combined with grouping sets")
		}
		return b.buildDistinct(spec)
	}
	return b.buildDirect(spec)
}

func (b *Builder) needsDistinctRewrite(spec *Spec) (bool, error) {
	distinctCount := 0
	for _, m := range spec.Measures {
		if m.Aggregator == CountDistinct {
			distinctCount++
		}
	}
	if distinctCount == 0 {
		return false, nil
	}
	if distinctCount > 1 && !b.Caps.AllowsMultipleCountDistinct {
		return true, nil
	}
	if !b.Caps.AllowsCountDistinct {
		return true, nil
	}
	return false, nil
}

func sortedKeys(m map[int]*predicate.ColumnPredicate) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// whereFragments renders every column predicate and extra predicate into
// WHERE fragments, registering referenced tables into FROM as a side
// effect of ColumnExpr.
func (b *Builder) whereFragments(spec *Spec) ([]string, error) {
	var parts []string
	for _, bitPos := range sortedKeys(spec.ColumnPredicates) {
		p := spec.ColumnPredicates[bitPos]
		var buf strings.Builder
		ok, err := p.ToSQL(b, &buf)
		if err != nil {
			return nil, err
		}
		if ok {
			parts = append(parts, buf.String())
		}
	}
	for _, ep := range spec.ExtraPredicates {
		var buf strings.Builder
		ok, err := ep.ToSQL(b, &buf)
		if err != nil {
			return nil, err
		}
		if ok {
			parts = append(parts, buf.String())
		}
	}
	return parts, nil
}

func (b *Builder) fromClause() string {
	parts := make([]string, len(b.ordered))
	for i, t := range b.ordered {
		alias := b.aliasOf[t]
		if alias == t.Name {
			parts[i] = t.Name
		} else {
			parts[i] = fmt.Sprintf("%s AS %s", t.Name, alias)
		}
	}
	return strings.Join(parts, ", ")
}

// Aggregator.Render renders a.Render(expr) the way the dialect's count
// expression generator and plain SQL aggregate keywords combine.
func (a Aggregator) Render(caps dialect.Capabilities, expr string) string {
	switch a {
	case Sum:
		return "SUM(" + expr + ")"
	case Min:
		return "MIN(" + expr + ")"
	case Max:
		return "MAX(" + expr + ")"
	case Count:
		return caps.GenerateCountExpression(expr)
	case CountDistinct:
		return "COUNT(DISTINCT " + expr + ")"
	case Avg:
		return "AVG(" + expr + ")"
	}
	panic(rolaperr.Internal.New("unknown aggregator"))
}

func (b *Builder) buildDirect(spec *Spec) (string, []ColumnType, error) {
	where, err := b.whereFragments(spec)
	if err != nil {
		return "", nil, err
	}

	var selects []string
	var groupBy []string
	var types []ColumnType
	for i, bitPos := range spec.Columns {
		col := b.cur.Column(bitPos)
		if col == nil {
			return "", nil, rolaperr.Internal.New(fmt.Sprintf("unknown column bit %d", bitPos))
		}
		expr := b.columnExpr(col)
		alias := fmt.Sprintf("c%d", i)
		selects = append(selects, fmt.Sprintf("%s AS %s", expr, alias))
		groupBy = append(groupBy, expr)
		types = append(types, ColumnType{Alias: alias, Datatype: col.Datatype})
	}

	for i, m := range spec.Measures {
		expr := b.columnExpr(m.Column)
		alias := fmt.Sprintf("m%d", i)
		selects = append(selects, fmt.Sprintf("%s AS %s", m.Aggregator.Render(b.Caps, expr), alias))
		types = append(types, ColumnType{Alias: alias, Datatype: predicate.Numeric})
	}

	groupByClause, groupingSelects, err := b.groupByClause(spec, groupBy)
	if err != nil {
		return "", nil, err
	}
	selects = append(selects, groupingSelects...)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selects, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.fromClause())
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	if groupByClause != "" {
		sb.WriteString(" ")
		sb.WriteString(groupByClause)
	}
	if spec.OrderBy && len(groupBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(groupBy, ", "))
	}
	return sb.String(), types, nil
}
