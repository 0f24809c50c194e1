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

package predicate

import (
	"strings"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
)

// SQLContext is the minimal contract predicates need from the SQL builder
// to render themselves: a column's SQL expression, and a dialect-correct
// literal quoting function. Kept as a small interface here (rather than
// importing sqlgen/dialect directly) so predicate has no dependency on the
// query-generation layer, only the reverse.
type SQLContext interface {
	ColumnExpr(ColumnRef) string
	Quote(dt Datatype, v Value) string
}

// ToSQL renders the predicate as a WHERE-clause fragment. A literal-true
// predicate renders to nothing (ok=false signals "omit this fragment"
// to the caller, per spec.md "skip if it is literal-true").
func (p *ColumnPredicate) ToSQL(ctx SQLContext, buf *strings.Builder) (ok bool, err error) {
	switch p.Kind {
	case KindTrue:
		return false, nil
	case KindFalse:
		buf.WriteString("1 = 0")
		return true, nil
	case KindMinus:
		return false, rolaperr.ConstraintNotSupported.New("minus predicate has no direct SQL rendering")
	case KindMemberColumn:
		buf.WriteString(p.memberSQL)
		return true, nil
	}

	expr := ctx.ColumnExpr(p.Column)
	if p.Datatype == Numeric {
		if err := p.validateNumeric(); err != nil {
			return false, err
		}
	}

	switch p.Kind {
	case KindValue:
		if p.value == nil {
			buf.WriteString(expr)
			buf.WriteString(" IS NULL")
			return true, nil
		}
		buf.WriteString(expr)
		buf.WriteString(" = ")
		buf.WriteString(ctx.Quote(p.Datatype, p.value))
		return true, nil
	case KindRange:
		return true, p.rangeToSQL(ctx, expr, buf)
	case KindList:
		return true, p.listToSQL(ctx, expr, buf)
	}
	return false, rolaperr.Internal.New("unknown predicate kind")
}

func (p *ColumnPredicate) validateNumeric() error {
	check := func(v Value) error {
		if v == nil {
			return nil
		}
		_, err := ParseNumeric(v)
		return err
	}
	switch p.Kind {
	case KindValue:
		return check(p.value)
	case KindList:
		for _, v := range p.values {
			if err := check(v); err != nil {
				return err
			}
		}
	case KindRange:
		if !p.lower.Unbounded {
			if err := check(p.lower.Value); err != nil {
				return err
			}
		}
		if !p.upper.Unbounded {
			if err := check(p.upper.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *ColumnPredicate) rangeToSQL(ctx SQLContext, expr string, buf *strings.Builder) error {
	var parts []string
	if !p.lower.Unbounded {
		op := ">="
		if p.lower.Strict {
			op = ">"
		}
		parts = append(parts, expr+" "+op+" "+ctx.Quote(p.Datatype, p.lower.Value))
	}
	if !p.upper.Unbounded {
		op := "<="
		if p.upper.Strict {
			op = "<"
		}
		parts = append(parts, expr+" "+op+" "+ctx.Quote(p.Datatype, p.upper.Value))
	}
	if len(parts) == 0 {
		buf.WriteString("1 = 1")
		return nil
	}
	buf.WriteString(strings.Join(parts, " AND "))
	return nil
}

// listToSQL implements spec.md's four-way rendering: all-non-null emits
// IN(...); only-null emits IS NULL; one non-null plus null collapses to
// "(expr = v OR expr IS NULL)"; multiple non-null plus null emits
// "(expr IN (...) OR expr IS NULL)". Value order is deterministic,
// sorted by Compare.
func (p *ColumnPredicate) listToSQL(ctx SQLContext, expr string, buf *strings.Builder) error {
	sorted := p.sortedValues()
	var nonNull []Value
	hasNull := false
	for _, v := range sorted {
		if v == nil {
			hasNull = true
		} else {
			nonNull = append(nonNull, v)
		}
	}

	writeIn := func() {
		buf.WriteString(expr)
		buf.WriteString(" IN (")
		for i, v := range nonNull {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(ctx.Quote(p.Datatype, v))
		}
		buf.WriteString(")")
	}

	switch {
	case !hasNull:
		writeIn()
	case len(nonNull) == 0:
		buf.WriteString(expr)
		buf.WriteString(" IS NULL")
	case len(nonNull) == 1:
		buf.WriteString("(")
		buf.WriteString(expr)
		buf.WriteString(" = ")
		buf.WriteString(ctx.Quote(p.Datatype, nonNull[0]))
		buf.WriteString(" OR ")
		buf.WriteString(expr)
		buf.WriteString(" IS NULL)")
	default:
		buf.WriteString("(")
		writeIn()
		buf.WriteString(" OR ")
		buf.WriteString(expr)
		buf.WriteString(" IS NULL)")
	}
	return nil
}
