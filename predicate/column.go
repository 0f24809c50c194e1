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

// Package predicate implements the column and compound predicate algebra:
// typed constraints over a single star column, and boolean combinations of
// those constraints across columns, with the set-algebraic operations the
// cache manager and SQL builder need (intersect, minus, SQL rendering).
package predicate

import (
	"sort"

	"github.com/mitchellh/hashstructure"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/bitkey"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
)

// ColumnRef identifies a star column by bit position, never by a shared
// pointer back to the owning star or column. Predicates resolve a
// ColumnRef against a *star.Star explicitly at SQL-generation time.
type ColumnRef struct {
	StarID uint32
	BitPos int
}

// Kind discriminates the ColumnPredicate variants of spec.md's single
// tagged union, replacing the source's AbstractColumnPredicate /
// ListPredicate / MinusStarPredicate class hierarchy.
type Kind int

const (
	KindTrue Kind = iota
	KindFalse
	KindValue
	KindList
	KindRange
	KindMinus
	KindMemberColumn
)

// Bound is one side of a Range predicate.
type Bound struct {
	Value     Value
	Strict    bool // exclusive when true
	Unbounded bool
}

// ColumnPredicate is a constraint over a single star column.
type ColumnPredicate struct {
	Kind     Kind
	Column   ColumnRef
	Width    int
	Datatype Datatype

	// KindValue
	value Value

	// KindList: sorted, deduplicated, may include one nil for NULL.
	values []Value

	// KindRange
	lower Bound
	upper Bound

	// KindMinus
	base *ColumnPredicate
	sub  *ColumnPredicate

	// KindMemberColumn: the SQL projection of a hierarchy member's key,
	// provided verbatim by the (out of scope) member/hierarchy layer.
	memberSQL string
}

func newBase(width int, col ColumnRef, dt Datatype, kind Kind) *ColumnPredicate {
	return &ColumnPredicate{Kind: kind, Column: col, Width: width, Datatype: dt}
}

// True returns the literal-true predicate: every value matches.
func True(width int, col ColumnRef, dt Datatype) *ColumnPredicate {
	return newBase(width, col, dt, KindTrue)
}

// False returns the literal-false predicate: no value matches.
func False(width int, col ColumnRef, dt Datatype) *ColumnPredicate {
	return newBase(width, col, dt, KindFalse)
}

// EqualValue returns a predicate matching exactly one value (possibly nil
// for NULL).
func EqualValue(width int, col ColumnRef, dt Datatype, v Value) *ColumnPredicate {
	p := newBase(width, col, dt, KindValue)
	p.value = v
	return p
}

// List returns a predicate matching the union of the given values. An
// empty list is equivalent to False.
func List(width int, col ColumnRef, dt Datatype, values ...Value) *ColumnPredicate {
	if len(values) == 0 {
		return False(width, col, dt)
	}
	p := newBase(width, col, dt, KindList)
	cp := make([]Value, len(values))
	copy(cp, values)
	p.values = dedupeValues(dt, cp)
	if len(p.values) == 1 {
		return EqualValue(width, col, dt, p.values[0])
	}
	return p
}

// RangeBetween returns a predicate matching values between lower and
// upper, each bound strict or non-strict, either of which may be
// Unbounded.
func RangeBetween(width int, col ColumnRef, dt Datatype, lower, upper Bound) *ColumnPredicate {
	p := newBase(width, col, dt, KindRange)
	p.lower = lower
	p.upper = upper
	return p
}

// NewMinus returns the set-difference predicate base MINUS sub, used when
// neither side reduces to a simpler representation. Evaluate(v) ==
// base.Evaluate(v) && !sub.Evaluate(v).
func NewMinus(base, sub *ColumnPredicate) *ColumnPredicate {
	p := newBase(base.Width, base.Column, base.Datatype, KindMinus)
	p.base = base
	p.sub = sub
	return p
}

// MemberColumn returns a predicate whose SQL rendering is the given
// expression verbatim: the projection of a hierarchy member's key,
// supplied by the member/hierarchy layer. It has no evaluable or
// enumerable value set; it exists only to be rendered.
func MemberColumn(width int, col ColumnRef, dt Datatype, sql string) *ColumnPredicate {
	p := newBase(width, col, dt, KindMemberColumn)
	p.memberSQL = sql
	return p
}

// ConstrainedColumn returns the single-bit BitKey naming the column this
// predicate constrains.
func (p *ColumnPredicate) ConstrainedColumn() bitkey.Key {
	return bitkey.Of(p.Width, p.Column.BitPos)
}

// ConstrainedColumns implements Predicate.
func (p *ColumnPredicate) ConstrainedColumns() bitkey.Key {
	return p.ConstrainedColumn()
}

// Evaluate is total for singletons; for ranges it compares using Compare,
// which sorts NULL low.
func (p *ColumnPredicate) Evaluate(v Value) bool {
	switch p.Kind {
	case KindTrue:
		return true
	case KindFalse:
		return false
	case KindValue:
		return Equal(p.Datatype, p.value, v)
	case KindList:
		for _, cand := range p.values {
			if Equal(p.Datatype, cand, v) {
				return true
			}
		}
		return false
	case KindRange:
		if !p.lower.Unbounded {
			c := Compare(p.Datatype, v, p.lower.Value)
			if c < 0 || (c == 0 && p.lower.Strict) {
				return false
			}
		}
		if !p.upper.Unbounded {
			c := Compare(p.Datatype, v, p.upper.Value)
			if c > 0 || (c == 0 && p.upper.Strict) {
				return false
			}
		}
		return true
	case KindMinus:
		return p.base.Evaluate(v) && !p.sub.Evaluate(v)
	case KindMemberColumn:
		// No evaluable value set: a member-column predicate names a SQL
		// projection, not an in-process value set.
		return false
	}
	return false
}

// Enumerate returns the finite value set this predicate matches, and
// false if the value set is not finite (True, Range, Minus, MemberColumn).
func (p *ColumnPredicate) Enumerate() ([]Value, bool) {
	switch p.Kind {
	case KindFalse:
		return nil, true
	case KindValue:
		return []Value{p.value}, true
	case KindList:
		out := make([]Value, len(p.values))
		copy(out, p.values)
		return out, true
	default:
		return nil, false
	}
}

// Overlap is the result of Intersect: the portion of other matched by p,
// the unmatched residual, and the fraction of p's enumerable children
// that matched.
type Overlap struct {
	Matched     *ColumnPredicate
	Remaining   *ColumnPredicate
	Selectivity float64
}

// Intersect computes how p and other overlap, used to decide whether a
// requested region falls inside an existing segment's axis. Any Intersect
// touching a Minus predicate is ConstraintNotSupported: the planner falls
// back to fetching.
func (p *ColumnPredicate) Intersect(other *ColumnPredicate) (Overlap, error) {
	if p.Kind == KindMinus || other.Kind == KindMinus {
		return Overlap{}, rolaperr.ConstraintNotSupported.New("intersect over minus predicate")
	}

	if p.Kind == KindFalse || other.Kind == KindFalse {
		return Overlap{Matched: False(p.Width, p.Column, p.Datatype), Remaining: p.cloneSelf(), Selectivity: 0}, nil
	}
	if other.Kind == KindTrue {
		return Overlap{Matched: p.cloneSelf(), Remaining: False(p.Width, p.Column, p.Datatype), Selectivity: 1}, nil
	}
	if p.Kind == KindTrue {
		return Overlap{Matched: other.cloneSelf(), Remaining: True(p.Width, p.Column, p.Datatype), Selectivity: 1}, nil
	}

	values, finite := p.Enumerate()
	if !finite {
		// Range/MemberColumn on the left: fall back to membership test
		// against other's enumerable values, if any.
		if ov, ok := other.Enumerate(); ok {
			var matched []Value
			for _, v := range ov {
				if p.Evaluate(v) {
					matched = append(matched, v)
				}
			}
			sel := 0.0
			if len(ov) > 0 {
				sel = float64(len(matched)) / float64(len(ov))
			}
			return Overlap{
				Matched:     List(p.Width, p.Column, p.Datatype, matched...),
				Remaining:   NewMinus(other.cloneSelf(), List(p.Width, p.Column, p.Datatype, matched...)),
				Selectivity: sel,
			}, nil
		}
		return Overlap{}, rolaperr.ConstraintNotSupported.New("intersect of two non-enumerable predicates")
	}

	var matched, remaining []Value
	for _, v := range values {
		if other.Evaluate(v) {
			matched = append(matched, v)
		} else {
			remaining = append(remaining, v)
		}
	}
	sel := 0.0
	if len(values) > 0 {
		sel = float64(len(matched)) / float64(len(values))
	}
	return Overlap{
		Matched:     List(p.Width, p.Column, p.Datatype, matched...),
		Remaining:   List(p.Width, p.Column, p.Datatype, remaining...),
		Selectivity: sel,
	}, nil
}

// MightIntersect is a cheap, possibly-conservative check: true unless it
// can prove disjointness.
func (p *ColumnPredicate) MightIntersect(other *ColumnPredicate) bool {
	if p.Kind == KindFalse || other.Kind == KindFalse {
		return false
	}
	if p.Kind == KindTrue || other.Kind == KindTrue {
		return true
	}
	ov, err := p.Intersect(other)
	if err != nil {
		// Can't prove disjointness: assume overlap, consistent with the
		// "fall back to fetching" stance on unsupported constraints.
		return true
	}
	return ov.Selectivity > 0
}

// Minus returns p with every value other evaluates true for removed. If
// other is literal-true, Minus is literal-false; if other is
// literal-false, Minus returns p unchanged. When
// neither side reduces to a concrete list, a Minus predicate node is
// returned instead.
func (p *ColumnPredicate) Minus(other *ColumnPredicate) *ColumnPredicate {
	if other.Kind == KindTrue {
		return False(p.Width, p.Column, p.Datatype)
	}
	if other.Kind == KindFalse {
		return p.cloneSelf()
	}
	if p.Kind == KindTrue {
		// The complement of an enumerable "other" over an infinite
		// universe cannot be represented as a finite list: emit a Minus
		// node.
		return NewMinus(p.cloneSelf(), other.cloneSelf())
	}

	values, finite := p.Enumerate()
	if !finite {
		return NewMinus(p.cloneSelf(), other.cloneSelf())
	}
	var kept []Value
	for _, v := range values {
		if !other.Evaluate(v) {
			kept = append(kept, v)
		}
	}
	return List(p.Width, p.Column, p.Datatype, kept...)
}

// OrColumn returns the union of p and other over the same column,
// simplified to a single ColumnPredicate, and true, when that is
// possible (either side literal, or both sides enumerable). When neither
// side reduces, ok is false and the caller (the compound-predicate
// builder) wraps both sides in a CompoundPredicate OR node instead,
// since the column-predicate Kind enum has no native "union of two
// infinite sets" representation.
func (p *ColumnPredicate) OrColumn(other *ColumnPredicate) (result *ColumnPredicate, ok bool) {
	if p.Kind == KindTrue || other.Kind == KindTrue {
		return True(p.Width, p.Column, p.Datatype), true
	}
	if p.Kind == KindFalse {
		return other.cloneSelf(), true
	}
	if other.Kind == KindFalse {
		return p.cloneSelf(), true
	}
	pv, pok := p.Enumerate()
	ov, ook := other.Enumerate()
	if pok && ook {
		return List(p.Width, p.Column, p.Datatype, append(append([]Value{}, pv...), ov...)...), true
	}
	return nil, false
}

// CloneWithColumn returns a copy of p constrained to a different column,
// used when the same predicate shape is reapplied to a different star
// (e.g. after rollup picks a different AggStar's column for the same
// logical dimension).
func (p *ColumnPredicate) CloneWithColumn(col ColumnRef) *ColumnPredicate {
	cp := *p
	cp.Column = col
	return &cp
}

func (p *ColumnPredicate) cloneSelf() *ColumnPredicate {
	cp := *p
	return &cp
}

// EqualConstraint reports structural equality modulo child order for
// List predicates.
func (p *ColumnPredicate) EqualConstraint(other *ColumnPredicate) bool {
	if other == nil || p.Kind != other.Kind || p.Column != other.Column || p.Datatype != other.Datatype {
		return false
	}
	switch p.Kind {
	case KindTrue, KindFalse:
		return true
	case KindValue:
		return Equal(p.Datatype, p.value, other.value)
	case KindList:
		if len(p.values) != len(other.values) {
			return false
		}
		// both sides are kept sorted by List(), so order already lines up.
		for i := range p.values {
			if !Equal(p.Datatype, p.values[i], other.values[i]) {
				return false
			}
		}
		return true
	case KindRange:
		return p.lower == other.lower && p.upper == other.upper
	case KindMinus:
		return p.base.EqualConstraint(other.base) && p.sub.EqualConstraint(other.sub)
	case KindMemberColumn:
		return p.memberSQL == other.memberSQL
	}
	return false
}

// Hash returns a stable hash over the predicate's structure, used by
// aggregation keys and segment headers. Two predicates that EqualConstraint
// always hash equal.
func (p *ColumnPredicate) Hash() uint64 {
	type canon struct {
		Kind     Kind
		Col      ColumnRef
		Datatype Datatype
		Value    Value
		Values   []Value
		Lower    Bound
		Upper    Bound
		BaseHash uint64
		SubHash  uint64
		Member   string
	}
	c := canon{Kind: p.Kind, Col: p.Column, Datatype: p.Datatype, Value: p.value, Lower: p.lower, Upper: p.upper, Member: p.memberSQL}
	if p.values != nil {
		c.Values = append([]Value{}, p.values...)
	}
	if p.base != nil {
		c.BaseHash = p.base.Hash()
	}
	if p.sub != nil {
		c.SubHash = p.sub.Hash()
	}
	h, err := hashstructure.Hash(c, nil)
	if err != nil {
		// hashstructure only fails on unsupported types (channels, funcs);
		// none of which ever appear in a canon value. A failure here is a
		// programmer error.
		panic(rolaperr.Internal.New("predicate hash: " + err.Error()))
	}
	return h
}

// sortedValues returns p's values sorted by Compare, used by ToSQL for
// deterministic emission order.
func (p *ColumnPredicate) sortedValues() []Value {
	out := append([]Value{}, p.values...)
	sort.SliceStable(out, func(i, j int) bool {
		return Compare(p.Datatype, out[i], out[j]) < 0
	})
	return out
}
