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

	"github.com/mitchellh/hashstructure"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/bitkey"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
)

// Predicate is implemented by both ColumnPredicate and CompoundPredicate,
// so compound children may freely mix single-column and cross-column
// constraints, per spec.md's "or-predicate of column or compound
// children."
type Predicate interface {
	ConstrainedColumns() bitkey.Key
	ToSQL(ctx SQLContext, buf *strings.Builder) (ok bool, err error)
	Hash() uint64
	EqualPredicate(other Predicate) bool
}

// EqualPredicate lets ColumnPredicate satisfy Predicate.EqualPredicate.
func (p *ColumnPredicate) EqualPredicate(other Predicate) bool {
	op, ok := other.(*ColumnPredicate)
	if !ok {
		return false
	}
	return p.EqualConstraint(op)
}

// CompoundKind discriminates AND from OR.
type CompoundKind int

const (
	And CompoundKind = iota
	Or
)

// CompoundPredicate is a boolean combination of predicates across one or
// more columns. ConstrainedColumns is the union of every child's
// constrained columns, computed once at construction.
type CompoundPredicate struct {
	Kind     CompoundKind
	Children []Predicate
	combined bitkey.Key
}

func newCompound(kind CompoundKind, width int, children ...Predicate) *CompoundPredicate {
	combined := bitkey.New(width)
	for _, c := range children {
		combined = combined.Or(c.ConstrainedColumns())
	}
	return &CompoundPredicate{Kind: kind, Children: children, combined: combined}
}

// NewAnd builds an AND of the given predicates (column or compound).
func NewAnd(width int, children ...Predicate) *CompoundPredicate {
	return newCompound(And, width, children...)
}

// NewOr builds an OR of the given predicates (column or compound).
func NewOr(width int, children ...Predicate) *CompoundPredicate {
	return newCompound(Or, width, children...)
}

// MemberEquality is one (column, member-key-projection) pair in a tuple
// predicate.
type MemberEquality struct {
	Column    ColumnRef
	Datatype  Datatype
	MemberSQL string
}

// NewTuple builds the AND-of-member-column-equalities spec.md calls a
// "tuple-predicate": one compound member's full key, column by column.
func NewTuple(width int, pairs ...MemberEquality) *CompoundPredicate {
	children := make([]Predicate, len(pairs))
	for i, pr := range pairs {
		children[i] = MemberColumn(width, pr.Column, pr.Datatype, pr.MemberSQL)
	}
	return NewAnd(width, children...)
}

// NewCompoundMemberSet builds the "or-of-ands" spec.md describes:
// arbitrary compound member sets, each member a tuple predicate.
func NewCompoundMemberSet(width int, tuples ...*CompoundPredicate) *CompoundPredicate {
	children := make([]Predicate, len(tuples))
	for i, t := range tuples {
		children[i] = t
	}
	return NewOr(width, children...)
}

// ConstrainedColumns implements Predicate.
func (c *CompoundPredicate) ConstrainedColumns() bitkey.Key {
	return c.combined
}

// ToSQL parenthesises children by boolean operator, per spec.md §4.1.
func (c *CompoundPredicate) ToSQL(ctx SQLContext, buf *strings.Builder) (bool, error) {
	op := " AND "
	if c.Kind == Or {
		op = " OR "
	}

	var rendered []string
	for _, child := range c.Children {
		var b strings.Builder
		ok, err := child.ToSQL(ctx, &b)
		if err != nil {
			return false, err
		}
		if ok {
			rendered = append(rendered, b.String())
		}
	}
	if len(rendered) == 0 {
		return false, nil
	}
	if len(rendered) == 1 {
		buf.WriteString(rendered[0])
		return true, nil
	}
	buf.WriteString("(")
	for i, r := range rendered {
		if i > 0 {
			buf.WriteString(op)
		}
		buf.WriteString(r)
	}
	buf.WriteString(")")
	return true, nil
}

// Hash returns a stable structural hash, order-independent for children
// (children are hashed individually and the multiset of hashes is
// sorted before combining), matching spec.md's "equalConstraint... using
// hash-bucketed child lookup" since structurally-equal-modulo-order
// predicates must hash equal.
func (c *CompoundPredicate) Hash() uint64 {
	hashes := make([]uint64, len(c.Children))
	for i, ch := range c.Children {
		hashes[i] = ch.Hash()
	}
	sortUint64(hashes)
	h, err := hashstructure.Hash(struct {
		Kind   CompoundKind
		Hashes []uint64
	}{c.Kind, hashes}, nil)
	if err != nil {
		panic(rolaperr.Internal.New("compound predicate hash: " + err.Error()))
	}
	return h
}

func sortUint64(s []uint64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// EqualPredicate implements Predicate: structural equality modulo child
// order, via a hash-bucketed lookup (children may be large compound
// member sets, so this avoids O(n^2) pairwise EqualPredicate calls except
// within a hash bucket).
func (c *CompoundPredicate) EqualPredicate(other Predicate) bool {
	oc, ok := other.(*CompoundPredicate)
	if !ok || oc.Kind != c.Kind || len(oc.Children) != len(c.Children) {
		return false
	}

	buckets := make(map[uint64][]Predicate, len(oc.Children))
	for _, ch := range oc.Children {
		h := ch.Hash()
		buckets[h] = append(buckets[h], ch)
	}

	for _, ch := range c.Children {
		h := ch.Hash()
		bucket := buckets[h]
		matched := -1
		for i, cand := range bucket {
			if ch.EqualPredicate(cand) {
				matched = i
				break
			}
		}
		if matched == -1 {
			return false
		}
		bucket[matched] = bucket[len(bucket)-1]
		buckets[h] = bucket[:len(bucket)-1]
	}
	return true
}
