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

// Package star models the physical join-graph descriptor behind a cube:
// the fact table, its dimension tables, the star columns (identified by
// bit position), and the candidate pre-aggregated tables ("AggStars")
// that may serve a request instead of the fact table.
package star

import (
	"sort"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/bitkey"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
)

// Table is a physical SQL table or view participating in the star's join
// graph: the fact table, a dimension table, or an aggregate table.
type Table struct {
	Name  string
	Alias string
}

// QueryContext is the minimal context a Column's expression generator
// needs: which table alias is in scope for this query. It is
// intentionally tiny; sqlgen.Builder implements it.
type QueryContext interface {
	TableAlias(t *Table) string
}

// ExprFn renders a column's SQL expression (a bare column reference or a
// computed expression) given the query it's being rendered into.
type ExprFn func(ctx QueryContext) string

// Column is a single star column, identified by its bit position. Created
// once when the star is introspected; immutable thereafter. Columns hold
// only a (starID, bitPos) back-reference, never a pointer to the owning
// Star, so predicates built against a Column never create ownership
// cycles (spec.md §9).
type Column struct {
	StarID   uint32
	BitPos   int
	Name     string
	Datatype predicate.Datatype
	Nullable bool
	Table    *Table
	Expr     ExprFn

	// ParentBitPos is the bit position of this column's parent in a
	// parent-child or "expanded level" hierarchy, or -1 if none. Callers
	// must set -1 explicitly: the Go zero value 0 is a valid bit
	// position, so it cannot double as "no parent".
	ParentBitPos int
}

// Ref returns the predicate.ColumnRef identifying this column.
func (c *Column) Ref() predicate.ColumnRef {
	return predicate.ColumnRef{StarID: c.StarID, BitPos: c.BitPos}
}

// Star owns a fact table and an ordered list of candidate AggStars.
type Star struct {
	ID      uint32
	Fact    *Table
	Width   int
	columns []*Column // indexed by BitPos
	// AggStars is kept sorted ascending by EstimatedRows; AddAggStar
	// maintains the invariant so the matcher can stop at the first hit.
	AggStars []*AggStar
}

// New creates an empty star of the given column width.
func New(id uint32, fact *Table, width int) *Star {
	return &Star{ID: id, Fact: fact, Width: width, columns: make([]*Column, width)}
}

// AddColumn installs c at its BitPos. Panics (Internal) if the position
// is out of range or already occupied, since star introspection runs
// once and a collision always indicates a caller bug.
func (s *Star) AddColumn(c *Column) {
	if c.BitPos < 0 || c.BitPos >= s.Width {
		panic(rolaperr.Internal.New("column bit position out of range"))
	}
	if s.columns[c.BitPos] != nil {
		panic(rolaperr.Internal.New("column bit position already occupied"))
	}
	c.StarID = s.ID
	s.columns[c.BitPos] = c
}

// Column returns the column at bitPos, or nil if unset.
func (s *Star) Column(bitPos int) *Column {
	if bitPos < 0 || bitPos >= len(s.columns) {
		return nil
	}
	return s.columns[bitPos]
}

// ExpandLevelBitKey walks every column in levelBitKey up its
// ParentColumn chain to the root, setting each ancestor's bit, per
// spec.md §4.3.
func (s *Star) ExpandLevelBitKey(levelBitKey bitkey.Key) bitkey.Key {
	expanded := levelBitKey
	for pos, ok := levelBitKey.NextSetBit(0); ok; pos, ok = levelBitKey.NextSetBit(pos + 1) {
		cur := s.Column(pos)
		for cur != nil && cur.ParentBitPos >= 0 {
			expanded = expanded.Set(cur.ParentBitPos)
			cur = s.Column(cur.ParentBitPos)
		}
	}
	return expanded
}

// AddAggStar inserts agg, keeping AggStars sorted ascending by
// EstimatedRows.
func (s *Star) AddAggStar(agg *AggStar) {
	i := sort.Search(len(s.AggStars), func(i int) bool {
		return s.AggStars[i].EstimatedRows >= agg.EstimatedRows
	})
	s.AggStars = append(s.AggStars, nil)
	copy(s.AggStars[i+1:], s.AggStars[i:])
	s.AggStars[i] = agg
}
