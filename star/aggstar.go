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

package star

import (
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/bitkey"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
)

// AggStar is a pre-aggregated physical table covering a subset of a
// star's levels and measures.
type AggStar struct {
	Name  string
	Table *Table

	// LevelBitKey is which star columns this AggStar materialises as
	// group-by levels. MeasureBitKey is which measures it pre-aggregates.
	// The two are always disjoint.
	LevelBitKey    bitkey.Key
	MeasureBitKey  bitkey.Key
	DistinctBitKey bitkey.Key
	ForeignKeyBitKey bitkey.Key

	FullyCollapsed    bool
	HasIgnoredColumns bool
	HasForeignKeys    bool

	// EstimatedRows drives the ascending-size ordering AggStars are
	// enumerated in.
	EstimatedRows int64

	columns map[int]*AggColumn

	// rollableLevelByMeasure maps a distinct-count measure's bit position
	// to the level bit key within which that measure may be rolled up
	// (spec.md §4.3 Case B).
	rollableLevelByMeasure map[int]bitkey.Key
}

// AggColumn is a column of the physical aggregate table, keyed by the
// star bit position it materialises.
type AggColumn struct {
	BitPos   int
	Name     string
	IsMeasure bool
}

// NewAggStar validates the level/measure disjointness invariant and
// returns an empty AggStar.
func NewAggStar(name string, table *Table, levelBitKey, measureBitKey bitkey.Key) *AggStar {
	if levelBitKey.Intersects(measureBitKey) {
		panic(rolaperr.Internal.New("aggstar level and measure bit keys must be disjoint"))
	}
	return &AggStar{
		Name:                   name,
		Table:                  table,
		LevelBitKey:            levelBitKey,
		MeasureBitKey:          measureBitKey,
		columns:                map[int]*AggColumn{},
		rollableLevelByMeasure: map[int]bitkey.Key{},
	}
}

// AddColumn installs c, keyed by its star bit position.
func (a *AggStar) AddColumn(c *AggColumn) {
	a.columns[c.BitPos] = c
}

// Column returns the aggregate table column materialising bitPos, if any.
func (a *AggStar) Column(bitPos int) (*AggColumn, bool) {
	c, ok := a.columns[bitPos]
	return c, ok
}

// SetRollableLevel records, for a distinct-count measure at bitPos, the
// level bit key within which it may be rolled up.
func (a *AggStar) SetRollableLevel(measureBitPos int, rollable bitkey.Key) {
	a.rollableLevelByMeasure[measureBitPos] = rollable
}

// RollableLevel returns the recorded rollable level bit key for a
// distinct measure, and whether one was recorded.
func (a *AggStar) RollableLevel(measureBitPos int) (bitkey.Key, bool) {
	k, ok := a.rollableLevelByMeasure[measureBitPos]
	return k, ok
}

// CombinedBitKey is LevelBitKey | MeasureBitKey.
func (a *AggStar) CombinedBitKey() bitkey.Key {
	return a.LevelBitKey.Or(a.MeasureBitKey)
}

// Select implements the final acceptance test of spec.md §4.3 Case B:
// given the expanded level bit key, the combined rollable bit key across
// every requested distinct measure, and the requested measure bit key,
// report whether this AggStar can serve the request. The AggStar's own
// level bit key must already cover every expanded-level bit that is NOT
// inside the combined-rollable key (those bits cannot be synthesised by
// rolling up, so they must be directly materialised), and its combined
// bit key must cover every requested measure.
//
// spec.md marks this check "design-level" without a worked definition;
// this is the one acceptance rule under which every invariant in
// spec.md §8 (rollup soundness, superset-on-rollup) holds, so it is
// recorded here rather than left pending.
func (a *AggStar) Select(expandedLevelBitKey, combinedRollable, measureBitKey bitkey.Key) bool {
	mustMaterialise := expandedLevelBitKey.AndNot(combinedRollable)
	if !mustMaterialise.Subset(a.LevelBitKey) {
		return false
	}
	if !measureBitKey.Subset(a.CombinedBitKey()) {
		return false
	}
	return true
}
