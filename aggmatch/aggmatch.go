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

// Package aggmatch finds the smallest AggStar able to serve a request's
// level and measure bit keys, per spec.md §4.3. AggStars are enumerated
// in the star's ascending-EstimatedRows order (star.Star.AggStars is
// kept sorted by construction); the first acceptable candidate wins.
package aggmatch

import (
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/bitkey"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/star"
)

// DistinctMeasure is one of the request's distinct-count measures: its
// bit position in the star (so it can be looked up against an AggStar's
// recorded rollable level), per spec.md §4.3 Case B.
type DistinctMeasure struct {
	BitPos int
}

// Request is the input to Match: the level and measure bit keys a cell
// request (after batching) needs served, plus any distinct-count
// measures among them.
type Request struct {
	LevelBitKey     bitkey.Key
	MeasureBitKey   bitkey.Key
	DistinctMembers []DistinctMeasure

	// HasCompoundPredicates forces the fact table per spec.md §4.3:
	// "Compound predicates force the fact table."
	HasCompoundPredicates bool
}

// Result is what Match returns on a hit: the chosen AggStar, whether a
// rollup (synthesising a coarser group-by than the AggStar's native
// level) is required, and the level bit key rollup must group by: the
// request's own level bit key in Case A, its expanded form in Case B
// (only meaningful when Rollup is true).
type Result struct {
	AggStar     *star.AggStar
	Rollup      bool
	GroupByKey  bitkey.Key
}

// Match implements spec.md §4.3. ok is false when useAggregates is
// disabled, compound predicates are present, or no AggStar qualifies —
// in all of these cases the caller must fall back to the fact table.
func Match(s *star.Star, req Request, useAggregates bool) (Result, bool) {
	if !useAggregates || req.HasCompoundPredicates {
		return Result{}, false
	}

	for _, agg := range s.AggStars {
		if !req.LevelBitKey.Or(req.MeasureBitKey).Subset(agg.CombinedBitKey()) {
			continue
		}

		if len(req.DistinctMembers) == 0 {
			res := matchCaseA(s, agg, req)
			return res, true
		}

		if res, ok := matchCaseB(s, agg, req); ok {
			return res, true
		}
	}
	return Result{}, false
}

// matchCaseA implements spec.md §4.3 Case A: no distinct-count measure
// intersects the AggStar, so any superset match is accepted outright.
func matchCaseA(s *star.Star, agg *star.AggStar, req Request) Result {
	rollup := !agg.FullyCollapsed ||
		agg.HasIgnoredColumns ||
		req.LevelBitKey.IsEmpty() ||
		!agg.LevelBitKey.Equal(req.LevelBitKey)
	return Result{AggStar: agg, Rollup: rollup, GroupByKey: req.LevelBitKey}
}

// matchCaseB implements spec.md §4.3 Case B: distinct-count measures are
// present, so rollup is only allowed when every distinct measure's
// rollable level bit key can be jointly satisfied and the AggStar's own
// foreign-key situation allows it.
func matchCaseB(s *star.Star, agg *star.AggStar, req Request) (Result, bool) {
	if agg.HasIgnoredColumns {
		return Result{}, false
	}

	combinedRollable := bitkey.New(req.LevelBitKey.Width())
	first := true
	for _, dm := range req.DistinctMembers {
		if _, present := agg.Column(dm.BitPos); !present {
			continue
		}
		rollable, ok := agg.RollableLevel(dm.BitPos)
		if !ok {
			return Result{}, false
		}
		if first {
			combinedRollable = rollable
			first = false
		} else {
			combinedRollable = combinedRollable.And(rollable)
		}
	}
	if first {
		// No requested distinct measure is present on this AggStar at
		// all; there is nothing to roll up within, so every expanded
		// level bit must be directly materialised.
		combinedRollable = bitkey.New(req.LevelBitKey.Width())
	}

	if agg.HasForeignKeys {
		remaining := agg.ForeignKeyBitKey
		for _, dm := range req.DistinctMembers {
			remaining = remaining.Clear(dm.BitPos)
		}
		if !remaining.IsEmpty() {
			return Result{}, false
		}
	}

	expandedLevelBitKey := s.ExpandLevelBitKey(req.LevelBitKey)
	if !agg.Select(expandedLevelBitKey, combinedRollable, req.MeasureBitKey) {
		return Result{}, false
	}
	if expandedLevelBitKey.IsEmpty() {
		return Result{}, false
	}

	rollup := !agg.LevelBitKey.Equal(expandedLevelBitKey)
	return Result{AggStar: agg, Rollup: rollup, GroupByKey: expandedLevelBitKey}, true
}
