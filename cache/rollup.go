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

package cache

import (
	"fmt"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/bitkey"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/sqlgen"
)

// RollupQuery is what a caller (the top-level AggregationManager facade)
// asks the planner before falling back to SQL, per spec.md §4.5
// "findRollupCandidates": can the missing Target segment be synthesised
// from existing, more granular LOADED segments instead of issuing a new
// query.
type RollupQuery struct {
	Target     segment.Header
	Aggregator sqlgen.Aggregator

	// DistinctRollableLevel is the measure's rollable level bit key
	// (spec.md §4.3's rollableLevelBitKey), consulted only when
	// Aggregator is CountDistinct: a distinct-count measure only rolls
	// up across excess columns contained within this key.
	DistinctRollableLevel bitkey.Key

	// FactCountAvailable reports whether a parallel fact-count segment
	// is co-materialised, the one condition under which spec.md §4.5
	// allows an Avg measure to roll up (sum and count recombine into an
	// average; without the count, an average of averages is wrong).
	FactCountAvailable bool
}

// IsRollableAggregator implements spec.md §4.5 step 4: "the measure's
// aggregator must be rollable (sum, min, max, count -- not avg unless
// fact-count is co-materialised; not distinct-count unless the excess
// columns are within the measure's rollable level bit key)."
func IsRollableAggregator(agg sqlgen.Aggregator, excess bitkey.Key, q RollupQuery) bool {
	switch agg {
	case sqlgen.Sum, sqlgen.Min, sqlgen.Max, sqlgen.Count:
		return true
	case sqlgen.Avg:
		return q.FactCountAvailable
	case sqlgen.CountDistinct:
		return excess.Subset(q.DistinctRollableLevel)
	}
	return false
}

type regionCoverage struct {
	wildcard bool
	values   map[string]bool
}

// regionsCoverTarget implements spec.md §4.5 step 3: "the candidates
// must jointly cover the target's constrained-region for each
// non-excess column." Coverage is computed by merging every candidate's
// per-column region (ignoring excess columns, which are free to differ
// across the group) and checking the union contains every value the
// target constrains that column to. A column the target leaves
// unconstrained is trivially covered.
func regionsCoverTarget(group []segment.Header, target segment.Header, excess bitkey.Key) bool {
	merged := map[int]*regionCoverage{}
	for _, h := range group {
		for _, r := range h.Regions {
			if excess.Get(r.BitPos) {
				continue
			}
			m := merged[r.BitPos]
			if m == nil {
				m = &regionCoverage{values: map[string]bool{}}
				merged[r.BitPos] = m
			}
			if r.Wildcard {
				m.wildcard = true
				continue
			}
			for _, v := range r.Values {
				m.values[fmt.Sprint(v)] = true
			}
		}
	}
	for _, tr := range target.Regions {
		if excess.Get(tr.BitPos) {
			continue
		}
		m := merged[tr.BitPos]
		if m == nil {
			return false
		}
		if m.wildcard {
			continue
		}
		if tr.Wildcard {
			// The group only covers specific values on this column but
			// the target wants every value; conservative reject rather
			// than guessing completeness.
			return false
		}
		for _, v := range tr.Values {
			if !m.values[fmt.Sprint(v)] {
				return false
			}
		}
	}
	return true
}

// findRollupCandidates is the actor-local implementation of spec.md
// §4.5's planner, run directly against a star's index (already on the
// actor goroutine, so it sees a consistent snapshot per spec.md §5).
// Only LOADED segments are ever used as rollup sources -- a LOADING or
// FAILED segment carries no usable body.
func findRollupCandidates(idx starIndex, q RollupQuery) ([]segment.Header, bool) {
	target := q.Target

	type candidate struct {
		h      segment.Header
		excess bitkey.Key
	}
	var candidates []candidate
	for _, s := range idx {
		if s.seg.State != segment.Loaded {
			continue
		}
		h := s.seg.Header
		if h.SchemaID != target.SchemaID || h.CubeID != target.CubeID ||
			h.FactID != target.FactID || h.MeasureID != target.MeasureID {
			continue
		}
		if !target.BitKey.Subset(h.BitKey) {
			continue
		}
		excess := h.BitKey.AndNot(target.BitKey)
		if !IsRollableAggregator(q.Aggregator, excess, q) {
			continue
		}
		candidates = append(candidates, candidate{h: h, excess: excess})
	}
	if len(candidates) == 0 {
		return nil, false
	}

	groups := map[string][]candidate{}
	for _, c := range candidates {
		key := c.excess.HashKey()
		groups[key] = append(groups[key], c)
	}

	var best []segment.Header
	for _, g := range groups {
		headers := make([]segment.Header, len(g))
		for i, c := range g {
			headers[i] = c.h
		}
		if !regionsCoverTarget(headers, target, g[0].excess) {
			continue
		}
		if best == nil || len(headers) < len(best) {
			best = headers
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

type findRollupCmd struct {
	starName string
	query    RollupQuery
	reply    chan rollupReply
}

type rollupReply struct {
	headers []segment.Header
	ok      bool
}

func (c *findRollupCmd) run(m *Manager) {
	idx := m.indexFor(c.starName)
	headers, ok := findRollupCandidates(idx, c.query)
	c.reply <- rollupReply{headers: headers, ok: ok}
}

// FindRollupCandidates implements spec.md §4.5's "findRollupCandidates":
// before issuing SQL for q.Target, ask whether it can be synthesised
// from existing LOADED segments instead. On a hit, the caller schedules
// a synthetic in-process aggregation Job (built by package loader) over
// the returned headers instead of a SQL Job.
func (m *Manager) FindRollupCandidates(starName string, q RollupQuery) ([]segment.Header, bool) {
	reply := make(chan rollupReply, 1)
	m.send(&findRollupCmd{starName: starName, query: q, reply: reply})
	select {
	case r := <-reply:
		return r.headers, r.ok
	case <-m.stopped:
		return nil, false
	}
}
