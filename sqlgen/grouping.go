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

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
)

// groupByClause renders either a plain GROUP BY over groupByExprs (one
// expression per spec.Columns entry, in order) or, when spec.GroupingSets
// is non-empty, a GROUP BY GROUPING SETS clause plus a per-rollup-column
// GROUPING() projection so the loader can tell, for each returned row,
// which columns were rolled up to NULL rather than holding a genuine NULL
// member. spec.md §4.4 requires the sets list to already be topologically
// ordered (each set's columns a superset of every later set's); this is
// verified here rather than re-derived, since callers (the aggregate-
// matching planner) own that ordering decision.
func (b *Builder) groupByClause(spec *Spec, groupByExprs []string) (string, []string, error) {
	if len(spec.GroupingSets) == 0 {
		if len(groupByExprs) == 0 {
			return "", nil, nil
		}
		return "GROUP BY " + strings.Join(groupByExprs, ", "), nil, nil
	}

	if !b.Caps.SupportsGroupingSets {
		return "", nil, rolaperr.DialectCapabilityMismatch.New("dialect does not support GROUP BY GROUPING SETS")
	}

	if err := checkTopologicalOrder(spec.GroupingSets); err != nil {
		return "", nil, err
	}

	exprByBit := make(map[int]string, len(spec.Columns))
	for i, bitPos := range spec.Columns {
		exprByBit[bitPos] = groupByExprs[i]
	}

	sets := make([]string, len(spec.GroupingSets))
	for i, gs := range spec.GroupingSets {
		cols := make([]string, len(gs.Columns))
		for j, bitPos := range gs.Columns {
			expr, ok := exprByBit[bitPos]
			if !ok {
				return "", nil, rolaperr.Internal.New(fmt.Sprintf("grouping set column %d not in Spec.Columns", bitPos))
			}
			cols[j] = expr
		}
		sets[i] = "(" + strings.Join(cols, ", ") + ")"
	}
	clause := "GROUP BY GROUPING SETS (" + strings.Join(sets, ", ") + ")"

	groupingSelects := make([]string, len(spec.Columns))
	for i, bitPos := range spec.Columns {
		groupingSelects[i] = fmt.Sprintf("GROUPING(%s) AS g%d", exprByBit[bitPos], i)
	}
	return clause, groupingSelects, nil
}

// checkTopologicalOrder enforces that each grouping set's column list is a
// superset of every later set's, the invariant spec.md §4.4 and §8 require
// so the loader can demultiplex rows by shrinking specificity.
func checkTopologicalOrder(sets []GroupingSet) error {
	for i := 0; i < len(sets); i++ {
		has := make(map[int]bool, len(sets[i].Columns))
		for _, c := range sets[i].Columns {
			has[c] = true
		}
		for j := i + 1; j < len(sets); j++ {
			for _, c := range sets[j].Columns {
				if !has[c] {
					return rolaperr.Internal.New("grouping sets are not topologically ordered")
				}
			}
		}
	}
	return nil
}
