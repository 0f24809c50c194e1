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

package star_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/bitkey"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/star"
)

func newTestStar() *star.Star {
	fact := &star.Table{Name: "fact"}
	s := star.New(1, fact, 4)
	s.AddColumn(&star.Column{BitPos: 0, Name: "country", Datatype: predicate.String, ParentBitPos: -1, Table: fact})
	s.AddColumn(&star.Column{BitPos: 1, Name: "state", Datatype: predicate.String, ParentBitPos: 0, Table: fact})
	s.AddColumn(&star.Column{BitPos: 2, Name: "city", Datatype: predicate.String, ParentBitPos: 1, Table: fact})
	s.AddColumn(&star.Column{BitPos: 3, Name: "sales", Datatype: predicate.Numeric, ParentBitPos: -1, Table: fact})
	return s
}

func TestExpandLevelBitKeyWalksParents(t *testing.T) {
	s := newTestStar()
	cityOnly := bitkey.Of(4, 2)
	expanded := s.ExpandLevelBitKey(cityOnly)
	require.Equal(t, []int{0, 1, 2}, expanded.Bits())
}

func TestAddAggStarKeepsAscendingOrder(t *testing.T) {
	s := newTestStar()
	fact := &star.Table{Name: "agg"}
	big := star.NewAggStar("big", fact, bitkey.Of(4, 0), bitkey.Of(4, 3))
	big.EstimatedRows = 1000

	small := star.NewAggStar("small", fact, bitkey.Of(4, 0, 1), bitkey.Of(4, 3))
	small.EstimatedRows = 10

	s.AddAggStar(big)
	s.AddAggStar(small)

	require.Equal(t, "small", s.AggStars[0].Name)
	require.Equal(t, "big", s.AggStars[1].Name)
}

func TestAggStarDisjointInvariantPanics(t *testing.T) {
	fact := &star.Table{Name: "agg"}
	require.Panics(t, func() {
		star.NewAggStar("bad", fact, bitkey.Of(4, 0, 1), bitkey.Of(4, 1))
	})
}

func TestAggStarSelect(t *testing.T) {
	fact := &star.Table{Name: "agg_state"}
	agg := star.NewAggStar("agg_state", fact, bitkey.Of(4, 0, 1), bitkey.Of(4, 3))

	// Requesting city (bit 2), expanded to {0,1,2}; combined rollable
	// covers bit 2 (distinct measure rollable within the
	// city->state->country chain), so the must-materialise set is
	// {0,1}, which the AggStar does cover.
	expanded := bitkey.Of(4, 0, 1, 2)
	rollable := bitkey.Of(4, 2)
	require.True(t, agg.Select(expanded, rollable, bitkey.Of(4, 3)))

	// Without the rollable allowance, bit 2 must be directly
	// materialised, which this AggStar does not do.
	require.False(t, agg.Select(expanded, bitkey.New(4), bitkey.Of(4, 3)))
}
