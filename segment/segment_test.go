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

package segment_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/bitkey"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
)

func TestHeaderEqualIgnoresRegionOrder(t *testing.T) {
	bk := bitkey.Of(4, 0, 1)
	h1 := segment.NewHeader(1, 1, 1, 0, bk, []segment.ColumnRegion{
		{BitPos: 1, Values: []predicate.Value{"b", "a"}},
		{BitPos: 0, Values: []predicate.Value{"x"}},
	}, []uint64{2, 1})
	h2 := segment.NewHeader(1, 1, 1, 0, bk, []segment.ColumnRegion{
		{BitPos: 0, Values: []predicate.Value{"x"}},
		{BitPos: 1, Values: []predicate.Value{"a", "b"}},
	}, []uint64{1, 2})

	require.True(t, h1.Equal(h2))
}

func TestHeaderNotEqualOnDifferentRegion(t *testing.T) {
	bk := bitkey.Of(4, 0)
	h1 := segment.NewHeader(1, 1, 1, 0, bk, []segment.ColumnRegion{{BitPos: 0, Values: []predicate.Value{"x"}}}, nil)
	h2 := segment.NewHeader(1, 1, 1, 0, bk, []segment.ColumnRegion{{BitPos: 0, Values: []predicate.Value{"y"}}}, nil)
	require.False(t, h1.Equal(h2))
}

func TestAxisOffsetWithNullSlot(t *testing.T) {
	a := segment.NewAxis(0, predicate.String, []predicate.Value{"b", "a", "a"}, true)
	require.Equal(t, 3, a.Len())
	off, ok := a.Offset("a")
	require.True(t, ok)
	require.Equal(t, 0, off)
	off, ok = a.Offset("b")
	require.True(t, ok)
	require.Equal(t, 1, off)
	off, ok = a.Offset(nil)
	require.True(t, ok)
	require.Equal(t, 2, off)
	_, ok = a.Offset("z")
	require.False(t, ok)
}

func TestDenseBodySetGet(t *testing.T) {
	ax := segment.NewAxis(0, predicate.String, []predicate.Value{"a", "b"}, false)
	body := segment.NewDenseBody([]*segment.Axis{ax})
	require.True(t, body.Set([]predicate.Value{"a"}, 1.5))
	v, ok := body.Get([]predicate.Value{"a"})
	require.True(t, ok)
	require.Equal(t, 1.5, v)
	_, ok = body.Get([]predicate.Value{"b"})
	require.False(t, ok)
}

func TestSparseBodyPanicsWhenPossibleEqualsActual(t *testing.T) {
	ax := segment.NewAxis(0, predicate.String, []predicate.Value{"a"}, false)
	require.Panics(t, func() {
		segment.NewSparseBody([]*segment.Axis{ax}, 1, 1)
	})
}

func TestDensityDecision(t *testing.T) {
	// spec.md §8 scenario 4.
	require.True(t, segment.DensityDecision(1_000_000, false, 5, 1000, 0.5))
	require.False(t, segment.DensityDecision(10, false, 10, 1000, 0.5))
	require.False(t, segment.DensityDecision(500, false, 5, 1000, 0.5))
	require.True(t, segment.DensityDecision(0, true, 5, 1000, 0.5))
}

func TestDenseBodyEachVisitsOnlyPopulatedCells(t *testing.T) {
	axR := segment.NewAxis(0, predicate.String, []predicate.Value{"east", "west"}, false)
	axP := segment.NewAxis(1, predicate.String, []predicate.Value{"widget", "gadget"}, false)
	body := segment.NewDenseBody([]*segment.Axis{axR, axP})
	require.True(t, body.Set([]predicate.Value{"east", "widget"}, 10))
	require.True(t, body.Set([]predicate.Value{"west", "gadget"}, 7))

	seen := map[string]float64{}
	body.Each(func(coord []predicate.Value, v float64) {
		seen[coord[0].(string)+"/"+coord[1].(string)] = v
	})
	require.Equal(t, map[string]float64{"east/widget": 10, "west/gadget": 7}, seen)
}

func TestSparseBodyEachVisitsOnlyPopulatedCells(t *testing.T) {
	axR := segment.NewAxis(0, predicate.String, []predicate.Value{"east", "west"}, false)
	axP := segment.NewAxis(1, predicate.String, []predicate.Value{"widget", "gadget"}, false)
	body := segment.NewSparseBody([]*segment.Axis{axR, axP}, 4, 2)
	require.True(t, body.Set([]predicate.Value{"east", "widget"}, 10))
	require.True(t, body.Set([]predicate.Value{"west", "gadget"}, 7))

	seen := map[string]float64{}
	body.Each(func(coord []predicate.Value, v float64) {
		seen[coord[0].(string)+"/"+coord[1].(string)] = v
	})
	require.Equal(t, map[string]float64{"east/widget": 10, "west/gadget": 7}, seen)
}

func TestSegmentTransitionInvariant(t *testing.T) {
	s := segment.NewLoading(segment.Header{})
	s.Transition(segment.Loaded, segment.NewDenseBody(nil), nil)
	require.Equal(t, segment.Loaded, s.State)
	require.Panics(t, func() {
		s.Transition(segment.Failed, nil, errors.New("too late"))
	})
}
