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

package bitkey_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/bitkey"
)

func TestOrAndIdentity(t *testing.T) {
	for _, width := range []int{1, 7, 64, 65, 130} {
		a := bitkey.Of(width, 0, width-1)
		b := bitkey.Of(width, width/2)
		require.True(t, a.Or(b).And(a).Equal(a), "width=%d", width)
	}
}

func TestAndNotSelf(t *testing.T) {
	for _, width := range []int{1, 64, 200} {
		a := bitkey.Of(width, 0, width/2, width-1)
		require.True(t, a.And(a.Not()).IsEmpty(), "width=%d", width)
	}
}

func TestNextSetBitAscendingOnce(t *testing.T) {
	k := bitkey.Of(130, 3, 64, 65, 129)
	var seen []int
	for pos, ok := k.NextSetBit(0); ok; pos, ok = k.NextSetBit(pos + 1) {
		seen = append(seen, pos)
	}
	require.Equal(t, []int{3, 64, 65, 129}, seen)
}

func TestSubset(t *testing.T) {
	full := bitkey.Of(10, 1, 2, 3)
	part := bitkey.Of(10, 1, 2)
	require.True(t, part.Subset(full))
	require.False(t, full.Subset(part))
}

func TestIntersects(t *testing.T) {
	a := bitkey.Of(10, 1, 2)
	b := bitkey.Of(10, 2, 3)
	c := bitkey.Of(10, 4, 5)
	require.True(t, a.Intersects(b))
	require.False(t, a.Intersects(c))
}

func TestEqualAndHashKey(t *testing.T) {
	a := bitkey.Of(64, 1, 2, 3)
	b := bitkey.Of(64, 3, 2, 1)
	require.True(t, a.Equal(b))
	require.Equal(t, a.HashKey(), b.HashKey())

	c := bitkey.Of(64, 1, 2)
	require.False(t, a.Equal(c))
	require.NotEqual(t, a.HashKey(), c.HashKey())
}

func TestWidthMismatchPanics(t *testing.T) {
	a := bitkey.New(10)
	b := bitkey.New(20)
	require.Panics(t, func() { a.Or(b) })
	require.Panics(t, func() { a.Subset(b) })
}

func TestClearAndCount(t *testing.T) {
	k := bitkey.Of(10, 1, 2, 3)
	require.Equal(t, 3, k.Count())
	k = k.Clear(2)
	require.Equal(t, 2, k.Count())
	require.False(t, k.Get(2))
}

func TestBitsAcrossWordBoundary(t *testing.T) {
	k := bitkey.Of(200, 0, 63, 64, 127, 128, 199)
	require.Equal(t, []int{0, 63, 64, 127, 128, 199}, k.Bits())
}
