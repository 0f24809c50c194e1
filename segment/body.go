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

package segment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
)

// Body is the immutable data payload of a loaded segment: one Axis per
// constrained column (in BitPos order) and either a dense, row-major
// array or a sparse coordinate map, per spec.md §3.
type Body struct {
	Axes   []*Axis
	Sparse bool

	dense     []float64
	denseSet  []bool
	sparseMap map[string]float64
}

// NewDenseBody allocates a dense body sized to the product of every
// axis's length.
func NewDenseBody(axes []*Axis) *Body {
	size := 1
	for _, a := range axes {
		size *= a.Len()
	}
	return &Body{Axes: axes, dense: make([]float64, size), denseSet: make([]bool, size)}
}

// NewSparseBody allocates a sparse body backed by a coordinate map.
// possible and actual are the axis-product and observed row counts the
// caller based its dense/sparse decision on; NewSparseBody re-checks the
// "never sparse when possible == actual" invariant (spec.md §8) rather
// than trusting the caller silently.
func NewSparseBody(axes []*Axis, possible, actual int64) *Body {
	mustBeDense(true, possible, actual)
	return &Body{Axes: axes, Sparse: true, sparseMap: map[string]float64{}}
}

// offset computes the row-major offset for a coordinate tuple (one
// value per axis, in axis order), used by dense bodies; sparse bodies
// key on the same coordinate rendered as a string instead.
func (b *Body) offset(coord []predicate.Value) (int, bool) {
	off := 0
	for i, a := range b.Axes {
		o, ok := a.Offset(coord[i])
		if !ok {
			return 0, false
		}
		off = off*a.Len() + o
	}
	return off, true
}

func coordKey(axes []*Axis, coord []predicate.Value) string {
	var sb strings.Builder
	for i, a := range axes {
		o, ok := a.Offset(coord[i])
		if !ok {
			// Unreachable for well-formed callers: Set/Get always
			// resolve offsets before building a key. Kept as an
			// explicit marker rather than silently colliding keys.
			sb.WriteString("?")
			continue
		}
		fmt.Fprintf(&sb, "%d:%d:", a.BitPos, o)
	}
	return sb.String()
}

// Set writes v at the coordinate tuple coord (one value per axis, same
// order as b.Axes). Returns false if any coordinate value was never
// observed on its axis.
func (b *Body) Set(coord []predicate.Value, v float64) bool {
	if b.Sparse {
		off, ok := b.offsetsOrFalse(coord)
		if !ok {
			return false
		}
		b.sparseMap[off] = v
		return true
	}
	off, ok := b.offset(coord)
	if !ok {
		return false
	}
	b.dense[off] = v
	b.denseSet[off] = true
	return true
}

func (b *Body) offsetsOrFalse(coord []predicate.Value) (string, bool) {
	for i, a := range b.Axes {
		if _, ok := a.Offset(coord[i]); !ok {
			return "", false
		}
	}
	return coordKey(b.Axes, coord), true
}

// Get reads the value at coord, reporting whether a cell was ever
// written there (a segment may be sparse precisely because most cells
// were never populated).
func (b *Body) Get(coord []predicate.Value) (float64, bool) {
	if b.Sparse {
		key, ok := b.offsetsOrFalse(coord)
		if !ok {
			return 0, false
		}
		v, ok := b.sparseMap[key]
		return v, ok
	}
	off, ok := b.offset(coord)
	if !ok {
		return 0, false
	}
	return b.dense[off], b.denseSet[off]
}

// DenseValues exposes the raw dense storage for serialisation by
// extcache; only meaningful when !Sparse.
func (b *Body) DenseValues() ([]float64, []bool) {
	return b.dense, b.denseSet
}

// SparseValues exposes the raw sparse storage for serialisation by
// extcache; only meaningful when Sparse.
func (b *Body) SparseValues() map[string]float64 {
	return b.sparseMap
}

// RestoreDense rebuilds a dense Body from previously serialised storage
// (extcache round-trip), bypassing NewDenseBody's zero-allocation.
func RestoreDense(axes []*Axis, dense []float64, denseSet []bool) *Body {
	return &Body{Axes: axes, dense: dense, denseSet: denseSet}
}

// RestoreSparse rebuilds a sparse Body from previously serialised
// storage (extcache round-trip).
func RestoreSparse(axes []*Axis, sparseMap map[string]float64) *Body {
	return &Body{Axes: axes, Sparse: true, sparseMap: sparseMap}
}

// Size returns the logical cell count (the dense product), regardless
// of storage representation, mainly for diagnostics/logging.
func (b *Body) Size() int {
	size := 1
	for _, a := range b.Axes {
		size *= a.Len()
	}
	return size
}

// Each calls fn once per populated cell, in no particular order, with
// the coordinate tuple (one value per Axis, same order as b.Axes) and
// its value. Used by the rollup planner to read an existing segment's
// cells when synthesising a coarser one in-process instead of issuing
// SQL (spec.md §4.5 "aggregates them in-process").
func (b *Body) Each(fn func(coord []predicate.Value, v float64)) {
	if b.Sparse {
		for key, v := range b.sparseMap {
			fn(decodeCoordKey(b.Axes, key), v)
		}
		return
	}
	coord := make([]predicate.Value, len(b.Axes))
	for off, set := range b.denseSet {
		if !set {
			continue
		}
		decodeDenseOffset(b.Axes, off, coord)
		fn(coord, b.dense[off])
	}
}

// decodeDenseOffset inverts the row-major offset computation in
// Body.offset: axes are most-significant-first, so peeling off the
// least-significant axis first means walking b.Axes in reverse.
func decodeDenseOffset(axes []*Axis, off int, coord []predicate.Value) {
	for i := len(axes) - 1; i >= 0; i-- {
		a := axes[i]
		o := off % a.Len()
		off /= a.Len()
		coord[i] = a.Keys[o]
	}
}

// decodeCoordKey inverts coordKey: the key is "<bitpos>:<offset>:" per
// axis, in axis order, so splitting on ':' recovers each axis's offset
// directly (the bit position is redundant with axis order but kept for
// readability of the raw key).
func decodeCoordKey(axes []*Axis, key string) []predicate.Value {
	fields := strings.Split(key, ":")
	coord := make([]predicate.Value, len(axes))
	for i, a := range axes {
		offStr := fields[2*i+1]
		o, err := strconv.Atoi(offStr)
		if err != nil {
			panic(rolaperr.Internal.New("corrupt sparse segment coordinate key: " + key))
		}
		coord[i] = a.Keys[o]
	}
	return coord
}

// DensityDecision chooses dense vs sparse storage per spec.md §4.6 step
// 5. possibleOverflowed signals the axis-product computation itself
// overflowed (the loader's possibleCellCount reports this).
func DensityDecision(possible int64, possibleOverflowed bool, actual int64, countThreshold int64, densityThreshold float64) bool {
	if possibleOverflowed {
		return true
	}
	if possible == actual {
		return false
	}
	if possible < countThreshold {
		return false
	}
	return float64(possible-countThreshold)*densityThreshold > float64(actual)
}

// mustBeDense panics (Internal) if a caller asks to build a body under a
// density decision that contradicts spec.md §8's hard invariants; used
// by the loader as a defensive check right before allocation.
func mustBeDense(sparse bool, possible, actual int64) {
	if sparse && possible == actual {
		panic(rolaperr.Internal.New("density policy violated: possible == actual must be dense"))
	}
}
