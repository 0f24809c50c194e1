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

package extcache

import (
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/bitkey"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
)

// wireHeader, wireAxis, and wireBody are the msgpack wire shapes for a
// (header, body) pair. spec.md §6 requires header serialisation to be
// "stable across processes (field order, null representation fixed)"
// so that replicas produce identical fingerprints; these structs pin
// that shape explicitly rather than relying on struct-field order of
// the in-memory types, which are free to change independently.
type wireHeader struct {
	SchemaID              uint32
	CubeID                uint32
	FactID                uint32
	MeasureID             int
	BitKeyWidth           int
	BitKeyBits            []int
	Regions               []wireRegion
	PredicateFingerprints []uint64
}

type wireRegion struct {
	BitPos         int
	Wildcard       bool
	Values         []interface{}
	ExcludedValues []interface{}
}

type wireAxis struct {
	BitPos   int
	Datatype int
	Keys     []interface{}
}

type wireBody struct {
	Axes     []wireAxis
	Sparse   bool
	Dense    []float64
	DenseSet []bool
	SparseMap map[string]float64
}

type wireEntry struct {
	Header wireHeader
	Body   wireBody
}

func toWireHeader(h segment.Header) wireHeader {
	regions := make([]wireRegion, len(h.Regions))
	for i, r := range h.Regions {
		regions[i] = wireRegion{
			BitPos:         r.BitPos,
			Wildcard:       r.Wildcard,
			Values:         toInterfaceSlice(r.Values),
			ExcludedValues: toInterfaceSlice(r.ExcludedValues),
		}
	}
	return wireHeader{
		SchemaID:              h.SchemaID,
		CubeID:                h.CubeID,
		FactID:                h.FactID,
		MeasureID:             h.MeasureID,
		BitKeyWidth:           h.BitKey.Width(),
		BitKeyBits:            h.BitKey.Bits(),
		Regions:               regions,
		PredicateFingerprints: h.PredicateFingerprints,
	}
}

func fromWireHeader(w wireHeader) segment.Header {
	regions := make([]segment.ColumnRegion, len(w.Regions))
	for i, r := range w.Regions {
		regions[i] = segment.ColumnRegion{
			BitPos:         r.BitPos,
			Wildcard:       r.Wildcard,
			Values:         fromInterfaceSlice(r.Values),
			ExcludedValues: fromInterfaceSlice(r.ExcludedValues),
		}
	}
	return segment.NewHeader(
		w.SchemaID, w.CubeID, w.FactID, w.MeasureID,
		bitkey.Of(w.BitKeyWidth, w.BitKeyBits...),
		regions, w.PredicateFingerprints,
	)
}

func toWireBody(b *segment.Body) wireBody {
	axes := make([]wireAxis, len(b.Axes))
	for i, a := range b.Axes {
		axes[i] = wireAxis{BitPos: a.BitPos, Datatype: int(a.Datatype), Keys: toInterfaceSlice(a.Keys)}
	}
	w := wireBody{Axes: axes, Sparse: b.Sparse}
	if b.Sparse {
		w.SparseMap = b.SparseValues()
	} else {
		dense, denseSet := b.DenseValues()
		w.Dense, w.DenseSet = dense, denseSet
	}
	return w
}

func fromWireBody(w wireBody) *segment.Body {
	axes := make([]*segment.Axis, len(w.Axes))
	for i, a := range w.Axes {
		axes[i] = segment.RestoreAxis(a.BitPos, predicate.Datatype(a.Datatype), fromInterfaceSlice(a.Keys))
	}
	if w.Sparse {
		return segment.RestoreSparse(axes, w.SparseMap)
	}
	return segment.RestoreDense(axes, w.Dense, w.DenseSet)
}

func toInterfaceSlice(vs []predicate.Value) []interface{} {
	if vs == nil {
		return nil
	}
	out := make([]interface{}, len(vs))
	copy(out, vs)
	return out
}

func fromInterfaceSlice(vs []interface{}) []predicate.Value {
	if vs == nil {
		return nil
	}
	out := make([]predicate.Value, len(vs))
	copy(out, vs)
	return out
}
