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

// Package segment models the cached data region spec.md §3 calls a
// "segment": an immutable Header fingerprint plus a Body payload (dense
// array or sparse map), joined on constrained-column axes built from the
// distinct values observed in a SQL result.
package segment

import (
	"sort"

	"github.com/mitchellh/hashstructure"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/bitkey"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
)

// ColumnRegion describes, for one constrained column, either an exact
// finite value set or a wildcard ("every value currently known for this
// column"), plus any excluded sub-region. Two headers compare equal only
// when every ColumnRegion compares equal, per spec.md §3's "two segments
// with the same header are interchangeable" contract.
type ColumnRegion struct {
	BitPos   int
	Wildcard bool

	// Values holds the exact constrained value set when Wildcard is
	// false. Sorted and deduplicated by NewHeader so hashing and
	// equality are order-independent.
	Values []predicate.Value

	// ExcludedValues are values explicitly removed from an otherwise
	// wildcard or exact region (the "excluded regions" of spec.md §3).
	ExcludedValues []predicate.Value
}

// Header is the immutable fingerprint identifying a segment. Schema,
// Cube, and Fact identify the originating star; Measure and BitKey
// identify which measure and which columns are constrained;
// PredicateFingerprints are the stable hashes of the compound predicates
// (slicer members) the segment was loaded under, sorted for determinism.
type Header struct {
	SchemaID uint32
	CubeID   uint32
	FactID   uint32
	MeasureID int

	BitKey bitkey.Key

	Regions []ColumnRegion

	PredicateFingerprints []uint64
}

// NewHeader builds a Header, normalising Regions (sorted by BitPos, each
// region's value sets sorted and deduped) and PredicateFingerprints
// (sorted) so that two headers describing the same logical segment are
// byte-for-byte comparable regardless of construction order.
func NewHeader(schemaID, cubeID, factID uint32, measureID int, bitKey bitkey.Key, regions []ColumnRegion, predicateFingerprints []uint64) Header {
	sort.Slice(regions, func(i, j int) bool { return regions[i].BitPos < regions[j].BitPos })
	for i := range regions {
		regions[i].Values = sortedUnique(regions[i].Values)
		regions[i].ExcludedValues = sortedUnique(regions[i].ExcludedValues)
	}
	fp := append([]uint64(nil), predicateFingerprints...)
	sort.Slice(fp, func(i, j int) bool { return fp[i] < fp[j] })
	return Header{
		SchemaID:              schemaID,
		CubeID:                cubeID,
		FactID:                factID,
		MeasureID:             measureID,
		BitKey:                bitKey,
		Regions:               regions,
		PredicateFingerprints: fp,
	}
}

func sortedUnique(vs []predicate.Value) []predicate.Value {
	if len(vs) == 0 {
		return nil
	}
	cp := append([]predicate.Value(nil), vs...)
	sort.Slice(cp, func(i, j int) bool { return predicate.Compare(predicate.String, cp[i], cp[j]) < 0 })
	out := cp[:1]
	for _, v := range cp[1:] {
		if predicate.Compare(predicate.String, out[len(out)-1], v) != 0 {
			out = append(out, v)
		}
	}
	return out
}

// Equal reports whether two headers are interchangeable, per spec.md §3.
func (h Header) Equal(other Header) bool {
	return h.Hash() == other.Hash()
}

// hashable is the plain-data projection of Header that hashstructure
// walks. BitKey is represented by its stable HashKey() string rather
// than the bitkey.Key value itself, since Key carries unexported fields
// hashstructure cannot see into.
type hashable struct {
	SchemaID, CubeID, FactID uint32
	MeasureID                int
	BitKey                   string
	Regions                  []ColumnRegion
	PredicateFingerprints    []uint64
}

// Hash returns a stable fingerprint of the header, used both as the
// segment-index key and, serialised, as the key into the external
// segment-body cache (spec.md §6 Persisted state: "stable across
// processes").
func (h Header) Hash() uint64 {
	v, err := hashstructure.Hash(hashable{
		SchemaID:              h.SchemaID,
		CubeID:                h.CubeID,
		FactID:                h.FactID,
		MeasureID:             h.MeasureID,
		BitKey:                h.BitKey.HashKey(),
		Regions:               h.Regions,
		PredicateFingerprints: h.PredicateFingerprints,
	}, nil)
	if err != nil {
		panic(rolaperr.Internal.New("header hash failed: " + err.Error()))
	}
	return v
}
