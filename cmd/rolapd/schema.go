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

package main

import (
	"github.com/BurntSushi/toml"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/bitkey"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/star"
)

// schemaFixture is the flat, TOML-friendly description of a single star
// this demo boots against, standing in for the schema-loading layer
// spec.md §1 names as a Non-goal (this repo never parses a cube
// definition language; it takes the join-graph descriptor as a given).
type schemaFixture struct {
	Star struct {
		Name     string `toml:"name"`
		ID       uint32 `toml:"id"`
		SchemaID uint32 `toml:"schema_id"`
		CubeID   uint32 `toml:"cube_id"`
		FactID   uint32 `toml:"fact_id"`
		Width    int    `toml:"width"`
		Fact     string `toml:"fact"`

		Columns []struct {
			BitPos   int    `toml:"bitpos"`
			Name     string `toml:"name"`
			Table    string `toml:"table"`
			Datatype string `toml:"datatype"`
			Nullable bool   `toml:"nullable"`
			Parent   int    `toml:"parent"`
		} `toml:"columns"`

		AggStars []struct {
			Name          string `toml:"name"`
			Table         string `toml:"table"`
			LevelBits     []int  `toml:"level_bits"`
			MeasureBits   []int  `toml:"measure_bits"`
			DistinctBits  []int  `toml:"distinct_bits"`
			EstimatedRows int64  `toml:"estimated_rows"`
		} `toml:"aggstars"`
	} `toml:"star"`
}

func datatypeOf(name string) predicate.Datatype {
	switch name {
	case "string":
		return predicate.String
	case "date":
		return predicate.Date
	case "other":
		return predicate.Other
	default:
		return predicate.Numeric
	}
}

// loadStar reads path and builds the star.Star it describes, along with
// the schema/cube/fact identifiers RegisterStar needs for header
// fingerprinting.
func loadStar(path string) (name string, s *star.Star, schemaID, cubeID, factID uint32, err error) {
	var fx schemaFixture
	if _, decErr := toml.DecodeFile(path, &fx); decErr != nil {
		return "", nil, 0, 0, 0, rolaperr.Internal.New("decoding star fixture: " + decErr.Error())
	}

	tables := map[string]*star.Table{}
	tableFor := func(n string) *star.Table {
		if t, ok := tables[n]; ok {
			return t
		}
		t := &star.Table{Name: n}
		tables[n] = t
		return t
	}

	fact := tableFor(fx.Star.Fact)
	s = star.New(fx.Star.ID, fact, fx.Star.Width)

	for _, c := range fx.Star.Columns {
		parent := -1
		if c.Parent != 0 {
			parent = c.Parent
		}
		s.AddColumn(&star.Column{
			BitPos:       c.BitPos,
			Name:         c.Name,
			Datatype:     datatypeOf(c.Datatype),
			Nullable:     c.Nullable,
			Table:        tableFor(c.Table),
			ParentBitPos: parent,
		})
	}

	for _, a := range fx.Star.AggStars {
		level := bitkey.New(fx.Star.Width)
		for _, b := range a.LevelBits {
			level = level.Set(b)
		}
		measure := bitkey.New(fx.Star.Width)
		for _, b := range a.MeasureBits {
			measure = measure.Set(b)
		}
		agg := star.NewAggStar(a.Name, tableFor(a.Table), level, measure)
		agg.EstimatedRows = a.EstimatedRows
		for _, b := range a.DistinctBits {
			agg.SetRollableLevel(b, level)
		}
		s.AddAggStar(agg)
	}

	return fx.Star.Name, s, fx.Star.SchemaID, fx.Star.CubeID, fx.Star.FactID, nil
}
