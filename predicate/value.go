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

package predicate

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
)

// Value is a single candidate column value. nil represents SQL NULL.
type Value = interface{}

// Datatype governs how a Value is parsed, compared, and quoted.
type Datatype int

const (
	Numeric Datatype = iota
	String
	Date
	Other
)

// Compare orders two values the way the host database does: NULL sorts
// low, consistent with the backing database's effective order, and
// non-null values of the same datatype compare naturally. Compare never
// fails; callers that need parse validation call ParseNumeric explicitly.
func Compare(dt Datatype, a, b Value) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	switch dt {
	case Numeric:
		af, aerr := cast.ToFloat64E(a)
		bf, berr := cast.ToFloat64E(b)
		if aerr != nil || berr != nil {
			return compareAsString(a, b)
		}
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	default:
		return compareAsString(a, b)
	}
}

func compareAsString(a, b Value) int {
	as, bs := cast.ToString(a), cast.ToString(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

// ParseNumeric validates that v is parseable as a number, as required
// before a Numeric-datatype predicate can be rendered to SQL or compared.
// A non-numeric value for a numeric column is an InvalidConstraint error,
// fatal for the current request.
func ParseNumeric(v Value) (float64, error) {
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, rolaperr.InvalidConstraint.New(fmt.Sprintf("non-numeric value %v", v))
	}
	return f, nil
}

// Equal reports whether two values are equal under dt's comparison rules.
func Equal(dt Datatype, a, b Value) bool {
	return Compare(dt, a, b) == 0
}

func sortValues(dt Datatype, values []Value) {
	// simple insertion sort: value lists are typically small (nothing in
	// this package bounds them) and this keeps the dependency surface to
	// spf13/cast.
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && Compare(dt, values[j-1], values[j]) > 0; j-- {
			values[j-1], values[j] = values[j], values[j-1]
		}
	}
}

func dedupeValues(dt Datatype, values []Value) []Value {
	sortValues(dt, values)
	out := values[:0]
	for i, v := range values {
		if i == 0 || Compare(dt, out[len(out)-1], v) != 0 {
			out = append(out, v)
		}
	}
	return out
}
