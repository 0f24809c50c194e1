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

package dialect

import (
	"fmt"
	"strings"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
)

func init() {
	Register("mysql", newMySQL)
	Register("ansi", newANSI)
}

func quoteMySQLIdentifier(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "`", "``")
	return "`" + name + "`"
}

// quoteMySQLString escapes a string literal the way MySQL's own escape
// rules require, adapted from the schema-migration tool's
// Generator.QuoteString in this retrieval pack.
func quoteMySQLString(value string) string {
	var b strings.Builder
	b.Grow(len(value) + len(value)/10 + 2)
	b.WriteByte('\'')
	for _, char := range value {
		switch char {
		case '\'':
			b.WriteString("''")
		case '\\':
			b.WriteString(`\\`)
		case '\x00':
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(char)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func quoteValue(dt predicate.Datatype, v predicate.Value, quoteString func(string) string) string {
	if v == nil {
		return "NULL"
	}
	switch dt {
	case predicate.String, predicate.Date:
		return quoteString(fmt.Sprintf("%v", v))
	default:
		return fmt.Sprintf("%v", v)
	}
}

func newMySQL() Capabilities {
	return Capabilities{
		Name:                        "mysql",
		AllowsFieldAs:               true,
		AllowsFromQuery:             true,
		AllowsSelectNotInGroupBy:    true,
		AllowsCountDistinct:         true,
		AllowsMultipleCountDistinct: false,
		AllowsInnerDistinct:         true,
		SupportsMultiValueInExpr:    true,
		SupportsUnlimitedValueList:  true,
		SupportsGroupingSets:        false,
		UppercasesIdentifiers:       false,
		Quote: func(dt predicate.Datatype, v predicate.Value) string {
			return quoteValue(dt, v, quoteMySQLString)
		},
		QuoteIdentifier: quoteMySQLIdentifier,
		GenerateCountExpression: func(expr string) string {
			return "COUNT(" + expr + ")"
		},
		WrapUpperCase: func(expr string) string {
			return "UPPER(" + expr + ")"
		},
	}
}

// newANSI is a permissive baseline dialect used by tests: every
// capability flag on, no identifier case-folding.
func newANSI() Capabilities {
	c := newMySQL()
	c.Name = "ansi"
	c.SupportsGroupingSets = true
	c.AllowsMultipleCountDistinct = true
	c.QuoteIdentifier = func(name string) string {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return c
}
