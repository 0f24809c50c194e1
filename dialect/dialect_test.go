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

package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/dialect"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
)

func TestGetUnknownDialect(t *testing.T) {
	_, err := dialect.Get("does-not-exist")
	require.Error(t, err)
}

func TestMySQLQuoting(t *testing.T) {
	c, err := dialect.Get("mysql")
	require.NoError(t, err)
	require.Equal(t, "`a``b`", c.QuoteIdentifier("a`b"))
	require.Equal(t, "'o''neil'", c.Quote(predicate.String, "o'neil"))
	require.Equal(t, "NULL", c.Quote(predicate.String, nil))
	require.Equal(t, "42", c.Quote(predicate.Numeric, 42))
}

func TestGroupingAliasCaseFolding(t *testing.T) {
	oracleLike := dialect.Capabilities{UppercasesIdentifiers: true}
	require.Equal(t, "DUMMYNAME", oracleLike.GroupingAlias(dialect.DummyAlias))

	mysqlLike := dialect.Capabilities{UppercasesIdentifiers: false}
	require.Equal(t, dialect.DummyAlias, mysqlLike.GroupingAlias(dialect.DummyAlias))
}
