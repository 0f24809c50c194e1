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
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/execctx"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/loader"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/sqlgen"
)

// sqlExecutor is the real loader.SQLExecutor this demo wires against a
// live MySQL connection, the outbound collaborator spec.md §6 leaves as
// an external contract. *sql.Rows already satisfies loader.RowCursor
// (Next/Scan/Close) directly, so Execute needs no adapter type for the
// cursor itself.
type sqlExecutor struct {
	db *sql.DB
}

func newSQLExecutor(dsn string) (*sqlExecutor, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	return &sqlExecutor{db: db}, nil
}

func (e *sqlExecutor) Close() error { return e.db.Close() }

// cancelStatement adapts a context.CancelFunc to loader.Statement (and
// by extension cache.Statement / execctx.Statement, which share its
// method set), so CancelExecution can abort an in-flight query by
// cancelling the context QueryContext is running under.
type cancelStatement struct {
	cancel context.CancelFunc
}

func (s *cancelStatement) Cancel() error {
	s.cancel()
	return nil
}

// Execute implements loader.SQLExecutor.
func (e *sqlExecutor) Execute(ctx context.Context, sqlText string, _ []sqlgen.ColumnType, _ execctx.Locus, onStatement func(loader.Statement)) (loader.RowCursor, error) {
	qctx, cancel := context.WithCancel(ctx)
	onStatement(&cancelStatement{cancel: cancel})

	rows, err := e.db.QueryContext(qctx, sqlText)
	if err != nil {
		cancel()
		return nil, err
	}
	return rows, nil
}
