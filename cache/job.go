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

package cache

import (
	"context"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
)

// Outcome is one header's result from a Job's execution: either a body
// to install, or an error that converts the header's slot to FAILED.
type Outcome struct {
	Body *segment.Body
	Err  error
}

// Job is the unit of work the actor hands to the SQL-executor pool: a
// loader-built batch (one SQL statement, possibly demultiplexed across
// several grouping sets) or a synthetic rollup-from-existing-segments
// computation (spec.md §4.5 "findRollupCandidates"). The cache package
// never constructs a Job itself -- package loader and the rollup planner
// do -- so cache stays decoupled from SQL generation and row ingestion.
type Job interface {
	// StarName identifies which star's index this job's headers belong
	// to.
	StarName() string

	// Headers lists every segment header this job will attempt to
	// populate.
	Headers() []segment.Header

	// Run executes the job and returns an Outcome per header. A header
	// present in Headers() but absent from the returned map is treated
	// as a benign "empty" failure (spec.md §4.6 step 7). Run must honor
	// ctx cancellation and check it periodically (the loader checks
	// every row, per spec.md §4.6). onStatement is invoked as soon as
	// the job's underlying SQL statement handle exists (spec.md §6: "the
	// callback is invoked with the statement handle as soon as it
	// exists"), so the actor can register it for CancelExecution. Jobs
	// with no cancellable statement (an in-process rollup) never call
	// onStatement.
	Run(ctx context.Context, onStatement func(Statement)) (map[uint64]Outcome, error)
}

// Statement is a cancellable SQL statement handle, mirroring
// execctx.Statement so cache need not import execctx for this alone.
type Statement interface {
	Cancel() error
}
