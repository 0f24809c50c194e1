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

// Package loader implements spec.md §4.6's segment loader: it generates
// SQL via sqlgen, executes it through the caller-supplied SQLExecutor,
// ingests the result set into dense or sparse segment bodies (one per
// grouping set), and publishes outcomes a cache.Manager installs into
// its index. Job implements cache.Job, so the cache package never needs
// to know SQL was involved at all.
package loader

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/cache"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/execctx"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/sqlgen"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/star"
)

// Statement is a cancellable SQL statement handle. Its method set is
// identical to cache.Statement and execctx.Statement by construction, so
// a Statement value is directly assignable to either without an adapter.
type Statement interface {
	Cancel() error
}

// RowCursor is a minimal stand-in for the JDBC-ResultSet-shaped contract
// spec.md §6 names: Next, Scan and Close only. Scan takes the place of
// typed getters and wasNull (a NULL scans as nil), and there is no
// metaData accessor. Scan decodes one row into dest, positionally
// matching the SELECT list sqlgen.Builder.Build produced.
type RowCursor interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
}

// SQLExecutor is the outbound "sql executor" collaborator of spec.md §6:
// given a SQL string, executes it and returns a row cursor. onStatement
// is invoked with the underlying statement handle as soon as it exists,
// so the caller can thread it through to CancelExecution.
type SQLExecutor interface {
	Execute(ctx context.Context, sqlText string, types []sqlgen.ColumnType, locus execctx.Locus, onStatement func(Statement)) (RowCursor, error)
}

// Config is the subset of config.Config the loader needs.
type Config struct {
	SparseSegmentCountThreshold   int64
	SparseSegmentDensityThreshold float64
	ResultLimit                   int64
}

// Cohort is one grouping set's target: the segment header it populates
// and which spec.Columns bit positions (a subset, in spec.Columns order)
// it groups by. A query with no grouping sets has exactly one Cohort
// whose Columns equals every bit position in Spec.Columns.
type Cohort struct {
	Header  segment.Header
	Columns []int
}

// Plan is everything Job needs to generate and ingest one query. Spec's
// GroupingSets (if any) must already be built consistently with Cohorts
// (same columns, same order) by the caller -- the aggregate-matching
// planner and batcher own that construction, per spec.md §4.2/§4.4.
type Plan struct {
	Star     *star.Star
	StarName string
	Spec     *sqlgen.Spec
	Cohorts  []Cohort
}

// Job implements cache.Job over Plan.
type Job struct {
	plan     Plan
	builder  *sqlgen.Builder
	executor SQLExecutor
	locus    execctx.Locus
	cfg      Config
	log      *logrus.Entry
}

// NewJob constructs a Job. log may be nil.
func NewJob(plan Plan, builder *sqlgen.Builder, executor SQLExecutor, locus execctx.Locus, cfg Config, log *logrus.Entry) *Job {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Job{
		plan:     plan,
		builder:  builder,
		executor: executor,
		locus:    locus,
		cfg:      cfg,
		log:      log.WithField("system", "loader").WithField("star", plan.StarName),
	}
}

// StarName implements cache.Job.
func (j *Job) StarName() string { return j.plan.StarName }

// Headers implements cache.Job.
func (j *Job) Headers() []segment.Header {
	hs := make([]segment.Header, len(j.plan.Cohorts))
	for i, c := range j.plan.Cohorts {
		hs[i] = c.Header
	}
	return hs
}

// Run implements cache.Job: spec.md §4.6 steps 1-7.
func (j *Job) Run(ctx context.Context, onStatement func(cache.Statement)) (map[uint64]cache.Outcome, error) {
	sqlText, types, err := j.builder.Build(j.plan.Spec)
	if err != nil {
		return nil, err
	}
	if sqlText == "" {
		// spec.md §4.6 step 1: "If no candidate rows (the generator
		// returns nothing), complete all segments with empty bodies."
		return j.emptyOutcomes(), nil
	}

	cursor, err := j.executor.Execute(ctx, sqlText, types, j.locus, func(s Statement) { onStatement(s) })
	if err != nil {
		return nil, rolaperr.SqlFailure.New(err.Error())
	}
	defer cursor.Close()

	return ingest(ctx, j.plan, cursor, types, j.cfg, j.log)
}

func (j *Job) emptyOutcomes() map[uint64]cache.Outcome {
	out := make(map[uint64]cache.Outcome, len(j.plan.Cohorts))
	for _, c := range j.plan.Cohorts {
		axes := make([]*segment.Axis, len(c.Columns))
		for i, bit := range c.Columns {
			col := j.plan.Star.Column(bit)
			axes[i] = segment.NewAxis(bit, col.Datatype, nil, false)
		}
		out[c.Header.Hash()] = cache.Outcome{Body: segment.NewDenseBody(axes)}
	}
	return out
}
