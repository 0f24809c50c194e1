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
	"errors"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/execctx"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/internal/tracing"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
)

// ErrEmptySegment is the benign failure spec.md §4.6 step 7 describes:
// a segment reserved by a batch that the SQL result never actually
// populated. Waiters see it as an ordinary failed load rather than
// hanging, but it is not one of the rolaperr.* fatal kinds.
var ErrEmptySegment = errors.New("cache: sql result did not populate this segment")

type loadCmd struct {
	ctx      context.Context
	job      Job
	execID   execctx.ID
	reply    chan map[uint64]*Future
}

func (c *loadCmd) run(m *Manager) {
	idx := m.indexFor(c.job.StarName())
	futures := make(map[uint64]*Future, len(c.job.Headers()))
	var newHeaders []segment.Header

	for _, h := range c.job.Headers() {
		hv := h.Hash()
		s, ok := idx[hv]
		if !ok {
			fut := newFuture()
			s = &slot{
				seg:     segment.NewLoading(h),
				future:  fut,
				waiters: map[execctx.ID]struct{}{c.execID: {}},
			}
			idx[hv] = s
			newHeaders = append(newHeaders, h)
			futures[hv] = fut
			continue
		}

		s.waiters[c.execID] = struct{}{}
		if s.seg.State == segment.Loaded {
			fut := newFuture()
			fut.resolve(Result{Body: s.seg.Body})
			futures[hv] = fut
			continue
		}
		// LOADING: attach to the in-flight future rather than issuing a
		// duplicate SQL execution (spec.md §8 "at-most-once load").
		futures[hv] = s.future
	}

	if len(newHeaders) > 0 {
		m.log.WithField("star", c.job.StarName()).WithField("new_segments", len(newHeaders)).Debug("issuing load job")
		m.runJob(c.ctx, c.job)
	}

	c.reply <- futures
}

// runJob executes job on the SQL-executor worker pool and feeds the
// result back to the actor as a loadResultCmd, per spec.md §4.5
// ("workers never mutate the index; they emit follow-up commands").
func (m *Manager) runJob(ctx context.Context, job Job) {
	go func() {
		m.sqlSem <- struct{}{}
		defer func() { <-m.sqlSem }()

		spanCtx, span := tracing.StartSpanFromContext(ctx, "cache.Load", "star", job.StarName())

		onStatement := func(stmt Statement) {
			for _, h := range job.Headers() {
				m.send(&registerStmtCmd{starName: job.StarName(), headerHash: h.Hash(), stmt: stmt})
			}
		}
		outcomes, err := job.Run(spanCtx, onStatement)
		span.Finish(err)
		m.send(&loadResultCmd{starName: job.StarName(), headers: job.Headers(), outcomes: outcomes, err: err})
	}()
}

type registerStmtCmd struct {
	starName   string
	headerHash uint64
	stmt       Statement
}

func (c *registerStmtCmd) run(m *Manager) {
	idx := m.indexFor(c.starName)
	s, ok := idx[c.headerHash]
	if !ok || s.seg.State != segment.Loading {
		return
	}
	s.stmts = append(s.stmts, c.stmt)
}

type loadResultCmd struct {
	starName string
	headers  []segment.Header
	outcomes map[uint64]Outcome
	err      error
}

func (c *loadResultCmd) run(m *Manager) {
	idx := m.indexFor(c.starName)
	for _, h := range c.headers {
		hv := h.Hash()
		s, ok := idx[hv]
		if !ok || s.seg.State != segment.Loading {
			// Already resolved via CancelExecution or a prior result.
			continue
		}

		if s.stale {
			resolveFailed(s, rolaperr.StaleSegment.New("segment flushed while loading"))
			delete(idx, hv)
			continue
		}

		if c.err != nil {
			resolveFailed(s, rolaperr.SqlFailure.New(c.err.Error()))
			delete(idx, hv)
			continue
		}

		outcome, ok := c.outcomes[hv]
		if !ok {
			resolveFailed(s, ErrEmptySegment)
			delete(idx, hv)
			continue
		}
		if outcome.Err != nil {
			resolveFailed(s, rolaperr.SqlFailure.New(outcome.Err.Error()))
			delete(idx, hv)
			continue
		}

		s.seg.Transition(segment.Loaded, outcome.Body, nil)
		s.future.resolve(Result{Body: outcome.Body})
		if m.disableCaching {
			delete(idx, hv)
			continue
		}
		if m.extCache != nil && !m.disableCaching {
			m.pushToExternalCache(c.starName, h, outcome.Body)
		}
	}
}

func resolveFailed(s *slot, err error) {
	s.seg.Transition(segment.Failed, nil, err)
	s.future.resolve(Result{Err: err})
}

func (m *Manager) pushToExternalCache(starName string, h segment.Header, body *segment.Body) {
	go func() {
		m.cacheSem <- struct{}{}
		defer func() { <-m.cacheSem }()
		if err := m.extCache.Put(starName, h, body); err != nil {
			m.log.WithField("star", starName).WithError(err).Warn("failed to push segment to external cache")
		}
	}()
}

// Load implements spec.md §4.5's Load command: idempotently reserves
// headers for job's batch and returns one Future per header, keyed by
// the header's Hash(). Headers already LOADING or LOADED elsewhere are
// attached to without re-issuing SQL.
func (m *Manager) Load(ctx context.Context, job Job, execID execctx.ID) map[uint64]*Future {
	reply := make(chan map[uint64]*Future, 1)
	m.send(&loadCmd{ctx: ctx, job: job, execID: execID, reply: reply})
	select {
	case r := <-reply:
		return r
	case <-m.stopped:
		return nil
	}
}
