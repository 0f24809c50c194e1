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

// Package execctx models the caller-supplied execution/cancellation
// context spec.md §6 names as an external collaborator: an identity a
// query execution is keyed by, a deadline, and the statement handles
// that execution has registered so CancelExecution (spec.md §4.5) can
// reach in and abort them.
package execctx

import (
	"context"
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"
)

// Locus is the minimal "where" a SQL executor needs: the execution this
// statement belongs to, plus a human-readable label for logging, mirroring
// the teacher's own sql.Context "locus" concept used around query
// execution tracing.
type Locus struct {
	Execution ID
	Label     string
}

// ID identifies one query execution for the lifetime of a cancellation
// scope, the same role the teacher's connection/pid identifiers play in
// its own sql.Context.
type ID uuid.UUID

// NewID mints a fresh execution identity.
func NewID() ID {
	u, err := uuid.NewV4()
	if err != nil {
		// satori/go.uuid only returns an error here if the system
		// entropy source is broken; there is no sane fallback.
		panic("execctx: failed to generate execution id: " + err.Error())
	}
	return ID(u)
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Statement is anything a SQL executor hands back that can be aborted
// mid-flight (a driver statement, a context.CancelFunc wrapper, ...).
type Statement interface {
	Cancel() error
}

// Execution is one caller's query execution: a context.Context carrying
// its deadline, plus the set of in-flight SQL statement handles it has
// registered. The cache manager actor (package cache) holds one
// Execution's ID in every slot waiter it registers on that execution's
// behalf.
type Execution struct {
	ID       ID
	ctx      context.Context
	cancel   context.CancelFunc
	deadline time.Time

	mu         sync.Mutex
	statements []Statement
	cancelled  bool
}

// New creates an Execution bound to parent, expiring at deadline (the
// zero Time means no deadline).
func New(parent context.Context, deadline time.Time) *Execution {
	ctx := parent
	var cancel context.CancelFunc
	if !deadline.IsZero() {
		ctx, cancel = context.WithDeadline(parent, deadline)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	return &Execution{ID: NewID(), ctx: ctx, cancel: cancel, deadline: deadline}
}

// Context returns the bound context.Context, for callers that need to
// pass it to a SQL executor.
func (e *Execution) Context() context.Context {
	return e.ctx
}

// Deadline reports the configured deadline and whether one is set.
func (e *Execution) Deadline() (time.Time, bool) {
	return e.deadline, !e.deadline.IsZero()
}

// RegisterStatement records a SQL statement handle as belonging to this
// execution, so Cancel can abort it.
func (e *Execution) RegisterStatement(s Statement) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancelled {
		_ = s.Cancel()
		return
	}
	e.statements = append(e.statements, s)
}

// CheckCancelOrTimeout returns the context's error if it has been
// cancelled or its deadline has passed, nil otherwise. The loader makes
// the same check on its own context every row (spec.md §4.6).
func (e *Execution) CheckCancelOrTimeout() error {
	select {
	case <-e.ctx.Done():
		return e.ctx.Err()
	default:
		return nil
	}
}

// Cancel marks the execution cancelled and aborts every registered
// statement. Safe to call more than once.
func (e *Execution) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancelled {
		return
	}
	e.cancelled = true
	e.cancel()
	for _, s := range e.statements {
		_ = s.Cancel()
	}
}
