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
	"sync"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
)

// Result is what a Future eventually resolves to: a body, or an error
// (StaleSegment, ExecutionCancelled, SqlFailure, ...).
type Result struct {
	Body *segment.Body
	Err  error
}

// Future is handed back to every Lookup/Load caller attached to the
// same LOADING segment. It resolves exactly once, and every waiter --
// however many attached before resolution -- observes the identical
// Result, per spec.md §8's "all waiters receive the same body
// reference." A plain channel cannot do this (only one receiver ever
// gets a buffered send), so resolution is close(done) plus a stored
// Result read under a mutex.
type Future struct {
	mu   sync.Mutex
	done chan struct{}
	res  Result
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(r Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.done:
		// Already resolved; a Future is only ever resolved once by
		// construction (one slot, one terminal transition). Ignored
		// rather than panicking, since a stale-then-retried header can
		// legitimately produce a second transition attempt on a Future
		// that has already been superseded by a fresh one.
		return
	default:
		f.res = r
		close(f.done)
	}
}

// Wait blocks until the future resolves or ctx is done, whichever comes
// first.
func (f *Future) Wait(ctx context.Context) (*segment.Body, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.res.Body, f.res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
