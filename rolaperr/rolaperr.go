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

// Package rolaperr declares the error Kind catalogue every other package
// in this module raises. Kinds follow the teacher's own sentinel-error
// convention (see auth.ErrNotAuthorized in the teacher repo): a package
// level errors.Kind, constructed once, formatted with New(args...) at the
// call site, and classified downstream with Is(err).
package rolaperr

import (
	errors "gopkg.in/src-d/go-errors.v1"
)

var (
	// ConstraintNotSupported is raised when a predicate variant cannot be
	// translated to SQL or combined with another predicate, e.g. a minus
	// predicate appearing inside an intersect. The planner falls back to
	// non-native evaluation.
	ConstraintNotSupported = errors.NewKind("constraint not supported: %s")

	// InvalidConstraint is raised when a value cannot satisfy the
	// datatype it is being matched against, e.g. a non-numeric literal
	// compared to a numeric column. Fatal for the current request only.
	InvalidConstraint = errors.NewKind("invalid constraint: %s")

	// DialectCapabilityMismatch is raised when a query shape requires a
	// capability (grouping sets, count distinct, ...) the configured
	// dialect does not advertise.
	DialectCapabilityMismatch = errors.NewKind("dialect does not support: %s")

	// ResourceLimitExceeded is raised when a result set exceeds the
	// configured row limit. Aborts the whole load batch.
	ResourceLimitExceeded = errors.NewKind("resource limit exceeded: %s")

	// StaleSegment is observed by a waiter whose segment was flushed
	// while its load was in flight. Callers should treat it as a miss
	// and retry.
	StaleSegment = errors.NewKind("segment is stale, retry")

	// ExecutionCancelled is observed by every waiter of an execution
	// that was cancelled, whether by explicit Cancel or by timeout.
	ExecutionCancelled = errors.NewKind("execution cancelled")

	// SqlFailure wraps a driver/SQL error. Converted into LoadFailed for
	// every segment reserved by the batch.
	SqlFailure = errors.NewKind("sql failure: %s")

	// Internal signals a violated invariant (bit key width mismatch, an
	// illegal LOADED -> LOADING transition, ...). These are programmer
	// errors, not operational ones, and are not expected to be recovered
	// from by a caller.
	Internal = errors.NewKind("internal error: %s")
)
