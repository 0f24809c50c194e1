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

// Package tracing wraps github.com/opentracing/opentracing-go the way the
// teacher wires a tracer through its handler (server/handler_linux_test.go
// starts the server against an opentracing.NoopTracer{} so a span is always
// the ambient default, even with nothing collecting it): a Span call is
// cheap and safe to leave in the hot path whether or not a real tracer is
// registered.
package tracing

import (
	"context"

	"github.com/opentracing/opentracing-go"
	otlog "github.com/opentracing/opentracing-go/log"
)

// Span wraps an opentracing.Span with the two outcomes a traced cache
// load job reports: success or a tagged error.
type Span struct {
	span opentracing.Span
}

// StartSpanFromContext starts operationName as a child of any span already
// in ctx (or a new root span if none), tagging it with the given key/value
// pairs (an even-length alternating list, mirroring opentracing's own
// StartSpanFromContext convention).
func StartSpanFromContext(ctx context.Context, operationName string, tags ...interface{}) (context.Context, *Span) {
	span, spanCtx := opentracing.StartSpanFromContext(ctx, operationName)
	for i := 0; i+1 < len(tags); i += 2 {
		if key, ok := tags[i].(string); ok {
			span.SetTag(key, tags[i+1])
		}
	}
	return spanCtx, &Span{span: span}
}

// Finish closes the span, recording err (if non-nil) as a span log and
// setting the conventional "error" tag.
func (s *Span) Finish(err error) {
	if s == nil || s.span == nil {
		return
	}
	if err != nil {
		s.span.SetTag("error", true)
		s.span.LogFields(otlog.Error(err))
	}
	s.span.Finish()
}

// SetTag annotates the span with a single key/value pair.
func (s *Span) SetTag(key string, value interface{}) *Span {
	if s == nil || s.span == nil {
		return s
	}
	s.span.SetTag(key, value)
	return s
}
