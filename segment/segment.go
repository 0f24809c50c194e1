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

package segment

import "github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"

// State is a Segment's lifecycle state, per spec.md §3: "LOADING ->
// (LOADED | FAILED); never the reverse."
type State int

const (
	Loading State = iota
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "LOADING"
	case Loaded:
		return "LOADED"
	case Failed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Segment pairs an immutable Header with its (eventually present) Body.
// A LOADED segment's Body is never mutated after Transition installs it.
type Segment struct {
	Header Header
	State  State
	Body   *Body
	Err    error
}

// NewLoading returns a reserved segment in the LOADING state, with
// neither a body nor an error yet.
func NewLoading(h Header) *Segment {
	return &Segment{Header: h, State: Loading}
}

// Transition moves the segment to LOADED (with body) or FAILED (with
// err). Panics (Internal) on any transition that is not LOADING ->
// {LOADED, FAILED}, since spec.md §5 makes that the one hard invariant
// of the state machine.
func (s *Segment) Transition(next State, body *Body, err error) {
	if s.State != Loading {
		panic(rolaperr.Internal.New("illegal segment state transition from " + s.State.String()))
	}
	switch next {
	case Loaded:
		s.Body = body
		s.State = Loaded
	case Failed:
		s.Err = err
		s.State = Failed
	default:
		panic(rolaperr.Internal.New("segment may only transition to LOADED or FAILED"))
	}
}
