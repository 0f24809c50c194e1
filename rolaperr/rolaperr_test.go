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

package rolaperr_test

import (
	"testing"

	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/stretchr/testify/require"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
)

func TestKindsClassifyTheirOwnErrors(t *testing.T) {
	err := rolaperr.ConstraintNotSupported.New("minus inside intersect")
	require.True(t, rolaperr.ConstraintNotSupported.Is(err))
	require.False(t, rolaperr.InvalidConstraint.Is(err))
}

// TestDistinctKindsDoNotCrossMatch walks every declared Kind, builds one
// error from each, and checks that only its own Kind classifies it --
// the property every other package's error handling (the cache's failed-load futures,
// the planner's ConstraintNotSupported fallback, ...) relies on.
func TestDistinctKindsDoNotCrossMatch(t *testing.T) {
	kinds := []*errors.Kind{
		rolaperr.ConstraintNotSupported,
		rolaperr.InvalidConstraint,
		rolaperr.DialectCapabilityMismatch,
		rolaperr.ResourceLimitExceeded,
		rolaperr.StaleSegment,
		rolaperr.ExecutionCancelled,
		rolaperr.SqlFailure,
		rolaperr.Internal,
	}

	errs := make([]error, len(kinds))
	for i, k := range kinds {
		errs[i] = k.New("x")
	}

	for i, k := range kinds {
		for j, e := range errs {
			if i == j {
				require.True(t, k.Is(e))
			} else {
				require.False(t, k.Is(e))
			}
		}
	}
}

func TestErrorMessageIncludesFormattedArgument(t *testing.T) {
	err := rolaperr.InvalidConstraint.New("non-numeric value 'abc'")
	require.Contains(t, err.Error(), "non-numeric value 'abc'")
}
