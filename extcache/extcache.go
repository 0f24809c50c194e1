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

// Package extcache is the pluggable external segment-body cache spec.md
// §5/§6 names: a shared, thread-safe KV-of-blobs store the cache
// manager actor pushes successfully loaded bodies to and deletes them
// from on Flush; the cache manager never reads bodies back through Get,
// so nothing is restored on process restart. Cache is the interface every implementation
// satisfies; BoltCache is the embedded, single-process reference
// implementation.
package extcache

import (
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
)

// Cache is the external segment-body store contract. Implementations
// must be safe for concurrent use, since spec.md §5 requires it ("the
// external cache is shared; it must be thread-safe or wrapped by the
// cache-I/O pool").
type Cache interface {
	// Get looks up a body by its header's stable fingerprint. ok is
	// false on a cache miss.
	Get(starName string, h segment.Header) (*segment.Body, bool, error)

	// Put stores a body, keyed by its header's fingerprint.
	Put(starName string, h segment.Header, body *segment.Body) error

	// Delete drops any cached entry for h, used by Flush (spec.md §4.5).
	Delete(starName string, h segment.Header) error

	// Close releases any underlying resources.
	Close() error
}
