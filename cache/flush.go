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
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
)

// Region is the caller-supplied predicate identifying which headers a
// Flush should drop, per spec.md §4.5 ("computes the set of headers
// intersecting the region"). Keeping this a plain matcher function
// (rather than cache importing predicate/star to model a region itself)
// keeps the cache package's only dependency on segment's own types.
type Region struct {
	Match func(h segment.Header) bool
}

type flushCmd struct {
	starName string
	region   Region
	reply    chan int
}

func (c *flushCmd) run(m *Manager) {
	idx := m.indexFor(c.starName)
	affected := 0
	for hv, s := range idx {
		if !c.region.Match(s.seg.Header) {
			continue
		}
		affected++
		switch s.seg.State {
		case segment.Loaded:
			delete(idx, hv)
			if m.extCache != nil {
				m.deleteFromExternalCache(c.starName, s.seg.Header)
			}
		case segment.Loading:
			// Mark stale; loadResultCmd discards the body and resolves
			// the future with StaleSegment once the in-flight SQL
			// completes (spec.md §5 "Ordering and consistency").
			s.stale = true
		}
	}
	c.reply <- affected
}

func (m *Manager) deleteFromExternalCache(starName string, h segment.Header) {
	go func() {
		m.cacheSem <- struct{}{}
		defer func() { <-m.cacheSem }()
		if err := m.extCache.Delete(starName, h); err != nil {
			m.log.WithField("star", starName).WithError(err).Warn("failed to delete segment from external cache")
		}
	}()
}

// Flush implements spec.md §4.5's Flush command and returns the number
// of headers it affected (removed outright, or marked stale).
func (m *Manager) Flush(starName string, region Region) int {
	reply := make(chan int, 1)
	m.send(&flushCmd{starName: starName, region: region, reply: reply})
	select {
	case r := <-reply:
		return r
	case <-m.stopped:
		return 0
	}
}
