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

// Package cache implements the segment cache manager: spec.md §4.5's
// single-threaded, asynchronous actor that owns the segment index, the
// in-flight load registry, and the gateway to a pluggable external
// segment-body cache. Clients never touch the index directly; they
// submit small immutable commands the actor processes one at a time, in
// arrival order, off a buffered channel -- exactly the "actor-like
// coordinator" shape spec.md §2 describes, learned in idiom from the
// teacher's own single-goroutine-owns-shared-state patterns (there is no
// retrievable production "actor" file in this pack, so the channel
// plus worker-pool shape here is grounded directly in spec.md §5's
// design-level description rather than a specific teacher file).
package cache

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/execctx"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/extcache"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
)

// slot is one segment's entry in a star's index: its current Segment,
// the Future waiting on it, the executions registered as its waiters,
// whether a Flush has marked it stale while LOADING, and the SQL
// statement handles registered for its load.
type slot struct {
	seg     *segment.Segment
	future  *Future
	waiters map[execctx.ID]struct{}
	stale   bool
	stmts   []Statement
}

// starIndex is one star's segment index: header hash -> slot.
type starIndex map[uint64]*slot

// Manager is the segment cache manager actor. Construct with New, run
// its actor loop with Start, and stop it with Shutdown.
type Manager struct {
	log *logrus.Entry

	extCache extcache.Cache

	sqlSem   chan struct{}
	cacheSem chan struct{}

	commands chan command
	wg       sync.WaitGroup

	indexMu sync.Mutex // guards index existence only; contents are actor-owned
	index   map[string]starIndex

	disableCaching bool

	shutdownOnce sync.Once
	stopped      chan struct{}
}

// Config is the subset of config.Config the manager needs.
type Config struct {
	DisableCaching     bool
	SQLExecutorThreads int
	CacheExecutorThreads int
}

// New constructs a Manager. extCache may be nil (no external cache
// configured).
func New(cfg Config, extCache extcache.Cache, log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	sqlThreads := cfg.SQLExecutorThreads
	if sqlThreads <= 0 {
		sqlThreads = 1
	}
	cacheThreads := cfg.CacheExecutorThreads
	if cacheThreads <= 0 {
		cacheThreads = 1
	}
	m := &Manager{
		log:            log.WithField("system", "cache").WithField("component", "cache"),
		extCache:       extCache,
		sqlSem:         make(chan struct{}, sqlThreads),
		cacheSem:       make(chan struct{}, cacheThreads),
		commands:       make(chan command, 64),
		index:          map[string]starIndex{},
		disableCaching: cfg.DisableCaching,
		stopped:        make(chan struct{}),
	}
	m.wg.Add(1)
	go m.run()
	return m
}

func (m *Manager) run() {
	defer m.wg.Done()
	for cmd := range m.commands {
		cmd.run(m)
	}
}

// Shutdown stops the actor loop and waits for it to drain. Safe to call
// more than once.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.commands)
		close(m.stopped)
	})
	m.wg.Wait()
}

func (m *Manager) indexFor(starName string) starIndex {
	// Only ever read/written on the actor goroutine once a command is
	// running, so no lock is needed for the map contents; indexMu only
	// protects first-creation against a caller racing Shutdown (which
	// never touches index), kept for defensiveness since New/Shutdown
	// happen off the actor goroutine.
	m.indexMu.Lock()
	defer m.indexMu.Unlock()
	idx, ok := m.index[starName]
	if !ok {
		idx = starIndex{}
		m.index[starName] = idx
	}
	return idx
}

// command is one message the actor processes. All mutation of index
// state happens inside run, on the actor goroutine, per spec.md §5.
type command interface {
	run(m *Manager)
}

// send enqueues cmd and blocks until an actor-owned reply channel (if
// any) resolves, by the caller reading from it after send returns.
func (m *Manager) send(cmd command) {
	select {
	case m.commands <- cmd:
	case <-m.stopped:
	}
}

// LookupKind classifies a Lookup result, per spec.md §4.5's "Either
// Body, PendingFuture" contract (extended with an explicit miss token
// instead of leaving it implicit).
type LookupKind int

const (
	Miss LookupKind = iota
	Hit
	Pending
)

// LookupResult is the outcome of Lookup.
type LookupResult struct {
	Kind   LookupKind
	Body   *segment.Body
	Future *Future
}

type lookupCmd struct {
	starName string
	header   segment.Header
	execID   execctx.ID
	reply    chan LookupResult
}

func (c *lookupCmd) run(m *Manager) {
	if m.disableCaching {
		c.reply <- LookupResult{Kind: Miss}
		return
	}
	idx := m.indexFor(c.starName)
	s, ok := idx[c.header.Hash()]
	if !ok {
		c.reply <- LookupResult{Kind: Miss}
		return
	}
	switch s.seg.State {
	case segment.Loaded:
		c.reply <- LookupResult{Kind: Hit, Body: s.seg.Body}
	case segment.Loading:
		s.waiters[c.execID] = struct{}{}
		c.reply <- LookupResult{Kind: Pending, Future: s.future}
	default: // Failed slots are removed from the index; unreachable here.
		c.reply <- LookupResult{Kind: Miss}
	}
}

// Lookup implements spec.md §4.5's Lookup command: synchronous local
// lookup, returning a body on a hit, a Future to await on an in-flight
// load, or Miss.
func (m *Manager) Lookup(starName string, h segment.Header, execID execctx.ID) LookupResult {
	reply := make(chan LookupResult, 1)
	m.send(&lookupCmd{starName: starName, header: h, execID: execID, reply: reply})
	select {
	case r := <-reply:
		return r
	case <-m.stopped:
		return LookupResult{Kind: Miss}
	}
}
