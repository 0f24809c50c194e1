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

package rolap

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/aggmatch"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/bitkey"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/cache"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/config"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/dialect"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/execctx"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/extcache"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/loader"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/sqlgen"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/star"
)

// AggregationManager is the top-level facade spec.md §6 names: lookup,
// load, flush, cancel, shutdown, and generateDrillThroughSql, wired over
// bitkey/predicate/star/aggmatch/sqlgen/cache/loader. Per spec.md §9
// ("treat as a context-scoped service passed explicitly... so tests can
// construct isolated instances"), it is never a process-wide singleton:
// every query engine constructs and owns exactly one.
type AggregationManager struct {
	cfg     config.Config
	caps    dialect.Capabilities
	mgr     *cache.Manager
	builder *sqlgen.Builder
	exec    loader.SQLExecutor
	log     *logrus.Entry

	stars map[string]*registeredStarEntry
}

// registeredStarEntry pairs a star's join-graph descriptor with the
// schema/cube/fact identifiers its segment.Header fingerprints embed.
type registeredStarEntry struct {
	star                     *star.Star
	schemaID, cubeID, factID uint32
}

// New constructs an AggregationManager wired against cfg's dialect and
// (optionally) external cache. executor is the outbound SQL-execution
// collaborator spec.md §6 names; log may be nil.
func New(cfg config.Config, executor loader.SQLExecutor, extCache extcache.Cache, log *logrus.Entry) (*AggregationManager, error) {
	caps, err := dialect.Get(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("system", "rolap")

	mgr := cache.New(cache.Config{
		DisableCaching:       cfg.DisableCaching,
		SQLExecutorThreads:   cfg.SQLExecutorThreads,
		CacheExecutorThreads: cfg.CacheExecutorThreads,
	}, extCache, log)

	m := &AggregationManager{
		cfg:     cfg,
		caps:    caps,
		mgr:     mgr,
		builder: sqlgen.NewBuilder(caps),
		log:     log,
		stars:   map[string]*registeredStarEntry{},
		exec:    executor,
	}
	return m, nil
}

// RegisterStar makes star queryable under name, fingerprinted under
// (schemaID, cubeID, factID) in every segment.Header this star produces.
func (m *AggregationManager) RegisterStar(name string, s *star.Star, schemaID, cubeID, factID uint32) {
	m.stars[name] = &registeredStarEntry{star: s, schemaID: schemaID, cubeID: cubeID, factID: factID}
}

// StarWidth returns a registered star's bit-key width, so callers
// building CellRequests/Batches (BuildBatches needs it to derive a
// request's constrained-columns bit key) don't need direct access to
// the *star.Star this facade wraps.
func (m *AggregationManager) StarWidth(name string) (int, error) {
	e, err := m.starEntry(name)
	if err != nil {
		return 0, err
	}
	return e.star.Width, nil
}

func (m *AggregationManager) starEntry(name string) (*registeredStarEntry, error) {
	e, ok := m.stars[name]
	if !ok {
		return nil, rolaperr.Internal.New(fmt.Sprintf("star %q is not registered", name))
	}
	return e, nil
}

// Shutdown stops the underlying cache actor and waits for it to drain.
func (m *AggregationManager) Shutdown() {
	m.mgr.Shutdown()
}

// CancelExecution implements spec.md §6's cancel(execution) entry point.
func (m *AggregationManager) CancelExecution(execID execctx.ID) int {
	return m.mgr.CancelExecution(execID)
}

// Flush implements spec.md §6's flush(region) entry point.
func (m *AggregationManager) Flush(starName string, region cache.Region) int {
	return m.mgr.Flush(starName, region)
}

// RegionForHeader builds the header-matching Region for a single cell
// request's header, used directly by Flush callers that invalidate one
// logical region rather than an arbitrary predicate.
func RegionForHeader(h segment.Header) cache.Region {
	return cache.Region{Match: func(other segment.Header) bool { return other.Equal(h) }}
}

// headerFor builds the segment.Header a batch's aggregation targets,
// from the column predicates' enumerated (finite) value sets. Column
// predicates that cannot be finitely enumerated (a wildcard region) are
// recorded as Wildcard regions instead.
func headerFor(entry *registeredStarEntry, measureBitPos int, bitKey bitkey.Key, colPreds map[int]*predicate.ColumnPredicate, extraPreds []predicate.Predicate) segment.Header {
	var regions []segment.ColumnRegion
	for pos, ok := bitKey.NextSetBit(0); ok; pos, ok = bitKey.NextSetBit(pos + 1) {
		p, has := colPreds[pos]
		if !has {
			regions = append(regions, segment.ColumnRegion{BitPos: pos, Wildcard: true})
			continue
		}
		values, finite := p.Enumerate()
		if !finite {
			regions = append(regions, segment.ColumnRegion{BitPos: pos, Wildcard: true})
			continue
		}
		regions = append(regions, segment.ColumnRegion{BitPos: pos, Values: values})
	}

	var fps []uint64
	for _, ep := range extraPreds {
		fps = append(fps, ep.Hash())
	}

	return segment.NewHeader(entry.schemaID, entry.cubeID, entry.factID, measureBitPos, bitKey, regions, fps)
}

// Lookup implements spec.md §6's lookup(cellRequest) entry point for a
// single request: it derives the segment header for req, then asks the
// cache manager for a local hit, an in-flight Future, or Miss.
func (m *AggregationManager) Lookup(req CellRequest, execID execctx.ID) (cache.LookupResult, error) {
	entry, err := m.starEntry(req.StarName)
	if err != nil {
		return cache.LookupResult{}, err
	}
	width := entry.star.Width
	cols := req.ConstrainedColumns(width)

	colPreds := map[int]*predicate.ColumnPredicate{}
	for _, cv := range req.Columns {
		colPreds[cv.BitPos] = predicate.EqualValue(width, predicate.ColumnRef{StarID: entry.star.ID, BitPos: cv.BitPos}, entry.star.Column(cv.BitPos).Datatype, cv.Value)
	}
	h := headerFor(entry, req.MeasureBitPos, cols, colPreds, req.Slicer)
	return m.mgr.Lookup(req.StarName, h, execID), nil
}

// Load implements spec.md §6's load(batch) entry point: it runs the
// AggStar matcher (unless compound predicates or a disabled
// useAggregates config force the fact table), tries
// cache.FindRollupCandidates before issuing SQL, builds the
// loader.Plan/RollupPlan either way, and submits it to the cache
// manager. Returns one Future per segment header the batch targets,
// keyed by header hash.
func (m *AggregationManager) Load(ctx context.Context, b Batch, execID execctx.ID) (map[uint64]*cache.Future, error) {
	entry, err := m.starEntry(b.Key.StarName)
	if err != nil {
		return nil, err
	}
	s := entry.star

	levelKey := bitkey.New(s.Width)
	for pos := range b.ColumnPredicates {
		levelKey = levelKey.Set(pos)
	}
	measureKey := bitkey.New(s.Width).Set(b.MeasureBitPos)

	var distinctMembers []aggmatch.DistinctMeasure
	if b.Aggregator == sqlgen.CountDistinct {
		distinctMembers = append(distinctMembers, aggmatch.DistinctMeasure{BitPos: b.MeasureBitPos})
	}

	matchReq := aggmatch.Request{
		LevelBitKey:           levelKey,
		MeasureBitKey:         measureKey,
		DistinctMembers:       distinctMembers,
		HasCompoundPredicates: len(b.Key.Predicates) > 0,
	}

	res, matched := aggmatch.Match(s, matchReq, m.cfg.UseAggregates)

	table := s.Fact
	columns := levelKey.Bits()
	if matched {
		table = res.AggStar.Table
		if res.Rollup {
			columns = res.GroupByKey.Bits()
		}
	}

	header := headerFor(entry, b.MeasureBitPos, b.Key.ConstrainedColumns, b.ColumnPredicates, b.Key.Predicates)

	// Rollup-from-existing-segments (spec.md §4.5) is only attempted for
	// the aggregators IsRollableAggregator can decide without a
	// DistinctRollableLevel/FactCountAvailable input this facade does not
	// track per-measure (CountDistinct's rollable level comes from the
	// AggStar match, Avg's fact-count co-materialisation from a sibling
	// segment neither of which this simplified facade threads through
	// yet; see DESIGN.md). Sum/Min/Max/Count never consult those fields.
	rollupEligible := b.Aggregator == sqlgen.Sum || b.Aggregator == sqlgen.Min ||
		b.Aggregator == sqlgen.Max || b.Aggregator == sqlgen.Count
	if rollupEligible {
		if headers, ok := m.mgr.FindRollupCandidates(b.Key.StarName, cache.RollupQuery{
			Target:     header,
			Aggregator: b.Aggregator,
		}); ok {
			bodies, ferr := m.fetchLoadedBodies(b.Key.StarName, headers)
			if ferr == nil {
				plan := loader.RollupPlan{
					Star:          s,
					StarName:      b.Key.StarName,
					Target:        header,
					TargetColumns: columns,
					Aggregator:    b.Aggregator,
					Sources:       bodies,
				}
				job := loader.NewRollupJobWithThresholds(plan, m.cfg.SparseSegmentCountThreshold, m.cfg.SparseSegmentDensityThreshold, m.log)
				return m.mgr.Load(ctx, job, execID), nil
			}
		}
	}

	spec := &sqlgen.Spec{
		Star:             s,
		Table:            table,
		Columns:          columns,
		ColumnPredicates: b.ColumnPredicates,
		ExtraPredicates:  b.Key.Predicates,
		Measures: []sqlgen.Measure{{
			Column:                 s.Column(b.MeasureBitPos),
			Aggregator:             b.Aggregator,
			NonDistinctEquivalent:  b.NonDistinctEquivalent,
		}},
	}

	plan := loader.Plan{
		Star:     s,
		StarName: b.Key.StarName,
		Spec:     spec,
		Cohorts:  []loader.Cohort{{Header: header, Columns: columns}},
	}
	job := loader.NewJob(plan, m.builder, m.exec, execctx.Locus{Execution: execID}, loader.Config{
		SparseSegmentCountThreshold:   m.cfg.SparseSegmentCountThreshold,
		SparseSegmentDensityThreshold: m.cfg.SparseSegmentDensityThreshold,
		ResultLimit:                   m.cfg.ResultLimit,
	}, m.log)

	return m.mgr.Load(ctx, job, execID), nil
}

// fetchLoadedBodies resolves each candidate header to its currently
// LOADED body via an ordinary Lookup, failing if any has since been
// evicted (a narrow race between FindRollupCandidates and this call);
// the caller falls back to SQL in that case.
func (m *AggregationManager) fetchLoadedBodies(starName string, headers []segment.Header) ([]loader.RollupSource, error) {
	out := make([]loader.RollupSource, 0, len(headers))
	for _, h := range headers {
		res := m.mgr.Lookup(starName, h, execctx.ID{})
		if res.Kind != cache.Hit {
			return nil, rolaperr.Internal.New("rollup source segment is no longer loaded")
		}
		out = append(out, loader.RollupSource{Header: h, Body: res.Body})
	}
	return out, nil
}

// GenerateDrillThroughSQL implements spec.md §6's
// generateDrillThroughSql(request, slicer, fields, countOnly) entry
// point: a pure function returning the SQL string and per-column type
// list for row-level detail, never executing it. countOnly swaps the
// SELECT list for a single COUNT(*)-shaped expression via the dialect's
// GenerateCountExpression, per SPEC_FULL.md §9.
func (m *AggregationManager) GenerateDrillThroughSQL(starName string, fields []int, slicer []predicate.Predicate, countOnly bool) (string, []sqlgen.ColumnType, error) {
	entry, err := m.starEntry(starName)
	if err != nil {
		return "", nil, err
	}
	s := entry.star

	spec := &sqlgen.Spec{
		Star:            s,
		Table:           s.Fact,
		ExtraPredicates: slicer,
	}
	if countOnly {
		spec.Measures = []sqlgen.Measure{{Column: s.Column(fields[0]), Aggregator: sqlgen.Count}}
	} else {
		spec.Columns = fields
		spec.OrderBy = true
	}
	return m.builder.Build(spec)
}
