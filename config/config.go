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

// Package config carries the tunables spec.md §6 enumerates for an
// AggregationManager: aggregate-table usage, caching toggles, the
// dense/sparse segment policy, result-size limits, worker pool sizes,
// and which dialect/external-cache an engine bootstraps against. Load
// accepts TOML (the primary format) or YAML (accepted for parity with
// deployments that ship YAML configuration).
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	yaml "gopkg.in/yaml.v2"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
)

// Config is every tunable spec.md §6 names, plus the external-cache and
// dialect selection needed to bootstrap an engine.
type Config struct {
	// UseAggregates enables matching against a star's AggStars (spec.md
	// §4.3); false forces every query against the base fact table.
	UseAggregates bool `toml:"use_aggregates" yaml:"use_aggregates"`

	// DisableCaching makes every Lookup report a Miss and every Load
	// issue fresh SQL, bypassing the segment index entirely.
	DisableCaching bool `toml:"disable_caching" yaml:"disable_caching"`

	// EnableSessionCaching is loaded and carried on Config, but no package
	// reads it: cache.Manager keeps one segment index per star, shared by
	// every caller, and has no per-session partition.
	EnableSessionCaching bool `toml:"enable_session_caching" yaml:"enable_session_caching"`

	// SparseSegmentCountThreshold and SparseSegmentDensityThreshold feed
	// segment.DensityDecision directly.
	SparseSegmentCountThreshold   int64   `toml:"sparse_segment_count_threshold" yaml:"sparse_segment_count_threshold"`
	SparseSegmentDensityThreshold float64 `toml:"sparse_segment_density_threshold" yaml:"sparse_segment_density_threshold"`

	// MaxConstraints is loaded and carried on Config, but no package reads
	// it: the predicate algebra and the SQL builder accept column
	// predicates with any number of discrete values.
	MaxConstraints int `toml:"max_constraints" yaml:"max_constraints"`

	// ResultLimit bounds the number of rows a single segment load may
	// consume before aborting with ResourceLimitExceeded.
	ResultLimit int64 `toml:"result_limit" yaml:"result_limit"`

	// SQLExecutorThreads and CacheExecutorThreads size cache.Manager's
	// two worker-pool semaphores.
	SQLExecutorThreads   int `toml:"sql_executor_threads" yaml:"sql_executor_threads"`
	CacheExecutorThreads int `toml:"cache_executor_threads" yaml:"cache_executor_threads"`

	// Dialect names a registered dialect.Capabilities (dialect.Get).
	Dialect string `toml:"dialect" yaml:"dialect"`

	// ExternalCache configures the pluggable extcache.Cache, when one is
	// wanted.
	ExternalCache ExternalCacheConfig `toml:"external_cache" yaml:"external_cache"`
}

// ExternalCacheConfig selects and configures the external segment-body
// cache. Kind "" or "none" means no external cache; "bolt" opens a
// extcache.BoltCache at Path.
type ExternalCacheConfig struct {
	Kind string `toml:"kind" yaml:"kind"`
	Path string `toml:"path" yaml:"path"`
}

// Default returns the documented defaults: aggregate tables on, caching
// on, a 1000-row/50%-density sparse threshold, 64 constraints per
// predicate, a million-row result limit, two worker threads per pool,
// the "mysql" dialect, and no external cache.
func Default() Config {
	return Config{
		UseAggregates:                 true,
		DisableCaching:                false,
		EnableSessionCaching:          false,
		SparseSegmentCountThreshold:   1000,
		SparseSegmentDensityThreshold: 0.5,
		MaxConstraints:                64,
		ResultLimit:                   1_000_000,
		SQLExecutorThreads:            2,
		CacheExecutorThreads:          2,
		Dialect:                       "mysql",
	}
}

// Load reads path and unmarshals it over Default(), choosing TOML or
// YAML by file extension (".yaml"/".yml" selects YAML; everything else,
// including no extension, is treated as TOML, matching Pieczasz-smf's own
// config-loading convention in this retrieval pack).
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, rolaperr.Internal.New("reading config file: " + err.Error())
	}
	cfg := Default()
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, rolaperr.Internal.New("parsing yaml config: " + err.Error())
		}
	default:
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
			return Config{}, rolaperr.Internal.New("parsing toml config: " + err.Error())
		}
	}
	return cfg, nil
}
