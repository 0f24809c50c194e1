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

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/config"
)

func TestDefault(t *testing.T) {
	d := config.Default()
	require.True(t, d.UseAggregates)
	require.False(t, d.DisableCaching)
	require.Equal(t, int64(1000), d.SparseSegmentCountThreshold)
	require.Equal(t, 0.5, d.SparseSegmentDensityThreshold)
	require.Equal(t, "mysql", d.Dialect)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rolapd.toml")
	writeFile(t, path, `
use_aggregates = false
max_constraints = 10

[external_cache]
kind = "bolt"
path = "/var/lib/rolapd/segments.db"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.False(t, cfg.UseAggregates)
	require.Equal(t, 10, cfg.MaxConstraints)
	require.Equal(t, "bolt", cfg.ExternalCache.Kind)
	require.Equal(t, "/var/lib/rolapd/segments.db", cfg.ExternalCache.Path)
	// Fields absent from the file keep Default()'s values.
	require.Equal(t, int64(1000), cfg.SparseSegmentCountThreshold)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rolapd.yaml")
	writeFile(t, path, `
disable_caching: true
dialect: ansi
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.True(t, cfg.DisableCaching)
	require.Equal(t, "ansi", cfg.Dialect)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
