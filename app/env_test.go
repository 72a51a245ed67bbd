// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jcodagnone/gardecm/cache"
	"github.com/jcodagnone/gardecm/config"
	"github.com/jcodagnone/gardecm/duty"
	"github.com/jcodagnone/gardecm/registry"
	"github.com/jcodagnone/gardecm/scrape"
	"github.com/jcodagnone/gardecm/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())

	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)

	return cfg
}

func TestDuckDBProvider(t *testing.T) {
	ctx := context.Background()
	p := &DuckDBProvider{Path: filepath.Join(t.TempDir(), "data", "garde.duckdb")}
	t.Cleanup(func() { _ = p.Close() })

	db, err := p.DB(ctx)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx))

	again, err := p.DB(ctx)
	require.NoError(t, err)
	assert.Same(t, db, again)

	var point string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT ST_AsText(ST_Point(11.5, 3.8))`).Scan(&point))
	assert.Equal(t, "POINT (11.5 3.8)", point)
}

func TestStaticProvider(t *testing.T) {
	_, err := StaticProvider{}.DB(context.Background())
	assert.Error(t, err)
}

func TestNewEnv(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	p := &DuckDBProvider{}
	t.Cleanup(func() { _ = p.Close() })

	env, err := NewEnv(ctx, cfg, p, nil)
	require.NoError(t, err)

	assert.IsType(t, cache.Noop{}, env.Cache)
	assert.Equal(t, 35, env.Scorer.Weights().Threshold)

	// a host application can hand over its own connection
	shared, err := NewEnv(ctx, cfg, StaticProvider{Conn: env.DB}, nil)
	require.NoError(t, err)
	assert.Same(t, env.DB, shared.DB)

	soleil := &registry.Pharmacy{Name: "Pharmacie du Soleil", City: "Yaounde", Point: spatial.Point{Lat: 3.8600, Lng: 11.5250}}
	require.NoError(t, env.Registry.BulkInsert(ctx, []*registry.Pharmacy{soleil}))

	day := duty.Day(time.Now())
	id := soleil.ID
	require.NoError(t, env.Duty.Commit(ctx, duty.Batch{
		Day:     day,
		RunID:   "run",
		Matched: []duty.Record{{PharmacyID: &id, Day: day, ScrapedName: "PHARMACIE DU SOLEIL", City: "Yaounde"}},
	}))

	results, err := env.Resolver().Nearby(ctx, spatial.Point{Lat: 3.8605, Lng: 11.5255}, 0, day)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Pharmacie du Soleil", results[0].Name)
}

func TestNewEnvWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.URL = "redis://" + mr.Addr() + "/0"

	p := &DuckDBProvider{}
	t.Cleanup(func() { _ = p.Close() })

	env, err := NewEnv(context.Background(), cfg, p, nil)
	require.NoError(t, err)
	assert.NotEqual(t, cache.Noop{}, env.Cache)
}

func TestEnvFetcher(t *testing.T) {
	cfg := testConfig(t)

	p := &DuckDBProvider{}
	t.Cleanup(func() { _ = p.Close() })

	env, err := NewEnv(context.Background(), cfg, p, nil)
	require.NoError(t, err)

	yaounde, err := scrape.FindCity("yaounde")
	require.NoError(t, err)

	f := env.Fetcher("garde/test", []scrape.City{yaounde})
	assert.Equal(t, []scrape.City{yaounde}, f.Cities())

	assert.NotNil(t, env.Reconciler(f, false))
}
