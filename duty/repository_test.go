// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package duty

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jcodagnone/gardecm/registry"
	"github.com/jcodagnone/gardecm/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	today     = time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	yesterday = today.AddDate(0, 0, -1)
)

func setupTestDB(t *testing.T) (registry.Repository, Repository) {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	reg := registry.NewRepository(db)
	if err := reg.CreateSchema(context.Background()); err != nil {
		t.Fatalf("Failed to create registry schema: %v", err)
	}

	repo := NewRepository(db, reg)
	if err := repo.CreateSchema(context.Background()); err != nil {
		t.Fatalf("Failed to create duty schema: %v", err)
	}

	return reg, repo
}

func seedRegistry(t *testing.T, reg registry.Repository, pharmacies ...*registry.Pharmacy) {
	t.Helper()

	require.NoError(t, reg.BulkInsert(context.Background(), pharmacies))
}

func ptr[T any](v T) *T {
	return &v
}

func testBatch(day time.Time, pharmacyID int64) Batch {
	return Batch{
		Day:   day,
		RunID: "run-1",
		Matched: []Record{
			{PharmacyID: ptr(pharmacyID), ScrapedName: "PHARMACIE DU SOLEIL", Quarter: "Mvog-Mbi", City: "Yaounde"},
		},
		Unmatched: []Record{
			{ScrapedName: "PHARMACIE EMANA", Quarter: "Emana", City: "Yaounde", Approx: &spatial.Point{Lat: 3.9050, Lng: 11.5250}},
			{ScrapedName: "PHARMACIE NOUVELLE", City: "Bertoua"},
		},
	}
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("WAT", 3600)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), Day(time.Date(2025, 6, 2, 23, 59, 0, 0, loc)))
}

func TestCommitAndRead(t *testing.T) {
	reg, repo := setupTestDB(t)
	ctx := context.Background()

	soleil := &registry.Pharmacy{
		Name:   "Pharmacie du Soleil",
		City:   "Yaounde",
		Point:  spatial.Point{Lat: 3.8600, Lng: 11.5250},
		Source: registry.SourceOSM,
	}
	seedRegistry(t, reg, soleil)

	require.NoError(t, repo.Commit(ctx, testBatch(today, soleil.ID)))

	count, err := repo.Count(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	records, err := repo.ForDate(ctx, today)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.True(t, records[0].Matched())
	assert.Equal(t, "run-1", records[0].RunID)
	assert.Equal(t, Day(today), records[0].Day.UTC())

	unmatched, err := repo.Unmatched(ctx, today)
	require.NoError(t, err)
	require.Len(t, unmatched, 2)
	assert.Equal(t, "PHARMACIE EMANA", unmatched[0].ScrapedName)
	require.NotNil(t, unmatched[0].Approx)
	assert.InDelta(t, 3.9050, unmatched[0].Approx.Lat, 1e-9)
	assert.Nil(t, unmatched[1].Approx)
	assert.Empty(t, unmatched[1].Quarter)

	gardes, err := repo.Gardes(ctx, today, "")
	require.NoError(t, err)
	require.Len(t, gardes, 1)
	assert.Equal(t, "Pharmacie du Soleil", gardes[0].Pharmacy.Name)
	assert.Equal(t, "PHARMACIE DU SOLEIL", gardes[0].ScrapedName)

	gardes, err = repo.Gardes(ctx, today, "yaounde")
	require.NoError(t, err)
	assert.Len(t, gardes, 1)

	gardes, err = repo.Gardes(ctx, today, "Douala")
	require.NoError(t, err)
	assert.Empty(t, gardes)

	near, err := repo.GardesNear(ctx, today, spatial.Point{Lat: 3.8610, Lng: 11.5240}, 1000)
	require.NoError(t, err)
	assert.Len(t, near, 1)

	gardes, err = repo.Gardes(ctx, yesterday, "")
	require.NoError(t, err)
	assert.Empty(t, gardes)
}

func TestCommitIsIdempotent(t *testing.T) {
	reg, repo := setupTestDB(t)
	ctx := context.Background()

	soleil := &registry.Pharmacy{Name: "Pharmacie du Soleil", Point: spatial.Point{Lat: 3.86, Lng: 11.525}}
	seedRegistry(t, reg, soleil)

	for range 3 {
		require.NoError(t, repo.Commit(ctx, testBatch(today, soleil.ID)))

		count, err := repo.Count(ctx, today)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	}
}

func TestCommitReplacesUnmatchedOfBatchCities(t *testing.T) {
	reg, repo := setupTestDB(t)
	ctx := context.Background()

	soleil := &registry.Pharmacy{Name: "Pharmacie du Soleil", Point: spatial.Point{Lat: 3.86, Lng: 11.525}}
	seedRegistry(t, reg, soleil)

	require.NoError(t, repo.Commit(ctx, testBatch(today, soleil.ID)))

	err := repo.Commit(ctx, Batch{
		Day:    today,
		RunID:  "run-2",
		Cities: []string{"Bertoua"},
		Unmatched: []Record{
			{ScrapedName: "PHARMACIE DE L'EST", City: "Bertoua"},
		},
	})
	require.NoError(t, err)

	unmatched, err := repo.Unmatched(ctx, today)
	require.NoError(t, err)

	got := make([]string, 0, len(unmatched))
	for _, u := range unmatched {
		got = append(got, u.ScrapedName)
	}

	assert.ElementsMatch(t, []string{"PHARMACIE EMANA", "PHARMACIE DE L'EST"}, got)

	count, err := repo.Count(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPurgeBefore(t *testing.T) {
	reg, repo := setupTestDB(t)
	ctx := context.Background()

	soleil := &registry.Pharmacy{Name: "Pharmacie du Soleil", Point: spatial.Point{Lat: 3.86, Lng: 11.525}}
	seedRegistry(t, reg, soleil)

	require.NoError(t, repo.Commit(ctx, testBatch(yesterday, soleil.ID)))
	require.NoError(t, repo.Commit(ctx, testBatch(today, soleil.ID)))

	purged, err := repo.PurgeBefore(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, int64(3), purged)

	count, err := repo.Count(ctx, yesterday)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = repo.Count(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCommitRollsBack(t *testing.T) {
	reg, repo := setupTestDB(t)
	ctx := context.Background()

	sentinel := spatial.Point{Lat: 3.8530, Lng: 11.5021}
	bastos := &registry.Pharmacy{Name: "Pharmacie Bastos", City: "Inconnu", Point: sentinel}
	seedRegistry(t, reg, bastos)

	require.NoError(t, repo.Commit(ctx, testBatch(today, bastos.ID)))

	broken := Batch{
		Day:         today,
		Relocations: []registry.Relocation{{ID: bastos.ID, Point: spatial.Point{Lat: 3.8917, Lng: 11.5100}, City: "Yaounde"}},
		Matched:     []Record{{ScrapedName: "PHARMACIE SANS ID"}},
	}
	require.Error(t, repo.Commit(ctx, broken))

	got, err := reg.Get(ctx, bastos.ID)
	require.NoError(t, err)
	assert.InDelta(t, sentinel.Lat, got.Point.Lat, 1e-9)
	assert.Equal(t, "Inconnu", got.City)

	unmatched, err := repo.Unmatched(ctx, today)
	require.NoError(t, err)
	assert.Len(t, unmatched, 2)
}
