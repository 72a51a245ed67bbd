// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jcodagnone/gardecm/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*sql.DB, Repository) {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db)
	if err := repo.CreateSchema(context.Background()); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return db, repo
}

func seed(t *testing.T, repo Repository, pharmacies ...*Pharmacy) {
	t.Helper()

	require.NoError(t, repo.BulkInsert(context.Background(), pharmacies))
}

func TestCreateSchema(t *testing.T) {
	db, _ := setupTestDB(t)

	var tableName string

	err := db.QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = 'pharmacies'").Scan(&tableName)
	if err != nil {
		t.Fatalf("Table not created: %v", err)
	}
}

func TestBulkInsertAndGet(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	p := &Pharmacy{
		Name:    "Pharmacie Bastos",
		Address: "Rue 1.750",
		Phone:   "222 20 65 43",
		City:    "Yaounde",
		Region:  "Centre",
		Point:   spatial.Point{Lat: 3.8917, Lng: 11.5100},
		Source:  SourceOSM,
	}
	seed(t, repo, p)

	require.NotZero(t, p.ID)
	assert.NotZero(t, p.H3Res8)

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Address, got.Address)
	assert.Equal(t, p.Phone, got.Phone)
	assert.Equal(t, p.City, got.City)
	assert.Equal(t, p.Source, got.Source)
	assert.InDelta(t, p.Point.Lat, got.Point.Lat, 1e-9)
	assert.InDelta(t, p.Point.Lng, got.Point.Lng, 1e-9)
	assert.Equal(t, p.H3Res7, got.H3Res7)

	_, err = repo.Get(ctx, p.ID+100)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestBulkInsertRejectsInvalidPoint(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	err := repo.BulkInsert(ctx, []*Pharmacy{
		{Name: "ok", Point: spatial.Point{Lat: 4, Lng: 9.7}},
		{Name: "bad", Point: spatial.Point{Lat: 100, Lng: 9.7}},
	})
	require.Error(t, err)
	assert.True(t, spatial.IsValidationError(err))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "insert must be atomic")
}

func TestWithinAndNearest(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	origin := spatial.Point{Lat: 4.0511, Lng: 9.7679}
	near := &Pharmacy{Name: "Pharmacie Akwa", City: "Douala", Point: spatial.Point{Lat: 4.0551, Lng: 9.7679}}
	mid := &Pharmacy{Name: "Pharmacie Bonaberi", City: "Douala", Point: spatial.Point{Lat: 4.0700, Lng: 9.6700}}
	far := &Pharmacy{Name: "Pharmacie Bastos", City: "Yaounde", Point: spatial.Point{Lat: 3.8917, Lng: 11.5100}}
	seed(t, repo, far, mid, near)

	located, err := repo.Within(ctx, origin, 5_000)
	require.NoError(t, err)
	require.Len(t, located, 1)
	assert.Equal(t, near.ID, located[0].ID)
	assert.InDelta(t, 445, located[0].Distance, 5)

	located, err = repo.Within(ctx, origin, 20_000)
	require.NoError(t, err)
	require.Len(t, located, 2)
	assert.Equal(t, near.ID, located[0].ID)
	assert.Equal(t, mid.ID, located[1].ID)

	// larger than any covering disk: falls back to a full scan
	located, err = repo.Within(ctx, origin, 500_000)
	require.NoError(t, err)
	assert.Len(t, located, 3)

	nearest, err := repo.Nearest(ctx, spatial.Point{Lat: 3.87, Lng: 11.52})
	require.NoError(t, err)
	require.NotNil(t, nearest)
	assert.Equal(t, far.ID, nearest.ID)

	// nothing within the staged radii
	nearest, err = repo.Nearest(ctx, spatial.Point{Lat: 10.5956, Lng: 14.3159})
	require.NoError(t, err)
	require.NotNil(t, nearest)
	assert.Equal(t, far.ID, nearest.ID)
	assert.Greater(t, nearest.Distance, 50_000.0)
}

func TestWithinRadiusSubset(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	origin := spatial.Point{Lat: 3.8667, Lng: 11.5167}

	var pharmacies []*Pharmacy
	for i := range 20 {
		pharmacies = append(pharmacies, &Pharmacy{
			Name:  "Pharmacie",
			Point: spatial.Point{Lat: origin.Lat + float64(i)*0.01, Lng: origin.Lng - float64(i)*0.005},
		})
	}
	seed(t, repo, pharmacies...)

	small, err := repo.Within(ctx, origin, 5_000)
	require.NoError(t, err)

	large, err := repo.Within(ctx, origin, 15_000)
	require.NoError(t, err)

	ids := make(map[int64]bool)
	for _, l := range large {
		ids[l.ID] = true
	}

	for _, s := range small {
		assert.True(t, ids[s.ID], "pharmacy %d within 5km missing from 15km", s.ID)
		assert.LessOrEqual(t, s.Distance, 5_000.0)
	}

	assert.Greater(t, len(large), len(small))
}

func TestNearestEmptyRegistry(t *testing.T) {
	_, repo := setupTestDB(t)

	nearest, err := repo.Nearest(context.Background(), spatial.Point{Lat: 4, Lng: 9})
	require.NoError(t, err)
	assert.Nil(t, nearest)
}

func TestRelocate(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	p := &Pharmacy{Name: "Pharmacie du Golf", Point: spatial.Point{Lat: 3.8530, Lng: 11.5021}}
	seed(t, repo, p)

	target := spatial.Point{Lat: 3.8850, Lng: 11.5050}
	require.NoError(t, repo.Relocate(ctx, []Relocation{{ID: p.ID, Point: target, City: "Yaounde"}}))

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, target.Lat, got.Point.Lat, 1e-9)
	assert.InDelta(t, target.Lng, got.Point.Lng, 1e-9)
	assert.Equal(t, "Yaounde", got.City)

	cells, err := spatial.CellsOf(target)
	require.NoError(t, err)
	assert.Equal(t, cells.Res8, got.H3Res8)
}

func TestListAndCleanupHelpers(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	a := &Pharmacy{Name: "Pharmacie Soleil", City: "Douala", Point: spatial.Point{Lat: 4.05, Lng: 9.70}}
	b := &Pharmacy{Name: "PHARMACIE SOLEIL", City: "Douala", Point: spatial.Point{Lat: 4.06, Lng: 9.71}}
	c := &Pharmacy{Name: "Pharmacie Soleil", City: "Yaounde", Point: spatial.Point{Lat: 3.86, Lng: 11.51}}
	d := &Pharmacy{Name: "Pharmacie Akwa 677 12 34 56", City: "Douala", Point: spatial.Point{Lat: 4.05, Lng: 9.70}}
	seed(t, repo, a, b, c, d)

	list, err := repo.List(ctx, "doua", 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	list, err = repo.List(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, repo.Rewrite(ctx, d.ID, "Pharmacie Akwa", "Douala"))
	got, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pharmacie Akwa", got.Name)

	deleted, err := repo.DeleteDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.Get(ctx, a.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, err = repo.Get(ctx, b.ID)
	assert.NoError(t, err, "the highest id is kept")
}
