// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jcodagnone/gardecm/gazetteer"
	"github.com/jcodagnone/gardecm/registry"
	"github.com/jcodagnone/gardecm/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) registry.Repository {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	repo := registry.NewRepository(db)
	if err := repo.CreateSchema(context.Background()); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return repo
}

const overpassResponseBody = `{
  "version": 0.6,
  "elements": [
    {"type": "node", "id": 1, "lat": 3.8917, "lon": 11.5100,
     "tags": {"amenity": "pharmacy", "name": "Pharmacie Bastos", "addr:street": "Rue 1.750",
              "phone": "+237 222 20 65 43", "addr:city": "Yaoundé", "addr:state": "Centre"}},
    {"type": "way", "id": 2, "center": {"lat": 4.0500, "lon": 9.7000},
     "tags": {"amenity": "pharmacy", "address": "Akwa", "contact:phone": "233 42 00 00", "addr:town": "Douala"}},
    {"type": "node", "id": 3, "lat": 3.8600, "lon": 11.5250, "tags": {"amenity": "pharmacy"}},
    {"type": "relation", "id": 4, "tags": {"name": "Sans centre"}}
  ]
}`

var ignoreAssigned = cmpopts.IgnoreFields(registry.Pharmacy{},
	"ID", "UpdatedAt", "H3Res5", "H3Res6", "H3Res7", "H3Res8")

func TestParseOverpass(t *testing.T) {
	got, err := ParseOverpass(strings.NewReader(overpassResponseBody))
	require.NoError(t, err)

	expected := []*registry.Pharmacy{
		{
			Name:    "Pharmacie Bastos",
			Address: "Rue 1.750",
			Phone:   "+237 222 20 65 43",
			City:    "Yaoundé",
			Region:  "Centre",
			Point:   spatial.Point{Lat: 3.8917, Lng: 11.5100},
			Source:  registry.SourceOSM,
		},
		{
			Name:    UnnamedPharmacy,
			Address: "Akwa",
			Phone:   "233 42 00 00",
			City:    "Douala",
			Point:   spatial.Point{Lat: 4.0500, Lng: 9.7000},
			Source:  registry.SourceOSM,
		},
		{
			Name:   UnnamedPharmacy,
			Point:  spatial.Point{Lat: 3.8600, Lng: 11.5250},
			Source: registry.SourceOSM,
		},
	}

	if diff := cmp.Diff(expected, got, ignoreAssigned); diff != "" {
		t.Errorf("ParseOverpass mismatch (-expected +got):\n%s", diff)
	}
}

func TestParseOverpassMalformed(t *testing.T) {
	_, err := ParseOverpass(strings.NewReader(`{"elements": [`))
	assert.Error(t, err)
}

func TestOSMClientFetch(t *testing.T) {
	var gotQuery, gotUA string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		form, err := url.ParseQuery(string(body))
		assert.NoError(t, err)

		gotQuery = form.Get("data")
		gotUA = r.Header.Get("User-Agent")

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, overpassResponseBody)
	}))
	t.Cleanup(srv.Close)

	client := NewOSMClient(OSMOptions{URL: srv.URL, UserAgent: "garde-test"}, nil)

	got, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)

	assert.Contains(t, gotQuery, `["amenity"="pharmacy"]`)
	assert.Contains(t, gotQuery, `"ISO3166-1"="CM"`)
	assert.Equal(t, "garde-test", gotUA)
}

func TestOSMClientFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	_, err := NewOSMClient(OSMOptions{URL: srv.URL}, nil).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osm.json")

	pharmacies, err := ParseOverpass(strings.NewReader(overpassResponseBody))
	require.NoError(t, err)
	require.NoError(t, SaveJSON(path, pharmacies))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Pharmacie Bastos")
}

func TestImport(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	pharmacies, err := ParseOverpass(strings.NewReader(overpassResponseBody))
	require.NoError(t, err)

	pharmacies = append(pharmacies, &registry.Pharmacy{
		Name:  "Hors limites",
		Point: spatial.Point{Lat: 95, Lng: 11},
	})

	res, err := Import(ctx, repo, pharmacies, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Parsed: 4, Imported: 3, Invalid: 1}, res)

	// a second import of the same rows only skips
	again, err := ParseOverpass(strings.NewReader(overpassResponseBody))
	require.NoError(t, err)

	res, err = Import(ctx, repo, again, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Parsed: 3, Skipped: 3}, res)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestImportDeduplicatesInput(t *testing.T) {
	repo := setupTestDB(t)

	p := spatial.Point{Lat: 4.05, Lng: 9.70}
	res, err := Import(context.Background(), repo, []*registry.Pharmacy{
		{Name: "Pharmacie Akwa", Point: p},
		{Name: "PHARMACIE AKWA ", Point: p},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Parsed: 2, Imported: 1, Skipped: 1}, res)
}

const kmlDocument = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
<Document>
  <name>Pharmacies</name>
  <Folder>
    <Placemark>
      <name>Pharmacie du Soleil</name>
      <description><![CDATA[Adresse: Mvog-Mbi<br>Tel: 222 31 45 67<br>Ville: Yaoundé]]></description>
      <Point><coordinates>11.5250,3.8600,0</coordinates></Point>
    </Placemark>
    <Placemark>
      <description>Address: Akwa</description>
      <Point><coordinates> 9.7000,4.0500 </coordinates></Point>
    </Placemark>
    <Placemark>
      <name>Zone</name>
      <Polygon><outerBoundaryIs><LinearRing><coordinates>1,1 2,2 3,3</coordinates></LinearRing></outerBoundaryIs></Polygon>
    </Placemark>
    <Placemark>
      <name>Cassée</name>
      <Point><coordinates>abc,3.86</coordinates></Point>
    </Placemark>
  </Folder>
</Document>
</kml>`

func TestParseKML(t *testing.T) {
	got, errs, err := ParseKML(strings.NewReader(kmlDocument))
	require.NoError(t, err)

	expected := []*registry.Pharmacy{
		{
			Name:    "Pharmacie du Soleil",
			Address: "Mvog-Mbi",
			Phone:   "222 31 45 67",
			City:    "Yaoundé",
			Point:   spatial.Point{Lat: 3.86, Lng: 11.525},
			Source:  registry.SourceGoogleEarth,
		},
		{
			Name:    UnnamedPlacemark,
			Address: "Akwa",
			Point:   spatial.Point{Lat: 4.05, Lng: 9.7},
			Source:  registry.SourceGoogleEarth,
		},
	}
	if diff := cmp.Diff(expected, got, ignoreAssigned); diff != "" {
		t.Errorf("ParseKML mismatch (-expected +got):\n%s", diff)
	}

	require.Len(t, errs, 1)

	var kmlErr *KMLError
	require.ErrorAs(t, errs[0], &kmlErr)
	assert.Equal(t, "Cassée", kmlErr.Name)
}

func TestParseKMLMalformed(t *testing.T) {
	_, _, err := ParseKML(strings.NewReader(`<kml><Placemark><name>x</Placemark>`))
	assert.Error(t, err)
}

func TestParseCoordinates(t *testing.T) {
	p, err := ParseCoordinates("11.5,3.8,120")
	require.NoError(t, err)
	assert.Equal(t, spatial.Point{Lat: 3.8, Lng: 11.5}, p)

	for _, bad := range []string{"", "11.5", "x,3.8", "11.5,y"} {
		_, err := ParseCoordinates(bad)
		assert.Error(t, err, bad)
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"PHARMACIE DU SOLEIL 222 31 45 67", "PHARMACIE DU SOLEIL"},
		{"PHARMACIE BASTOS 222314567", "PHARMACIE BASTOS"},
		{"PHARMACIE MOKOLO Yaoundé: Marché Mokolo", "PHARMACIE MOKOLO"},
		{"PHARMACIE EMANA Emana:", "PHARMACIE EMANA"},
		{"  Pharmacie   de la   Cité ", "Pharmacie de la Cité"},
		{"Pharmacie Akwa", "Pharmacie Akwa"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			assert.Equal(t, test.expected, CleanName(test.input))
		})
	}
}

func TestCleaner(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.BulkInsert(ctx, []*registry.Pharmacy{
		{Name: "PHARMACIE DU SOLEIL 222 31 45 67", Point: spatial.Point{Lat: 3.8600, Lng: 11.5250}},
		{Name: "Pharmacie du Soleil", City: "Yaounde", Point: spatial.Point{Lat: 3.8610, Lng: 11.5260}},
		{Name: "Pharmacie Akwa", City: "Douala", Point: spatial.Point{Lat: 4.0500, Lng: 9.7000}},
		{Name: "Pharmacie Perdue", Point: spatial.Point{Lat: 0.5, Lng: 0.5}},
	}))

	res, err := NewCleaner(repo, gazetteer.New(), nil).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Scanned)
	assert.Equal(t, 2, res.Rewritten)
	assert.Equal(t, int64(1), res.Deleted)

	expected := []CityCount{
		{City: gazetteer.CityOther, Count: 1},
		{City: "Douala", Count: 1},
		{City: "Yaounde", Count: 1},
	}
	if diff := cmp.Diff(expected, res.Cities); diff != "" {
		t.Errorf("city counts mismatch (-expected +got):\n%s", diff)
	}
}
