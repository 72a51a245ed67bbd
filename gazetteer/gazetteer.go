// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

// Package gazetteer resolves city and quarter labels to representative points.
package gazetteer

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jcodagnone/gardecm/names"
	"github.com/jcodagnone/gardecm/spatial"
)

const (
	// SentinelTolerance is the per-axis tolerance, in degrees, for sentinel detection.
	SentinelTolerance = 0.001

	// DetectRadius is the maximum distance to a city center for DetectCity.
	DetectRadius = 30_000

	// CityUnknown labels a registry row without coordinates.
	CityUnknown = "Inconnu"

	// CityOther labels a registry row far from every known city center.
	CityOther = "Autre"

	minQuarterWord = 4
)

// Place is a named point.
type Place struct {
	Name  string        `json:"name"`
	Point spatial.Point `json:"point"`
}

type quarter struct {
	Place
	key   string
	words []string
}

// Gazetteer provides city and quarter lookups. It is read-only once built.
type Gazetteer struct {
	cities   []Place
	byCity   map[string]int
	quarters map[string][]quarter
}

// New builds a gazetteer from the built-in tables.
func New() *Gazetteer {
	g := &Gazetteer{
		byCity:   make(map[string]int),
		quarters: make(map[string][]quarter),
	}

	for _, c := range cityCenters {
		g.addCity(c)
	}

	for city, places := range quarterTables {
		for _, q := range places {
			g.addQuarter(city, q)
		}
	}

	return g
}

// Load builds the built-in gazetteer and overlays the JSON file at path.
// The file holds {"cities": [...], "quarters": {"city": [...]}} where each
// place is {"name": "...", "point": {"lat": ..., "lng": ...}}. Known labels are
// replaced, new ones are appended.
func Load(path string) (*Gazetteer, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is provided by admin
	if err != nil {
		return nil, fmt.Errorf("reading gazetteer file: %w", err)
	}

	var overlay struct {
		Cities   []Place            `json:"cities"`
		Quarters map[string][]Place `json:"quarters"`
	}

	if err := json.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parsing gazetteer JSON: %w", err)
	}

	g := New()

	for _, c := range overlay.Cities {
		if err := c.Point.Validate(); err != nil {
			return nil, fmt.Errorf("city %q: %w", c.Name, err)
		}

		g.addCity(c)
	}

	for city, places := range overlay.Quarters {
		for _, q := range places {
			if err := q.Point.Validate(); err != nil {
				return nil, fmt.Errorf("quarter %q of %q: %w", q.Name, city, err)
			}

			g.addQuarter(city, q)
		}
	}

	return g, nil
}

func (g *Gazetteer) addCity(c Place) {
	key := names.Fold(c.Name)
	if i, ok := g.byCity[key]; ok {
		g.cities[i] = c

		return
	}

	g.byCity[key] = len(g.cities)
	g.cities = append(g.cities, c)
}

func (g *Gazetteer) addQuarter(city string, p Place) {
	cityKey := names.Fold(city)
	q := quarter{
		Place: p,
		key:   names.Normalize(p.Name),
	}

	for _, w := range strings.Fields(q.key) {
		if utf8.RuneCountInString(w) >= minQuarterWord {
			q.words = append(q.words, w)
		}
	}

	list := g.quarters[cityKey]
	for i := range list {
		if list[i].key == q.key {
			list[i] = q

			return
		}
	}

	g.quarters[cityKey] = append(list, q)
}

// City returns the city center for label, accepting accents, case and
// known alternate spellings.
func (g *Gazetteer) City(label string) (Place, bool) {
	key := names.Fold(label)
	if alias, ok := cityAliases[key]; ok {
		key = names.Fold(alias)
	}

	i, ok := g.byCity[key]
	if !ok {
		return Place{}, false
	}

	return g.cities[i], true
}

// CityKey returns the canonical label of a recognized city.
func (g *Gazetteer) CityKey(label string) (string, bool) {
	c, ok := g.City(label)

	return c.Name, ok
}

// Cities returns the city centers in table order.
func (g *Gazetteer) Cities() []Place {
	return append([]Place(nil), g.cities...)
}

// HasQuarters reports whether quarter-level points exist for city.
func (g *Gazetteer) HasQuarters(city string) bool {
	return len(g.quarters[g.quarterKey(city)]) > 0
}

func (g *Gazetteer) quarterKey(city string) string {
	key := names.Fold(city)
	if _, ok := g.quarters[key]; ok {
		return key
	}

	if c, ok := g.City(city); ok {
		return names.Fold(c.Name)
	}

	return key
}

// Quarter finds the quarter of city described by text. A quarter whose label
// contains the text, or is contained in it, wins over one that only shares a
// word of four or more characters. Ties go to table order.
func (g *Gazetteer) Quarter(city, text string) (Place, bool) {
	quarters := g.quarters[g.quarterKey(city)]
	if len(quarters) == 0 {
		return Place{}, false
	}

	query := names.Normalize(text)
	if query == "" {
		return Place{}, false
	}

	for _, q := range quarters {
		if strings.Contains(query, q.key) || strings.Contains(q.key, query) {
			return q.Place, true
		}
	}

	for _, w := range strings.Fields(query) {
		if utf8.RuneCountInString(w) < minQuarterWord {
			continue
		}

		for _, q := range quarters {
			for _, qw := range q.words {
				if w == qw {
					return q.Place, true
				}
			}
		}
	}

	return Place{}, false
}

// Geocode returns the best available point for a city and free-text quarter:
// the quarter point, else the city center.
func (g *Gazetteer) Geocode(city, quarterText string) (spatial.Point, bool) {
	if q, ok := g.Quarter(city, quarterText); ok {
		return q.Point, true
	}

	if c, ok := g.City(city); ok {
		return c.Point, true
	}

	return spatial.Point{}, false
}

// Nearest returns the city center closest to p and its distance in meters.
func (g *Gazetteer) Nearest(p spatial.Point) (Place, float64) {
	var (
		best Place
		dist = math.Inf(1)
	)

	for _, c := range g.cities {
		if d := p.HaversineDistance(&c.Point); d < dist {
			best, dist = c, d
		}
	}

	return best, dist
}

// DetectCity labels p with the nearest city center within DetectRadius.
func (g *Gazetteer) DetectCity(p *spatial.Point) string {
	if p == nil {
		return CityUnknown
	}

	c, d := g.Nearest(*p)
	if d > DetectRadius {
		return CityOther
	}

	return c.Name
}

// Sentinels returns the placeholder points of never geocoded registry rows.
func Sentinels() []spatial.Point {
	return append([]spatial.Point(nil), sentinels...)
}

// IsSentinel reports whether p is one of the placeholder points.
func IsSentinel(p spatial.Point) bool {
	for _, s := range sentinels {
		if p.Near(s, SentinelTolerance) {
			return true
		}
	}

	return false
}
