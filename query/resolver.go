// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

// Package query answers read-only questions about the registry and the
// committed duty roster.
package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jcodagnone/gardecm/cache"
	"github.com/jcodagnone/gardecm/duty"
	"github.com/jcodagnone/gardecm/names"
	"github.com/jcodagnone/gardecm/registry"
	"github.com/jcodagnone/gardecm/spatial"
	"go.uber.org/zap"
)

// Limits bounds query parameters.
type Limits struct {
	NearbyRadius         int `mapstructure:"default_radius_m"`
	MaxNearbyRadius      int `mapstructure:"max_radius_m"`
	SearchRadius         int `mapstructure:"search_radius_m"`
	MaxSearchRadius      int `mapstructure:"max_search_radius_m"`
	SearchLimit          int `mapstructure:"search_limit"`
	MaxSearchLimit       int `mapstructure:"max_search_limit"`
	PharmacyListLimit    int `mapstructure:"list_limit"`
	MaxPharmacyListLimit int `mapstructure:"max_list_limit"`
}

// DefaultLimits returns the stock query limits.
func DefaultLimits() Limits {
	return Limits{
		NearbyRadius:         5_000,
		MaxNearbyRadius:      50_000,
		SearchRadius:         10_000,
		MaxSearchRadius:      50_000,
		SearchLimit:          50,
		MaxSearchLimit:       200,
		PharmacyListLimit:    100,
		MaxPharmacyListLimit: 1_000,
	}
}

func clamp(v, def, maxV int) int {
	if v <= 0 {
		v = def
	}

	return min(v, maxV)
}

// Result is a pharmacy on duty near a point. Unmatched entries have no ID and
// may have no coordinates.
type Result struct {
	ID          *int64   `json:"id"`
	Name        string   `json:"name"`
	Address     string   `json:"address,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	City        string   `json:"city,omitempty"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	DistanceM   *float64 `json:"distance_m"`
	Matched     bool     `json:"matched"`
	ScrapedName string   `json:"scraped_name,omitempty"`
	Quarter     string   `json:"quarter,omitempty"`
}

// DutyReader reads the committed duty roster.
type DutyReader interface {
	GardesNear(ctx context.Context, day time.Time, p spatial.Point, radius float64) ([]duty.Garde, error)
	Gardes(ctx context.Context, day time.Time, city string) ([]duty.Garde, error)
	Unmatched(ctx context.Context, day time.Time) ([]duty.Record, error)
}

// RegistryReader reads the pharmacy registry.
type RegistryReader interface {
	NearestFinder
	Within(ctx context.Context, p spatial.Point, radius float64) ([]registry.Located, error)
	List(ctx context.Context, city string, limit int) ([]*registry.Pharmacy, error)
}

// Resolver answers nearby and listing queries.
type Resolver struct {
	duties   DutyReader
	registry RegistryReader
	cities   *CityResolver
	cache    cache.Cache
	limits   Limits
	logger   *zap.Logger
}

// NewResolver creates a resolver. c may be nil to disable caching.
func NewResolver(
	duties DutyReader,
	reg RegistryReader,
	cities *CityResolver,
	c cache.Cache,
	limits Limits,
	logger *zap.Logger,
) *Resolver {
	if c == nil {
		c = cache.Noop{}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{
		duties:   duties,
		registry: reg,
		cities:   cities,
		cache:    c,
		limits:   limits,
		logger:   logger,
	}
}

// Limits returns the limits in use.
func (r *Resolver) Limits() Limits {
	return r.limits
}

func (r *Resolver) cached(ctx context.Context, key string, dest any) bool {
	ok, err := r.cache.Get(ctx, key, dest)
	if err != nil {
		r.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))

		return false
	}

	return ok
}

func (r *Resolver) store(ctx context.Context, key string, value any) {
	if err := r.cache.Set(ctx, key, value); err != nil {
		r.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func round(d float64) *float64 {
	v := math.Round(d*100) / 100

	return &v
}

// Nearby returns the pharmacies on duty on day around p: matched ones within
// radius by increasing distance, then unmatched ones of the inferred city,
// located ones first, by name.
func (r *Resolver) Nearby(ctx context.Context, p spatial.Point, radius int, day time.Time) ([]Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	radius = clamp(radius, r.limits.NearbyRadius, r.limits.MaxNearbyRadius)
	day = duty.Day(day)

	key := cache.NearbyKey(p.Lat, p.Lng, radius, day)

	var results []Result
	if r.cached(ctx, key, &results) {
		return results, nil
	}

	gardes, err := r.duties.GardesNear(ctx, day, p, float64(radius))
	if err != nil {
		return nil, fmt.Errorf("reading duty pharmacies: %w", err)
	}

	results = make([]Result, 0, len(gardes))

	for _, g := range gardes {
		d := p.HaversineDistance(&g.Pharmacy.Point)
		if d > float64(radius) {
			continue
		}

		results = append(results, matchedResult(g, d))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return *results[i].DistanceM < *results[j].DistanceM
	})

	unmatched, err := r.unmatchedNear(ctx, p, day)
	if err != nil {
		return nil, err
	}

	results = append(results, unmatched...)

	r.store(ctx, key, results)

	return results, nil
}

func matchedResult(g duty.Garde, d float64) Result {
	id := g.Pharmacy.ID
	lat, lng := g.Pharmacy.Point.Lat, g.Pharmacy.Point.Lng

	return Result{
		ID:          &id,
		Name:        g.Pharmacy.Name,
		Address:     g.Pharmacy.Address,
		Phone:       g.Pharmacy.Phone,
		City:        g.Pharmacy.City,
		Latitude:    &lat,
		Longitude:   &lng,
		DistanceM:   round(d),
		Matched:     true,
		ScrapedName: g.ScrapedName,
		Quarter:     g.Quarter,
	}
}

func (r *Resolver) unmatchedNear(ctx context.Context, p spatial.Point, day time.Time) ([]Result, error) {
	city, err := r.cities.InferCity(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("inferring city: %w", err)
	}

	if city == "" {
		return nil, nil
	}

	records, err := r.duties.Unmatched(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("reading unmatched duty pharmacies: %w", err)
	}

	want := names.Fold(city)

	var results []Result

	for _, rec := range records {
		if names.Fold(rec.City) != want {
			continue
		}

		res := Result{
			Name:        rec.ScrapedName,
			Address:     rec.Quarter,
			City:        rec.City,
			ScrapedName: rec.ScrapedName,
			Quarter:     rec.Quarter,
		}

		if rec.Approx != nil {
			lat, lng := rec.Approx.Lat, rec.Approx.Lng
			d := p.HaversineDistance(rec.Approx)

			res.Latitude, res.Longitude = &lat, &lng
			res.DistanceM = round(d)
		}

		results = append(results, res)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if (a.DistanceM == nil) != (b.DistanceM == nil) {
			return a.DistanceM != nil
		}

		return a.Name < b.Name
	})

	return results, nil
}

// Search returns every registry pharmacy within radius of p by increasing
// distance, up to limit.
func (r *Resolver) Search(ctx context.Context, p spatial.Point, radius, limit int) ([]registry.Located, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	radius = clamp(radius, r.limits.SearchRadius, r.limits.MaxSearchRadius)
	limit = clamp(limit, r.limits.SearchLimit, r.limits.MaxSearchLimit)

	key := cache.SearchKey(p.Lat, p.Lng, radius, limit)

	var located []registry.Located
	if r.cached(ctx, key, &located) {
		return located, nil
	}

	located, err := r.registry.Within(ctx, p, float64(radius))
	if err != nil {
		return nil, fmt.Errorf("searching pharmacies: %w", err)
	}

	if len(located) > limit {
		located = located[:limit]
	}

	for i := range located {
		located[i].Distance = *round(located[i].Distance)
	}

	r.store(ctx, key, located)

	return located, nil
}

// Pharmacies lists registry pharmacies, optionally filtered by city.
func (r *Resolver) Pharmacies(ctx context.Context, city string, limit int) ([]*registry.Pharmacy, error) {
	limit = clamp(limit, r.limits.PharmacyListLimit, r.limits.MaxPharmacyListLimit)

	return r.registry.List(ctx, city, limit)
}

// Gardes lists the matched pharmacies on duty on day, optionally filtered by
// city.
func (r *Resolver) Gardes(ctx context.Context, day time.Time, city string) ([]duty.Garde, error) {
	return r.duties.Gardes(ctx, duty.Day(day), city)
}

// InferCity exposes the city inference used by Nearby.
func (r *Resolver) InferCity(ctx context.Context, p spatial.Point) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	return r.cities.InferCity(ctx, p)
}
