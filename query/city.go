// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"fmt"
	"math"

	"github.com/jcodagnone/gardecm/gazetteer"
	"github.com/jcodagnone/gardecm/registry"
	"github.com/jcodagnone/gardecm/spatial"
)

// TrustRadius is the distance beyond which the nearest registry row is not
// trusted to tell the city of a point.
const TrustRadius = 5000

// NearestFinder finds the registry row closest to a point.
type NearestFinder interface {
	Nearest(ctx context.Context, p spatial.Point) (*registry.Located, error)
}

// CityTable lists known city centers.
type CityTable interface {
	Cities() []gazetteer.Place
}

// CityResolver infers the city a point belongs to.
type CityResolver struct {
	registry NearestFinder
	cities   CityTable
}

// NewCityResolver creates a resolver backed by the registry and a city table.
func NewCityResolver(reg NearestFinder, cities CityTable) *CityResolver {
	return &CityResolver{registry: reg, cities: cities}
}

// InferCity returns the city of the nearest registry row. When that row is
// missing, has no city or lies farther than TrustRadius, any city center
// strictly closer than it wins instead.
func (r *CityResolver) InferCity(ctx context.Context, p spatial.Point) (string, error) {
	nearest, err := r.registry.Nearest(ctx, p)
	if err != nil {
		return "", fmt.Errorf("finding nearest pharmacy: %w", err)
	}

	city := ""
	dist := math.Inf(1)

	if nearest != nil && nearest.City != "" {
		city, dist = nearest.City, nearest.Distance
	}

	if dist <= TrustRadius {
		return city, nil
	}

	for _, c := range r.cities.Cities() {
		if d := p.HaversineDistance(&c.Point); d < dist {
			city, dist = c.Name, d
		}
	}

	return city, nil
}
