// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jcodagnone/gardecm/registry"
	"github.com/jcodagnone/gardecm/spatial"
	"go.uber.org/zap"
)

var nameNoise = []*regexp.Regexp{
	regexp.MustCompile(`\d{3}\s*\d{2}\s*\d{2}\s*\d{2}`),
	regexp.MustCompile(`\d{2,3}\s+\d{2}\s+\d{2}\s+\d{2}`),
	regexp.MustCompile(`[A-Za-zéèêëàâäùûüôîïç\-]+\s*:\s*$`),
	regexp.MustCompile(`[A-Za-zéèêëàâäùûüôîïç\-]+:.*$`),
}

var spaces = regexp.MustCompile(`\s+`)

// CleanName strips phone numbers and trailing "City: quarter" fragments
// glued to a pharmacy name.
func CleanName(name string) string {
	for _, re := range nameNoise {
		name = re.ReplaceAllString(name, "")
	}

	return strings.TrimSpace(spaces.ReplaceAllString(name, " "))
}

// CleanupStore is the registry access Cleaner needs.
type CleanupStore interface {
	All(ctx context.Context) ([]*registry.Pharmacy, error)
	Rewrite(ctx context.Context, id int64, name, city string) error
	DeleteDuplicates(ctx context.Context) (int64, error)
}

// CityDetector labels a point with a city.
type CityDetector interface {
	DetectCity(p *spatial.Point) string
}

// CityCount is the number of pharmacies of a city after cleanup.
type CityCount struct {
	City  string
	Count int
}

// CleanupResult summarizes a cleanup.
type CleanupResult struct {
	Scanned   int
	Rewritten int
	Deleted   int64
	Cities    []CityCount
}

// Cleaner normalizes registry names and cities.
type Cleaner struct {
	store    CleanupStore
	detector CityDetector
	logger   *zap.Logger
}

// NewCleaner creates a Cleaner.
func NewCleaner(store CleanupStore, detector CityDetector, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cleaner{store: store, detector: detector, logger: logger}
}

// Run cleans every name, relabels every city from its point, then drops the
// older rows sharing a name and city.
func (c *Cleaner) Run(ctx context.Context) (CleanupResult, error) {
	var res CleanupResult

	pharmacies, err := c.store.All(ctx)
	if err != nil {
		return res, fmt.Errorf("loading registry: %w", err)
	}

	res.Scanned = len(pharmacies)

	for _, p := range pharmacies {
		name := CleanName(p.Name)
		if name == "" {
			name = p.Name
		}

		city := c.detector.DetectCity(&p.Point)

		if name == p.Name && city == p.City {
			continue
		}

		if err := c.store.Rewrite(ctx, p.ID, name, city); err != nil {
			return res, fmt.Errorf("rewriting pharmacy %d: %w", p.ID, err)
		}

		c.logger.Debug("rewrote pharmacy",
			zap.Int64("id", p.ID),
			zap.String("name", name),
			zap.String("city", city),
		)

		res.Rewritten++
	}

	res.Deleted, err = c.store.DeleteDuplicates(ctx)
	if err != nil {
		return res, fmt.Errorf("deleting duplicates: %w", err)
	}

	remaining, err := c.store.All(ctx)
	if err != nil {
		return res, fmt.Errorf("loading registry: %w", err)
	}

	counts := make(map[string]int)
	for _, p := range remaining {
		counts[p.City]++
	}

	for city, n := range counts {
		res.Cities = append(res.Cities, CityCount{City: city, Count: n})
	}

	sort.Slice(res.Cities, func(i, j int) bool {
		if res.Cities[i].Count != res.Cities[j].Count {
			return res.Cities[i].Count > res.Cities[j].Count
		}

		return res.Cities[i].City < res.Cities[j].City
	})

	c.logger.Info("cleanup complete",
		zap.Int("scanned", res.Scanned),
		zap.Int("rewritten", res.Rewritten),
		zap.Int64("deleted", res.Deleted),
	)

	return res, nil
}
