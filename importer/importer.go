// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

// Package importer loads pharmacies into the registry from OpenStreetMap and
// Google Earth exports, and tidies the registry afterwards.
package importer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/jcodagnone/gardecm/registry"
	"go.uber.org/zap"
)

// Store is the registry access an import needs.
type Store interface {
	All(ctx context.Context) ([]*registry.Pharmacy, error)
	BulkInsert(ctx context.Context, pharmacies []*registry.Pharmacy) error
}

// Result summarizes an import.
type Result struct {
	Parsed   int
	Imported int
	Skipped  int
	Invalid  int
}

type pharmacyKey struct {
	name     string
	lat, lng int64
}

func keyOf(p *registry.Pharmacy) pharmacyKey {
	return pharmacyKey{
		name: strings.ToLower(strings.TrimSpace(p.Name)),
		lat:  int64(math.Round(p.Point.Lat * 1e6)),
		lng:  int64(math.Round(p.Point.Lng * 1e6)),
	}
}

// Import inserts the pharmacies that are not already in the registry. A row
// is already there when it has the same name and point.
func Import(ctx context.Context, store Store, pharmacies []*registry.Pharmacy, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	res := Result{Parsed: len(pharmacies)}

	existing, err := store.All(ctx)
	if err != nil {
		return res, fmt.Errorf("loading registry: %w", err)
	}

	seen := make(map[pharmacyKey]bool, len(existing))
	for _, p := range existing {
		seen[keyOf(p)] = true
	}

	var pending []*registry.Pharmacy

	for _, p := range pharmacies {
		if err := p.Point.Validate(); err != nil {
			res.Invalid++

			logger.Warn("skipping pharmacy", zap.String("name", p.Name), zap.Error(err))

			continue
		}

		key := keyOf(p)
		if seen[key] {
			res.Skipped++

			continue
		}

		seen[key] = true

		pending = append(pending, p)
	}

	if len(pending) > 0 {
		if err := store.BulkInsert(ctx, pending); err != nil {
			return res, fmt.Errorf("inserting pharmacies: %w", err)
		}
	}

	res.Imported = len(pending)

	logger.Info("import complete",
		zap.Int("parsed", res.Parsed),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int("invalid", res.Invalid),
	)

	return res, nil
}
