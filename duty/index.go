// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package duty

import (
	"sort"

	"github.com/jcodagnone/gardecm/names"
	"github.com/jcodagnone/gardecm/registry"
	"github.com/jcodagnone/gardecm/spatial"
)

type indexEntry struct {
	pharmacy  registry.Pharmacy
	candidate names.Candidate
}

// Index is an in-memory snapshot of the registry prepared for name matching.
// It is built once per run and never writes back to the registry.
type Index struct {
	entries []indexEntry
	byID    map[int64]int
	scorer  *names.Scorer
}

// NewIndex builds an index over pharmacies, scanned in ID order.
func NewIndex(pharmacies []*registry.Pharmacy, scorer *names.Scorer) *Index {
	idx := &Index{
		entries: make([]indexEntry, 0, len(pharmacies)),
		byID:    make(map[int64]int, len(pharmacies)),
		scorer:  scorer,
	}

	for _, p := range pharmacies {
		if p == nil {
			continue
		}

		idx.entries = append(idx.entries, indexEntry{
			pharmacy:  *p,
			candidate: names.NewCandidate(p.Name),
		})
	}

	sort.SliceStable(idx.entries, func(i, j int) bool {
		return idx.entries[i].pharmacy.ID < idx.entries[j].pharmacy.ID
	})

	for i, e := range idx.entries {
		idx.byID[e.pharmacy.ID] = i
	}

	return idx
}

// Len returns the number of indexed pharmacies.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// BestMatch returns the registry pharmacy whose name best matches name.
// A higher score only replaces the current best when strictly greater, so the
// lowest ID wins ties. An exact match ends the scan.
func (idx *Index) BestMatch(name string) (*registry.Pharmacy, int, bool) {
	scraped := names.NewCandidate(name)
	if !scraped.Matchable() {
		return nil, 0, false
	}

	best, bestScore := -1, 0

	for i := range idx.entries {
		score, exact := idx.scorer.Score(scraped, idx.entries[i].candidate)
		if exact {
			best, bestScore = i, score

			break
		}

		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 || !idx.scorer.Accept(bestScore) {
		return nil, bestScore, false
	}

	p := idx.entries[best].pharmacy

	return &p, bestScore, true
}

// Relocate updates the snapshot after a coordinate correction.
func (idx *Index) Relocate(id int64, point spatial.Point, city string) bool {
	i, ok := idx.byID[id]
	if !ok {
		return false
	}

	idx.entries[i].pharmacy.Point = point
	idx.entries[i].pharmacy.City = city

	return true
}
