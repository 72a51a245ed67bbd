// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"fmt"
	"math"

	"github.com/uber/h3-go/v4"
)

// Resolutions stored alongside each registry row.
const (
	MinCellRes = 5
	MaxCellRes = 8
)

// maxRings bounds the size of a covering disk (3k(k+1)+1 cells).
const maxRings = 12

// average hexagon edge length in meters, indexed by resolution.
var edgeLengthM = map[int]float64{
	5: 8544.408276,
	6: 3229.482772,
	7: 1220.629759,
	8: 461.354684,
}

// Cells holds the H3 cells of a point for every stored resolution.
type Cells struct {
	Res5 int64
	Res6 int64
	Res7 int64
	Res8 int64
}

// At returns the cell for the given resolution.
func (c Cells) At(res int) int64 {
	switch res {
	case 5:
		return c.Res5
	case 6:
		return c.Res6
	case 7:
		return c.Res7
	case 8:
		return c.Res8
	}

	return 0
}

// CellsOf computes the H3 cells of p at resolutions 5 to 8.
func CellsOf(p Point) (Cells, error) {
	var cells Cells

	latLng := h3.NewLatLng(p.Lat, p.Lng)
	for res := MinCellRes; res <= MaxCellRes; res++ {
		cell, err := h3.LatLngToCell(latLng, res)
		if err != nil {
			return Cells{}, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
		}

		switch res {
		case 5:
			cells.Res5 = int64(cell)
		case 6:
			cells.Res6 = int64(cell)
		case 7:
			cells.Res7 = int64(cell)
		case 8:
			cells.Res8 = int64(cell)
		}
	}

	return cells, nil
}

// Any point within radius meters of p lies in one of the returned cells.
// It picks the finest stored resolution whose disk stays small and returns
// ok=false when the radius is too large for any of them.
func Covering(p Point, radius float64) (res int, cells []int64, ok bool, err error) {
	for res = MaxCellRes; res >= MinCellRes; res-- {
		edge := edgeLengthM[res]

		// centers of cells k rings apart are at least 1.5*edge*k apart; a point and
		// its cell center are at most one edge apart. One extra ring absorbs the
		// projection distortion.
		k := int(math.Ceil((radius+2*edge)/(1.5*edge))) + 1
		if k > maxRings {
			continue
		}

		origin, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), res)
		if err != nil {
			return 0, nil, false, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
		}

		disk, err := h3.GridDisk(origin, k)
		if err != nil {
			return 0, nil, false, fmt.Errorf("computing h3 disk at res %d: %w", res, err)
		}

		cells = make([]int64, 0, len(disk))
		for _, c := range disk {
			cells = append(cells, int64(c))
		}

		return res, cells, true, nil
	}

	return 0, nil, false, nil
}
