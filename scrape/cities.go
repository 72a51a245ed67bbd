// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package scrape

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultBaseURL is the duty roster site.
const DefaultBaseURL = "https://www.annuaire-medical.cm"

// City is a city covered by the duty roster site.
type City struct {
	Region string `json:"region"`
	Slug   string `json:"slug"`
}

// labelOverrides holds display labels that title-casing the slug gets wrong.
var labelOverrides = map[string]string{
	"ngaoundere": "Ngaoundéré",
}

// Label returns the display label of the city: the slug title-cased with
// dashes replaced by spaces.
func (c City) Label() string {
	if label, ok := labelOverrides[c.Slug]; ok {
		return label
	}

	return cases.Title(language.Und).String(strings.ReplaceAll(c.Slug, "-", " "))
}

// URL returns the duty page of the city under base.
func (c City) URL(base string) string {
	return fmt.Sprintf(
		"%s/pharmacies-de-garde/%s/pharmacies-de-garde-%s",
		strings.TrimSuffix(base, "/"), c.Region, c.Slug,
	)
}

func (c City) String() string {
	return c.Region + "/" + c.Slug
}

var regions = []struct {
	name   string
	cities []string
}{
	{"adamaoua", []string{"banyo", "ngaoundere"}},
	{"centre", []string{"bafia", "mbalmayo", "mbandjock", "mbankomo", "obala", "sa-a", "yaounde"}},
	{"est", []string{"abong-mbang", "batouri", "bertoua", "garoua-boulai"}},
	{"extreme-nord", []string{"kousseri", "maga", "maroua", "yagoua"}},
	{"littoral", []string{"douala", "edea", "loum", "mbanga", "melong", "nkongsamba"}},
	{"nord", []string{"figuil", "garoua", "guider", "touboro"}},
	{"nord-ouest", []string{"bamenda", "mbengwy"}},
	{"ouest", []string{
		"bafang", "bafoussam", "bagangte", "bandja", "bandjoun",
		"dschang", "foumban", "foumbot", "mbouda",
	}},
	{"sud", []string{"ambam", "ebolowa", "kribi", "sangmelima"}},
	{"sud-ouest", []string{"buea", "kumba", "likomba", "limbe", "mutengene", "muyuka"}},
}

// Cities returns every covered city, grouped by region, in a stable order.
func Cities() []City {
	var ret []City

	for _, r := range regions {
		for _, slug := range r.cities {
			ret = append(ret, City{Region: r.name, Slug: slug})
		}
	}

	return ret
}

// FindCity looks a city up by slug or display label.
func FindCity(name string) (City, error) {
	for _, c := range Cities() {
		if strings.EqualFold(c.Slug, name) || strings.EqualFold(c.Label(), name) {
			return c, nil
		}
	}

	return City{}, fmt.Errorf("unknown city: %q", name)
}
