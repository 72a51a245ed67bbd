// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/jcodagnone/gardecm/registry"
	"github.com/jcodagnone/gardecm/spatial"
)

// UnnamedPlacemark names placemarks without a name element.
const UnnamedPlacemark = "Pharmacie sans nom"

var (
	addressRe = regexp.MustCompile(`(?i)(?:Address|Adresse)\s*:\s*([^\n<]+)`)
	phoneRe   = regexp.MustCompile(`(?i)(?:Phone|Tel|Telephone|Téléphone)\s*:\s*([^\n<]+)`)
	cityRe    = regexp.MustCompile(`(?i)(?:City|Ville)\s*:\s*([^\n<]+)`)
)

type placemark struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Point       struct {
		Coordinates string `xml:"coordinates"`
	} `xml:"Point"`
}

// KMLError reports a placemark that could not be read.
type KMLError struct {
	Name    string
	Message string
}

func (e *KMLError) Error() string {
	return fmt.Sprintf("placemark %q: %s", e.Name, e.Message)
}

// ParseCoordinates reads a KML "lon,lat[,alt]" tuple.
func ParseCoordinates(s string) (spatial.Point, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) < 2 {
		return spatial.Point{}, fmt.Errorf("malformed coordinates %q", s)
	}

	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("malformed longitude %q: %w", parts[0], err)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("malformed latitude %q: %w", parts[1], err)
	}

	return spatial.Point{Lat: lat, Lng: lng}, nil
}

func describe(re *regexp.Regexp, description string) string {
	if m := re.FindStringSubmatch(description); m != nil {
		return strings.TrimSpace(m[1])
	}

	return ""
}

// ParseKML streams the point placemarks of a Google Earth export. Placemarks
// without a point are ignored; malformed ones are reported in errs and
// skipped.
func ParseKML(r io.Reader) (pharmacies []*registry.Pharmacy, errs []error, err error) {
	dec := xml.NewDecoder(r)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return pharmacies, errs, nil
		}

		if err != nil {
			return nil, nil, fmt.Errorf("reading kml: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Placemark" {
			continue
		}

		var pm placemark
		if err := dec.DecodeElement(&pm, &start); err != nil {
			return nil, nil, fmt.Errorf("reading placemark: %w", err)
		}

		if strings.TrimSpace(pm.Point.Coordinates) == "" {
			continue
		}

		name := strings.TrimSpace(pm.Name)
		if name == "" {
			name = UnnamedPlacemark
		}

		p, err := ParseCoordinates(pm.Point.Coordinates)
		if err != nil {
			errs = append(errs, &KMLError{Name: name, Message: err.Error()})

			continue
		}

		pharmacies = append(pharmacies, &registry.Pharmacy{
			Name:    name,
			Address: describe(addressRe, pm.Description),
			Phone:   describe(phoneRe, pm.Description),
			City:    describe(cityRe, pm.Description),
			Point:   p,
			Source:  registry.SourceGoogleEarth,
		})
	}
}
