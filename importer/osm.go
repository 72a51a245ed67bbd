// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jcodagnone/gardecm/registry"
	"github.com/jcodagnone/gardecm/spatial"
	"github.com/jcodagnone/gardecm/utils/httputils"
	"go.uber.org/zap"
)

// DefaultOverpassURL is the public Overpass API interpreter.
const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

// UnnamedPharmacy names OSM pharmacies without a name tag.
const UnnamedPharmacy = "Pharmacie (sans nom)"

const overpassQuery = `[out:json][timeout:120];
area["ISO3166-1"="CM"][admin_level=2]->.cameroon;
(
  node["amenity"="pharmacy"](area.cameroon);
  way["amenity"="pharmacy"](area.cameroon);
  relation["amenity"="pharmacy"](area.cameroon);
);
out center;`

// OSMOptions configures OSMClient.
type OSMOptions struct {
	// URL is the Overpass interpreter endpoint
	URL string

	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Timeout bounds the whole query
	Timeout time.Duration

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool
}

// OSMClient queries the Overpass API for pharmacies.
type OSMClient struct {
	client  *http.Client
	options OSMOptions
	logger  *zap.Logger
}

// NewOSMClient creates an Overpass client.
func NewOSMClient(options OSMOptions, logger *zap.Logger) *OSMClient {
	if options.URL == "" {
		options.URL = DefaultOverpassURL
	}

	if options.Timeout <= 0 {
		options.Timeout = 180 * time.Second
	}

	if options.UserAgent == "" {
		options.UserAgent = "garde/unknown"
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	var httpLogWriter io.Writer
	if options.EnableHTTPTrace {
		httpLogWriter = os.Stderr
	}

	return &OSMClient{
		client: &http.Client{
			Timeout: options.Timeout,
			Transport: &httputils.AppendRequestHeadersRoundTripper{
				Headers: map[string]string{
					"User-Agent": options.UserAgent,
					"Accept":     "application/json",
				},
				Transport: &httputils.LoggingRoundTripper{
					Logger:    logger,
					Writer:    httpLogWriter,
					Transport: http.DefaultTransport,
				},
			},
		},
		options: options,
		logger:  logger,
	}
}

// Element is an Overpass result element.
type Element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *LatLon           `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// LatLon is the center of a way or relation.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type overpassResponse struct {
	Elements []Element `json:"elements"`
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(tags[k]); v != "" {
			return v
		}
	}

	return ""
}

// Pharmacy converts the element. Nodes carry their own coordinates while ways
// and relations use their center.
func (e Element) Pharmacy() (*registry.Pharmacy, bool) {
	var p spatial.Point

	switch {
	case e.Type == "node" && e.Lat != nil && e.Lon != nil:
		p = spatial.Point{Lat: *e.Lat, Lng: *e.Lon}
	case e.Type != "node" && e.Center != nil:
		p = spatial.Point{Lat: e.Center.Lat, Lng: e.Center.Lon}
	default:
		return nil, false
	}

	name := firstTag(e.Tags, "name")
	if name == "" {
		name = UnnamedPharmacy
	}

	return &registry.Pharmacy{
		Name:    name,
		Address: firstTag(e.Tags, "addr:street", "address"),
		Phone:   firstTag(e.Tags, "phone", "contact:phone"),
		City:    firstTag(e.Tags, "addr:city", "addr:town"),
		Region:  firstTag(e.Tags, "addr:state"),
		Point:   p,
		Source:  registry.SourceOSM,
	}, true
}

// ParseOverpass reads an Overpass JSON response.
func ParseOverpass(r io.Reader) ([]*registry.Pharmacy, error) {
	var resp overpassResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding overpass response: %w", err)
	}

	pharmacies := make([]*registry.Pharmacy, 0, len(resp.Elements))

	for _, e := range resp.Elements {
		if p, ok := e.Pharmacy(); ok {
			pharmacies = append(pharmacies, p)
		}
	}

	return pharmacies, nil
}

// Fetch runs the Cameroon pharmacy query.
func (c *OSMClient) Fetch(ctx context.Context) ([]*registry.Pharmacy, error) {
	form := url.Values{"data": {overpassQuery}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.options.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying overpass: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("querying overpass: status %d", resp.StatusCode)
	}

	pharmacies, err := ParseOverpass(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Info("overpass pharmacies", zap.Int("count", len(pharmacies)))

	return pharmacies, nil
}

// SaveJSON writes pharmacies to path for review.
func SaveJSON(path string, pharmacies []*registry.Pharmacy) error {
	data, err := json.MarshalIndent(pharmacies, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
