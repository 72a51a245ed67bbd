// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

// Package scrape fetches and reads the daily duty roster, one page per city.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jcodagnone/gardecm/utils/htmlutils"
	"github.com/jcodagnone/gardecm/utils/httputils"
	"go.uber.org/zap"
)

// ClientOptions configuration for Client.
type ClientOptions struct {
	// BaseURL is the root of the duty roster site
	BaseURL string

	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Timeout bounds each page fetch
	Timeout time.Duration

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// Cities restricts the fetched cities; empty means all of them
	Cities []City
}

// Client fetches duty pages.
type Client struct {
	client  *http.Client
	options ClientOptions
	logger  *zap.Logger
}

// NewClient creates a new client with the provided options.
func NewClient(options *ClientOptions, logger *zap.Logger) *Client {
	if options == nil {
		options = &ClientOptions{}
	}

	opts := *options
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	var httpLogWriter io.Writer
	if opts.EnableHTTPTrace {
		httpLogWriter = os.Stderr
	}

	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   8,
		MaxConnsPerHost:       8,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
		DisableKeepAlives:     false,
		DisableCompression:    false,
	}

	loggingTransport := &httputils.LoggingRoundTripper{
		Logger:    logger,
		Writer:    httpLogWriter,
		DumpBody:  opts.EnableHTTPBodyTrace,
		Transport: transport,
	}

	userAgent := "garde/unknown"
	if opts.UserAgent != "" {
		userAgent = opts.UserAgent
	}

	headerTransport := &httputils.AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "text/html,*/*",
			"Accept-Language": "fr,en;q=0.8",
		},
		Transport: loggingTransport,
	}

	return &Client{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: headerTransport,
		},
		options: opts,
		logger:  logger,
	}
}

// Cities returns the cities this client fetches.
func (c *Client) Cities() []City {
	if len(c.options.Cities) > 0 {
		return c.options.Cities
	}

	return Cities()
}

// Fetch downloads and reads the duty page of city.
func (c *Client) Fetch(ctx context.Context, city City) ([]Entry, error) {
	page, err := c.FetchPage(ctx, city)
	if err != nil {
		return nil, err
	}

	return page.Entries, nil
}

// FetchPage downloads and reads the duty page of city, keeping the
// unrecognized blocks.
func (c *Client) FetchPage(ctx context.Context, city City) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, city.URL(c.options.BaseURL), nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", city, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport(city.Slug, err)
	}

	page, err := c.read(resp, city)

	if cErr := resp.Body.Close(); cErr != nil {
		err = errors.Join(err, fmt.Errorf("closing response: %w", cErr))
	}

	return page, err
}

func (c *Client) read(resp *http.Response, city City) (*Page, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyStatus(city.Slug, resp.StatusCode)
	}

	r, err := htmlutils.AsReader(resp)
	if err != nil {
		return nil, &FetchError{City: city.Slug, Type: ErrorTypeContent, Status: resp.StatusCode, Err: err}
	}

	doc, err := htmlutils.AsNode(r)
	if err != nil {
		return nil, &FetchError{City: city.Slug, Type: ErrorTypeContent, Status: resp.StatusCode, Err: err}
	}

	page := Parse(doc, city)

	c.logger.Debug("duty page read",
		zap.String("city", city.String()),
		zap.String("strategy", page.Strategy),
		zap.Int("entries", len(page.Entries)),
		zap.Int("unrecognized", len(page.Unrecognized)),
	)

	for _, u := range page.Unrecognized {
		c.logger.Debug("unrecognized block",
			zap.String("city", city.String()),
			zap.String("reason", u.Reason),
			zap.String("raw", u.Raw),
		)
	}

	return &page, nil
}
