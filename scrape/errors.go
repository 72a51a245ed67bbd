// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package scrape

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorType classifies fetch failures.
type ErrorType int

const (
	// ErrorTypeUnknown unclassified failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit the site asked us to slow down.
	ErrorTypeRateLimit
	// ErrorTypeForbidden access denied.
	ErrorTypeForbidden
	// ErrorTypeNotFound the city page does not exist.
	ErrorTypeNotFound
	// ErrorTypeTimeout the request did not complete in time.
	ErrorTypeTimeout
	// ErrorTypeUnavailable the site is down.
	ErrorTypeUnavailable
	// ErrorTypeNetwork connection level failure.
	ErrorTypeNetwork
	// ErrorTypeContent the response is not a readable HTML page.
	ErrorTypeContent
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeForbidden:
		return "forbidden"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeUnavailable:
		return "unavailable"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeContent:
		return "content"
	default:
		return "unknown"
	}
}

// FetchError reports a city page that could not be fetched.
type FetchError struct {
	City   string
	Type   ErrorType
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetching %s: %s", e.City, e.Type)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}

	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClassifyStatus builds the error for a non 200 response.
func ClassifyStatus(city string, statusCode int) *FetchError {
	t := ErrorTypeUnknown

	switch statusCode {
	case http.StatusTooManyRequests:
		t = ErrorTypeRateLimit
	case http.StatusForbidden, http.StatusUnauthorized:
		t = ErrorTypeForbidden
	case http.StatusNotFound, http.StatusGone:
		t = ErrorTypeNotFound
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		t = ErrorTypeTimeout
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusInternalServerError:
		t = ErrorTypeUnavailable
	}

	return &FetchError{City: city, Type: t, Status: statusCode}
}

// classifyTransport builds the error for a request that got no response.
func classifyTransport(city string, err error) *FetchError {
	t := ErrorTypeNetwork

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		t = ErrorTypeTimeout
	}

	return &FetchError{City: city, Type: t, Err: err}
}

func isType(err error, t ErrorType) bool {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Type == t
	}

	return false
}

// IsTimeoutError reports whether err is a fetch timeout.
func IsTimeoutError(err error) bool {
	return isType(err, ErrorTypeTimeout)
}

// IsRateLimitError reports whether the site throttled the fetch.
func IsRateLimitError(err error) bool {
	return isType(err, ErrorTypeRateLimit)
}

// IsNotFoundError reports whether the city page does not exist.
func IsNotFoundError(err error) bool {
	return isType(err, ErrorTypeNotFound)
}
