// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"errors"
	"fmt"
	"math"
)

// ValidationError reports user supplied input that cannot be used for a lookup.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err, or any error it wraps, is a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError

	return errors.As(err, &verr)
}

// Validate checks that latitude and longitude fall in the WGS84 ranges.
func Validate(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return &ValidationError{
			Field:   "lat",
			Message: fmt.Sprintf("latitude must be between -90 and 90 (got %f)", lat),
		}
	}

	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return &ValidationError{
			Field:   "lon",
			Message: fmt.Sprintf("longitude must be between -180 and 180 (got %f)", lng),
		}
	}

	return nil
}

// Validate checks the point coordinates.
func (p Point) Validate() error {
	return Validate(p.Lat, p.Lng)
}
