// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	day, err := parseDay("2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), day)

	_, err = parseDay("14/03/2025")
	assert.ErrorContains(t, err, "YYYY-MM-DD")

	today, err := parseDay("")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), today, time.Minute)
}

func TestCityArgs(t *testing.T) {
	assert.NoError(t, cityArgs(reconcileCmd, nil))
	assert.NoError(t, cityArgs(reconcileCmd, []string{"yaounde", "douala"}))
	assert.Error(t, cityArgs(reconcileCmd, []string{"yaounde", "paris"}))
}

func TestCommandsRegistered(t *testing.T) {
	for _, path := range [][]string{
		{"reconcile"},
		{"serve"},
		{"nearby"},
		{"import", "osm"},
		{"import", "kml"},
		{"cleanup"},
		{"cities"},
		{"debug", "names"},
		{"debug", "page"},
	} {
		c, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], c.Name())
	}
}
