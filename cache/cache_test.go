// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type payload struct {
	Name  string  `json:"name"`
	Meter float64 `json:"meter"`
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client, Cache) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() { client.Close() })

	return mr, client, NewRedis(client, zaptest.NewLogger(t))
}

func TestKeys(t *testing.T) {
	day := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "nearby:3.867:11.517:5000:2025-06-02", NearbyKey(3.86671, 11.51666, 5000, day))
	assert.Equal(t, "search:-4.050:9.700:10000:50", SearchKey(-4.05, 9.7, 10000, 50))
}

func TestGetSet(t *testing.T) {
	mr, _, c := setupTestRedis(t)
	ctx := context.Background()

	var got payload

	ok, err := c.Get(ctx, "nearby:a", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "nearby:a", payload{Name: "Pharmacie Bastos", Meter: 12.5}))
	assert.True(t, mr.Exists("pharmacy:nearby:a"))
	assert.Equal(t, DefaultTTL, mr.TTL("pharmacy:nearby:a"))

	ok, err = c.Get(ctx, "nearby:a", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload{Name: "Pharmacie Bastos", Meter: 12.5}, got)

	mr.FastForward(DefaultTTL + time.Second)

	ok, err = c.Get(ctx, "nearby:a", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearKeepsForeignKeys(t *testing.T) {
	mr, client, c := setupTestRedis(t)
	ctx := context.Background()

	for i := range 250 {
		require.NoError(t, c.Set(ctx, SearchKey(3.8, 11.5, i, 50), payload{Name: "x"}))
	}

	require.NoError(t, client.Set(ctx, "session:1", "keep", 0).Err())

	require.NoError(t, c.Clear(ctx))

	assert.Equal(t, []string{"session:1"}, mr.Keys())
}

func TestWithOptions(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c := NewRedis(client, nil, WithPrefix("test:"), WithTTL(time.Minute))
	require.NoError(t, c.Set(context.Background(), "k", 1))

	assert.Equal(t, time.Minute, mr.TTL("test:k"))
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c := Open(ctx, "redis://"+mr.Addr()+"/0", zaptest.NewLogger(t))
	require.NoError(t, c.Set(ctx, "k", "v"))
	assert.True(t, mr.Exists("pharmacy:k"))

	assert.Equal(t, Noop{}, Open(ctx, "not a url", nil))

	addr := mr.Addr()
	mr.Close()
	assert.Equal(t, Noop{}, Open(ctx, "redis://"+addr, nil))
}

func TestNoop(t *testing.T) {
	ctx := context.Background()

	var c Cache = Noop{}
	require.NoError(t, c.Set(ctx, "k", 1))

	var v int

	ok, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Clear(ctx))
}
