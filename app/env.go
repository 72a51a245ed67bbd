// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

// Package app wires the garde components together.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jcodagnone/gardecm/cache"
	"github.com/jcodagnone/gardecm/config"
	"github.com/jcodagnone/gardecm/duty"
	"github.com/jcodagnone/gardecm/gazetteer"
	"github.com/jcodagnone/gardecm/names"
	"github.com/jcodagnone/gardecm/query"
	"github.com/jcodagnone/gardecm/registry"
	"github.com/jcodagnone/gardecm/scrape"
	"go.uber.org/zap"
)

// Env carries the shared collaborators of a garde process.
type Env struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *sql.DB
	Registry  registry.Repository
	Duty      duty.Repository
	Gazetteer *gazetteer.Gazetteer
	Cache     cache.Cache
	Scorer    *names.Scorer
}

// NewEnv opens the database, creates the schema and builds the shared
// collaborators. Redis is only contacted when enabled.
func NewEnv(ctx context.Context, cfg *config.Config, provider Provider, logger *zap.Logger) (*Env, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := provider.DB(ctx)
	if err != nil {
		return nil, err
	}

	reg := registry.NewRepository(db)
	if err := reg.CreateSchema(ctx); err != nil {
		return nil, fmt.Errorf("creating registry schema: %w", err)
	}

	duties := duty.NewRepository(db, reg)
	if err := duties.CreateSchema(ctx); err != nil {
		return nil, fmt.Errorf("creating duty schema: %w", err)
	}

	gz := gazetteer.New()
	if cfg.Gazetteer.Path != "" {
		gz, err = gazetteer.Load(cfg.Gazetteer.Path)
		if err != nil {
			return nil, fmt.Errorf("loading gazetteer: %w", err)
		}
	}

	var c cache.Cache = cache.Noop{}
	if cfg.Redis.Enabled {
		c = cache.Open(ctx, cfg.Redis.URL, logger, cache.WithTTL(cfg.Cache.TTL))
	}

	return &Env{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Registry:  reg,
		Duty:      duties,
		Gazetteer: gz,
		Cache:     c,
		Scorer:    names.NewScorer(cfg.Match),
	}, nil
}

// Fetcher builds the duty page client. cities restricts the fetched cities.
func (e *Env) Fetcher(userAgent string, cities []scrape.City) *scrape.Client {
	if e.Config.Scrape.UserAgent != "" {
		userAgent = e.Config.Scrape.UserAgent
	}

	return scrape.NewClient(&scrape.ClientOptions{
		BaseURL:         e.Config.Scrape.BaseURL,
		UserAgent:       userAgent,
		Timeout:         e.Config.Scrape.Timeout,
		EnableHTTPTrace: e.Config.Scrape.TraceHTTP,
		Cities:          cities,
	}, e.Logger)
}

// Reconciler builds the duty reconciler over fetcher.
func (e *Env) Reconciler(fetcher duty.Fetcher, progress bool) *duty.Reconciler {
	return duty.NewReconciler(
		fetcher,
		e.Registry,
		e.Duty,
		e.Gazetteer,
		e.Scorer,
		e.Cache,
		duty.Options{
			Workers:  e.Config.Scrape.Workers,
			Delay:    e.Config.Scrape.Delay,
			Progress: progress,
		},
		e.Logger,
	)
}

// Resolver builds the query resolver.
func (e *Env) Resolver() *query.Resolver {
	return query.NewResolver(
		e.Duty,
		e.Registry,
		query.NewCityResolver(e.Registry, e.Gazetteer),
		e.Cache,
		e.Config.Search,
		e.Logger,
	)
}
