// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

// Package api serves the duty pharmacy queries over HTTP.
package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/gardecm/duty"
	"github.com/jcodagnone/gardecm/query"
	"github.com/jcodagnone/gardecm/spatial"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Server exposes a query.Resolver.
type Server struct {
	resolver *query.Resolver
	db       *sql.DB
	logger   *zap.Logger
	version  string

	// now returns the current time, used for the default date.
	now func() time.Time
}

// NewServer creates a server. db is only used by the health check.
func NewServer(resolver *query.Resolver, db *sql.DB, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		resolver: resolver,
		db:       db,
		logger:   logger,
		version:  version,
		now:      time.Now,
	}
}

// Router returns the HTTP handler of the API.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/health", s.health)
	r.GET("/api/pharmacies/nearby", s.nearby)
	r.GET("/api/pharmacies/search", s.search)
	r.GET("/api/pharmacies", s.pharmacies)
	r.GET("/api/gardes", s.gardes)

	return r
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		s.logger.Debug("request",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *Server) fail(ctx *gin.Context, err error) {
	var validationErr *spatial.ValidationError
	if errors.As(err, &validationErr) {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})

		return
	}

	s.logger.Error("request failed", zap.String("path", ctx.Request.URL.Path), zap.Error(err))
	ctx.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
}

func badRequest(ctx *gin.Context, msg string) {
	ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

// point reads the required lat and lon parameters.
func point(ctx *gin.Context) (spatial.Point, bool) {
	latStr, lonStr := ctx.Query("lat"), ctx.Query("lon")
	if latStr == "" || lonStr == "" {
		badRequest(ctx, "lat and lon are required")

		return spatial.Point{}, false
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		badRequest(ctx, "invalid lat")

		return spatial.Point{}, false
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		badRequest(ctx, "invalid lon")

		return spatial.Point{}, false
	}

	return spatial.Point{Lat: lat, Lng: lon}, true
}

// intParam reads an optional integer parameter; zero means unset.
func intParam(ctx *gin.Context, name string) (int, bool) {
	v := ctx.Query(name)
	if v == "" {
		return 0, true
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		badRequest(ctx, "invalid "+name)

		return 0, false
	}

	return n, true
}

func (s *Server) day(ctx *gin.Context) (time.Time, bool) {
	v := ctx.Query("date")
	if v == "" {
		return duty.Day(s.now()), true
	}

	day, err := time.Parse(time.DateOnly, v)
	if err != nil {
		badRequest(ctx, "date must be YYYY-MM-DD")

		return time.Time{}, false
	}

	return day, true
}

func (s *Server) health(ctx *gin.Context) {
	status := http.StatusOK
	db := gin.H{"status": "ok"}

	var version string
	if err := s.db.PingContext(ctx); err != nil {
		status = http.StatusServiceUnavailable
		db = gin.H{"status": "error", "error": err.Error()}
	} else if err := s.db.QueryRowContext(ctx, `SELECT version()`).Scan(&version); err == nil {
		db["version"] = version
	}

	ctx.JSON(status, gin.H{
		"status":   "ok",
		"version":  s.version,
		"database": db,
	})
}

func (s *Server) nearby(ctx *gin.Context) {
	p, ok := point(ctx)
	if !ok {
		return
	}

	radius, ok := intParam(ctx, "distance_m")
	if !ok {
		return
	}

	day, ok := s.day(ctx)
	if !ok {
		return
	}

	results, err := s.resolver.Nearby(ctx, p, radius, day)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	limits := s.resolver.Limits()
	if radius <= 0 {
		radius = limits.NearbyRadius
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(results),
		"search_params": gin.H{
			"lat":      p.Lat,
			"lon":      p.Lng,
			"radius_m": min(radius, limits.MaxNearbyRadius),
			"date":     day.Format(time.DateOnly),
		},
		"pharmacies": results,
	})
}

func (s *Server) search(ctx *gin.Context) {
	p, ok := point(ctx)
	if !ok {
		return
	}

	radius, ok := intParam(ctx, "radius")
	if !ok {
		return
	}

	limit, ok := intParam(ctx, "limit")
	if !ok {
		return
	}

	located, err := s.resolver.Search(ctx, p, radius, limit)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"count":      len(located),
		"pharmacies": located,
	})
}

func (s *Server) pharmacies(ctx *gin.Context) {
	limit, ok := intParam(ctx, "limit")
	if !ok {
		return
	}

	pharmacies, err := s.resolver.Pharmacies(ctx, ctx.Query("city"), limit)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"count":      len(pharmacies),
		"pharmacies": pharmacies,
	})
}

func (s *Server) gardes(ctx *gin.Context) {
	day, ok := s.day(ctx)
	if !ok {
		return
	}

	gardes, err := s.resolver.Gardes(ctx, day, ctx.Query("city"))
	if err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(gardes),
		"date":    day.Format(time.DateOnly),
		"gardes":  gardes,
	})
}
