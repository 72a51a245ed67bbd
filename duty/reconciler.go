// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package duty

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jcodagnone/gardecm/gazetteer"
	"github.com/jcodagnone/gardecm/names"
	"github.com/jcodagnone/gardecm/registry"
	"github.com/jcodagnone/gardecm/scrape"
	"github.com/jcodagnone/gardecm/spatial"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// DefaultWorkers is the default number of concurrent page fetches.
	DefaultWorkers = 4
	// MaxWorkers bounds the number of concurrent page fetches.
	MaxWorkers = 8
	// DefaultDelay is the default pause between two fetches of the same worker.
	DefaultDelay = 300 * time.Millisecond
)

// Fetcher downloads the duty entries of a city.
type Fetcher interface {
	Cities() []scrape.City
	Fetch(ctx context.Context, city scrape.City) ([]scrape.Entry, error)
}

// PharmacySource provides the registry snapshot a run matches against.
type PharmacySource interface {
	All(ctx context.Context) ([]*registry.Pharmacy, error)
}

// Store persists a run.
type Store interface {
	PurgeBefore(ctx context.Context, day time.Time) (int64, error)
	Commit(ctx context.Context, batch Batch) error
	Count(ctx context.Context, day time.Time) (int, error)
}

// Geocoder resolves scraped city and quarter labels.
type Geocoder interface {
	Geocode(city, quarter string) (spatial.Point, bool)
	CityKey(label string) (string, bool)
}

// Invalidator drops cached query responses once a run is committed.
type Invalidator interface {
	Clear(ctx context.Context) error
}

// Options configures a Reconciler.
type Options struct {
	// Workers is the number of concurrent fetches, clamped to 1..MaxWorkers
	Workers int

	// Delay is the politeness pause between two fetches of one worker
	Delay time.Duration

	// Progress shows a progress bar when stderr is a terminal
	Progress bool
}

// Metrics tracks what a run did.
type Metrics struct {
	Cities     int
	Failed     int
	Scraped    int
	Purged     int64
	Matched    int
	Duplicates int
	Unmatched  int
	Relocated  int
	Enriched   int
	Count      int
}

// Merge combines two Metrics.
func (m *Metrics) Merge(o *Metrics) *Metrics {
	if o == nil {
		return m
	}

	m.Cities += o.Cities
	m.Failed += o.Failed
	m.Scraped += o.Scraped
	m.Purged += o.Purged
	m.Matched += o.Matched
	m.Duplicates += o.Duplicates
	m.Unmatched += o.Unmatched
	m.Relocated += o.Relocated
	m.Enriched += o.Enriched
	m.Count += o.Count

	return m
}

// Reconciler turns the scraped duty roster of a day into duty records.
type Reconciler struct {
	fetcher  Fetcher
	source   PharmacySource
	store    Store
	geocoder Geocoder
	scorer   *names.Scorer
	cache    Invalidator
	options  Options
	logger   *zap.Logger

	// now returns the current time, used to pick the purge cutoff.
	now func() time.Time
}

// NewReconciler creates a reconciler. cache may be nil.
func NewReconciler(
	fetcher Fetcher,
	source PharmacySource,
	store Store,
	geocoder Geocoder,
	scorer *names.Scorer,
	cache Invalidator,
	options Options,
	logger *zap.Logger,
) *Reconciler {
	if options.Workers <= 0 {
		options.Workers = DefaultWorkers
	}

	options.Workers = min(options.Workers, MaxWorkers)

	if options.Delay < 0 {
		options.Delay = 0
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reconciler{
		fetcher:  fetcher,
		source:   source,
		store:    store,
		geocoder: geocoder,
		scorer:   scorer,
		cache:    cache,
		options:  options,
		logger:   logger,
		now:      time.Now,
	}
}

// Reconcile runs a reconciliation for day and returns the number of duty
// records stored for it.
func (r *Reconciler) Reconcile(ctx context.Context, day time.Time) (int, error) {
	m, err := r.Run(ctx, day)
	if err != nil {
		return 0, err
	}

	return m.Count, nil
}

// Run purges the days before today, fetches every city, matches the entries
// against the registry and commits the day in one transaction.
func (r *Reconciler) Run(ctx context.Context, day time.Time) (*Metrics, error) {
	day = Day(day)
	runID := uuid.NewString()
	logger := r.logger.With(zap.String("run_id", runID), zap.Time("day", day))

	m := &Metrics{}

	purged, err := r.store.PurgeBefore(ctx, Day(r.now()))
	if err != nil {
		return nil, fmt.Errorf("purging duty records: %w", err)
	}

	m.Purged = purged

	cities := r.fetcher.Cities()

	entries, fetched := r.fetchAll(ctx, cities, logger)
	m.Merge(fetched)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pharmacies, err := r.source.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}

	idx := NewIndex(pharmacies, r.scorer)
	if idx.Len() == 0 {
		logger.Warn("empty registry, every entry will be unmatched")
	}

	batch := Batch{Day: day, RunID: runID, Cities: cityLabels(cities)}
	m.Merge(r.split(idx, entries, &batch))

	if err := r.store.Commit(ctx, batch); err != nil {
		return nil, fmt.Errorf("committing duty records: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Clear(ctx); err != nil {
			logger.Warn("clearing response cache", zap.Error(err))
		}
	}

	m.Count, err = r.store.Count(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("counting duty records: %w", err)
	}

	logger.Info("reconciliation complete",
		zap.Int("cities", m.Cities),
		zap.Int("failed", m.Failed),
		zap.Int("scraped", m.Scraped),
		zap.Int64("purged", m.Purged),
		zap.Int("matched", m.Matched),
		zap.Int("duplicates", m.Duplicates),
		zap.Int("unmatched", m.Unmatched),
		zap.Int("relocated", m.Relocated),
		zap.Int("enriched", m.Enriched),
		zap.Int("count", m.Count),
	)

	return m, nil
}

// fetchAll fetches every city on a bounded pool. Results are indexed like
// cities; a failed fetch leaves an empty slot.
func (r *Reconciler) fetchAll(
	ctx context.Context,
	cities []scrape.City,
	logger *zap.Logger,
) ([][]scrape.Entry, *Metrics) {
	results := make([][]scrape.Entry, len(cities))
	workerMetrics := make([]Metrics, r.options.Workers)

	var bar *progressbar.ProgressBar
	if r.options.Progress && isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(len(cities),
			progressbar.OptionSetDescription("Fetching duty pages"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	jobs := make(chan int)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)

		for i := range cities {
			select {
			case jobs <- i:
			case <-gCtx.Done():
				return nil
			}
		}

		return nil
	})

	for w := range r.options.Workers {
		limiter := rate.NewLimiter(rate.Every(r.options.Delay), 1)
		if r.options.Delay == 0 {
			limiter = rate.NewLimiter(rate.Inf, 1)
		}

		wm := &workerMetrics[w]

		g.Go(func() error {
			for i := range jobs {
				city := cities[i]
				wm.Cities++

				if err := limiter.Wait(gCtx); err != nil {
					wm.Failed++

					continue
				}

				entries, err := r.fetcher.Fetch(gCtx, city)
				if err != nil {
					wm.Failed++

					logger.Warn("fetch failed", zap.String("city", city.String()), zap.Error(err))
				} else {
					results[i] = entries
					wm.Scraped += len(entries)

					logger.Debug("fetched", zap.String("city", city.String()), zap.Int("entries", len(entries)))
				}

				if bar != nil {
					_ = bar.Add(1)
				}
			}

			return nil
		})
	}

	_ = g.Wait()

	m := &Metrics{}
	for i := range workerMetrics {
		m.Merge(&workerMetrics[i])
	}

	return results, m
}

func cityLabels(cities []scrape.City) []string {
	labels := make([]string, 0, len(cities))
	for _, c := range cities {
		labels = append(labels, c.Label())
	}

	return labels
}

type unmatchedKey struct {
	name string
	city string
}

// split matches entries in city order and fills the batch.
func (r *Reconciler) split(idx *Index, entries [][]scrape.Entry, batch *Batch) *Metrics {
	m := &Metrics{}
	seenIDs := make(map[int64]bool)
	seenUnmatched := make(map[unmatchedKey]bool)

	for _, cityEntries := range entries {
		for _, e := range cityEntries {
			p, _, ok := idx.BestMatch(e.Name)
			if ok {
				if seenIDs[p.ID] {
					m.Duplicates++

					continue
				}

				seenIDs[p.ID] = true
				m.Matched++

				id := p.ID
				batch.Matched = append(batch.Matched, Record{
					PharmacyID:  &id,
					Day:         batch.Day,
					ScrapedName: e.Name,
					Quarter:     e.Quarter,
					City:        e.City,
				})

				if rel, ok := r.relocation(p, e); ok {
					idx.Relocate(rel.ID, rel.Point, rel.City)
					batch.Relocations = append(batch.Relocations, rel)
					m.Relocated++
				}

				continue
			}

			key := unmatchedKey{name: names.Normalize(e.Name), city: names.Fold(e.City)}
			if seenUnmatched[key] {
				m.Duplicates++

				continue
			}

			seenUnmatched[key] = true
			m.Unmatched++

			rec := Record{
				Day:         batch.Day,
				ScrapedName: e.Name,
				Quarter:     e.Quarter,
				City:        e.City,
			}

			if pt, ok := r.geocoder.Geocode(e.City, e.Quarter); ok {
				rec.Approx = &pt
				m.Enriched++
			}

			batch.Unmatched = append(batch.Unmatched, rec)
		}
	}

	return m
}

// relocation corrects a matched pharmacy sitting on a sentinel point.
func (r *Reconciler) relocation(p *registry.Pharmacy, e scrape.Entry) (registry.Relocation, bool) {
	if !gazetteer.IsSentinel(p.Point) {
		return registry.Relocation{}, false
	}

	pt, ok := r.geocoder.Geocode(e.City, e.Quarter)
	if !ok || gazetteer.IsSentinel(pt) {
		return registry.Relocation{}, false
	}

	city, ok := r.geocoder.CityKey(e.City)
	if !ok {
		city = e.City
	}

	return registry.Relocation{ID: p.ID, Point: pt, City: city}, true
}
