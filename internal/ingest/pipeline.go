// Package ingest runs source records through geocoding, matching and
// persistence, one record and one transaction at a time.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hope-platform/hope-backend/internal/directory"
	"github.com/hope-platform/hope-backend/internal/geo"
	"github.com/hope-platform/hope-backend/internal/geocoding"
	"github.com/hope-platform/hope-backend/internal/matching"
	"github.com/hope-platform/hope-backend/internal/metrics"
)

// Geocoder places an address, falling back to coarser levels.
type Geocoder interface {
	GeocodeWithFallback(ctx context.Context, addr geocoding.Address) (geocoding.Result, error)
}

// Store is the persistence the pipeline needs. *directory.Store satisfies it.
type Store interface {
	matching.Repository
	Transaction(ctx context.Context, fn func(tx *directory.Store) error) error
}

type outcome string

const (
	outcomeCreated          outcome = "created"
	outcomeUpdated          outcome = "updated"
	outcomeRejected         outcome = "rejected"
	outcomeSkippedNoAddress outcome = "skipped_no_address"
	outcomeSkippedNoGeocode outcome = "skipped_no_geocode"
	outcomeSkippedTimeout   outcome = "skipped_timeout"
	outcomeFailed           outcome = "failed"
	outcomeCancelled        outcome = "cancelled"
)

type Pipeline struct {
	store    Store
	geocoder Geocoder
	region   geo.Box
	log      *zap.Logger
}

func NewPipeline(store Store, geocoder Geocoder, region geo.Box, log *zap.Logger) *Pipeline {
	if !region.Valid() {
		region = geo.NYC
	}
	return &Pipeline{
		store:    store,
		geocoder: geocoder,
		region:   region,
		log:      log.Named("ingest"),
	}
}

// Run processes every record of src in order. Individual record failures are
// counted, never returned; the error is non-nil only when the source cannot
// be fetched or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, src Source) (Stats, error) {
	start := time.Now()
	stats := Stats{Source: src.Name()}
	log := p.log.With(zap.String("source", src.Name()))

	records, err := src.Fetch(ctx)
	if err != nil {
		log.Error("fetch failed", zap.Error(err))
		return stats, fmt.Errorf("fetch %s: %w", src.Name(), err)
	}
	stats.Scraped = len(records)
	log.Info("run started", zap.Int("records", len(records)))

	for i := range records {
		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled", zap.Int("processed", i), statsField(stats))
			return stats, err
		}
		o := p.process(ctx, &records[i], &stats, log)
		if o == outcomeCancelled {
			continue
		}
		metrics.IngestRecordsTotal.WithLabelValues(stats.Source, string(o)).Inc()
	}

	metrics.IngestRunDurationSeconds.WithLabelValues(stats.Source).Observe(time.Since(start).Seconds())
	log.Info("run finished", statsField(stats), zap.Duration("took", time.Since(start)))
	return stats, nil
}

// RunAll runs sources concurrently, at most parallel at a time. Records within
// one source stay sequential. Every source runs even if another fails.
func (p *Pipeline) RunAll(ctx context.Context, sources []Source, parallel int) ([]Stats, error) {
	if parallel < 1 {
		parallel = 1
	}

	results := make([]Stats, len(sources))
	errs := make([]error, len(sources))

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, src := range sources {
		g.Go(func() error {
			results[i], errs[i] = p.Run(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

func (p *Pipeline) process(ctx context.Context, rec *directory.RawRecord, stats *Stats, log *zap.Logger) outcome {
	rec.Normalize()
	log = log.With(zap.String("name", rec.Name), zap.String("external_id", rec.ExternalID))

	if err := rec.Validate(); err != nil {
		log.Warn("record rejected", zap.Error(err))
		stats.Rejected++
		return outcomeRejected
	}

	existing, err := matching.NewResolver(p.store, p.log).FindMatch(ctx, rec)
	if err != nil {
		log.Error("match lookup failed", zap.Error(err))
		stats.Failed++
		return outcomeFailed
	}

	var (
		point     geo.Point
		precision string
	)
	surveyed, hasSurveyed := rec.Point()
	switch {
	case hasSurveyed && p.region.Contains(surveyed):
		point, precision = surveyed, directory.PrecisionManual

	case existing != nil && existing.HasUsableCoordinates(p.region):
		// Placed by an earlier run: keep its coordinates and precision.
		point, _ = existing.Point()
		stats.Resumed++

	case rec.StreetAddress == "":
		log.Info("skipped: no street address")
		stats.SkippedNoAddress++
		return outcomeSkippedNoAddress

	default:
		res, err := p.geocoder.GeocodeWithFallback(ctx, geocodeAddress(rec))
		switch {
		case errors.Is(err, context.Canceled):
			return outcomeCancelled
		case errors.Is(err, geocoding.ErrTimeout):
			log.Warn("skipped: geocoding timed out", zap.String("street", rec.StreetAddress))
			stats.SkippedTimeout++
			return outcomeSkippedTimeout
		case err != nil:
			log.Warn("skipped: could not geocode", zap.String("street", rec.StreetAddress), zap.Error(err))
			stats.SkippedNoGeocode++
			return outcomeSkippedNoGeocode
		}
		point, precision = res.Point, string(res.Precision)
		stats.Geocoded++
	}

	var created bool
	err = p.store.Transaction(ctx, func(tx *directory.Store) error {
		resolver := matching.NewResolver(tx, p.log)
		loc, isNew, err := resolver.Apply(ctx, rec, existing, &point, precision)
		if err != nil {
			return err
		}
		if err := resolver.AddServices(ctx, loc, rec.Services); err != nil {
			return err
		}
		if err := resolver.AddOperatingHours(ctx, loc, rec.Hours); err != nil {
			return err
		}
		created = isNew
		return nil
	})
	if err != nil {
		log.Error("persist failed, record rolled back", zap.Error(err))
		stats.Failed++
		return outcomeFailed
	}

	if created {
		stats.Created++
		return outcomeCreated
	}
	stats.Updated++
	return outcomeUpdated
}

// geocodeAddress builds the geocoder input. A known borough replaces the
// city, which resolves far better than the generic "New York".
func geocodeAddress(rec *directory.RawRecord) geocoding.Address {
	city := rec.City
	if rec.Borough != "" {
		city = rec.Borough
	}
	return geocoding.Address{
		Street:  rec.StreetAddress,
		City:    city,
		State:   rec.State,
		Zip:     rec.ZipCode,
		Borough: rec.Borough,
	}
}
