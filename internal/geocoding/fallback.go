package geocoding

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hope-platform/hope-backend/internal/geo"
	"github.com/hope-platform/hope-backend/internal/metrics"
)

// Precision records which fallback level placed a location.
type Precision string

const (
	PrecisionAddress Precision = "address"
	PrecisionZip     Precision = "zip"
	PrecisionBorough Precision = "borough"
)

// Address is the input to the fallback chain.
type Address struct {
	Street  string
	City    string
	State   string
	Zip     string
	Borough string
}

// Result is a placed address and how precisely it was placed.
type Result struct {
	Point     geo.Point
	Precision Precision
}

// LowConfidence reports placements that should be reviewed by a human.
func (r Result) LowConfidence() bool {
	return r.Precision == PrecisionBorough
}

// Chain tries the street address, then the zip code, then the borough
// centroid.
type Chain struct {
	lookup    Lookup
	centroids map[string]geo.Point
	log       *zap.Logger
}

func NewChain(lookup Lookup, log *zap.Logger) *Chain {
	return &Chain{
		lookup:    lookup,
		centroids: geo.BoroughCentroids,
		log:       log.Named("geocoder"),
	}
}

// GeocodeWithFallback returns the first level that resolves. It fails with
// ErrTimeout if the last provider attempt timed out and no centroid applies,
// and with ErrNotFound otherwise.
func (c *Chain) GeocodeWithFallback(ctx context.Context, addr Address) (Result, error) {
	var lastErr error = ErrNotFound

	if addr.Street != "" {
		p, err := c.lookup.Geocode(ctx, addr.Street, addr.City, addr.State)
		if err == nil {
			return c.placed(addr, p, PrecisionAddress), nil
		}
		if errors.Is(err, context.Canceled) {
			return Result{}, err
		}
		lastErr = err
		c.log.Info("street address did not resolve, trying zip",
			zap.String("street", addr.Street), zap.String("zip", addr.Zip), zap.Error(err))
	}

	if addr.Zip != "" {
		p, err := c.lookup.Geocode(ctx, addr.Zip, addr.City, addr.State)
		if err == nil {
			return c.placed(addr, p, PrecisionZip), nil
		}
		if errors.Is(err, context.Canceled) {
			return Result{}, err
		}
		lastErr = err
		c.log.Info("zip did not resolve, trying borough centroid",
			zap.String("zip", addr.Zip), zap.String("borough", addr.Borough), zap.Error(err))
	}

	if borough, ok := geo.CanonicalBorough(addr.Borough); ok {
		if p, ok := c.centroids[borough]; ok {
			return c.placed(addr, p, PrecisionBorough), nil
		}
	}

	metrics.GeocodeFallbackTotal.WithLabelValues("failed").Inc()
	if errors.Is(lastErr, ErrTimeout) {
		return Result{}, ErrTimeout
	}
	return Result{}, ErrNotFound
}

func (c *Chain) placed(addr Address, p geo.Point, precision Precision) Result {
	metrics.GeocodeFallbackTotal.WithLabelValues(string(precision)).Inc()
	if precision == PrecisionBorough {
		c.log.Warn("placed at borough centroid; needs review",
			zap.String("street", addr.Street), zap.String("borough", addr.Borough))
	} else if precision == PrecisionZip {
		c.log.Info("placed by zip code", zap.String("street", addr.Street), zap.String("zip", addr.Zip))
	}
	return Result{Point: p, Precision: precision}
}
