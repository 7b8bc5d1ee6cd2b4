// Package geocoding turns postal addresses into coordinates.
package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hope-platform/hope-backend/internal/geo"
	"github.com/hope-platform/hope-backend/internal/metrics"
)

var (
	// ErrNotFound means the provider had no usable match.
	ErrNotFound = errors.New("geocode: no match")

	// ErrTimeout means the call exceeded its deadline. Callers treat it like
	// ErrNotFound.
	ErrTimeout = errors.New("geocode: deadline exceeded")
)

const (
	DefaultBaseURL     = "https://nominatim.openstreetmap.org/search"
	DefaultUserAgent   = "HopePlatform/1.0"
	DefaultMinInterval = time.Second
	DefaultTimeout     = 30 * time.Second
)

// Lookup resolves one free-text address.
type Lookup interface {
	Geocode(ctx context.Context, address, city, state string) (geo.Point, error)
}

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	BaseURL     string
	UserAgent   string
	MinInterval time.Duration
	Timeout     time.Duration
	Region      geo.Box
}

// Client queries a Nominatim-compatible search endpoint. It is safe for
// concurrent use; all callers share one rate limiter.
type Client struct {
	http    *resty.Client
	baseURL string
	limiter *rate.Limiter
	timeout time.Duration
	region  geo.Box
	log     *zap.Logger
}

func NewClient(opts Options, log *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if !opts.Region.Valid() {
		opts.Region = geo.NYC
	}

	httpClient := resty.New().
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	return &Client{
		http:    httpClient,
		baseURL: opts.BaseURL,
		limiter: rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		timeout: opts.Timeout,
		region:  opts.Region,
		log:     log.Named("geocoder"),
	}
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode looks up "address, city, state". The wait for the rate limiter and
// the request itself share one deadline.
func (c *Client) Geocode(ctx context.Context, address, city, state string) (geo.Point, error) {
	query := joinQuery(address, city, state)
	if query == "" {
		return geo.Point{}, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	p, err := c.lookup(ctx, query)
	metrics.GeocodeDurationMs.Observe(float64(time.Since(start).Milliseconds()))

	switch {
	case err == nil:
		metrics.GeocodeRequestsTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrTimeout):
		metrics.GeocodeRequestsTotal.WithLabelValues("timeout").Inc()
		c.log.Warn("geocode timed out", zap.String("query", query), zap.Duration("timeout", c.timeout))
	default:
		metrics.GeocodeRequestsTotal.WithLabelValues("not_found").Inc()
		c.log.Debug("geocode miss", zap.String("query", query), zap.Error(err))
	}
	return p, err
}

func (c *Client) lookup(ctx context.Context, query string) (geo.Point, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return geo.Point{}, ctxError(ctx, err)
	}

	var places []place
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":            query,
			"format":       "json",
			"limit":        "1",
			"countrycodes": "us",
		}).
		SetResult(&places).
		Get(c.baseURL)
	if err != nil {
		return geo.Point{}, ctxError(ctx, fmt.Errorf("geocoding request: %w", err))
	}
	if resp.IsError() {
		return geo.Point{}, fmt.Errorf("%w: provider returned HTTP %d", ErrNotFound, resp.StatusCode())
	}
	if len(places) == 0 {
		return geo.Point{}, ErrNotFound
	}

	lat, errLat := strconv.ParseFloat(places[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(places[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return geo.Point{}, fmt.Errorf("%w: unparsable coordinates %q,%q", ErrNotFound, places[0].Lat, places[0].Lon)
	}

	p := geo.Point{Lat: lat, Lon: lon}
	if !c.region.Contains(p) {
		return geo.Point{}, fmt.Errorf("%w: %.5f,%.5f is outside the service region", ErrNotFound, lat, lon)
	}
	return p, nil
}

// ctxError maps a failure caused by the deadline to ErrTimeout, and any other
// failure to ErrNotFound.
func ctxError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	// rate.Limiter.Wait fails early when the deadline cannot be met.
	if _, ok := ctx.Deadline(); ok && strings.Contains(err.Error(), "would exceed context deadline") {
		return ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrNotFound, err)
}

func joinQuery(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
