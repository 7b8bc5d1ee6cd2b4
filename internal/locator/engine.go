// Package locator answers the read-side questions of the directory: what is
// near a point, what is inside a map viewport, and what one location offers.
package locator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hope-platform/hope-backend/internal/directory"
	"github.com/hope-platform/hope-backend/internal/geo"
	"github.com/hope-platform/hope-backend/internal/schedule"
)

var (
	ErrInvalidQueryBounds     = errors.New("invalid query bounds")
	ErrInvalidCoordinateRange = errors.New("coordinate out of range")
)

const (
	DefaultNearbyLimit = 50
	MaxNearbyLimit     = 500
	DefaultBoundsLimit = 75
	MaxBoundsLimit     = 100
)

// Store is the read access the engine needs. *directory.Store satisfies it.
type Store interface {
	LocationsInBox(ctx context.Context, q directory.BoxQuery) ([]directory.Location, error)
	LocationDetail(ctx context.Context, id uuid.UUID) (*directory.Location, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]directory.ServiceCategory, error)
}

type Engine struct {
	store Store
	zone  *time.Location
	now   func() time.Time
	log   *zap.Logger
}

type Option func(*Engine)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine evaluates opening hours in zone; nil means UTC.
func NewEngine(store Store, zone *time.Location, log *zap.Logger, opts ...Option) *Engine {
	if zone == nil {
		zone = time.UTC
	}
	e := &Engine{
		store: store,
		zone:  zone,
		now:   time.Now,
		log:   log.Named("locator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) localNow() time.Time {
	return e.now().In(e.zone)
}

type NearbyQuery struct {
	Lat, Lon   float64
	RadiusKm   float64
	Categories []string
	OpenNow    bool
	Limit      int
}

// FindNearby returns locations within RadiusKm of the point, closest first.
// The open-now filter runs after truncation, so fewer than Limit rows may
// come back even when more open locations exist further out.
func (e *Engine) FindNearby(ctx context.Context, q NearbyQuery) ([]LocationSummary, error) {
	if !geo.ValidLatLon(q.Lat, q.Lon) {
		return nil, fmt.Errorf("%w: latitude %v, longitude %v", ErrInvalidCoordinateRange, q.Lat, q.Lon)
	}
	if !(q.RadiusKm > 0) {
		return nil, fmt.Errorf("%w: radius_km must be positive", ErrInvalidCoordinateRange)
	}
	limit := clampLimit(q.Limit, DefaultNearbyLimit, MaxNearbyLimit)

	center := geo.Point{Lat: q.Lat, Lon: q.Lon}
	locs, err := e.store.LocationsInBox(ctx, directory.BoxQuery{
		Box:        geo.BoundingBox(center, q.RadiusKm),
		Categories: q.Categories,
	})
	if err != nil {
		return nil, err
	}

	type candidate struct {
		loc    *directory.Location
		meters float64
	}
	radius := q.RadiusKm * 1000
	candidates := make([]candidate, 0, len(locs))
	for i := range locs {
		p, ok := locs[i].Point()
		if !ok {
			continue
		}
		d := geo.Haversine(center, p)
		if d > radius {
			continue
		}
		candidates = append(candidates, candidate{loc: &locs[i], meters: d})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].meters < candidates[j].meters })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	now := e.localNow()
	out := make([]LocationSummary, 0, len(candidates))
	for _, c := range candidates {
		open := schedule.IsOpenNow(c.loc.Windows(), now)
		if q.OpenNow && !open {
			continue
		}
		s := summarize(c.loc, open)
		km := geo.RoundTo(c.meters/1000, 2)
		s.DistanceKm = &km
		out = append(out, s)
	}
	return out, nil
}

type BoundsQuery struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	// Center orders results nearest first and adds distance_km.
	Center *geo.Point

	Categories        []string
	ExcludeCategories []string
	OpenNow           bool
	OpenToday         bool
	Limit             int
}

// FindInBounds returns locations inside the viewport. Open filters apply to
// the rows the store returned, after the limit.
func (e *Engine) FindInBounds(ctx context.Context, q BoundsQuery) ([]LocationSummary, error) {
	for _, v := range []float64{q.MinLat, q.MaxLat} {
		if !geo.ValidLatLon(v, 0) {
			return nil, fmt.Errorf("%w: latitude %v", ErrInvalidCoordinateRange, v)
		}
	}
	for _, v := range []float64{q.MinLng, q.MaxLng} {
		if !geo.ValidLatLon(0, v) {
			return nil, fmt.Errorf("%w: longitude %v", ErrInvalidCoordinateRange, v)
		}
	}
	box := geo.Box{MinLat: q.MinLat, MaxLat: q.MaxLat, MinLon: q.MinLng, MaxLon: q.MaxLng}
	if !box.Valid() {
		return nil, fmt.Errorf("%w: min must be below max on both axes", ErrInvalidQueryBounds)
	}
	if q.Center != nil && !geo.ValidLatLon(q.Center.Lat, q.Center.Lon) {
		return nil, fmt.Errorf("%w: center", ErrInvalidCoordinateRange)
	}

	bq := directory.BoxQuery{
		Box:       box,
		OrderFrom: q.Center,
		Limit:     clampLimit(q.Limit, DefaultBoundsLimit, MaxBoundsLimit),
	}
	if len(q.Categories) > 0 {
		bq.Categories = q.Categories
	} else {
		bq.ExcludeCategories = q.ExcludeCategories
	}

	locs, err := e.store.LocationsInBox(ctx, bq)
	if err != nil {
		return nil, err
	}

	now := e.localNow()
	out := make([]LocationSummary, 0, len(locs))
	for i := range locs {
		loc := &locs[i]
		windows := loc.Windows()
		open := schedule.IsOpenNow(windows, now)
		if q.OpenNow && !open {
			continue
		}
		if q.OpenToday && !schedule.IsOpenToday(windows, now) {
			continue
		}
		s := summarize(loc, open)
		if q.Center != nil {
			if p, ok := loc.Point(); ok {
				km := geo.RoundTo(geo.Haversine(*q.Center, p)/1000, 2)
				s.DistanceKm = &km
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// ServiceTypes lists categories in display order.
func (e *Engine) ServiceTypes(ctx context.Context, activeOnly bool) ([]ServiceType, error) {
	cats, err := e.store.ListCategories(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]ServiceType, 0, len(cats))
	for _, c := range cats {
		out = append(out, ServiceType{
			ID:          c.ID,
			Name:        c.Name,
			Slug:        c.Slug,
			Description: c.Description,
			IconName:    c.IconName,
			ColorHex:    c.ColorHex,
		})
	}
	return out, nil
}

// Location returns the full detail of one live location, with the closures
// that still apply today.
func (e *Engine) Location(ctx context.Context, id uuid.UUID) (*LocationDetail, error) {
	loc, err := e.store.LocationDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	return detail(loc, e.localNow()), nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
