package locator_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hope-platform/hope-backend/internal/directory"
	"github.com/hope-platform/hope-backend/internal/directory/directorytest"
	"github.com/hope-platform/hope-backend/internal/geo"
	"github.com/hope-platform/hope-backend/internal/locator"
	"github.com/hope-platform/hope-backend/internal/schedule"
)

var (
	origin  = geo.Point{Lat: 40.75, Lon: -73.98}
	eastern = time.FixedZone("EST", -5*60*60)
)

// Wednesday 10:30 local.
var wednesdayMorning = time.Date(2026, 10, 14, 10, 30, 0, 0, eastern)

type fixture struct {
	store  *directory.Store
	engine *locator.Engine
	cats   map[string]directory.ServiceCategory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := directory.NewStore(directorytest.Open(t))
	cats := directorytest.Categories(t, store, "food", "shelter", "drop-in", "medical")
	engine := locator.NewEngine(store, eastern, zap.NewNop(),
		locator.WithClock(func() time.Time { return wednesdayMorning }))
	return &fixture{store: store, engine: engine, cats: cats}
}

// at places a location distanceM meters from origin along bearing.
func (f *fixture) at(t *testing.T, name string, bearing, distanceM float64, slugs ...string) *directory.Location {
	t.Helper()
	cats := make([]directory.ServiceCategory, 0, len(slugs))
	for _, s := range slugs {
		cats = append(cats, f.cats[s])
	}
	return directorytest.Place(t, f.store, name, geo.Destination(origin, bearing, distanceM), cats...)
}

func (f *fixture) hours(t *testing.T, loc *directory.Location, entries ...directory.ScheduleEntry) {
	t.Helper()
	require.NoError(t, f.store.ReplaceSchedule(context.Background(), loc.ID, entries))
}

func weekday(day int, open, close string) directory.ScheduleEntry {
	return directory.ScheduleEntry{
		DayOfWeek: day,
		OpenTime:  schedule.MustClock(open).Ptr(),
		CloseTime: schedule.MustClock(close).Ptr(),
	}
}

func names(rows []locator.LocationSummary) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}

func TestFindNearby_RadiusOrderingAndDistance(t *testing.T) {
	f := newFixture(t)
	f.at(t, "far-corner", 45, 1200, "food") // inside the box, outside the circle
	f.at(t, "third", 270, 900, "food")
	f.at(t, "first", 0, 100, "food")
	f.at(t, "second", 180, 450, "shelter")
	f.at(t, "outside", 90, 5000, "food")

	rows, err := f.engine.FindNearby(context.Background(), locator.NearbyQuery{
		Lat: origin.Lat, Lon: origin.Lon, RadiusKm: 1, Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, names(rows))

	require.NotNil(t, rows[0].DistanceKm)
	assert.InDelta(t, 0.1, *rows[0].DistanceKm, 0.005)
	assert.InDelta(t, 0.45, *rows[1].DistanceKm, 0.005)
	for i := 1; i < len(rows); i++ {
		assert.LessOrEqual(t, *rows[i-1].DistanceKm, *rows[i].DistanceKm)
	}
}

func TestFindNearby_LimitTruncatesClosestFirst(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 12; i++ {
		f.at(t, fmt.Sprintf("loc-%02d", i), float64(i*30), float64(50+i*60), "food")
	}

	rows, err := f.engine.FindNearby(context.Background(), locator.NearbyQuery{
		Lat: origin.Lat, Lon: origin.Lon, RadiusKm: 1, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, rows, 10)
	assert.Equal(t, "loc-00", rows[0].Name)
	assert.Equal(t, "loc-09", rows[9].Name)
}

func TestFindNearby_DefaultAndCappedLimit(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.at(t, fmt.Sprintf("loc-%d", i), 0, float64(100*(i+1)), "food")
	}
	ctx := context.Background()

	rows, err := f.engine.FindNearby(ctx, locator.NearbyQuery{Lat: origin.Lat, Lon: origin.Lon, RadiusKm: 1})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = f.engine.FindNearby(ctx, locator.NearbyQuery{Lat: origin.Lat, Lon: origin.Lon, RadiusKm: 1, Limit: 100000})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestFindNearby_CategoryFilterAndOpenNow(t *testing.T) {
	f := newFixture(t)
	open := f.at(t, "open-pantry", 0, 100, "food")
	closed := f.at(t, "closed-pantry", 0, 200, "food")
	f.at(t, "shelter", 0, 150, "shelter")
	both := f.at(t, "both", 0, 300, "food", "shelter")

	f.hours(t, open, weekday(3, "09:00", "17:00"))
	f.hours(t, closed, weekday(3, "12:00", "14:00"))
	f.hours(t, both, directory.ScheduleEntry{DayOfWeek: 3, Is24Hours: true})

	ctx := context.Background()
	rows, err := f.engine.FindNearby(ctx, locator.NearbyQuery{
		Lat: origin.Lat, Lon: origin.Lon, RadiusKm: 1, Categories: []string{"food"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"open-pantry", "closed-pantry", "both"}, names(rows))
	assert.True(t, rows[0].IsOpenNow)
	assert.False(t, rows[1].IsOpenNow)
	assert.Len(t, rows[2].Services, 2)

	rows, err = f.engine.FindNearby(ctx, locator.NearbyQuery{
		Lat: origin.Lat, Lon: origin.Lon, RadiusKm: 1, Categories: []string{"food", "shelter"}, OpenNow: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"open-pantry", "both"}, names(rows), "one row per location, order kept")
}

func TestFindNearby_ExcludesSoftDeleted(t *testing.T) {
	f := newFixture(t)
	gone := f.at(t, "gone", 0, 100, "food")
	f.at(t, "here", 0, 200, "food")
	require.NoError(t, f.store.SoftDeleteLocation(context.Background(), gone.ID))

	rows, err := f.engine.FindNearby(context.Background(), locator.NearbyQuery{Lat: origin.Lat, Lon: origin.Lon, RadiusKm: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"here"}, names(rows))
}

func TestFindNearby_InvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.FindNearby(ctx, locator.NearbyQuery{Lat: 91, Lon: 0, RadiusKm: 1})
	assert.ErrorIs(t, err, locator.ErrInvalidCoordinateRange)

	_, err = f.engine.FindNearby(ctx, locator.NearbyQuery{Lat: 40, Lon: -181, RadiusKm: 1})
	assert.ErrorIs(t, err, locator.ErrInvalidCoordinateRange)

	_, err = f.engine.FindNearby(ctx, locator.NearbyQuery{Lat: 40, Lon: -73, RadiusKm: 0})
	assert.ErrorIs(t, err, locator.ErrInvalidCoordinateRange)
}

func TestFindInBounds_InvertedBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.FindInBounds(ctx, locator.BoundsQuery{MinLat: 40.8, MaxLat: 40.7, MinLng: -74, MaxLng: -73.9})
	assert.ErrorIs(t, err, locator.ErrInvalidQueryBounds)

	_, err = f.engine.FindInBounds(ctx, locator.BoundsQuery{MinLat: 40.7, MaxLat: 40.8, MinLng: -73.9, MaxLng: -73.9})
	assert.ErrorIs(t, err, locator.ErrInvalidQueryBounds)

	_, err = f.engine.FindInBounds(ctx, locator.BoundsQuery{MinLat: -95, MaxLat: 40.8, MinLng: -74, MaxLng: -73.9})
	assert.ErrorIs(t, err, locator.ErrInvalidCoordinateRange)
}

func TestFindInBounds_CenterOrderingAndFilters(t *testing.T) {
	f := newFixture(t)
	near := f.at(t, "near", 0, 200, "food", "shelter")
	mid := f.at(t, "mid", 90, 600, "medical")
	far := f.at(t, "far", 180, 1500, "food")
	f.at(t, "out-of-view", 0, 20000, "food")

	f.hours(t, near, weekday(3, "09:00", "10:00")) // today, but closed at 10:30
	f.hours(t, mid, weekday(3, "10:00", "11:00"))
	f.hours(t, far, weekday(4, "09:00", "17:00")) // tomorrow only

	ctx := context.Background()
	base := locator.BoundsQuery{
		MinLat: 40.70, MaxLat: 40.80, MinLng: -74.05, MaxLng: -73.90,
		Center: &origin,
	}

	rows, err := f.engine.FindInBounds(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "mid", "far"}, names(rows))
	require.NotNil(t, rows[0].DistanceKm)
	assert.InDelta(t, 0.2, *rows[0].DistanceKm, 0.005)
	assert.InDelta(t, 1.5, *rows[2].DistanceKm, 0.005)

	q := base
	q.Categories = []string{"food", "shelter"}
	rows, err = f.engine.FindInBounds(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "far"}, names(rows), "multi-category match is not duplicated")

	q = base
	q.ExcludeCategories = []string{"shelter"}
	rows, err = f.engine.FindInBounds(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"mid", "far"}, names(rows))

	q = base
	q.Categories = []string{"medical"}
	q.ExcludeCategories = []string{"medical"}
	rows, err = f.engine.FindInBounds(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"mid"}, names(rows), "inclusion wins over exclusion")

	q = base
	q.OpenToday = true
	rows, err = f.engine.FindInBounds(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "mid"}, names(rows))

	q = base
	q.OpenNow = true
	rows, err = f.engine.FindInBounds(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"mid"}, names(rows))

	q = base
	q.Limit = 2
	rows, err = f.engine.FindInBounds(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "mid"}, names(rows))
}

func TestFindInBounds_NoCenterHasNoDistance(t *testing.T) {
	f := newFixture(t)
	f.at(t, "b-site", 0, 200, "food")
	f.at(t, "a-site", 0, 400, "food")

	rows, err := f.engine.FindInBounds(context.Background(), locator.BoundsQuery{
		MinLat: 40.70, MaxLat: 40.80, MinLng: -74.05, MaxLng: -73.90,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a-site", "b-site"}, names(rows))
	assert.Nil(t, rows[0].DistanceKm)
}

func TestServiceTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.UpsertCategories(ctx, []directory.ServiceCategory{
		{Name: "Retired", Slug: "retired", SortOrder: 99, Active: false},
	}))

	active, err := f.engine.ServiceTypes(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 4)
	assert.Equal(t, "food", active[0].Slug)

	all, err := f.engine.ServiceTypes(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestLocation_DetailWithCurrentClosures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loc := f.at(t, "Bowery Mission", 0, 100, "shelter")
	f.hours(t, loc, directory.ScheduleEntry{DayOfWeek: 3, Is24Hours: true})

	day := func(m time.Month, d int) time.Time { return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC) }
	pastEnd := day(10, 1)
	laterEnd := day(10, 20)
	for _, c := range []directory.TemporaryClosure{
		{Reason: "Flooding", StartDate: day(9, 20), EndDate: &pastEnd, IsActive: true},
		{Reason: "Renovation", StartDate: day(10, 10), EndDate: &laterEnd, IsActive: true, IsUrgent: true},
		{Reason: "Holiday", StartDate: day(11, 26), IsActive: true},
		{Reason: "Withdrawn", StartDate: day(10, 12), IsActive: false},
	} {
		c.LocationID = loc.ID
		require.NoError(t, f.store.AddClosure(ctx, &c))
	}

	got, err := f.engine.Location(ctx, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bowery Mission", got.Name)
	assert.True(t, got.IsOpenNow)
	require.Len(t, got.OperatingHours, 1)
	assert.Equal(t, "Wednesday", got.OperatingHours[0].DayName)
	require.Len(t, got.Services, 1)
	assert.Equal(t, "shelter", got.Services[0].Type)

	var reasons []string
	for _, c := range got.CurrentClosures {
		reasons = append(reasons, c.Reason)
	}
	assert.Equal(t, []string{"Renovation", "Holiday"}, reasons)
	assert.Equal(t, "2026-10-20", *got.CurrentClosures[0].EndDate)
	assert.Nil(t, got.CurrentClosures[1].EndDate)

	require.NoError(t, f.store.SoftDeleteLocation(ctx, loc.ID))
	_, err = f.engine.Location(ctx, loc.ID)
	assert.ErrorIs(t, err, directory.ErrNotFound)
}
