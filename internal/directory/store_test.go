package directory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hope-platform/hope-backend/internal/directory"
	"github.com/hope-platform/hope-backend/internal/directory/directorytest"
	"github.com/hope-platform/hope-backend/internal/geo"
	"github.com/hope-platform/hope-backend/internal/schedule"
)

func newStore(t *testing.T) *directory.Store {
	t.Helper()
	return directory.NewStore(directorytest.Open(t))
}

func ids(locs []directory.Location) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(locs))
	for _, l := range locs {
		out = append(out, l.ID)
	}
	return out
}

func TestStore_SaveAndFindByIdentity(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	loc := &directory.Location{
		Name:            "Bowery Mission",
		DataSource:      "dhs",
		ExternalID:      "B-1",
		Borough:         "Manhattan",
		LanguagesSpoken: directory.Languages{"English", "Spanish"},
	}
	loc.SetPoint(geo.Point{Lat: 40.7223, Lon: -73.9930})
	require.NoError(t, store.SaveLocation(ctx, loc))
	require.NotEqual(t, uuid.Nil, loc.ID)

	found, err := store.FindByIdentity(ctx, "dhs", "B-1")
	require.NoError(t, err)
	assert.Equal(t, loc.ID, found.ID)
	assert.Equal(t, directory.Languages{"English", "Spanish"}, found.LanguagesSpoken)
	p, ok := found.Point()
	require.True(t, ok)
	assert.InDelta(t, 40.7223, p.Lat, 1e-9)

	_, err = store.FindByIdentity(ctx, "dhs", "missing")
	assert.ErrorIs(t, err, directory.ErrNotFound)

	_, err = store.FindByIdentity(ctx, "dhs", "")
	assert.ErrorIs(t, err, directory.ErrNotFound)
}

func TestStore_FindByIdentityIncludesSoftDeleted(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	loc := &directory.Location{Name: "Closed Pantry", DataSource: "cfc", ExternalID: "7"}
	require.NoError(t, store.SaveLocation(ctx, loc))
	require.NoError(t, store.SoftDeleteLocation(ctx, loc.ID))

	found, err := store.FindByIdentity(ctx, "cfc", "7")
	require.NoError(t, err)
	assert.Equal(t, loc.ID, found.ID)
	assert.True(t, found.DeletedAt.Valid)

	_, err = store.LocationDetail(ctx, loc.ID)
	assert.ErrorIs(t, err, directory.ErrNotFound)

	assert.ErrorIs(t, store.SoftDeleteLocation(ctx, loc.ID), directory.ErrNotFound)
}

func TestStore_ListByBoroughSkipsDeleted(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	a := &directory.Location{Name: "A", Borough: "Queens"}
	b := &directory.Location{Name: "B", Borough: "Queens"}
	c := &directory.Location{Name: "C", Borough: "Bronx"}
	for _, l := range []*directory.Location{a, b, c} {
		require.NoError(t, store.SaveLocation(ctx, l))
	}
	require.NoError(t, store.SoftDeleteLocation(ctx, b.ID))

	locs, err := store.ListByBorough(ctx, "Queens")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, ids(locs))
}

func TestStore_ReplaceAssignmentsAndSchedule(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	cats := directorytest.Categories(t, store, "food", "shelter", "medical")

	loc := directorytest.Place(t, store, "Hub", geo.Point{Lat: 40.75, Lon: -73.98}, cats["food"], cats["shelter"])

	capacity := 40
	require.NoError(t, store.ReplaceAssignments(ctx, loc.ID, []directory.ServiceAssignment{
		{CategoryID: cats["medical"].ID, Capacity: &capacity, Notes: "walk-in"},
	}))
	require.NoError(t, store.ReplaceSchedule(ctx, loc.ID, []directory.ScheduleEntry{
		{DayOfWeek: 1, OpenTime: schedule.MustClock("09:00").Ptr(), CloseTime: schedule.MustClock("17:00").Ptr()},
		{DayOfWeek: 0, Is24Hours: true},
	}))

	got, err := store.LocationDetail(ctx, loc.ID)
	require.NoError(t, err)
	require.Len(t, got.Assignments, 1)
	assert.Equal(t, "medical", got.Assignments[0].Category.Slug)
	assert.Equal(t, 40, *got.Assignments[0].Capacity)
	require.Len(t, got.Schedule, 2)
	assert.Equal(t, 0, got.Schedule[0].DayOfWeek, "hours ordered by day")
	assert.Equal(t, schedule.MustClock("17:00"), *got.Schedule[1].CloseTime)

	require.NoError(t, store.ReplaceSchedule(ctx, loc.ID, nil))
	got, err = store.LocationDetail(ctx, loc.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Schedule)
}

func TestStore_UpsertCategories(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.UpsertCategories(ctx, []directory.ServiceCategory{
		{Name: "Food", Slug: "food", SortOrder: 2, Active: true},
		{Name: "Shelter", Slug: "shelter", SortOrder: 1, Active: true},
		{Name: "Legacy", Slug: "legacy", SortOrder: 3, Active: false},
	}))
	require.NoError(t, store.UpsertCategories(ctx, []directory.ServiceCategory{
		{Name: "Food Pantry", Slug: "food", SortOrder: 2, Active: true, ColorHex: "#FF6B6B"},
	}))

	all, err := store.ListCategories(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "shelter", all[0].Slug)
	assert.Equal(t, "Food Pantry", all[1].Name)
	assert.Equal(t, "#FF6B6B", all[1].ColorHex)

	active, err := store.ListCategories(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestStore_LocationsInBox(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	cats := directorytest.Categories(t, store, "food", "shelter", "wifi")

	center := geo.Point{Lat: 40.75, Lon: -73.98}
	near := directorytest.Place(t, store, "Near", geo.Point{Lat: 40.751, Lon: -73.981}, cats["food"], cats["shelter"])
	mid := directorytest.Place(t, store, "Mid", geo.Point{Lat: 40.76, Lon: -73.99}, cats["shelter"])
	far := directorytest.Place(t, store, "Far", geo.Point{Lat: 40.79, Lon: -73.95}, cats["wifi"])
	directorytest.Place(t, store, "Outside", geo.Point{Lat: 40.60, Lon: -74.10}, cats["food"])
	gone := directorytest.Place(t, store, "Gone", geo.Point{Lat: 40.752, Lon: -73.982}, cats["food"])
	require.NoError(t, store.SoftDeleteLocation(ctx, gone.ID))

	box := geo.Box{MinLat: 40.70, MaxLat: 40.80, MinLon: -74.00, MaxLon: -73.90}

	t.Run("ordered by distance", func(t *testing.T) {
		locs, err := store.LocationsInBox(ctx, directory.BoxQuery{Box: box, OrderFrom: &center})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{near.ID, mid.ID, far.ID}, ids(locs))
		require.Len(t, locs[0].Assignments, 2, "relations preloaded")
	})

	t.Run("inclusion does not duplicate", func(t *testing.T) {
		locs, err := store.LocationsInBox(ctx, directory.BoxQuery{
			Box:        box,
			Categories: []string{"food", "shelter"},
			OrderFrom:  &center,
		})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{near.ID, mid.ID}, ids(locs))
	})

	t.Run("exclusion", func(t *testing.T) {
		locs, err := store.LocationsInBox(ctx, directory.BoxQuery{
			Box:               box,
			ExcludeCategories: []string{"food"},
			OrderFrom:         &center,
		})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{mid.ID, far.ID}, ids(locs))
	})

	t.Run("limit", func(t *testing.T) {
		locs, err := store.LocationsInBox(ctx, directory.BoxQuery{Box: box, OrderFrom: &center, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{near.ID}, ids(locs))
	})
}

func TestStore_AddClosure(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	loc := directorytest.Place(t, store, "Library", geo.Point{Lat: 40.75, Lon: -73.98})

	start := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.AddClosure(ctx, &directory.TemporaryClosure{
		LocationID: loc.ID,
		StartDate:  start,
		Reason:     "Renovation",
		IsActive:   true,
	}))

	got, err := store.LocationDetail(ctx, loc.ID)
	require.NoError(t, err)
	require.Len(t, got.Closures, 1)
	assert.Equal(t, "closure", got.Closures[0].AlertType)

	err = store.AddClosure(ctx, &directory.TemporaryClosure{LocationID: uuid.New(), StartDate: start, Reason: "x"})
	assert.ErrorIs(t, err, directory.ErrNotFound)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	err := store.Transaction(ctx, func(tx *directory.Store) error {
		require.NoError(t, tx.SaveLocation(ctx, &directory.Location{Name: "Doomed", Borough: "Bronx"}))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	locs, err := store.ListByBorough(ctx, "Bronx")
	require.NoError(t, err)
	assert.Empty(t, locs)
}
