// Package directorytest opens throwaway in-memory directory databases for
// tests.
package directorytest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hope-platform/hope-backend/internal/directory"
	"github.com/hope-platform/hope-backend/internal/geo"
)

// Open returns a migrated SQLite database private to the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the shared in-memory database alive and
	// serializes writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, directory.Migrate(db))
	return db
}

// Categories seeds a fixed category set and returns it keyed by slug.
func Categories(t testing.TB, store *directory.Store, slugs ...string) map[string]directory.ServiceCategory {
	t.Helper()

	cats := make([]directory.ServiceCategory, 0, len(slugs))
	for i, slug := range slugs {
		cats = append(cats, directory.ServiceCategory{
			Name:      "Category " + slug,
			Slug:      slug,
			SortOrder: i,
			Active:    true,
		})
	}
	ctx := context.Background()
	require.NoError(t, store.UpsertCategories(ctx, cats))

	stored, err := store.CategoriesBySlug(ctx, slugs)
	require.NoError(t, err)
	out := make(map[string]directory.ServiceCategory, len(stored))
	for _, c := range stored {
		out[c.Slug] = c
	}
	return out
}

// Place inserts a geocoded location offering the given categories.
func Place(t testing.TB, store *directory.Store, name string, p geo.Point, cats ...directory.ServiceCategory) *directory.Location {
	t.Helper()

	ctx := context.Background()
	loc := &directory.Location{Name: name, Borough: "Manhattan", City: "New York", State: "NY"}
	loc.SetPoint(p)
	require.NoError(t, store.SaveLocation(ctx, loc))

	as := make([]directory.ServiceAssignment, 0, len(cats))
	for _, c := range cats {
		as = append(as, directory.ServiceAssignment{CategoryID: c.ID})
	}
	require.NoError(t, store.ReplaceAssignments(ctx, loc.ID, as))
	return loc
}
