package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hope-platform/hope-backend/internal/geo"
)

const pgUniqueViolation = "23505"

// Store is the gorm-backed persistence layer for the directory. A Store
// created inside Transaction runs every call on that transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction runs fn against a Store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// FindByIdentity looks a location up by its upstream identity. Soft-deleted
// rows are included so that re-ingesting a feed does not resurrect a location
// maintenance removed; a live row is preferred when both exist.
func (s *Store) FindByIdentity(ctx context.Context, dataSource, externalID string) (*Location, error) {
	if dataSource == "" || externalID == "" {
		return nil, ErrNotFound
	}

	var loc Location
	err := s.db.WithContext(ctx).Unscoped().
		Where("data_source = ? AND external_id = ?", dataSource, externalID).
		Order("deleted_at IS NULL DESC").
		Order("created_at").
		Take(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find by identity: %w", err)
	}
	return &loc, nil
}

// ListByBorough returns every live location in the borough.
func (s *Store) ListByBorough(ctx context.Context, borough string) ([]Location, error) {
	var locs []Location
	if err := s.db.WithContext(ctx).
		Where("borough = ?", borough).
		Order("created_at").
		Find(&locs).Error; err != nil {
		return nil, fmt.Errorf("list borough %q: %w", borough, err)
	}
	return locs, nil
}

// SaveLocation inserts loc when it has no ID yet and updates it otherwise.
// Associations are written separately through the Replace* calls.
func (s *Store) SaveLocation(ctx context.Context, loc *Location) error {
	db := s.db.WithContext(ctx).Omit(clause.Associations)

	var err error
	if loc.ID == uuid.Nil {
		err = db.Create(loc).Error
	} else {
		err = db.Unscoped().Save(loc).Error
	}
	if err != nil {
		return translateError(err)
	}
	return nil
}

// CategoriesBySlug returns the categories whose slug is in slugs. Unknown
// slugs are simply absent from the result.
func (s *Store) CategoriesBySlug(ctx context.Context, slugs []string) ([]ServiceCategory, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	var cats []ServiceCategory
	if err := s.db.WithContext(ctx).Where("slug IN ?", slugs).Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("categories by slug: %w", err)
	}
	return cats, nil
}

// ReplaceAssignments deletes every assignment of the location, then inserts
// the given set.
func (s *Store) ReplaceAssignments(ctx context.Context, locationID uuid.UUID, assignments []ServiceAssignment) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("location_id = ?", locationID).Delete(&ServiceAssignment{}).Error; err != nil {
		return fmt.Errorf("clear services: %w", err)
	}
	if len(assignments) == 0 {
		return nil
	}
	for i := range assignments {
		assignments[i].ID = 0
		assignments[i].LocationID = locationID
	}
	if err := db.Omit(clause.Associations).Create(&assignments).Error; err != nil {
		return fmt.Errorf("insert services: %w", err)
	}
	return nil
}

// ReplaceSchedule deletes every schedule row of the location, then inserts
// the given set.
func (s *Store) ReplaceSchedule(ctx context.Context, locationID uuid.UUID, entries []ScheduleEntry) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("location_id = ?", locationID).Delete(&ScheduleEntry{}).Error; err != nil {
		return fmt.Errorf("clear hours: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		entries[i].ID = 0
		entries[i].LocationID = locationID
	}
	if err := db.Create(&entries).Error; err != nil {
		return fmt.Errorf("insert hours: %w", err)
	}
	return nil
}

// ListCategories returns categories ordered for display.
func (s *Store) ListCategories(ctx context.Context, activeOnly bool) ([]ServiceCategory, error) {
	q := s.db.WithContext(ctx).Order("sort_order").Order("name")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var cats []ServiceCategory
	if err := q.Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// UpsertCategories inserts categories, updating existing ones matched by slug.
func (s *Store) UpsertCategories(ctx context.Context, cats []ServiceCategory) error {
	if len(cats) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "icon_name", "color_hex", "sort_order", "active"}),
	}).Create(&cats).Error
	if err != nil {
		return fmt.Errorf("upsert categories: %w", err)
	}
	return nil
}

// BoxQuery selects live, geocoded locations inside Box.
type BoxQuery struct {
	Box geo.Box

	// Categories keeps locations holding any of these slugs.
	// ExcludeCategories drops locations holding any of these slugs. When both
	// are set only Categories applies.
	Categories        []string
	ExcludeCategories []string

	// OrderFrom orders rows by squared degree distance to the point.
	OrderFrom *geo.Point

	Limit int
}

// LocationsInBox loads matching locations together with their services and
// schedules. Relations are fetched with one query per relation, not per row.
func (s *Store) LocationsInBox(ctx context.Context, q BoxQuery) ([]Location, error) {
	tx := s.withRelations(s.db.WithContext(ctx)).
		Where("service_locations.latitude IS NOT NULL AND service_locations.longitude IS NOT NULL").
		Where("service_locations.latitude >= ? AND service_locations.latitude <= ?", q.Box.MinLat, q.Box.MaxLat).
		Where("service_locations.longitude >= ? AND service_locations.longitude <= ?", q.Box.MinLon, q.Box.MaxLon)

	switch {
	case len(q.Categories) > 0:
		tx = tx.Where("service_locations.id IN (?)", s.locationsWithCategories(q.Categories))
	case len(q.ExcludeCategories) > 0:
		tx = tx.Where("service_locations.id NOT IN (?)", s.locationsWithCategories(q.ExcludeCategories))
	}

	if c := q.OrderFrom; c != nil {
		tx = tx.Order(clause.OrderBy{Expression: clause.Expr{
			SQL: "(service_locations.latitude - ?) * (service_locations.latitude - ?) + " +
				"(service_locations.longitude - ?) * (service_locations.longitude - ?), service_locations.id",
			Vars:               []any{c.Lat, c.Lat, c.Lon, c.Lon},
			WithoutParentheses: true,
		}})
	} else {
		tx = tx.Order("service_locations.name").Order("service_locations.id")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var locs []Location
	if err := tx.Find(&locs).Error; err != nil {
		return nil, fmt.Errorf("locations in box: %w", err)
	}
	return locs, nil
}

// locationsWithCategories selects the ids of locations holding any of the
// slugs. Used as an IN subquery, it also collapses locations matching several
// slugs into one row.
func (s *Store) locationsWithCategories(slugs []string) *gorm.DB {
	return s.db.Model(&ServiceAssignment{}).
		Select("location_services.location_id").
		Joins("JOIN service_types ON service_types.id = location_services.service_type_id").
		Where("service_types.slug IN ?", slugs)
}

// LocationDetail loads one live location with services, hours and closures.
func (s *Store) LocationDetail(ctx context.Context, id uuid.UUID) (*Location, error) {
	var loc Location
	err := s.withRelations(s.db.WithContext(ctx)).
		Preload("Closures", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_date")
		}).
		Where("service_locations.id = ?", id).
		Take(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("location %s: %w", id, err)
	}
	return &loc, nil
}

// ListForReview returns every live location with services and hours, for
// operator exports.
func (s *Store) ListForReview(ctx context.Context) ([]Location, error) {
	var locs []Location
	if err := s.withRelations(s.db.WithContext(ctx)).
		Order("borough").Order("name").
		Find(&locs).Error; err != nil {
		return nil, fmt.Errorf("list for review: %w", err)
	}
	return locs, nil
}

// AddClosure attaches an operator announcement to a live location.
func (s *Store) AddClosure(ctx context.Context, c *TemporaryClosure) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Location{}).Where("id = ?", c.LocationID).Count(&n).Error; err != nil {
		return fmt.Errorf("check location: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create closure: %w", err)
	}
	return nil
}

// SoftDeleteLocation hides a location from every query. Rows are never hard
// deleted.
func (s *Store) SoftDeleteLocation(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Location{})
	if res.Error != nil {
		return fmt.Errorf("delete location %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Assignments.Category").
		Preload("Schedule", func(db *gorm.DB) *gorm.DB {
			return db.Order("day_of_week").Order("open_time")
		})
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, pgErr.ConstraintName)
	}
	return fmt.Errorf("save location: %w", err)
}
