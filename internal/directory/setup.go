package directory

import (
	"fmt"

	"gorm.io/gorm"
)

// identityIndexSQL keeps (data_source, external_id) unique among live rows.
// Partial indexes are supported by both Postgres and SQLite.
const identityIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS idx_service_locations_source_identity
ON service_locations (data_source, external_id)
WHERE deleted_at IS NULL AND data_source IS NOT NULL AND external_id IS NOT NULL AND external_id <> ''`

// Migrate creates or updates the directory tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&ServiceCategory{},
		&Location{},
		&ServiceAssignment{},
		&ScheduleEntry{},
		&TemporaryClosure{},
	); err != nil {
		return fmt.Errorf("automigrate directory: %w", err)
	}
	if err := db.Exec(identityIndexSQL).Error; err != nil {
		return fmt.Errorf("identity index: %w", err)
	}
	return nil
}
