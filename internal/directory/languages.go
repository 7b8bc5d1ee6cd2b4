package directory

import (
	"database/sql/driver"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Languages is a text[] column on Postgres. Other dialects store the same
// array literal ("{English,Spanish}") in a plain text column.
type Languages []string

func (Languages) GormDataType() string { return "text[]" }

func (Languages) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

func (l Languages) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return pq.StringArray(l).Value()
}

func (l *Languages) Scan(src any) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*l = Languages(arr)
	return nil
}
