package directory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hope-platform/hope-backend/internal/geo"
	"github.com/hope-platform/hope-backend/internal/schedule"
)

// Geocode precision values stored on Location.
const (
	PrecisionManual  = "manual"
	PrecisionAddress = "address"
	PrecisionZip     = "zip"
	PrecisionBorough = "borough"
)

// Location is one physical place offering services.
type Location struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string    `gorm:"size:255;not null" json:"name"`
	OrganizationName string    `gorm:"size:255" json:"organization_name,omitempty"`
	Description      string    `gorm:"type:text" json:"description,omitempty"`

	StreetAddress string `gorm:"size:255" json:"street_address,omitempty"`
	City          string `gorm:"size:100" json:"city,omitempty"`
	State         string `gorm:"size:2" json:"state,omitempty"`
	ZipCode       string `gorm:"size:10" json:"zip_code,omitempty"`
	Borough       string `gorm:"size:50;index" json:"borough,omitempty"`

	Latitude         *float64 `gorm:"index:idx_service_locations_lat_lng,priority:1" json:"latitude"`
	Longitude        *float64 `gorm:"index:idx_service_locations_lat_lng,priority:2" json:"longitude"`
	GeocodePrecision string   `gorm:"size:16" json:"geocode_precision,omitempty"`

	Phone                string    `gorm:"size:50" json:"phone,omitempty"`
	Website              string    `gorm:"size:500" json:"website,omitempty"`
	Email                string    `gorm:"size:255" json:"email,omitempty"`
	WheelchairAccessible *bool     `json:"wheelchair_accessible,omitempty"`
	LanguagesSpoken      Languages `json:"languages_spoken,omitempty"`

	DataSource string `gorm:"size:100" json:"data_source,omitempty"`
	ExternalID string `gorm:"size:255" json:"external_id,omitempty"`

	Verified         bool       `gorm:"not null;default:false" json:"verified"`
	VerificationDate *time.Time `json:"verification_date,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Assignments []ServiceAssignment `gorm:"foreignKey:LocationID" json:"-"`
	Schedule    []ScheduleEntry     `gorm:"foreignKey:LocationID" json:"-"`
	Closures    []TemporaryClosure  `gorm:"foreignKey:LocationID" json:"-"`
}

func (Location) TableName() string { return "service_locations" }

func (l *Location) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Point returns the stored coordinates, or false when not geocoded yet.
func (l *Location) Point() (geo.Point, bool) {
	if l.Latitude == nil || l.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *l.Latitude, Lon: *l.Longitude}, true
}

// SetPoint stores p as the location's coordinates.
func (l *Location) SetPoint(p geo.Point) {
	lat, lon := p.Lat, p.Lon
	l.Latitude = &lat
	l.Longitude = &lon
}

// HasUsableCoordinates reports whether the location was already placed inside
// region with non-zero coordinates.
func (l *Location) HasUsableCoordinates(region geo.Box) bool {
	p, ok := l.Point()
	if !ok || p.Lat == 0 || p.Lon == 0 {
		return false
	}
	return region.Contains(p)
}

// Windows converts the loaded schedule into evaluator input.
func (l *Location) Windows() []schedule.Window {
	out := make([]schedule.Window, 0, len(l.Schedule))
	for _, e := range l.Schedule {
		out = append(out, e.Window())
	}
	return out
}

// ServiceCategory is a kind of service (food, shelter, ...).
type ServiceCategory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Slug        string    `gorm:"size:100;not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	IconName    string    `gorm:"size:50" json:"icon_name,omitempty"`
	ColorHex    string    `gorm:"size:7" json:"color_hex,omitempty"`
	SortOrder   int       `gorm:"not null;default:0" json:"sort_order"`
	Active      bool      `gorm:"not null" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

func (ServiceCategory) TableName() string { return "service_types" }

// ServiceAssignment links a location to a category it offers.
type ServiceAssignment struct {
	ID         uint            `gorm:"primaryKey"`
	LocationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	CategoryID uint            `gorm:"column:service_type_id;not null;index"`
	Category   ServiceCategory `gorm:"foreignKey:CategoryID"`
	Notes      string          `gorm:"type:text"`
	Capacity   *int
	CreatedAt  time.Time
}

func (ServiceAssignment) TableName() string { return "location_services" }

// ScheduleEntry is one opening-hours row. DayOfWeek uses 0=Sunday.
type ScheduleEntry struct {
	ID         uint            `gorm:"primaryKey"`
	LocationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	DayOfWeek  int             `gorm:"not null;check:chk_operating_hours_day,day_of_week >= 0 AND day_of_week <= 6"`
	OpenTime   *schedule.Clock `gorm:"type:varchar(8)"`
	CloseTime  *schedule.Clock `gorm:"type:varchar(8)"`
	Is24Hours  bool            `gorm:"column:is_24_hours;not null;default:false"`
	IsClosed   bool            `gorm:"not null;default:false"`
	Notes      string          `gorm:"type:text"`
}

func (ScheduleEntry) TableName() string { return "operating_hours" }

func (e ScheduleEntry) Window() schedule.Window {
	return schedule.Window{
		DayOfWeek: e.DayOfWeek,
		Open:      e.OpenTime,
		Close:     e.CloseTime,
		Is24Hours: e.Is24Hours,
		IsClosed:  e.IsClosed,
	}
}

// TemporaryClosure is an operator announcement layered over regular hours.
type TemporaryClosure struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LocationID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"location_id"`
	StartDate   time.Time  `gorm:"type:date;not null" json:"start_date"`
	EndDate     *time.Time `gorm:"type:date" json:"end_date,omitempty"`
	Reason      string     `gorm:"size:255;not null" json:"reason"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	AlertType   string     `gorm:"size:50;not null;default:closure" json:"alert_type"`
	IsUrgent    bool       `gorm:"not null;default:false" json:"is_urgent"`
	IsActive    bool       `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (TemporaryClosure) TableName() string { return "temporary_closures" }

func (c *TemporaryClosure) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CurrentOn reports whether the closure still applies on the calendar day of
// today. Upcoming closures count so they can be announced ahead of time.
func (c TemporaryClosure) CurrentOn(today time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.EndDate == nil {
		return true
	}
	return !dateOf(*c.EndDate).Before(dateOf(today))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
