package directory

import (
	"fmt"
	"strings"

	"github.com/hope-platform/hope-backend/internal/geo"
	"github.com/hope-platform/hope-backend/internal/schedule"
)

const (
	DefaultCity  = "New York"
	DefaultState = "NY"
)

// RawRecord is the normalized shape every data source emits before it enters
// the ingestion pipeline. It is never stored as-is.
type RawRecord struct {
	Name             string `json:"name" yaml:"name"`
	OrganizationName string `json:"organization_name,omitempty" yaml:"organization_name"`
	Description      string `json:"description,omitempty" yaml:"description"`

	StreetAddress string `json:"street_address,omitempty" yaml:"street_address"`
	City          string `json:"city,omitempty" yaml:"city"`
	State         string `json:"state,omitempty" yaml:"state"`
	ZipCode       string `json:"zip_code,omitempty" yaml:"zip_code"`
	Borough       string `json:"borough,omitempty" yaml:"borough"`

	// Surveyed coordinates, for hand-maintained lists. Feeds leave these
	// empty and rely on geocoding.
	Latitude  *float64 `json:"latitude,omitempty" yaml:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" yaml:"longitude"`

	Phone                string   `json:"phone,omitempty" yaml:"phone"`
	Website              string   `json:"website,omitempty" yaml:"website"`
	Email                string   `json:"email,omitempty" yaml:"email"`
	WheelchairAccessible *bool    `json:"wheelchair_accessible,omitempty" yaml:"wheelchair_accessible"`
	LanguagesSpoken      []string `json:"languages_spoken,omitempty" yaml:"languages_spoken"`

	Services []ServiceRef `json:"services" yaml:"services"`
	Hours    []HoursEntry `json:"hours,omitempty" yaml:"hours"`

	DataSource string `json:"data_source" yaml:"data_source"`
	ExternalID string `json:"external_id,omitempty" yaml:"external_id"`

	// DecodeErr is set by sources that could not parse the upstream entry.
	// Such a record always fails Validate.
	DecodeErr error `json:"-" yaml:"-"`
}

// ServiceRef names a category by slug, with optional per-location details.
type ServiceRef struct {
	Slug     string `json:"slug" yaml:"slug"`
	Capacity *int   `json:"capacity,omitempty" yaml:"capacity"`
	Notes    string `json:"notes,omitempty" yaml:"notes"`
}

// HoursEntry is a schedule row as reported by a source. Times are "HH:MM" or
// "HH:MM:SS".
type HoursEntry struct {
	DayOfWeek int    `json:"day_of_week" yaml:"day_of_week"`
	OpenTime  string `json:"open_time,omitempty" yaml:"open_time"`
	CloseTime string `json:"close_time,omitempty" yaml:"close_time"`
	Is24Hours bool   `json:"is_24_hours,omitempty" yaml:"is_24_hours"`
	IsClosed  bool   `json:"is_closed,omitempty" yaml:"is_closed"`
	Notes     string `json:"notes,omitempty" yaml:"notes"`
}

// Normalize trims fields, canonicalizes the borough and fills city/state
// defaults.
func (r *RawRecord) Normalize() {
	for _, f := range []*string{
		&r.Name, &r.OrganizationName, &r.Description, &r.StreetAddress, &r.City,
		&r.State, &r.ZipCode, &r.Borough, &r.Phone, &r.Website, &r.Email,
		&r.DataSource, &r.ExternalID,
	} {
		*f = strings.TrimSpace(*f)
	}
	if b, ok := geo.CanonicalBorough(r.Borough); ok {
		r.Borough = b
	}
	if r.City == "" {
		r.City = DefaultCity
	}
	if r.State == "" {
		r.State = DefaultState
	}
	for i := range r.Services {
		r.Services[i].Slug = strings.ToLower(strings.TrimSpace(r.Services[i].Slug))
	}
}

// Validate rejects records missing a name, data source or category, and
// records with malformed schedule rows.
func (r *RawRecord) Validate() error {
	if r.DecodeErr != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, r.DecodeErr)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name", ErrMissingRequiredField)
	}
	if strings.TrimSpace(r.DataSource) == "" {
		return fmt.Errorf("%w: data_source", ErrMissingRequiredField)
	}
	hasService := false
	for _, s := range r.Services {
		if strings.TrimSpace(s.Slug) != "" {
			hasService = true
			break
		}
	}
	if !hasService {
		return fmt.Errorf("%w: services", ErrMissingRequiredField)
	}
	if (r.Latitude == nil) != (r.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be given together", ErrInvalidRecord)
	}
	if r.Latitude != nil && !geo.ValidLatLon(*r.Latitude, *r.Longitude) {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidRecord)
	}
	for i, h := range r.Hours {
		if _, err := h.Entry(); err != nil {
			return fmt.Errorf("%w: hours[%d]: %v", ErrInvalidRecord, i, err)
		}
	}
	return nil
}

// Point returns the surveyed coordinates, if the record carries them.
func (r *RawRecord) Point() (geo.Point, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *r.Latitude, Lon: *r.Longitude}, true
}

// Entry validates h and converts it to a ScheduleEntry without a location.
func (h HoursEntry) Entry() (ScheduleEntry, error) {
	if h.DayOfWeek < 0 || h.DayOfWeek > 6 {
		return ScheduleEntry{}, fmt.Errorf("day_of_week %d out of range 0..6", h.DayOfWeek)
	}
	e := ScheduleEntry{
		DayOfWeek: h.DayOfWeek,
		Is24Hours: h.Is24Hours,
		IsClosed:  h.IsClosed,
		Notes:     strings.TrimSpace(h.Notes),
	}
	if h.OpenTime != "" {
		c, err := schedule.ParseClock(h.OpenTime)
		if err != nil {
			return ScheduleEntry{}, err
		}
		e.OpenTime = &c
	}
	if h.CloseTime != "" {
		c, err := schedule.ParseClock(h.CloseTime)
		if err != nil {
			return ScheduleEntry{}, err
		}
		e.CloseTime = &c
	}
	return e, nil
}
