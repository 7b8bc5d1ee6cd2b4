package locator

import (
	"time"

	"github.com/google/uuid"

	"github.com/hope-platform/hope-backend/internal/directory"
	"github.com/hope-platform/hope-backend/internal/schedule"
)

const dateLayout = "2006-01-02"

type ServiceType struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	IconName    string `json:"icon_name,omitempty"`
	ColorHex    string `json:"color_hex,omitempty"`
}

type ServiceOut struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Notes    string `json:"notes,omitempty"`
	Capacity *int   `json:"capacity,omitempty"`
}

type HoursOut struct {
	DayOfWeek int             `json:"day_of_week"`
	DayName   string          `json:"day_name"`
	OpenTime  *schedule.Clock `json:"open_time"`
	CloseTime *schedule.Clock `json:"close_time"`
	Is24Hours bool            `json:"is_24_hours"`
	IsClosed  bool            `json:"is_closed"`
	Notes     string          `json:"notes,omitempty"`
}

type ClosureOut struct {
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date"`
	Reason      string  `json:"reason"`
	Description string  `json:"description,omitempty"`
	AlertType   string  `json:"alert_type"`
	IsUrgent    bool    `json:"is_urgent"`
}

// LocationSummary is one row of a nearby or in-bounds result.
type LocationSummary struct {
	ID             uuid.UUID    `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description,omitempty"`
	Latitude       float64      `json:"latitude"`
	Longitude      float64      `json:"longitude"`
	DistanceKm     *float64     `json:"distance_km,omitempty"`
	StreetAddress  string       `json:"street_address,omitempty"`
	Borough        string       `json:"borough,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	Services       []ServiceOut `json:"services"`
	OperatingHours []HoursOut   `json:"operating_hours"`
	IsOpenNow      bool         `json:"is_open_now"`
}

type LocationDetail struct {
	ID                   uuid.UUID    `json:"id"`
	Name                 string       `json:"name"`
	Description          string       `json:"description,omitempty"`
	OrganizationName     string       `json:"organization_name,omitempty"`
	Latitude             *float64     `json:"latitude"`
	Longitude            *float64     `json:"longitude"`
	GeocodePrecision     string       `json:"geocode_precision,omitempty"`
	StreetAddress        string       `json:"street_address,omitempty"`
	City                 string       `json:"city"`
	State                string       `json:"state"`
	ZipCode              string       `json:"zip_code,omitempty"`
	Borough              string       `json:"borough,omitempty"`
	Phone                string       `json:"phone,omitempty"`
	Website              string       `json:"website,omitempty"`
	Email                string       `json:"email,omitempty"`
	WheelchairAccessible *bool        `json:"wheelchair_accessible,omitempty"`
	LanguagesSpoken      []string     `json:"languages_spoken,omitempty"`
	Services             []ServiceOut `json:"services"`
	OperatingHours       []HoursOut   `json:"operating_hours"`
	CurrentClosures      []ClosureOut `json:"current_closures"`
	IsOpenNow            bool         `json:"is_open_now"`
	Verified             bool         `json:"verified"`
	LastUpdated          time.Time    `json:"last_updated"`
}

func services(loc *directory.Location) []ServiceOut {
	out := make([]ServiceOut, 0, len(loc.Assignments))
	for _, a := range loc.Assignments {
		out = append(out, ServiceOut{
			Type:     a.Category.Slug,
			Name:     a.Category.Name,
			Notes:    a.Notes,
			Capacity: a.Capacity,
		})
	}
	return out
}

func hours(loc *directory.Location) []HoursOut {
	out := make([]HoursOut, 0, len(loc.Schedule))
	for _, e := range loc.Schedule {
		out = append(out, HoursOut{
			DayOfWeek: e.DayOfWeek,
			DayName:   schedule.DayName(e.DayOfWeek),
			OpenTime:  e.OpenTime,
			CloseTime: e.CloseTime,
			Is24Hours: e.Is24Hours,
			IsClosed:  e.IsClosed,
			Notes:     e.Notes,
		})
	}
	return out
}

func summarize(loc *directory.Location, openNow bool) LocationSummary {
	p, _ := loc.Point()
	return LocationSummary{
		ID:             loc.ID,
		Name:           loc.Name,
		Description:    loc.Description,
		Latitude:       p.Lat,
		Longitude:      p.Lon,
		StreetAddress:  loc.StreetAddress,
		Borough:        loc.Borough,
		Phone:          loc.Phone,
		Services:       services(loc),
		OperatingHours: hours(loc),
		IsOpenNow:      openNow,
	}
}

func detail(loc *directory.Location, now time.Time) *LocationDetail {
	closures := make([]ClosureOut, 0)
	for _, c := range loc.Closures {
		if !c.CurrentOn(now) {
			continue
		}
		out := ClosureOut{
			StartDate:   c.StartDate.Format(dateLayout),
			Reason:      c.Reason,
			Description: c.Description,
			AlertType:   c.AlertType,
			IsUrgent:    c.IsUrgent,
		}
		if c.EndDate != nil {
			end := c.EndDate.Format(dateLayout)
			out.EndDate = &end
		}
		closures = append(closures, out)
	}

	return &LocationDetail{
		ID:                   loc.ID,
		Name:                 loc.Name,
		Description:          loc.Description,
		OrganizationName:     loc.OrganizationName,
		Latitude:             loc.Latitude,
		Longitude:            loc.Longitude,
		GeocodePrecision:     loc.GeocodePrecision,
		StreetAddress:        loc.StreetAddress,
		City:                 loc.City,
		State:                loc.State,
		ZipCode:              loc.ZipCode,
		Borough:              loc.Borough,
		Phone:                loc.Phone,
		Website:              loc.Website,
		Email:                loc.Email,
		WheelchairAccessible: loc.WheelchairAccessible,
		LanguagesSpoken:      loc.LanguagesSpoken,
		Services:             services(loc),
		OperatingHours:       hours(loc),
		CurrentClosures:      closures,
		IsOpenNow:            schedule.IsOpenNow(loc.Windows(), now),
		Verified:             loc.Verified,
		LastUpdated:          loc.UpdatedAt,
	}
}
