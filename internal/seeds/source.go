package seeds

import (
	"context"
	"fmt"
	"strings"

	"github.com/hope-platform/hope-backend/internal/directory"
)

const defaultDataSource = "manual"

// Source feeds one manual list into the ingestion pipeline.
type Source struct {
	list ManualList
}

func (s *Source) Name() string { return s.list.Name }

func (s *Source) Fetch(ctx context.Context) ([]directory.RawRecord, error) {
	dataSource := s.list.DataSource
	if dataSource == "" {
		dataSource = defaultDataSource
	}

	out := make([]directory.RawRecord, 0, len(s.list.Locations))
	for i, l := range s.list.Locations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hours, err := expandHours(l.Hours)
		if err != nil {
			return nil, fmt.Errorf("%s location %d (%s): %w", s.list.Name, i, l.Name, err)
		}

		id := l.ID
		if id == "" {
			id = LocationID(l.Name, l.StreetAddress)
		}
		rec := directory.RawRecord{
			Name:                 l.Name,
			OrganizationName:     l.OrganizationName,
			Description:          l.Description,
			StreetAddress:        l.StreetAddress,
			ZipCode:              l.ZipCode,
			Borough:              l.Borough,
			Latitude:             l.Latitude,
			Longitude:            l.Longitude,
			Phone:                l.Phone,
			Website:              l.Website,
			WheelchairAccessible: l.WheelchairAccessible,
			LanguagesSpoken:      l.Languages,
			Services:             l.Services,
			Hours:                hours,
			DataSource:           dataSource,
			ExternalID:           id,
		}
		rec.Normalize()
		out = append(out, rec)
	}
	return out, nil
}

var dayNumbers = map[string][]int{
	"sun": {0}, "sunday": {0},
	"mon": {1}, "monday": {1},
	"tue": {2}, "tuesday": {2},
	"wed": {3}, "wednesday": {3},
	"thu": {4}, "thursday": {4},
	"fri": {5}, "friday": {5},
	"sat": {6}, "saturday": {6},
	"daily":    {0, 1, 2, 3, 4, 5, 6},
	"weekdays": {1, 2, 3, 4, 5},
	"weekends": {0, 6},
}

// expandHours turns each block into one entry per named day.
func expandHours(blocks []HoursBlock) ([]directory.HoursEntry, error) {
	var out []directory.HoursEntry
	for _, b := range blocks {
		if len(b.Days) == 0 {
			return nil, fmt.Errorf("hours block without days")
		}
		for _, name := range b.Days {
			days, ok := dayNumbers[strings.ToLower(strings.TrimSpace(name))]
			if !ok {
				return nil, fmt.Errorf("unknown day %q", name)
			}
			for _, d := range days {
				out = append(out, directory.HoursEntry{
					DayOfWeek: d,
					OpenTime:  b.Open,
					CloseTime: b.Close,
					Is24Hours: b.Is24Hours,
					IsClosed:  b.Closed,
					Notes:     b.Notes,
				})
			}
		}
	}
	return out, nil
}
