// Package export writes operator workbooks of locations that need a human
// look: placements that fell back to a zip or borough centroid, and
// locations with no opening hours.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hope-platform/hope-backend/internal/directory"
)

const (
	SheetLowConfidence = "Low confidence"
	SheetMissingHours  = "Missing hours"
)

var header = []string{
	"ID",
	"Name",
	"Street Address",
	"Zip Code",
	"Borough",
	"Latitude",
	"Longitude",
	"Precision",
	"Services",
	"Data Source",
	"External ID",
}

var columnWidths = []float64{38, 40, 35, 10, 15, 12, 12, 10, 30, 18, 38}

// Lister is satisfied by *directory.Store.
type Lister interface {
	ListForReview(ctx context.Context) ([]directory.Location, error)
}

// Summary counts the rows written per sheet.
type Summary struct {
	LowConfidence int
	MissingHours  int
}

// NeedsPlacementReview reports whether a location was placed by a fallback
// geocode or was never placed at all.
func NeedsPlacementReview(l directory.Location) bool {
	if _, ok := l.Point(); !ok {
		return true
	}
	switch l.GeocodePrecision {
	case directory.PrecisionZip, directory.PrecisionBorough:
		return true
	}
	return false
}

// Write builds the review workbook and streams it to w.
func Write(ctx context.Context, store Lister, w io.Writer) (Summary, error) {
	locs, err := store.ListForReview(ctx)
	if err != nil {
		return Summary{}, err
	}

	var low, missing []directory.Location
	for _, l := range locs {
		if NeedsPlacementReview(l) {
			low = append(low, l)
		}
		if len(l.Schedule) == 0 {
			missing = append(missing, l)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return Summary{}, fmt.Errorf("failed to create header style: %w", err)
	}

	for _, s := range []struct {
		name string
		rows []directory.Location
	}{
		{SheetLowConfidence, low},
		{SheetMissingHours, missing},
	} {
		if err := writeSheet(f, s.name, s.rows, headerStyle); err != nil {
			return Summary{}, err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return Summary{}, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return Summary{}, fmt.Errorf("failed to write workbook: %w", err)
	}
	return Summary{LowConfidence: len(low), MissingHours: len(missing)}, nil
}

func writeSheet(f *excelize.File, sheet string, locs []directory.Location, headerStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, l := range locs {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := row(l)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return nil
}

func row(l directory.Location) []any {
	var lat, lon any
	if p, ok := l.Point(); ok {
		lat, lon = p.Lat, p.Lon
	}
	slugs := make([]string, 0, len(l.Assignments))
	for _, a := range l.Assignments {
		slugs = append(slugs, a.Category.Slug)
	}
	return []any{
		l.ID.String(),
		l.Name,
		l.StreetAddress,
		l.ZipCode,
		l.Borough,
		lat,
		lon,
		l.GeocodePrecision,
		strings.Join(slugs, ", "),
		l.DataSource,
		l.ExternalID,
	}
}
