// Package seeds loads the hand-maintained parts of the directory, service
// categories and manually surveyed locations, from versioned YAML.
package seeds

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hope-platform/hope-backend/internal/directory"
)

// namespace roots the derived external ids of seed locations that do not
// carry one.
var namespace = uuid.MustParse("6f1c3b0e-5d2a-4f7e-9a41-2c8e7d4b9a10")

type File struct {
	Categories []Category   `yaml:"categories"`
	Lists      []ManualList `yaml:"sources"`
}

type Category struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
	Color       string `yaml:"color"`
	SortOrder   int    `yaml:"sort_order"`
	Active      *bool  `yaml:"active"`
}

// ManualList is one named list of hand-maintained locations. DataSource
// defaults to "manual".
type ManualList struct {
	Name       string           `yaml:"name"`
	DataSource string           `yaml:"data_source"`
	Locations  []ManualLocation `yaml:"locations"`
}

type ManualLocation struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	OrganizationName string `yaml:"organization_name"`
	Description      string `yaml:"description"`

	StreetAddress string   `yaml:"street_address"`
	ZipCode       string   `yaml:"zip_code"`
	Borough       string   `yaml:"borough"`
	Latitude      *float64 `yaml:"latitude"`
	Longitude     *float64 `yaml:"longitude"`

	Phone                string   `yaml:"phone"`
	Website              string   `yaml:"website"`
	WheelchairAccessible *bool    `yaml:"wheelchair_accessible"`
	Languages            []string `yaml:"languages"`

	Services []directory.ServiceRef `yaml:"services"`
	Hours    []HoursBlock           `yaml:"hours"`
}

// HoursBlock applies one opening rule to several days. Days accepts day
// names ("mon", "Tuesday"), "daily", "weekdays" and "weekends".
type HoursBlock struct {
	Days      []string `yaml:"days"`
	Open      string   `yaml:"open"`
	Close     string   `yaml:"close"`
	Is24Hours bool     `yaml:"is_24_hours"`
	Closed    bool     `yaml:"closed"`
	Notes     string   `yaml:"notes"`
}

// Load reads and strictly decodes a seed file. Unknown keys are errors so
// typos do not silently drop data.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to parse seeds: %w", err)
	}

	seen := map[string]bool{}
	for i, c := range f.Categories {
		slug := strings.ToLower(strings.TrimSpace(c.Slug))
		if slug == "" || strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("category %d: name and slug are required", i)
		}
		if seen[slug] {
			return nil, fmt.Errorf("category %q listed twice", slug)
		}
		seen[slug] = true
		f.Categories[i].Slug = slug
	}
	for i, s := range f.Lists {
		if strings.TrimSpace(s.Name) == "" {
			return nil, fmt.Errorf("source %d: name is required", i)
		}
	}
	return &f, nil
}

// ServiceCategories converts the seed categories to rows. Categories are
// active unless marked otherwise.
func (f *File) ServiceCategories() []directory.ServiceCategory {
	out := make([]directory.ServiceCategory, 0, len(f.Categories))
	for _, c := range f.Categories {
		active := true
		if c.Active != nil {
			active = *c.Active
		}
		out = append(out, directory.ServiceCategory{
			Name:        strings.TrimSpace(c.Name),
			Slug:        c.Slug,
			Description: strings.TrimSpace(c.Description),
			IconName:    c.Icon,
			ColorHex:    c.Color,
			SortOrder:   c.SortOrder,
			Active:      active,
		})
	}
	return out
}

// CategoryWriter is satisfied by *directory.Store.
type CategoryWriter interface {
	UpsertCategories(ctx context.Context, cats []directory.ServiceCategory) error
}

// SeedCategories upserts every category by slug. Running it again updates
// names, colors and order in place.
func SeedCategories(ctx context.Context, store CategoryWriter, f *File, log *zap.Logger) error {
	cats := f.ServiceCategories()
	if err := store.UpsertCategories(ctx, cats); err != nil {
		return err
	}
	log.Info("seeded categories", zap.Int("count", len(cats)))
	return nil
}

// Sources returns one ingestion source per manual list.
func (f *File) Sources() []*Source {
	out := make([]*Source, 0, len(f.Lists))
	for _, s := range f.Lists {
		out = append(out, &Source{list: s})
	}
	return out
}

// LocationID derives a stable external id from a location's name and street.
func LocationID(name, street string) string {
	return uuid.NewSHA1(namespace, []byte("location:"+canon(name)+"|"+canon(street))).String()
}

func canon(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
