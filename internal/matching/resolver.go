// Package matching decides whether an incoming record describes a location
// that is already stored, and merges or creates accordingly.
package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hope-platform/hope-backend/internal/directory"
	"github.com/hope-platform/hope-backend/internal/geo"
)

// ErrMissingCoordinates is returned when CreateOrUpdate is called before the
// record was placed.
var ErrMissingCoordinates = errors.New("create or update: coordinates are required")

// Repository is the storage the resolver needs. *directory.Store satisfies it.
type Repository interface {
	FindByIdentity(ctx context.Context, dataSource, externalID string) (*directory.Location, error)
	ListByBorough(ctx context.Context, borough string) ([]directory.Location, error)
	SaveLocation(ctx context.Context, loc *directory.Location) error
	CategoriesBySlug(ctx context.Context, slugs []string) ([]directory.ServiceCategory, error)
	ReplaceAssignments(ctx context.Context, locationID uuid.UUID, assignments []directory.ServiceAssignment) error
	ReplaceSchedule(ctx context.Context, locationID uuid.UUID, entries []directory.ScheduleEntry) error
}

type Resolver struct {
	repo Repository
	log  *zap.Logger
}

func NewResolver(repo Repository, log *zap.Logger) *Resolver {
	return &Resolver{repo: repo, log: log.Named("matcher")}
}

// FindMatch returns the stored location raw describes, or nil.
//
// The (data source, external id) identity is authoritative and checked first.
// Only when it finds nothing are live locations in the same borough compared
// by name and street similarity.
func (r *Resolver) FindMatch(ctx context.Context, raw *directory.RawRecord) (*directory.Location, error) {
	if raw.DataSource != "" && raw.ExternalID != "" {
		loc, err := r.repo.FindByIdentity(ctx, raw.DataSource, raw.ExternalID)
		if err == nil {
			return loc, nil
		}
		if !errors.Is(err, directory.ErrNotFound) {
			return nil, err
		}
	}

	if raw.Borough == "" {
		return nil, nil
	}

	candidates, err := r.repo.ListByBorough(ctx, raw.Borough)
	if err != nil {
		return nil, err
	}

	var (
		best      *directory.Location
		bestScore float64
	)
	for i := range candidates {
		c := &candidates[i]
		nameSim := Similarity(raw.Name, c.Name)
		addrSim := AddressSimilarity(raw.StreetAddress, c.StreetAddress)
		if !Accept(nameSim, addrSim) {
			continue
		}
		if score := nameSim + addrSim; best == nil || score > bestScore {
			best, bestScore = c, score
		}
	}

	if best != nil {
		r.log.Debug("fuzzy match",
			zap.String("incoming", raw.Name),
			zap.String("stored", best.Name),
			zap.String("location_id", best.ID.String()),
			zap.Float64("score", bestScore))
	}
	return best, nil
}

// CreateOrUpdate writes raw into the matching location, or inserts a new
// unverified one. Incoming values win whenever they are non-empty; the name
// and coordinates are always replaced.
func (r *Resolver) CreateOrUpdate(ctx context.Context, raw *directory.RawRecord, coords *geo.Point, precision string) (*directory.Location, bool, error) {
	if coords == nil {
		return nil, false, ErrMissingCoordinates
	}

	loc, err := r.FindMatch(ctx, raw)
	if err != nil {
		return nil, false, err
	}
	return r.Apply(ctx, raw, loc, coords, precision)
}

// Apply is CreateOrUpdate for a match the caller already resolved with
// FindMatch. A nil match inserts a new location.
func (r *Resolver) Apply(ctx context.Context, raw *directory.RawRecord, loc *directory.Location, coords *geo.Point, precision string) (*directory.Location, bool, error) {
	if coords == nil {
		return nil, false, ErrMissingCoordinates
	}

	created := loc == nil
	if created {
		loc = &directory.Location{
			StreetAddress: raw.StreetAddress,
			City:          raw.City,
			State:         raw.State,
			ZipCode:       raw.ZipCode,
			Borough:       raw.Borough,
			DataSource:    raw.DataSource,
			ExternalID:    raw.ExternalID,
			Verified:      false,
		}
	} else if loc.ExternalID == "" && raw.ExternalID != "" {
		// Fuzzy match against a row with no upstream identity: adopt this
		// source so the next run takes the identity path.
		loc.DataSource = raw.DataSource
		loc.ExternalID = raw.ExternalID
	}

	loc.Name = raw.Name
	loc.Description = prefer(raw.Description, loc.Description)
	loc.OrganizationName = prefer(raw.OrganizationName, loc.OrganizationName)
	loc.Phone = prefer(raw.Phone, loc.Phone)
	loc.Website = prefer(raw.Website, loc.Website)
	loc.Email = prefer(raw.Email, loc.Email)
	if raw.WheelchairAccessible != nil {
		loc.WheelchairAccessible = raw.WheelchairAccessible
	}
	if len(raw.LanguagesSpoken) > 0 {
		loc.LanguagesSpoken = directory.Languages(raw.LanguagesSpoken)
	}
	loc.SetPoint(*coords)
	if precision != "" {
		loc.GeocodePrecision = precision
	}

	if err := r.repo.SaveLocation(ctx, loc); err != nil {
		return nil, false, err
	}
	return loc, created, nil
}

// AddServices replaces every service assignment of loc. Slugs without a
// category are logged and skipped.
func (r *Resolver) AddServices(ctx context.Context, loc *directory.Location, refs []directory.ServiceRef) error {
	slugs := make([]string, 0, len(refs))
	for _, ref := range refs {
		slugs = append(slugs, ref.Slug)
	}
	cats, err := r.repo.CategoriesBySlug(ctx, slugs)
	if err != nil {
		return err
	}
	bySlug := make(map[string]directory.ServiceCategory, len(cats))
	for _, c := range cats {
		bySlug[c.Slug] = c
	}

	seen := make(map[uint]bool, len(refs))
	assignments := make([]directory.ServiceAssignment, 0, len(refs))
	for _, ref := range refs {
		cat, ok := bySlug[ref.Slug]
		if !ok {
			r.log.Warn("unknown service category", zap.String("slug", ref.Slug), zap.String("location", loc.Name))
			continue
		}
		if seen[cat.ID] {
			continue
		}
		seen[cat.ID] = true
		assignments = append(assignments, directory.ServiceAssignment{
			CategoryID: cat.ID,
			Capacity:   ref.Capacity,
			Notes:      ref.Notes,
		})
	}

	if err := r.repo.ReplaceAssignments(ctx, loc.ID, assignments); err != nil {
		return fmt.Errorf("services for %s: %w", loc.ID, err)
	}
	loc.Assignments = assignments
	return nil
}

// AddOperatingHours replaces every schedule row of loc. A record that reports
// no hours at all leaves the stored schedule alone.
func (r *Resolver) AddOperatingHours(ctx context.Context, loc *directory.Location, hours []directory.HoursEntry) error {
	if len(hours) == 0 {
		return nil
	}
	entries := make([]directory.ScheduleEntry, 0, len(hours))
	for i, h := range hours {
		e, err := h.Entry()
		if err != nil {
			return fmt.Errorf("hours[%d] for %s: %w", i, loc.ID, err)
		}
		entries = append(entries, e)
	}
	if err := r.repo.ReplaceSchedule(ctx, loc.ID, entries); err != nil {
		return fmt.Errorf("hours for %s: %w", loc.ID, err)
	}
	loc.Schedule = entries
	return nil
}

func prefer(incoming, stored string) string {
	if incoming != "" {
		return incoming
	}
	return stored
}
