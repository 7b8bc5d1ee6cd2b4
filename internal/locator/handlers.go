package locator

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hope-platform/hope-backend/internal/directory"
	"github.com/hope-platform/hope-backend/internal/geo"
	"github.com/hope-platform/hope-backend/internal/metrics"
)

type Handlers struct {
	engine   *Engine
	maintain Maintainer
	log      *zap.Logger
}

func NewHandlers(engine *Engine, maintain Maintainer, log *zap.Logger) *Handlers {
	return &Handlers{engine: engine, maintain: maintain, log: log.Named("locator-http")}
}

// badRequest marks a parameter problem detected before the engine runs.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

// fail maps engine and parameter errors to responses. Caller errors are not
// logged as faults.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	var br badRequest
	switch {
	case errors.As(err, &br),
		errors.Is(err, ErrInvalidQueryBounds),
		errors.Is(err, ErrInvalidCoordinateRange):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, directory.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Service location not found")
	default:
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}

// GetServiceTypes handles GET /service-types?active_only=
func (h *Handlers) GetServiceTypes(w http.ResponseWriter, r *http.Request) {
	t0 := time.Now()
	activeOnly, err := boolParam(r.URL.Query(), "active_only", true)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	types, err := h.engine.ServiceTypes(r.Context(), activeOnly)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	addServerTiming(w, timing{"db", time.Since(t0)})
	writeJSON(w, http.StatusOK, types)
}

// GetNearby handles GET /services/nearby
func (h *Handlers) GetNearby(w http.ResponseWriter, r *http.Request) {
	t0 := time.Now()
	q, err := parseNearby(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	results, err := h.engine.FindNearby(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	observe("nearby", t0, len(results))
	addServerTiming(w, timing{"query", time.Since(t0)})
	writeJSON(w, http.StatusOK, results)
}

// GetInBounds handles GET /services/in-bounds
func (h *Handlers) GetInBounds(w http.ResponseWriter, r *http.Request) {
	t0 := time.Now()
	q, err := parseBounds(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	results, err := h.engine.FindInBounds(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	observe("in_bounds", t0, len(results))
	addServerTiming(w, timing{"query", time.Since(t0)})
	writeJSON(w, http.StatusOK, results)
}

// GetLocation handles GET /services/{id}
func (h *Handlers) GetLocation(w http.ResponseWriter, r *http.Request) {
	t0 := time.Now()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		// Not a location id, so not a location.
		writeDetail(w, http.StatusNotFound, "Service location not found")
		return
	}

	loc, err := h.engine.Location(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	observe("detail", t0, 1)
	addServerTiming(w, timing{"query", time.Since(t0)})
	writeJSON(w, http.StatusOK, loc)
}

func observe(query string, t0 time.Time, n int) {
	metrics.QueryDurationMs.WithLabelValues(query).Observe(float64(time.Since(t0).Microseconds()) / 1000)
	metrics.QueryResults.WithLabelValues(query).Observe(float64(n))
}

func parseNearby(v url.Values) (NearbyQuery, error) {
	var q NearbyQuery
	var err error

	if q.Lat, err = requiredFloat(v, "latitude", -90, 90); err != nil {
		return q, err
	}
	if q.Lon, err = requiredFloat(v, "longitude", -180, 180); err != nil {
		return q, err
	}
	if q.RadiusKm, err = optionalFloat(v, "radius_km", 5, 0.1, 50); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(v, "limit", DefaultNearbyLimit, 1, MaxNearbyLimit); err != nil {
		return q, err
	}
	if q.OpenNow, err = boolParam(v, "open_now", false); err != nil {
		return q, err
	}
	q.Categories = listParam(v, "service_types")
	return q, nil
}

func parseBounds(v url.Values) (BoundsQuery, error) {
	var q BoundsQuery
	var err error

	if q.MinLat, err = requiredFloat(v, "min_lat", -90, 90); err != nil {
		return q, err
	}
	if q.MaxLat, err = requiredFloat(v, "max_lat", -90, 90); err != nil {
		return q, err
	}
	if q.MinLng, err = requiredFloat(v, "min_lng", -180, 180); err != nil {
		return q, err
	}
	if q.MaxLng, err = requiredFloat(v, "max_lng", -180, 180); err != nil {
		return q, err
	}
	if q.MinLat >= q.MaxLat {
		return q, fmt.Errorf("%w: min_lat must be less than max_lat", ErrInvalidQueryBounds)
	}
	if q.MinLng >= q.MaxLng {
		return q, fmt.Errorf("%w: min_lng must be less than max_lng", ErrInvalidQueryBounds)
	}

	_, hasLat := v["center_lat"]
	_, hasLng := v["center_lng"]
	switch {
	case hasLat && hasLng:
		var c geo.Point
		if c.Lat, err = requiredFloat(v, "center_lat", -90, 90); err != nil {
			return q, err
		}
		if c.Lon, err = requiredFloat(v, "center_lng", -180, 180); err != nil {
			return q, err
		}
		q.Center = &c
	case hasLat || hasLng:
		return q, badRequest{"center_lat and center_lng must be given together"}
	}

	if q.Limit, err = intParam(v, "limit", DefaultBoundsLimit, 1, MaxBoundsLimit); err != nil {
		return q, err
	}
	if q.OpenNow, err = boolParam(v, "open_now", false); err != nil {
		return q, err
	}
	if q.OpenToday, err = boolParam(v, "open_today", false); err != nil {
		return q, err
	}
	q.Categories = listParam(v, "service_types")
	q.ExcludeCategories = listParam(v, "exclude_service_types")
	return q, nil
}

func requiredFloat(v url.Values, key string, min, max float64) (float64, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return 0, badRequest{key + " is required"}
	}
	return parseFloat(key, raw, min, max)
}

func optionalFloat(v url.Values, key string, def, min, max float64) (float64, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return def, nil
	}
	return parseFloat(key, raw, min, max)
}

func parseFloat(key, raw string, min, max float64) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, badRequest{fmt.Sprintf("%s must be a number", key)}
	}
	if f < min || f > max {
		return 0, badRequest{fmt.Sprintf("%s must be between %g and %g", key, min, max)}
	}
	return f, nil
}

func intParam(v url.Values, key string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest{fmt.Sprintf("%s must be an integer", key)}
	}
	if n < min || n > max {
		return 0, badRequest{fmt.Sprintf("%s must be between %d and %d", key, min, max)}
	}
	return n, nil
}

func boolParam(v url.Values, key string, def bool) (bool, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badRequest{fmt.Sprintf("%s must be true or false", key)}
	}
	return b, nil
}

// listParam collects key and key[] values, splitting comma lists.
func listParam(v url.Values, key string) []string {
	var out []string
	seen := map[string]bool{}
	for _, raw := range append(v[key], v[key+"[]"]...) {
		for _, s := range strings.Split(raw, ",") {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
