package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hope-platform/hope-backend/internal/geo"
	"github.com/hope-platform/hope-backend/internal/metrics"
)

const (
	DefaultCacheTTL = 90 * 24 * time.Hour
	cacheKeyPrefix  = "geocode:"
)

// Cache remembers successful lookups in Redis so reruns and repeated
// addresses do not spend provider quota. Misses are not cached.
type Cache struct {
	next Lookup
	rdb  redis.UniversalClient
	ttl  time.Duration
	log  *zap.Logger
}

func NewCache(next Lookup, rdb redis.UniversalClient, ttl time.Duration, log *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{next: next, rdb: rdb, ttl: ttl, log: log.Named("geocode-cache")}
}

func (c *Cache) Geocode(ctx context.Context, address, city, state string) (geo.Point, error) {
	key := cacheKey(address, city, state)

	if p, ok := c.get(ctx, key); ok {
		metrics.GeocodeCacheTotal.WithLabelValues("hit").Inc()
		return p, nil
	}
	metrics.GeocodeCacheTotal.WithLabelValues("miss").Inc()

	p, err := c.next.Geocode(ctx, address, city, state)
	if err != nil {
		return p, err
	}

	val := strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
	if err := c.rdb.Set(ctx, key, val, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return p, nil
}

func (c *Cache) get(ctx context.Context, key string) (geo.Point, bool) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return geo.Point{}, false
	}
	if err != nil {
		c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return geo.Point{}, false
	}
	p, err := parsePoint(val)
	if err != nil {
		c.log.Warn("discarding bad cache entry", zap.String("key", key), zap.Error(err))
		return geo.Point{}, false
	}
	return p, true
}

func cacheKey(address, city, state string) string {
	q := strings.ToLower(joinQuery(address, city, state))
	return cacheKeyPrefix + strings.Join(strings.Fields(q), " ")
}

func parsePoint(s string) (geo.Point, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Point{}, fmt.Errorf("malformed point %q", s)
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return geo.Point{}, err
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return geo.Point{}, err
	}
	return geo.Point{Lat: lat, Lon: lon}, nil
}
