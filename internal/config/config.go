// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hope-platform/hope-backend/internal/geo"
	"github.com/hope-platform/hope-backend/internal/geocoding"
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrInvalidRegion      = errors.New("region bounds are inverted")
)

type Config struct {
	Port string

	DatabaseURL     string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	DBConnMaxLife   time.Duration
	DBSlowThreshold time.Duration

	LogLevel  string
	LogFormat string

	// RedisAddr empty disables the geocode cache.
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	GeocodeCacheTTL time.Duration

	Geocoder geocoding.Options

	Region   geo.Box
	Timezone string

	CORSOrigins []string
	// RateLimitPerMinute caps public requests per client IP; 0 disables it.
	RateLimitPerMinute int
	// TrustedProxies are the peers whose X-Forwarded-For is believed.
	TrustedProxies []netip.Prefix
	// AdminTokenHash is a bcrypt hash; empty disables the admin routes.
	AdminTokenHash string

	SeedFile       string
	IngestFeeds    []string
	IngestParallel int
}

// LoadFromEnv reads configuration from environment variables.
//
// Environment variables:
//   - PORT: listen port (default: 5050)
//   - DATABASE_URL: postgres DSN (required by the server and commands)
//   - DB_MAX_OPEN_CONNS / DB_MAX_IDLE_CONNS: pool sizes (default: 20 / 20)
//   - DB_CONN_MAX_LIFETIME: e.g. "30m" (default: 30m)
//   - DB_SLOW_THRESHOLD: gorm slow-query threshold (default: 100ms)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB: geocode cache; unset disables it
//   - GEOCODE_CACHE_TTL: cache entry lifetime (default: 2160h)
//   - GEOCODER_URL: Nominatim search endpoint
//   - GEOCODER_USER_AGENT: identifying User-Agent (default: HopePlatform/1.0)
//   - GEOCODER_MIN_INTERVAL: minimum gap between requests (default: 1s)
//   - GEOCODER_TIMEOUT: per-request deadline (default: 30s)
//   - REGION_MIN_LAT, REGION_MAX_LAT, REGION_MIN_LON, REGION_MAX_LON: sanity
//     box for geocoder output (default: New York City)
//   - TIMEZONE: zone for opening hours (default: America/New_York)
//   - CORS_ORIGINS: comma-separated allow-list
//   - RATE_LIMIT_PER_MINUTE: requests per client IP (default: 120, 0 disables)
//   - TRUSTED_PROXIES: comma-separated IPs or CIDRs of reverse proxies whose
//     X-Forwarded-For header is honored (default: none, the socket peer is used)
//   - ADMIN_TOKEN_HASH: bcrypt hash of the admin bearer token
//   - SEED_FILE: YAML seed file (default: seeds/directory.yaml)
//   - INGEST_FEEDS: comma-separated JSON-lines feed paths
//   - INGEST_PARALLEL: sources ingested concurrently (default: 2)
func LoadFromEnv() (Config, error) {
	var errs []error
	p := parser{errs: &errs}

	cfg := Config{
		Port:            p.str("PORT", "5050"),
		DatabaseURL:     p.str("DATABASE_URL", ""),
		DBMaxOpenConns:  p.int("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:  p.int("DB_MAX_IDLE_CONNS", 20),
		DBConnMaxLife:   p.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		DBSlowThreshold: p.duration("DB_SLOW_THRESHOLD", 100*time.Millisecond),
		LogLevel:        strings.ToLower(p.str("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(p.str("LOG_FORMAT", "json")),
		RedisAddr:       p.str("REDIS_ADDR", ""),
		RedisPassword:   p.str("REDIS_PASSWORD", ""),
		RedisDB:         p.int("REDIS_DB", 0),
		GeocodeCacheTTL: p.duration("GEOCODE_CACHE_TTL", geocoding.DefaultCacheTTL),
		Geocoder: geocoding.Options{
			BaseURL:     p.str("GEOCODER_URL", geocoding.DefaultBaseURL),
			UserAgent:   p.str("GEOCODER_USER_AGENT", geocoding.DefaultUserAgent),
			MinInterval: p.duration("GEOCODER_MIN_INTERVAL", geocoding.DefaultMinInterval),
			Timeout:     p.duration("GEOCODER_TIMEOUT", geocoding.DefaultTimeout),
		},
		Region: geo.Box{
			MinLat: p.float("REGION_MIN_LAT", geo.NYC.MinLat),
			MaxLat: p.float("REGION_MAX_LAT", geo.NYC.MaxLat),
			MinLon: p.float("REGION_MIN_LON", geo.NYC.MinLon),
			MaxLon: p.float("REGION_MAX_LON", geo.NYC.MaxLon),
		},
		Timezone:           p.str("TIMEZONE", "America/New_York"),
		CORSOrigins:        p.list("CORS_ORIGINS"),
		RateLimitPerMinute: p.int("RATE_LIMIT_PER_MINUTE", 120),
		TrustedProxies:     p.prefixes("TRUSTED_PROXIES"),
		AdminTokenHash:     p.str("ADMIN_TOKEN_HASH", ""),
		SeedFile:           p.str("SEED_FILE", "seeds/directory.yaml"),
		IngestFeeds:        p.list("INGEST_FEEDS"),
		IngestParallel:     p.int("INGEST_PARALLEL", 2),
	}
	cfg.Geocoder.Region = cfg.Region

	return cfg, errors.Join(errs...)
}

// Validate checks settings every binary needs.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if !c.Region.Valid() {
		return ErrInvalidRegion
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	if c.IngestParallel < 1 {
		return fmt.Errorf("INGEST_PARALLEL must be at least 1, got %d", c.IngestParallel)
	}
	return nil
}

// Location loads the configured time zone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// parser collects every malformed variable instead of stopping at the first.
type parser struct {
	errs *[]error
}

func (p parser) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (p parser) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p parser) float(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (p parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (p parser) list(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// prefixes parses a list of CIDRs; a bare address becomes a single-host prefix.
func (p parser) prefixes(key string) []netip.Prefix {
	var out []netip.Prefix
	for _, s := range p.list(key) {
		if !strings.Contains(s, "/") {
			addr, err := netip.ParseAddr(s)
			if err != nil {
				*p.errs = append(*p.errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		pfx, err := netip.ParsePrefix(s)
		if err != nil {
			*p.errs = append(*p.errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		out = append(out, pfx.Masked())
	}
	return out
}
