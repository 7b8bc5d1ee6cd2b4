package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hope-platform/hope-backend/internal/geo"
	"github.com/hope-platform/hope-backend/internal/geocoding"
)

var allKeys = []string{
	"PORT", "DATABASE_URL", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME",
	"DB_SLOW_THRESHOLD", "LOG_LEVEL", "LOG_FORMAT", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"GEOCODE_CACHE_TTL", "GEOCODER_URL", "GEOCODER_USER_AGENT", "GEOCODER_MIN_INTERVAL",
	"GEOCODER_TIMEOUT", "REGION_MIN_LAT", "REGION_MAX_LAT", "REGION_MIN_LON", "REGION_MAX_LON",
	"TIMEZONE", "CORS_ORIGINS", "RATE_LIMIT_PER_MINUTE", "TRUSTED_PROXIES", "ADMIN_TOKEN_HASH", "SEED_FILE", "INGEST_FEEDS", "INGEST_PARALLEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "5050", cfg.Port)
	assert.Equal(t, 20, cfg.DBMaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.DBConnMaxLife)
	assert.Equal(t, 100*time.Millisecond, cfg.DBSlowThreshold)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, geocoding.DefaultCacheTTL, cfg.GeocodeCacheTTL)
	assert.Equal(t, geocoding.DefaultBaseURL, cfg.Geocoder.BaseURL)
	assert.Equal(t, time.Second, cfg.Geocoder.MinInterval)
	assert.Equal(t, 30*time.Second, cfg.Geocoder.Timeout)
	assert.Equal(t, geo.NYC, cfg.Region)
	assert.Equal(t, geo.NYC, cfg.Geocoder.Region)
	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.Nil(t, cfg.CORSOrigins)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Empty(t, cfg.TrustedProxies)
	assert.Equal(t, "seeds/directory.yaml", cfg.SeedFile)
	assert.Equal(t, 2, cfg.IngestParallel)

	assert.ErrorIs(t, cfg.Validate(), ErrMissingDatabaseURL)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/hope")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("GEOCODER_MIN_INTERVAL", "1500ms")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,,")
	t.Setenv("INGEST_FEEDS", "feeds/dhs.jsonl,feeds/dycd.jsonl")
	t.Setenv("REGION_MIN_LAT", "40.5")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.7")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 1500*time.Millisecond, cfg.Geocoder.MinInterval)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"feeds/dhs.jsonl", "feeds/dycd.jsonl"}, cfg.IngestFeeds)
	assert.Equal(t, 40.5, cfg.Region.MinLat)
	assert.Equal(t, 40.5, cfg.Geocoder.Region.MinLat)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.7/32"),
	}, cfg.TrustedProxies)
}

func TestLoadFromEnv_ReportsEveryBadValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	t.Setenv("GEOCODER_TIMEOUT", "soon")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/33")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_MAX_OPEN_CONNS")
	assert.Contains(t, err.Error(), "GEOCODER_TIMEOUT")
	assert.Contains(t, err.Error(), "TRUSTED_PROXIES")
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/hope")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	bad := cfg
	bad.Region = geo.Box{MinLat: 41, MaxLat: 40, MinLon: -74, MaxLon: -73}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRegion)

	bad = cfg
	bad.Timezone = "Mars/Olympus_Mons"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.IngestParallel = 0
	assert.Error(t, bad.Validate())
}
