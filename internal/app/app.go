// Package app wires configuration, logging, storage and the geocoder for the
// server and the operator commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hope-platform/hope-backend/internal/config"
	"github.com/hope-platform/hope-backend/internal/db"
	"github.com/hope-platform/hope-backend/internal/directory"
	"github.com/hope-platform/hope-backend/internal/geocoding"
	"github.com/hope-platform/hope-backend/internal/ingest"
	"github.com/hope-platform/hope-backend/internal/logger"
	"github.com/hope-platform/hope-backend/internal/middleware"
	"github.com/hope-platform/hope-backend/internal/seeds"
)

// Env is the shared process environment.
type Env struct {
	Config config.Config
	Log    *zap.Logger
	DB     *gorm.DB
	Store  *directory.Store

	redis      *redis.Client
	redisTried bool
}

// Open loads .env.local when present, reads the configuration, connects to
// the database and applies migrations.
func Open(service string) (*Env, error) {
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, service)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	gdb, err := db.Connect(db.Options{
		DSN:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLife,
		SlowThreshold:   cfg.DBSlowThreshold,
		Verbose:         cfg.LogLevel == "debug",
	}, log)
	if err != nil {
		return nil, err
	}
	if err := directory.Migrate(gdb); err != nil {
		return nil, err
	}

	return &Env{
		Config: cfg,
		Log:    log,
		DB:     gdb,
		Store:  directory.NewStore(gdb),
	}, nil
}

// Redis connects to REDIS_ADDR once and reuses the client. It returns nil
// when Redis is not configured or does not answer, and callers fall back to
// in-process behavior.
func (e *Env) Redis(ctx context.Context) *redis.Client {
	if e.redisTried {
		return e.redis
	}
	e.redisTried = true
	if e.Config.RedisAddr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     e.Config.RedisAddr,
		Password: e.Config.RedisPassword,
		DB:       e.Config.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		e.Log.Warn("redis unavailable, continuing without it",
			zap.String("addr", e.Config.RedisAddr), zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	e.redis = rdb
	return rdb
}

// Geocoder builds the Nominatim client, fronted by the Redis cache when
// Redis is available, inside the fallback chain.
func (e *Env) Geocoder(ctx context.Context) *geocoding.Chain {
	var lookup geocoding.Lookup = geocoding.NewClient(e.Config.Geocoder, e.Log)
	if rdb := e.Redis(ctx); rdb != nil {
		lookup = geocoding.NewCache(lookup, rdb, e.Config.GeocodeCacheTTL, e.Log)
	}
	return geocoding.NewChain(lookup, e.Log)
}

// RateLimiter returns the per-client limiter for public routes: shared
// through Redis when available, per process otherwise. It is nil when
// RATE_LIMIT_PER_MINUTE is not positive.
func (e *Env) RateLimiter(ctx context.Context) middleware.Limiter {
	n := e.Config.RateLimitPerMinute
	if n <= 0 {
		return nil
	}
	if rdb := e.Redis(ctx); rdb != nil {
		return middleware.NewRedisLimiter(rdb, n)
	}
	return middleware.NewMemoryLimiter(n)
}

// Pipeline returns an ingestion pipeline over the live geocoder.
func (e *Env) Pipeline(ctx context.Context) *ingest.Pipeline {
	return ingest.NewPipeline(e.Store, e.Geocoder(ctx), e.Config.Region, e.Log)
}

// Sources returns the configured JSON-lines feeds followed by the manual
// lists of the seed file. A missing seed file is logged and skipped.
func (e *Env) Sources() ([]ingest.Source, *seeds.File) {
	var out []ingest.Source
	for _, path := range e.Config.IngestFeeds {
		out = append(out, ingest.NewFileSource(path, e.Log))
	}

	f, err := seeds.Load(e.Config.SeedFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			e.Log.Warn("seed file not found", zap.String("path", e.Config.SeedFile))
		} else {
			e.Log.Error("could not load seed file", zap.String("path", e.Config.SeedFile), zap.Error(err))
		}
		return out, nil
	}
	for _, s := range f.Sources() {
		out = append(out, s)
	}
	return out, f
}

// Close releases connections and flushes the log.
func (e *Env) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if sqlDB, err := e.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = e.Log.Sync()
}
