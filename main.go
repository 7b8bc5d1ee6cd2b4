package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hope-platform/hope-backend/internal/app"
	"github.com/hope-platform/hope-backend/internal/ingest"
	"github.com/hope-platform/hope-backend/internal/locator"
	"github.com/hope-platform/hope-backend/internal/metrics"
	"github.com/hope-platform/hope-backend/internal/middleware"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	env, err := app.Open("hope-api")
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer env.Close()
	cfg := env.Config

	zone, err := cfg.Location()
	if err != nil {
		env.Log.Fatal("load timezone", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := locator.NewEngine(env.Store, zone, env.Log)
	handlers := locator.NewHandlers(engine, env.Store, env.Log)

	sources, _ := env.Sources()
	ingestAdmin := ingest.NewAdmin(ctx, env.Pipeline(ctx), sources, cfg.IngestParallel, env.Log)

	r := chi.NewRouter()
	r.Use(middleware.AccessLog(env.Log))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Get("/", RootHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(env.RateLimiter(ctx), cfg.TrustedProxies, env.Log))
		r.Mount("/", locator.SetupRoutes(handlers))
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminToken(cfg.AdminTokenHash))
		r.Mount("/ingest", ingestAdmin.Routes())
		r.Mount("/locations", locator.SetupAdminRoutes(handlers))
	})

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		env.Log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.Log.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	env.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		env.Log.Error("graceful shutdown failed", zap.Error(err))
	}
}
