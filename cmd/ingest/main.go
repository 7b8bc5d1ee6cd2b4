package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hope-platform/hope-backend/internal/app"
	"github.com/hope-platform/hope-backend/internal/ingest"
	"github.com/hope-platform/hope-backend/internal/seeds"
)

func main() {
	var (
		only     = flag.String("sources", "", "comma-separated source names (default: all)")
		feeds    = flag.String("feeds", "", "extra comma-separated JSON-lines feed paths")
		parallel = flag.Int("parallel", 0, "sources ingested concurrently (default: INGEST_PARALLEL)")
		seedCats = flag.Bool("seed-categories", true, "upsert categories from the seed file first")
	)
	flag.Parse()

	env, err := app.Open("hope-ingest")
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer env.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources, seedFile := env.Sources()
	for _, path := range splitList(*feeds) {
		sources = append(sources, ingest.NewFileSource(path, env.Log))
	}
	if *seedCats && seedFile != nil {
		if err := seeds.SeedCategories(ctx, env.Store, seedFile, env.Log); err != nil {
			log.Fatalf("seed categories: %v", err)
		}
	}

	if want := splitList(*only); len(want) > 0 {
		sources, err = pick(sources, want)
		if err != nil {
			log.Fatal(err)
		}
	}
	if len(sources) == 0 {
		log.Fatal("no sources configured: set INGEST_FEEDS, SEED_FILE or -feeds")
	}

	n := env.Config.IngestParallel
	if *parallel > 0 {
		n = *parallel
	}
	stats, err := env.Pipeline(ctx).RunAll(ctx, sources, n)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(stats)

	if err != nil {
		log.Fatalf("ingest finished with errors: %v", err)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func pick(sources []ingest.Source, names []string) ([]ingest.Source, error) {
	byName := make(map[string]ingest.Source, len(sources))
	for _, s := range sources {
		byName[s.Name()] = s
	}
	out := make([]ingest.Source, 0, len(names))
	for _, n := range names {
		s, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}
