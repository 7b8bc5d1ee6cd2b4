package main

import (
	"context"
	"flag"
	"log"

	"github.com/hope-platform/hope-backend/internal/app"
	"github.com/hope-platform/hope-backend/internal/seeds"
)

func main() {
	path := flag.String("file", "", "seed YAML (default: SEED_FILE)")
	flag.Parse()

	env, err := app.Open("hope-seed")
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer env.Close()

	if *path == "" {
		*path = env.Config.SeedFile
	}
	f, err := seeds.Load(*path)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	if err := seeds.SeedCategories(context.Background(), env.Store, f, env.Log); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
