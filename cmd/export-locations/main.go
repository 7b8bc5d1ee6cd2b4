package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/hope-platform/hope-backend/internal/app"
	"github.com/hope-platform/hope-backend/internal/export"
)

func main() {
	out := flag.String("out", "locations-review.xlsx", "output workbook path")
	flag.Parse()

	env, err := app.Open("hope-export")
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer env.Close()

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer f.Close()

	sum, err := export.Write(context.Background(), env.Store, f)
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}
	fmt.Printf("Wrote %s: %d low-confidence placements, %d without hours\n",
		*out, sum.LowConfidence, sum.MissingHours)
}
