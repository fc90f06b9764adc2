package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/openroads/roadpass/internal/adapters/postgres"
	"github.com/openroads/roadpass/internal/core/domain"
	"github.com/openroads/roadpass/internal/pkg/config"
)

// seedsegments loads a region's road-segment inventory from a JSON file into
// its database. The file is an array of domain.RoadSegment objects; missing
// capacities and names get defaults.
func main() {
	file := flag.String("file", "segments.json", "path to the segment inventory JSON")
	defaultCapacity := flag.Int("capacity", 2, "capacity for segments that do not specify one")
	flag.Parse()

	cfg, err := config.Load("roadpass-seedsegments")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}

	var segments []domain.RoadSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		log.Fatalf("parse %s: %v", *file, err)
	}

	for i := range segments {
		if segments[i].Capacity <= 0 {
			segments[i].Capacity = *defaultCapacity
		}
		if segments[i].Name == "" {
			segments[i].Name = "Unnamed Road"
		}
		if segments[i].SegmentID == "" {
			log.Fatalf("segment %d has no segment_id", i)
		}
		if len(segments[i].Geometry) < 2 {
			log.Fatalf("segment %s has fewer than two geometry points", segments[i].SegmentID)
		}
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	store := postgres.NewSegmentRepo(db)
	if err := store.UpsertSegments(ctx, segments); err != nil {
		log.Fatalf("upsert: %v", err)
	}

	log.Printf("loaded %d segments from %s", len(segments), *file)
}
