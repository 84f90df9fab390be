// setup
//
// This script prepares storage for the text search API: it creates the
// bible tables in the configured store and, optionally, builds the on-disk
// text index so the API starts without a full reindex.
//
// Environment variables:
//   STORAGE_BACKEND  - postgres or sqlite
//   POSTGRES_URI     - PostgreSQL connection string (postgres backend)
//   SQLITE_PATH      - SQLite database file (sqlite backend)
//   CORPUS_PATHS     - corpus files or directories to index with -index
//   INDEX_PATH       - on-disk text index location (required with -index)
//
// Usage:
//   go run ./scripts/setup
//   go run ./scripts/setup -index

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/sola-scriptura-text-search/internal/bootstrap"
	"github.com/sola-scriptura-text-search/internal/config"
	"github.com/sola-scriptura-text-search/internal/metrics"
)

func main() {
	buildIndex := flag.Bool("index", false, "Build the on-disk text index")
	flag.Parse()

	godotenv.Load()

	cfg := config.GetConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to prepare %s storage: %v", cfg.StorageBackend, err)
	}
	if store == nil {
		log.Println("STORAGE_BACKEND=none: no schema to create")
	} else {
		defer store.Close()
		log.Printf("Schema ready on %s", store.Backend())
	}

	if !*buildIndex {
		return
	}
	if cfg.IndexPath == "" {
		log.Fatal("INDEX_PATH is required to build the on-disk index")
	}

	start := time.Now()
	m := metrics.New()
	stack, err := bootstrap.NewStack(cfg, m, nil)
	if err != nil {
		log.Fatalf("Failed to open text index: %v", err)
	}
	defer stack.Close()

	log.Printf("Indexing into %s...", cfg.IndexPath)
	if err := stack.Load(ctx, cfg.CorpusPaths, store); err != nil {
		log.Fatalf("Failed to build index: %v", err)
	}

	docs, err := stack.Index.DocCount(ctx)
	if err != nil {
		log.Fatalf("Failed to count documents: %v", err)
	}
	fmt.Printf("Indexed %d bibles, %d verses in %s\n", stack.Library.Len(), docs, time.Since(start).Round(time.Millisecond))
}
