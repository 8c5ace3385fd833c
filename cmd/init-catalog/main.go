// Initializes the database schema and seeds the defence catalog, then prints
// a summary. Safe to run repeatedly: the seed is idempotent.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/mkalvans/skyfence/internal/config"
	"github.com/mkalvans/skyfence/internal/db"
)

var configPath = flag.String("config", "configs/config.json", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.ReconnectWithRetry(cfg.Database, 5, time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("Schema initialized")

	stats, err := database.GetStats(ctx)
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}

	log.Printf("Catalog: %v sites, %v interceptor types, %v offerings",
		stats["sites"], stats["interceptor_types"], stats["offerings"])
	log.Printf("Audit: %v recorded decisions", stats["audited_decisions"])
}
