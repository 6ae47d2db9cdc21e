package main

import (
	"context"
	"flag"
	"log"
	"time"

	"datastory/adapters/sqlstore"
	"datastory/internal/config"
	"datastory/internal/migration"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	driver := flag.String("driver", appConfig.Database.Driver, "database driver (postgres or sqlite)")
	url := flag.String("url", appConfig.Database.URL, "database URL or SQLite path")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := sqlstore.Open(ctx, *driver, *url)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner(*driver)
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Schema version %s is in place", runner.Version())
}
