package main

import (
	"fmt"
	"os"

	"github.com/uptrace/bun"

	"planetarium-service/internal/database/migrations"
	"planetarium-service/internal/logger"
)

// runMigrations brings the schema up to date at startup. Set AUTO_MIGRATE=false
// to manage the schema out of band.
func runMigrations(bunDB *bun.DB, log *logger.Logger) {
	if os.Getenv("AUTO_MIGRATE") == "false" {
		log.Info("DATABASE", "AUTO_MIGRATE=false, skipping schema migrations")
		return
	}

	opts := migrations.DefaultOptions()
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		opts.MigrationsDir = dir
	}

	runner := migrations.NewRunner(bunDB, opts)
	if err := runner.Up(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to run migrations: %v", err))
	}

	if version, dirty, err := runner.Version(); err == nil {
		log.Info("DATABASE", fmt.Sprintf("Schema at version %d (dirty=%v)", version, dirty))
	}
}
