// migrate applies the embedded SQL migrations to DATABASE_URL.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/sethvargo/go-envconfig"

	"github.com/fitnessapp/identity-sync/internal/infrastructure/db/postgres"
	"github.com/fitnessapp/identity-sync/pkg/logger"
)

type migrateConfig struct {
	DatabaseURL string `env:"DATABASE_URL, required"`
	LogLevel    string `env:"LOG_LEVEL, default=info"`
}

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	var cfg migrateConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		logger.Init(logger.Options{Service: "identity-sync-migrate"})
		fallback := logger.Get()
		fallback.Error().Err(err).Msg("config")
		os.Exit(1)
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Service: "identity-sync-migrate"})

	if err := postgres.Migrate(cfg.DatabaseURL, *direction); err != nil {
		log.Error().Err(err).Str("direction", *direction).Msg("migration failed")
		os.Exit(1)
	}
	log.Info().Str("direction", *direction).Msg("migrations applied")
}
