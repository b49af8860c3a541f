// Package main implements the entry point for the artisan API server,
// which generates batches of Markdown articles with a hosted language
// model and exports the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/artisan-api/internal/config"
	"github.com/phrazzld/artisan-api/internal/platform/logger"
	"github.com/phrazzld/artisan-api/internal/platform/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default: ./config.yaml if present)")
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, reset, status, version) and exit")
	flag.Parse()

	if err := run(*configPath, *migrateCmd); err != nil {
		log.Fatalf("artisan-api: %v", err)
	}
}

func run(configPath, migrateCmd string) error {
	cfg, err := loadAppConfig(configPath)
	if err != nil {
		return err
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"llm_provider", cfg.LLM.Provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := setupAppDatabase(ctx, cfg, appLogger)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer db.Close()
		return postgres.Migrate(ctx, db, migrateCmd, appLogger)
	}

	if err := postgres.Migrate(ctx, db, postgres.MigrateUp, appLogger); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}

func loadAppConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.LLM.GeminiAPIKey != "" || cfg.LLM.OpenAIAPIKey != "" {
		slog.Debug("LLM configuration", "api_key_present", true)
	}
	return cfg, nil
}
