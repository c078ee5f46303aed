// Package main is the operator tool for idempotent access-key issuance.
// Re-running it against a complete catalog adds nothing and never touches
// issued or activated keys; it only tops categories up to their targets and
// rewrites the distribution file from store state.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ailab-bots/caloriebot/internal/config"
	"github.com/ailab-bots/caloriebot/internal/keys"
	"github.com/ailab-bots/caloriebot/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	outFile := flag.String("out", "access_keys.txt", "file to write the key listing to")
	migrationsDir := flag.String("migrations", "migrations", "path to the migrations directory")
	flag.Parse()

	if err := run(*outFile, *migrationsDir); err != nil {
		slog.Error("keygen failed", "error", err)
		os.Exit(1)
	}
}

func run(outFile, migrationsDir string) error {
	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := store.Connect(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := store.RunMigrations(dbCfg.URL, migrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	pgStore := store.NewPostgresStore(pool)
	catalog := keys.NewCatalog(pgStore)

	added, err := catalog.Ensure(ctx, keys.DefaultCatalog())
	if err != nil {
		return err
	}
	slog.Info("catalog ensured", "keys_added", added)

	all, err := pgStore.ListAccessKeys(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := keys.WriteExport(f, all); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	slog.Info("key listing written", "file", outFile, "keys", len(all))

	return nil
}
