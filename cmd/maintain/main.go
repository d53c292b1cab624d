// Command maintain runs offline repair jobs against the tutorials database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"tutorials/api/internal/config"
	"tutorials/api/internal/logging"
	"tutorials/api/internal/store"
)

var errNoTask = errors.New("no task selected")

type options struct {
	rebuildPaths bool
	rehashBlocks bool
	migrate      bool
}

func main() {
	var opts options
	flag.BoolVar(&opts.rebuildPaths, "rebuild-paths", false, "recompute every topic's full_path from its slug chain")
	flag.BoolVar(&opts.rehashBlocks, "rehash-blocks", false, "recompute content hashes for all content blocks")
	flag.BoolVar(&opts.migrate, "migrate", true, "apply pending migrations first")
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, cfg, opts, logger)
	stop()
	if errors.Is(err, errNoTask) {
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error().Err(err).Msg("maintenance failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, opts options, logger zerolog.Logger) error {
	if !opts.rebuildPaths && !opts.rehashBlocks {
		return errNoTask
	}

	db, err := store.Open(ctx, cfg.DatabaseURL, store.PoolConfig{MaxOpenConns: 2})
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer db.Close()

	if opts.migrate {
		if _, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}
	dataStore := store.NewPostgresStore(db)

	if opts.rebuildPaths {
		updated, err := dataStore.RebuildPaths(ctx)
		if err != nil {
			return fmt.Errorf("rebuild paths: %w", err)
		}
		logger.Info().Int("updated", updated).Msg("topic paths rebuilt")
	}
	if opts.rehashBlocks {
		changed, skipped, err := dataStore.RehashBlocks(ctx)
		if err != nil {
			return fmt.Errorf("rehash blocks: %w", err)
		}
		logger.Info().Int("changed", changed).Int("skipped", skipped).Msg("content hashes recomputed")
	}
	return nil
}
