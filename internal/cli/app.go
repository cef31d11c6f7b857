package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"festcal/internal/config"
	"festcal/internal/favorites"
	appLog "festcal/internal/log"
	"festcal/internal/schedule"
	"festcal/internal/storage"
)

// favoritesBackend is a store that also persists the migration flag.
type favoritesBackend interface {
	favorites.Store
	favorites.FlagStore
}

// app wires config, programme and favorites for one command invocation.
type app struct {
	cfg       *config.Config
	loc       *time.Location
	schedule  *schedule.Service
	favorites *favorites.Service
	flags     favorites.FlagStore
	close     func() error
}

func openApp(opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	level := appLog.ParseLevel(cfg.LogLevel)
	if opts.Verbose {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	loc, err := cfg.Location()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid timezone", err)
	}

	backend, closeFn, err := openFavorites(cfg)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "failed to open favorites store", err)
	}

	fetcher := schedule.NewFetcher(
		cfg.Upstream.URL,
		filepath.Join(cfg.DataDir, "upstream-cache"),
		time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second,
	)

	appLog.Debug("effective config",
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
		"data_dir", cfg.DataDir,
		"database", cfg.Database,
	)

	return &app{
		cfg:       cfg,
		loc:       loc,
		schedule:  schedule.NewService(fetcher),
		favorites: favorites.NewService(backend),
		flags:     backend,
		close:     closeFn,
	}, nil
}

// openFavorites opens the SQLite store, or an in-memory one when no
// database is configured.
func openFavorites(cfg *config.Config) (favoritesBackend, func() error, error) {
	if cfg.Database == "" {
		appLog.Warn("no database configured; favorites are kept in memory")
		return favorites.NewMemoryStore(), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return db, db.Close, nil
}

// refresh loads the programme and retries a pending favorites migration,
// returning how many favorites were migrated. The migration is a no-op once
// complete.
func (a *app) refresh(ctx context.Context) (int, error) {
	if err := a.schedule.Refresh(ctx); err != nil {
		return 0, err
	}
	return favorites.RunMigration(ctx, a.favorites.Store(), a.flags, a.schedule.Current().All()), nil
}
