package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/MrJamesThe3rd/fluxo/internal/config"
	"github.com/MrJamesThe3rd/fluxo/internal/database"
	"github.com/MrJamesThe3rd/fluxo/internal/store/memory"
	"github.com/MrJamesThe3rd/fluxo/internal/store/postgres"
)

// NewLogger returns a text logger on stderr at the configured level.
func NewLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})).
		With("app", cfg.App.Name)
}

func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		Validation:     cfg.Validation(),
		Reconciliation: cfg.Reconciliation(),
		Retry:          cfg.Retry(),
		Scheduler:      cfg.SchedulerConfig(),
	}
}

func HTTPOptionsFrom(cfg *config.Config) HTTPOptions {
	opts := HTTPOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Timeout:        cfg.Server.Timeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}

	if cfg.Metrics.Enabled {
		opts.MetricsPath = cfg.Metrics.Path
	}

	return opts
}

// Open connects the store selected by cfg. The returned func releases it.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, func() error, error) {
	if cfg.App.Store == "memory" {
		logger.Warn("using the in-memory store, data is lost on exit")
		return memory.New(nil), func() error { return nil }, nil
	}

	db, err := database.New(cfg.ConnectionString(), cfg.Pool())
	if err != nil {
		return nil, nil, err
	}

	if cfg.DB.Migrate {
		version, err := database.Migrate(ctx, db, cfg.DB.Name)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrating: %w", err)
		}

		logger.Info("schema migrated", "database", cfg.DB.Name, "version", version)
	}

	return postgres.New(db), db.Close, nil
}
