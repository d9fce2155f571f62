package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/MrJamesThe3rd/fluxo/internal/database"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/reconciliation"
	"github.com/MrJamesThe3rd/fluxo/internal/scheduler"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

type Config struct {
	App struct {
		Name     string `envconfig:"APP_NAME" default:"Fluxo"`
		Port     int    `envconfig:"PORT" default:"8080"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
		// Store selects the repository backend: postgres or memory.
		Store string `envconfig:"STORE" default:"postgres"`
	}

	DB struct {
		Host        string        `envconfig:"DB_HOST" default:"localhost"`
		Port        int           `envconfig:"DB_PORT" default:"5432"`
		User        string        `envconfig:"DB_USER" default:"postgres"`
		Password    string        `envconfig:"DB_PASSWORD" default:""`
		Name        string        `envconfig:"DB_NAME" default:"fluxo"`
		SSLMode     string        `envconfig:"DB_SSLMODE" default:"disable"`
		MaxOpen     int           `envconfig:"DB_MAX_OPEN" default:"25"`
		MaxIdle     int           `envconfig:"DB_MAX_IDLE" default:"5"`
		MaxLifetime time.Duration `envconfig:"DB_MAX_LIFETIME" default:"5m"`
		Migrate     bool          `envconfig:"DB_MIGRATE" default:"true"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		MaxUploadBytes int64         `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
		AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
	}

	Auth struct {
		JWTSecret string `envconfig:"JWT_SECRET"`
		Issuer    string `envconfig:"JWT_ISSUER" default:"fluxo"`
	}

	Scheduler struct {
		// Enabled also runs the background jobs inside the API process.
		Enabled    bool          `envconfig:"SCHEDULER_ENABLED" default:"true"`
		Interval   time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"1m"`
		RunOnStart bool          `envconfig:"SCHEDULER_RUN_ON_START" default:"true"`
	}

	Ledger struct {
		StrictCounterparty bool          `envconfig:"LEDGER_STRICT_COUNTERPARTY" default:"false"`
		DateWindow         int           `envconfig:"RECONCILIATION_DATE_WINDOW" default:"3"`
		RetryAttempts      int           `envconfig:"RETRY_ATTEMPTS" default:"5"`
		RetryBase          time.Duration `envconfig:"RETRY_BASE" default:"20ms"`
		RetryMax           time.Duration `envconfig:"RETRY_MAX" default:"1s"`
	}

	Metrics struct {
		Enabled    bool   `envconfig:"METRICS_ENABLED" default:"true"`
		Path       string `envconfig:"METRICS_PATH" default:"/metrics"`
		// WorkerPort serves the worker's metrics endpoint.
		WorkerPort int    `envconfig:"WORKER_METRICS_PORT" default:"9090"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

func (c *Config) Pool() database.Pool {
	return database.Pool{MaxOpen: c.DB.MaxOpen, MaxIdle: c.DB.MaxIdle, MaxLifetime: c.DB.MaxLifetime}
}

func (c *Config) Retry() ledger.RetryPolicy {
	return ledger.RetryPolicy{Attempts: c.Ledger.RetryAttempts, Base: c.Ledger.RetryBase, Max: c.Ledger.RetryMax}
}

func (c *Config) Validation() validation.Options {
	return validation.Options{StrictCounterparty: c.Ledger.StrictCounterparty}
}

func (c *Config) Reconciliation() reconciliation.Options {
	return reconciliation.Options{DateWindow: c.Ledger.DateWindow}
}

func (c *Config) SchedulerConfig() scheduler.Config {
	return scheduler.Config{Interval: c.Scheduler.Interval, RunOnStart: c.Scheduler.RunOnStart, Retry: c.Retry()}
}

func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}

	return level
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	switch cfg.App.Store {
	case "postgres", "memory":
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.App.Store)
	}

	if cfg.Ledger.DateWindow < 0 {
		return nil, fmt.Errorf("reconciliation date window must not be negative, got %d", cfg.Ledger.DateWindow)
	}

	return &cfg, nil
}
