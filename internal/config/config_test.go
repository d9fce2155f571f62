package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fluxo/internal/config"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "postgres", cfg.App.Store)
	assert.Equal(t, "postgres://postgres:@localhost:5432/fluxo?sslmode=disable", cfg.ConnectionString())
	assert.Equal(t, ledger.DefaultRetryPolicy, cfg.Retry())
	assert.Equal(t, 3, cfg.Reconciliation().DateWindow)
	assert.False(t, cfg.Validation().StrictCounterparty)
	assert.Equal(t, time.Minute, cfg.SchedulerConfig().Interval)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_NAME", "ledger")
	t.Setenv("DB_SSLMODE", "require")
	t.Setenv("LEDGER_STRICT_COUNTERPARTY", "true")
	t.Setenv("RECONCILIATION_DATE_WINDOW", "5")
	t.Setenv("SCHEDULER_INTERVAL", "30s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.ConnectionString(), "/ledger?sslmode=require")
	assert.True(t, cfg.Validation().StrictCounterparty)
	assert.Equal(t, 5, cfg.Reconciliation().DateWindow)
	assert.Equal(t, 30*time.Second, cfg.SchedulerConfig().Interval)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "Unknown store", key: "STORE", val: "sqlite"},
		{name: "Negative window", key: "RECONCILIATION_DATE_WINDOW", val: "-1"},
		{name: "Malformed duration", key: "SCHEDULER_INTERVAL", val: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
