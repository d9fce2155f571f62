package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/fluxo/internal/app"
	"github.com/MrJamesThe3rd/fluxo/internal/config"
	"github.com/MrJamesThe3rd/fluxo/internal/http/auth"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var m *metrics.Collector
	if cfg.Metrics.Enabled {
		m = metrics.NewCollector()
	}

	a := app.New(store, app.SettingsFrom(cfg), ledger.SystemClock, logger, m)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           a.Handler(auth.New(cfg.Auth.JWTSecret, cfg.Auth.Issuer), app.HTTPOptionsFrom(cfg)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", "addr", srv.Addr, "store", cfg.App.Store)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()

		logger.Info("shutting down")

		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Scheduler.Enabled {
		g.Go(func() error {
			return a.Scheduler.Run(ctx)
		})
	}

	return g.Wait()
}
