// Command worker runs the recurring generation, overdue sweep and alert jobs on a
// fixed interval, apart from the API.
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

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/fluxo/internal/app"
	"github.com/MrJamesThe3rd/fluxo/internal/config"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.App.Store == "memory" {
		return errors.New("the worker needs a shared store, set STORE=postgres")
	}

	logger := app.NewLogger(cfg).With("process", "worker")
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

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Scheduler.Run(ctx)
	})

	if m != nil {
		r := chi.NewRouter()
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		r.Handle(cfg.Metrics.Path, m.Handler())

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.WorkerPort),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving metrics: %w", err)
			}

			return nil
		})

		g.Go(func() error {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			return srv.Shutdown(shutdownCtx)
		})
	}

	logger.Info("worker started", "interval", cfg.Scheduler.Interval)

	return g.Wait()
}
