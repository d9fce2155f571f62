// Package scheduler runs the ledger's periodic jobs: recurrence ticking, the overdue sweep
// and alert evaluation. Every job is safe to run more than once for the same instant, so
// overlapping workers or a restart mid-run only repeat work that turns into no-ops.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/alert"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/metrics"
	"github.com/MrJamesThe3rd/fluxo/internal/reference"
)

type Config struct {
	Interval   time.Duration
	RunOnStart bool
	Retry      ledger.RetryPolicy
}

type CompanyLister interface {
	ListCompanies(ctx context.Context, includeInactive bool) ([]*reference.Company, error)
}

type Ticker interface {
	TickDue(ctx context.Context, asOf time.Time) (int, error)
}

type Sweeper interface {
	SweepOverdue(ctx context.Context, companyID uuid.UUID) (int, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, companyID uuid.UUID, now time.Time) ([]*alert.Alert, error)
}

type Scheduler struct {
	cfg       Config
	companies CompanyLister
	ticker    Ticker
	sweeper   Sweeper
	evaluator Evaluator
	clock     ledger.Clock
	logger    *slog.Logger
	metrics   *metrics.Collector
}

type Option func(*Scheduler)

func WithClock(c ledger.Clock) Option { return func(s *Scheduler) { s.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(s *Scheduler) { s.logger = l } }

func WithMetrics(m *metrics.Collector) Option { return func(s *Scheduler) { s.metrics = m } }

func New(cfg Config, companies CompanyLister, ticker Ticker, sweeper Sweeper, evaluator Evaluator, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:       cfg,
		companies: companies,
		ticker:    ticker,
		sweeper:   sweeper,
		evaluator: evaluator,
		clock:     ledger.SystemClock,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cfg.Interval <= 0 {
		s.cfg.Interval = time.Minute
	}

	return s
}

// Run executes the jobs every Interval until ctx is done. A failing pass is logged and
// the loop carries on.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.cfg.Interval)

	if s.cfg.RunOnStart {
		s.pass(ctx)
	}

	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-t.C:
			s.pass(ctx)
		}
	}
}

func (s *Scheduler) pass(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("scheduler pass failed", "error", err)
	}
}

// Report counts what one pass did.
type Report struct {
	Generated int
	Swept     int
	Alerts    int
}

// RunOnce ticks due recurrences first, so freshly generated transactions take part in the
// sweep and in the alerts evaluated after it. Errors of one company do not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	var (
		report Report
		errs   []error
	)

	now := s.clock.Now()

	s.job("recurrence_tick", func() {
		n, err := s.ticker.TickDue(ctx, now)
		report.Generated = n

		if err != nil {
			errs = append(errs, fmt.Errorf("ticking recurrences: %w", err))
		}
	})

	companies, err := s.companies.ListCompanies(ctx, false)
	if err != nil {
		return report, errors.Join(append(errs, fmt.Errorf("listing companies: %w", err))...)
	}

	s.job("overdue_sweep", func() {
		for _, c := range companies {
			err := ledger.RetryOnConflict(ctx, s.cfg.Retry, func(ctx context.Context) error {
				n, err := s.sweeper.SweepOverdue(ctx, c.ID)
				report.Swept += n

				return err
			})
			if err != nil {
				s.logger.Error("failed to sweep overdue transactions", "company_id", c.ID, "error", err)
				errs = append(errs, fmt.Errorf("sweeping company %s: %w", c.ID, err))
			}
		}
	})

	s.job("alert_evaluation", func() {
		for _, c := range companies {
			created, err := s.evaluator.Evaluate(ctx, c.ID, now)
			report.Alerts += len(created)

			if err != nil {
				s.logger.Error("failed to evaluate alerts", "company_id", c.ID, "error", err)
				errs = append(errs, fmt.Errorf("evaluating company %s: %w", c.ID, err))
			}
		}
	})

	s.logger.Info("scheduler pass finished",
		"generated", report.Generated, "swept", report.Swept, "alerts", report.Alerts)

	return report, errors.Join(errs...)
}

func (s *Scheduler) job(name string, fn func()) {
	start := time.Now()
	fn()
	s.metrics.ObserveJob(name, time.Since(start).Seconds())
}
