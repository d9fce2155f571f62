// Package app wires the ledger services onto a store. The API and worker binaries and the
// HTTP tests build the same graph through it.
package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/MrJamesThe3rd/fluxo/internal/account"
	"github.com/MrJamesThe3rd/fluxo/internal/alert"
	"github.com/MrJamesThe3rd/fluxo/internal/budget"
	fluxohttp "github.com/MrJamesThe3rd/fluxo/internal/http"
	accountHandler "github.com/MrJamesThe3rd/fluxo/internal/http/account"
	alertHandler "github.com/MrJamesThe3rd/fluxo/internal/http/alert"
	"github.com/MrJamesThe3rd/fluxo/internal/http/auth"
	budgetHandler "github.com/MrJamesThe3rd/fluxo/internal/http/budget"
	reconciliationHandler "github.com/MrJamesThe3rd/fluxo/internal/http/reconciliation"
	recurrenceHandler "github.com/MrJamesThe3rd/fluxo/internal/http/recurrence"
	referenceHandler "github.com/MrJamesThe3rd/fluxo/internal/http/reference"
	txHandler "github.com/MrJamesThe3rd/fluxo/internal/http/transaction"
	transferHandler "github.com/MrJamesThe3rd/fluxo/internal/http/transfer"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/metrics"
	"github.com/MrJamesThe3rd/fluxo/internal/reconciliation"
	"github.com/MrJamesThe3rd/fluxo/internal/recurrence"
	"github.com/MrJamesThe3rd/fluxo/internal/reference"
	"github.com/MrJamesThe3rd/fluxo/internal/scheduler"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
	"github.com/MrJamesThe3rd/fluxo/internal/transfer"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

// Store is every repository the ledger reads and writes through. Both the PostgreSQL and
// the in-memory store implement it.
type Store interface {
	transaction.Repository
	recurrence.Repository
	account.Repository
	reference.Repository
	budget.Repository
	alert.Repository
}

type Settings struct {
	Validation     validation.Options
	Reconciliation reconciliation.Options
	Retry          ledger.RetryPolicy
	Scheduler      scheduler.Config
}

type App struct {
	Clock   ledger.Clock
	Logger  *slog.Logger
	Metrics *metrics.Collector

	References     *reference.Service
	Accounts       *account.Service
	Transactions   *transaction.Service
	Transfers      *transfer.Service
	Recurrences    *recurrence.Service
	Budgets        *budget.Tracker
	Alerts         *alert.Engine
	Reconciliation *reconciliation.Service
	Scheduler      *scheduler.Scheduler

	store    Store
	settings Settings
}

func New(store Store, settings Settings, clock ledger.Clock, logger *slog.Logger, m *metrics.Collector) *App {
	if clock == nil {
		clock = ledger.SystemClock
	}

	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Clock: clock, Logger: logger, Metrics: m, store: store, settings: settings}

	a.References = reference.NewService(store)
	a.Transactions = transaction.NewService(store,
		transaction.WithClock(clock),
		transaction.WithValidation(settings.Validation),
		transaction.WithMetrics(m),
	)
	a.Accounts = account.NewService(store, store)
	a.Transfers = transfer.NewService(store, a.Transactions, store, m)
	a.Recurrences = recurrence.NewService(store, logger, m, settings.Retry)
	a.Budgets = budget.NewTracker(store, store, clock)
	a.Alerts = alert.NewEngine(store, a.Accounts, a.Transactions, a.Budgets, logger, m)
	a.Reconciliation = reconciliation.NewService(store, store, settings.Reconciliation, m)
	a.Scheduler = scheduler.New(settings.Scheduler, a.References, a.Recurrences, a.Transactions, a.Alerts,
		scheduler.WithClock(clock),
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(m),
	)

	return a
}

type HTTPOptions struct {
	AllowedOrigins []string
	Timeout        time.Duration
	MaxUploadBytes int64
	MetricsPath    string
}

// Handler builds the API router.
func (a *App) Handler(authn *auth.Authenticator, opts HTTPOptions) http.Handler {
	routerOpts := fluxohttp.Options{AllowedOrigins: opts.AllowedOrigins, Timeout: opts.Timeout}

	if a.Metrics != nil && opts.MetricsPath != "" {
		routerOpts.Metrics = a.Metrics.Handler()
		routerOpts.MetricsPath = opts.MetricsPath
	}

	return fluxohttp.New(authn, fluxohttp.Handlers{
		Accounts:       accountHandler.NewHandler(a.Accounts),
		Reference:      referenceHandler.NewHandler(a.References),
		Transactions:   txHandler.NewHandler(a.Transactions, a.store),
		Transfers:      transferHandler.NewHandler(a.Transfers, a.Transactions),
		Recurrences:    recurrenceHandler.NewHandler(a.Recurrences, a.Clock),
		Budgets:        budgetHandler.NewHandler(a.Budgets, a.Clock),
		Alerts:         alertHandler.NewHandler(a.Alerts, a.Clock),
		Reconciliation: reconciliationHandler.NewHandler(a.Reconciliation, a.store, opts.MaxUploadBytes),
	}, routerOpts)
}
