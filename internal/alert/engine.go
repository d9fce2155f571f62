package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/account"
	"github.com/MrJamesThe3rd/fluxo/internal/budget"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/metrics"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
)

var ErrNotFound = fmt.Errorf("alert %w", ledger.ErrNotFound)

type Repository interface {
	GetAlert(ctx context.Context, id uuid.UUID) (*Alert, error)
	ListAlerts(ctx context.Context, filter ListFilter) ([]*Alert, error)
	// CreateAlerts stores the alerts whose key is not stored yet and returns the stored ones.
	CreateAlerts(ctx context.Context, alerts ...*Alert) ([]*Alert, error)
	MarkAlertRead(ctx context.Context, id uuid.UUID) error
}

type ListFilter struct {
	CompanyID  uuid.UUID
	UnreadOnly bool
}

type AccountLister interface {
	List(ctx context.Context, companyID uuid.UUID) ([]*account.Account, error)
}

type TransactionLister interface {
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
}

type BudgetReporter interface {
	Report(ctx context.Context, companyID uuid.UUID, month budget.Month) ([]*budget.Line, error)
}

type Engine struct {
	repo     Repository
	accounts AccountLister
	txs      TransactionLister
	budgets  BudgetReporter
	logger   *slog.Logger
	metrics  *metrics.Collector
}

func NewEngine(
	repo Repository,
	accounts AccountLister,
	txs TransactionLister,
	budgets BudgetReporter,
	logger *slog.Logger,
	m *metrics.Collector,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{repo: repo, accounts: accounts, txs: txs, budgets: budgets, logger: logger, metrics: m}
}

// Snapshot reads the company's ledger state as of now.
func (e *Engine) Snapshot(ctx context.Context, companyID uuid.UUID, now time.Time) (Snapshot, error) {
	accounts, err := e.accounts.List(ctx, companyID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("listing accounts: %w", err)
	}

	txs, err := e.txs.List(ctx, transaction.ListFilter{
		CompanyID: companyID,
		Statuses:  []transaction.Status{transaction.StatusOverdue},
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("listing overdue transactions: %w", err)
	}

	lines, err := e.budgets.Report(ctx, companyID, budget.MonthOf(now))
	if err != nil {
		return Snapshot{}, fmt.Errorf("reporting budgets: %w", err)
	}

	return Snapshot{CompanyID: companyID, Accounts: accounts, Transactions: txs, Budgets: lines}, nil
}

// Evaluate derives the company's alerts and stores the ones not raised before.
// It returns only the newly stored alerts.
func (e *Engine) Evaluate(ctx context.Context, companyID uuid.UUID, now time.Time) ([]*Alert, error) {
	snap, err := e.Snapshot(ctx, companyID, now)
	if err != nil {
		return nil, err
	}

	candidates := Derive(snap, now)
	if len(candidates) == 0 {
		return nil, nil
	}

	for _, a := range candidates {
		a.ID = uuid.New()
		a.CreatedAt = now
	}

	created, err := e.repo.CreateAlerts(ctx, candidates...)
	if err != nil {
		return nil, fmt.Errorf("storing alerts: %w", err)
	}

	for _, a := range created {
		e.metrics.ObserveAlert(string(a.Type))
	}

	if len(created) > 0 {
		e.logger.Info("alerts raised", "company_id", companyID, "count", len(created))
	}

	return created, nil
}

func (e *Engine) Get(ctx context.Context, id uuid.UUID) (*Alert, error) {
	return e.repo.GetAlert(ctx, id)
}

func (e *Engine) List(ctx context.Context, filter ListFilter) ([]*Alert, error) {
	return e.repo.ListAlerts(ctx, filter)
}

// MarkRead sets the read flag, the only change an alert accepts.
func (e *Engine) MarkRead(ctx context.Context, id uuid.UUID) (*Alert, error) {
	if err := e.repo.MarkAlertRead(ctx, id); err != nil {
		return nil, err
	}

	return e.repo.GetAlert(ctx, id)
}
