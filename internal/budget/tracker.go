package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

var ErrNotFound = fmt.Errorf("budget %w", ledger.ErrNotFound)

type Repository interface {
	GetBudget(ctx context.Context, id uuid.UUID) (*Budget, error)
	ListBudgets(ctx context.Context, filter ListFilter) ([]*Budget, error)
	CreateBudget(ctx context.Context, b *Budget) error
	// UpdateBudget fails with ledger.ErrConflict when b.UpdatedAt is stale.
	UpdateBudget(ctx context.Context, b *Budget) error
	DeleteBudget(ctx context.Context, id uuid.UUID) error
}

type ListFilter struct {
	CompanyID  uuid.UUID
	CategoryID *uuid.UUID
	Month      string
}

// Tracker reads budgets against the transactions they cover.
type Tracker struct {
	repo  Repository
	txs   transaction.Lister
	clock ledger.Clock
}

func NewTracker(repo Repository, txs transaction.Lister, clock ledger.Clock) *Tracker {
	if clock == nil {
		clock = ledger.SystemClock
	}

	return &Tracker{repo: repo, txs: txs, clock: clock}
}

type CreateParams struct {
	CompanyID      uuid.UUID
	CategoryID     uuid.UUID
	Month          string
	AmountPlanned  money.Cents
	AlertThreshold int
}

// Create adds a budget. There is at most one per category and month.
func (t *Tracker) Create(ctx context.Context, params CreateParams) (*Budget, error) {
	b := &Budget{
		ID:             uuid.New(),
		CompanyID:      params.CompanyID,
		CategoryID:     params.CategoryID,
		Month:          params.Month,
		AmountPlanned:  params.AmountPlanned,
		AlertThreshold: params.AlertThreshold,
	}

	if err := validation.Validate(b); err != nil {
		return nil, err
	}

	existing, err := t.repo.ListBudgets(ctx, ListFilter{CompanyID: b.CompanyID, CategoryID: &b.CategoryID, Month: b.Month})
	if err != nil {
		return nil, fmt.Errorf("listing budgets: %w", err)
	}

	if len(existing) > 0 {
		return nil, validation.Fail("budget", "month", "unique", "category already has a budget for this month")
	}

	if err := t.repo.CreateBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("creating budget: %w", err)
	}

	return b, nil
}

// Update changes the planned amount and threshold. nil leaves a field unchanged.
func (t *Tracker) Update(ctx context.Context, id uuid.UUID, planned *money.Cents, threshold *int, ifUnmodified *time.Time) (*Budget, error) {
	b, err := t.repo.GetBudget(ctx, id)
	if err != nil {
		return nil, err
	}

	if ifUnmodified != nil && !b.UpdatedAt.Equal(*ifUnmodified) {
		return nil, fmt.Errorf("%w: budget %s", ledger.ErrConflict, id)
	}

	if planned != nil {
		b.AmountPlanned = *planned
	}

	if threshold != nil {
		b.AlertThreshold = *threshold
	}

	if err := validation.Validate(b); err != nil {
		return nil, err
	}

	if err := t.repo.UpdateBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("updating budget: %w", err)
	}

	return b, nil
}

func (t *Tracker) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := t.repo.GetBudget(ctx, id); err != nil {
		return err
	}

	return t.repo.DeleteBudget(ctx, id)
}

func (t *Tracker) Get(ctx context.Context, id uuid.UUID) (*Budget, error) {
	return t.repo.GetBudget(ctx, id)
}

// ActualFor computes the category's actual amount for month from current ledger state.
func (t *Tracker) ActualFor(ctx context.Context, companyID, categoryID uuid.UUID, month Month) (money.Cents, error) {
	txs, err := t.monthTransactions(ctx, companyID, &categoryID, month)
	if err != nil {
		return 0, err
	}

	return Actual(txs, categoryID, month), nil
}

// Line is a budget with its computed figures.
type Line struct {
	Budget   *Budget         `json:"budget"`
	Actual   money.Cents     `json:"actual"`
	Variance decimal.Decimal `json:"variance"`
	Breached bool            `json:"breached"`
	Severe   bool            `json:"severe"`
}

// Variance computes the figures of a single budget.
func (t *Tracker) Variance(ctx context.Context, id uuid.UUID) (*Line, error) {
	b, err := t.repo.GetBudget(ctx, id)
	if err != nil {
		return nil, err
	}

	month, err := ParseMonth(b.Month)
	if err != nil {
		return nil, err
	}

	txs, err := t.monthTransactions(ctx, b.CompanyID, &b.CategoryID, month)
	if err != nil {
		return nil, err
	}

	return lineFor(b, txs, month), nil
}

// Report computes every budget of the company for month from one read of the month's
// transactions.
func (t *Tracker) Report(ctx context.Context, companyID uuid.UUID, month Month) ([]*Line, error) {
	budgets, err := t.repo.ListBudgets(ctx, ListFilter{CompanyID: companyID, Month: month.String()})
	if err != nil {
		return nil, fmt.Errorf("listing budgets: %w", err)
	}

	if len(budgets) == 0 {
		return nil, nil
	}

	txs, err := t.monthTransactions(ctx, companyID, nil, month)
	if err != nil {
		return nil, err
	}

	lines := make([]*Line, 0, len(budgets))
	for _, b := range budgets {
		lines = append(lines, lineFor(b, txs, month))
	}

	return lines, nil
}

func lineFor(b *Budget, txs []*transaction.Transaction, month Month) *Line {
	actual := Actual(txs, b.CategoryID, month)
	variance := Variance(actual, b.AmountPlanned)

	return &Line{
		Budget:   b,
		Actual:   actual,
		Variance: variance,
		Breached: Breached(variance, b.AlertThreshold),
		Severe:   Severe(variance, b.AlertThreshold),
	}
}

// monthTransactions loads the month's transactions with their status derived for now.
func (t *Tracker) monthTransactions(ctx context.Context, companyID uuid.UUID, categoryID *uuid.UUID, month Month) ([]*transaction.Transaction, error) {
	from, to := month.Start(), month.End()

	txs, err := t.txs.ListTransactions(ctx, transaction.ListFilter{
		CompanyID:       companyID,
		CategoryID:      categoryID,
		CompetenciaFrom: &from,
		CompetenciaTo:   &to,
	})
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	now := t.clock.Now()
	for _, tx := range txs {
		tx.Derive(now)
	}

	return txs, nil
}
