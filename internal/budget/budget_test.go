package budget_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fluxo/internal/budget"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/store/memory"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
)

var today = time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)

func day(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

func TestVariance(t *testing.T) {
	tests := []struct {
		name      string
		actual    money.Cents
		planned   money.Cents
		threshold int
		want      string
		breached  bool
		severe    bool
	}{
		{name: "OnPlan", actual: 100000, planned: 100000, threshold: 10, want: "0", breached: false},
		{name: "SlightlyOver", actual: 105000, planned: 100000, threshold: 10, want: "5", breached: false},
		{name: "AtThreshold", actual: 110000, planned: 100000, threshold: 10, want: "10", breached: true},
		{name: "UnderBy15", actual: 85000, planned: 100000, threshold: 10, want: "-15", breached: true},
		{name: "DoubleThreshold", actual: 120000, planned: 100000, threshold: 10, want: "20", breached: true, severe: false},
		{name: "Severe", actual: 125000, planned: 100000, threshold: 10, want: "25", breached: true, severe: true},
		{name: "Rounded", actual: 1, planned: 3, threshold: 50, want: "-66.67", breached: true},
		{name: "ZeroPlanned", actual: 500, planned: 0, threshold: 10, want: "0"},
		{name: "NothingSpentBreachesByMagnitude", actual: 0, planned: 100000, threshold: 20, want: "-100", breached: true, severe: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := budget.Variance(tt.actual, tt.planned)
			assert.True(t, v.Equal(decimal.RequireFromString(tt.want)), "got %s", v)
			assert.Equal(t, tt.breached, budget.Breached(v, tt.threshold))
			assert.Equal(t, tt.severe, budget.Severe(v, tt.threshold))
		})
	}
}

func TestMonth(t *testing.T) {
	m, err := budget.ParseMonth("2025-02")
	require.NoError(t, err)

	assert.Equal(t, "2025-02", m.String())
	assert.Equal(t, day(2, 1), m.Start())
	assert.Equal(t, day(3, 1), m.End())
	assert.True(t, m.Contains(day(2, 28)))
	assert.False(t, m.Contains(day(3, 1)))

	_, err = budget.ParseMonth("2025-13")
	assert.Error(t, err)
}

type fixture struct {
	store     *memory.Store
	txs       *transaction.Service
	tracker   *budget.Tracker
	companyID uuid.UUID
	category  uuid.UUID
}

func newFixture() *fixture {
	clock := ledger.FixedClock(today)
	s := memory.New(clock)

	return &fixture{
		store:     s,
		txs:       transaction.NewService(s, transaction.WithClock(clock)),
		tracker:   budget.NewTracker(s, s, clock),
		companyID: uuid.New(),
		category:  uuid.New(),
	}
}

// book creates an exit in the fixture category and optionally pays part or all of it.
func (f *fixture) book(t *testing.T, category uuid.UUID, competencia, due time.Time, status transaction.Status, amount, paid money.Cents) *transaction.Transaction {
	t.Helper()

	ctx := context.Background()

	tx, err := f.txs.Create(ctx, transaction.CreateParams{
		CompanyID:       f.companyID,
		AccountID:       uuid.New(),
		Type:            transaction.TypeExit,
		CategoryID:      category,
		Amount:          amount,
		CompetenciaDate: competencia,
		DueDate:         due,
		Status:          status,
	})
	require.NoError(t, err)

	if paid > 0 {
		tx, err = f.txs.RecordPayment(ctx, tx.ID, transaction.PaymentParams{Amount: paid, PaidAt: today}, nil)
		require.NoError(t, err)
	}

	return tx
}

func (f *fixture) seedMarch(t *testing.T) {
	t.Helper()

	confirmed := transaction.StatusConfirmed

	// Counted: 500.00 paid, 300.00 confirmed and the 100.00 settled of a partial payment.
	f.book(t, f.category, day(3, 2), day(3, 25), confirmed, 50000, 50000)
	f.book(t, f.category, day(3, 5), day(3, 25), confirmed, 30000, 0)
	f.book(t, f.category, day(3, 8), day(3, 25), confirmed, 40000, 10000)

	// Not counted: planned, overdue by now, February, another category.
	f.book(t, f.category, day(3, 9), day(3, 25), transaction.StatusPlanned, 20000, 0)
	f.book(t, f.category, day(3, 12), day(3, 10), confirmed, 7000, 0)
	f.book(t, f.category, day(2, 27), day(3, 25), confirmed, 99000, 0)
	f.book(t, uuid.New(), day(3, 3), day(3, 25), confirmed, 88000, 0)

	canceled := f.book(t, f.category, day(3, 15), day(3, 25), confirmed, 5000, 0)
	_, err := f.txs.Cancel(context.Background(), canceled.ID, nil)
	require.NoError(t, err)
}

func TestTracker_ActualFor(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedMarch(t)

	march, err := budget.ParseMonth("2025-03")
	require.NoError(t, err)

	actual, err := f.tracker.ActualFor(ctx, f.companyID, f.category, march)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(90000), actual)

	again, err := f.tracker.ActualFor(ctx, f.companyID, f.category, march)
	require.NoError(t, err)
	assert.Equal(t, actual, again)

	empty, err := f.tracker.ActualFor(ctx, f.companyID, uuid.New(), march)
	require.NoError(t, err)
	assert.Zero(t, empty)
}

func TestTracker_VarianceAndReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedMarch(t)

	b, err := f.tracker.Create(ctx, budget.CreateParams{
		CompanyID:      f.companyID,
		CategoryID:     f.category,
		Month:          "2025-03",
		AmountPlanned:  100000,
		AlertThreshold: 10,
	})
	require.NoError(t, err)

	line, err := f.tracker.Variance(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(90000), line.Actual)
	assert.True(t, line.Variance.Equal(decimal.NewFromInt(-10)), "got %s", line.Variance)
	assert.True(t, line.Breached)
	assert.False(t, line.Severe)

	march, err := budget.ParseMonth("2025-03")
	require.NoError(t, err)

	report, err := f.tracker.Report(ctx, f.companyID, march)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, b.ID, report[0].Budget.ID)

	april, err := budget.ParseMonth("2025-04")
	require.NoError(t, err)

	report, err = f.tracker.Report(ctx, f.companyID, april)
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestTracker_CreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	params := budget.CreateParams{
		CompanyID:      f.companyID,
		CategoryID:     f.category,
		Month:          "2025-03",
		AmountPlanned:  100000,
		AlertThreshold: 10,
	}

	b, err := f.tracker.Create(ctx, params)
	require.NoError(t, err)

	_, err = f.tracker.Create(ctx, params)
	assert.ErrorIs(t, err, ledger.ErrValidation, "one budget per category and month")

	invalid := []budget.CreateParams{
		{CompanyID: f.companyID, CategoryID: f.category, Month: "2025-3", AmountPlanned: 1, AlertThreshold: 10},
		{CompanyID: f.companyID, CategoryID: f.category, Month: "2025-05", AmountPlanned: 0, AlertThreshold: 10},
		{CompanyID: f.companyID, CategoryID: f.category, Month: "2025-06", AmountPlanned: 1, AlertThreshold: 101},
	}

	for _, p := range invalid {
		_, err := f.tracker.Create(ctx, p)
		assert.ErrorIs(t, err, ledger.ErrValidation, "%+v", p)
	}

	stale := b.UpdatedAt

	updated, err := f.tracker.Update(ctx, b.ID, new(money.Cents(120000)), nil, &stale)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(120000), updated.AmountPlanned)
	assert.Equal(t, 10, updated.AlertThreshold)

	_, err = f.tracker.Update(ctx, b.ID, nil, new(20), &stale)
	assert.ErrorIs(t, err, ledger.ErrConflict)

	require.NoError(t, f.tracker.Delete(ctx, b.ID))

	_, err = f.tracker.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	assert.ErrorIs(t, f.tracker.Delete(ctx, b.ID), ledger.ErrNotFound)
}
