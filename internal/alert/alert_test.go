package alert_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fluxo/internal/account"
	"github.com/MrJamesThe3rd/fluxo/internal/alert"
	"github.com/MrJamesThe3rd/fluxo/internal/budget"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/store/memory"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
)

var today = time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)

func TestOverdueSeverity(t *testing.T) {
	tests := []struct {
		days int
		want alert.Severity
	}{
		{days: 1, want: alert.SeverityLow},
		{days: 6, want: alert.SeverityLow},
		{days: 7, want: alert.SeverityMedium},
		{days: 29, want: alert.SeverityMedium},
		{days: 30, want: alert.SeverityHigh},
		{days: 400, want: alert.SeverityHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, alert.OverdueSeverity(tt.days), "%d days", tt.days)
	}
}

func TestDerive(t *testing.T) {
	companyID := uuid.New()
	target := money.Cents(1000)
	due := today.AddDate(0, 0, -10)

	overdue := &transaction.Transaction{
		ID:          uuid.New(),
		Description: "Fornecedor",
		Amount:      5000,
		DueDate:     due,
		Status:      transaction.StatusOverdue,
	}

	snap := alert.Snapshot{
		CompanyID: companyID,
		Accounts: []*account.Account{
			{ID: uuid.New(), Name: "Negativa", CurrentBalance: -1},
			{ID: uuid.New(), Name: "Meta", CurrentBalance: 1000, TargetBalance: &target},
			{ID: uuid.New(), Name: "Normal", CurrentBalance: 10},
		},
		Transactions: []*transaction.Transaction{
			overdue,
			{ID: uuid.New(), DueDate: due, Status: transaction.StatusPaid},
		},
		Budgets: []*budget.Line{
			{Budget: &budget.Budget{ID: uuid.New(), Month: "2025-03", AmountPlanned: 100}, Breached: true},
			{Budget: &budget.Budget{ID: uuid.New(), Month: "2025-03", AmountPlanned: 100}, Breached: true, Severe: true},
			{Budget: &budget.Budget{ID: uuid.New(), Month: "2025-03", AmountPlanned: 100}},
		},
	}

	alerts := alert.Derive(snap, today)
	require.Len(t, alerts, 5)

	got := make(map[alert.Type][]alert.Severity)
	for _, a := range alerts {
		assert.Equal(t, companyID, a.CompanyID)
		got[a.Type] = append(got[a.Type], a.Severity)
	}

	assert.Equal(t, []alert.Severity{alert.SeverityHigh}, got[alert.TypeNegativeBalance])
	assert.Equal(t, []alert.Severity{alert.SeverityLow}, got[alert.TypeGoalAchieved])
	assert.Equal(t, []alert.Severity{alert.SeverityMedium}, got[alert.TypeOverduePayment])
	assert.Equal(t, []alert.Severity{alert.SeverityMedium, alert.SeverityHigh}, got[alert.TypeBudgetExceeded])

	for _, a := range alerts {
		switch a.Type {
		case alert.TypeOverduePayment:
			assert.Equal(t, overdue.ID, a.EntityID)
			assert.Equal(t, "2025-03-10", a.Period)
		case alert.TypeNegativeBalance, alert.TypeGoalAchieved, alert.TypeBudgetExceeded:
			assert.Equal(t, "2025-03", a.Period)
		}
	}
}

type fixture struct {
	store     *memory.Store
	accounts  *account.Service
	txs       *transaction.Service
	budgets   *budget.Tracker
	engine    *alert.Engine
	companyID uuid.UUID
}

func newFixture() *fixture {
	clock := ledger.FixedClock(today)
	s := memory.New(clock)
	accounts := account.NewService(s, s)
	txs := transaction.NewService(s, transaction.WithClock(clock))
	budgets := budget.NewTracker(s, s, clock)

	return &fixture{
		store:     s,
		accounts:  accounts,
		txs:       txs,
		budgets:   budgets,
		engine:    alert.NewEngine(s, accounts, txs, budgets, nil, nil),
		companyID: uuid.New(),
	}
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()

	ctx := context.Background()

	negative, err := f.accounts.Create(ctx, account.CreateParams{
		CompanyID: f.companyID, Name: "Conta PJ", Kind: account.KindCorrente, OpeningBalance: -5000,
	})
	require.NoError(t, err)

	_, err = f.accounts.Create(ctx, account.CreateParams{
		CompanyID: f.companyID, Name: "Reserva", Kind: account.KindInvestimento,
		OpeningBalance: 100000, TargetBalance: new(money.Cents(50000)),
	})
	require.NoError(t, err)

	// 40 days overdue on the 20th of March.
	_, err = f.txs.Create(ctx, transaction.CreateParams{
		CompanyID:       f.companyID,
		AccountID:       negative.ID,
		Type:            transaction.TypeExit,
		CategoryID:      uuid.New(),
		Amount:          12000,
		CompetenciaDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		DueDate:         time.Date(2025, 2, 8, 0, 0, 0, 0, time.UTC),
		Status:          transaction.StatusConfirmed,
	})
	require.NoError(t, err)

	category := uuid.New()

	_, err = f.budgets.Create(ctx, budget.CreateParams{
		CompanyID: f.companyID, CategoryID: category, Month: "2025-03", AmountPlanned: 10000, AlertThreshold: 10,
	})
	require.NoError(t, err)

	_, err = f.txs.Create(ctx, transaction.CreateParams{
		CompanyID:       f.companyID,
		AccountID:       negative.ID,
		Type:            transaction.TypeExit,
		CategoryID:      category,
		Amount:          30000,
		CompetenciaDate: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		DueDate:         time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC),
		Status:          transaction.StatusConfirmed,
	})
	require.NoError(t, err)
}

func TestEngine_Evaluate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seed(t)

	created, err := f.engine.Evaluate(ctx, f.companyID, today)
	require.NoError(t, err)
	require.Len(t, created, 4)

	severities := make(map[alert.Type]alert.Severity)
	for _, a := range created {
		assert.NotEqual(t, uuid.Nil, a.ID)
		assert.Equal(t, today, a.CreatedAt)
		severities[a.Type] = a.Severity
	}

	assert.Equal(t, map[alert.Type]alert.Severity{
		alert.TypeNegativeBalance: alert.SeverityHigh,
		alert.TypeGoalAchieved:    alert.SeverityLow,
		alert.TypeOverduePayment:  alert.SeverityHigh,
		alert.TypeBudgetExceeded:  alert.SeverityHigh,
	}, severities)

	again, err := f.engine.Evaluate(ctx, f.companyID, today.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, again, "conditions already alerted are not raised twice")

	// A new month re-raises the monthly conditions but not the same overdue payment.
	april := time.Date(2025, 4, 5, 9, 0, 0, 0, time.UTC)

	next, err := f.engine.Evaluate(ctx, f.companyID, april)
	require.NoError(t, err)

	types := make([]alert.Type, 0, len(next))
	for _, a := range next {
		types = append(types, a.Type)
	}

	assert.ElementsMatch(t, []alert.Type{alert.TypeNegativeBalance, alert.TypeGoalAchieved}, types)
}

func TestEngine_MarkRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seed(t)

	created, err := f.engine.Evaluate(ctx, f.companyID, today)
	require.NoError(t, err)
	require.NotEmpty(t, created)

	read, err := f.engine.MarkRead(ctx, created[0].ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	unread, err := f.engine.List(ctx, alert.ListFilter{CompanyID: f.companyID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, len(created)-1)

	all, err := f.engine.List(ctx, alert.ListFilter{CompanyID: f.companyID})
	require.NoError(t, err)
	assert.Len(t, all, len(created))

	_, err = f.engine.MarkRead(ctx, uuid.New())
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
