package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fluxo/internal/alert"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/store/memory"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTx(companyID uuid.UUID, day int) *transaction.Transaction {
	date := time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC)

	return &transaction.Transaction{
		ID:              uuid.New(),
		CompanyID:       companyID,
		AccountID:       uuid.New(),
		Type:            transaction.TypeExit,
		Direction:       transaction.DirectionOut,
		CategoryID:      uuid.New(),
		Amount:          1000,
		CompetenciaDate: date,
		DueDate:         date,
		Status:          transaction.StatusPlanned,
	}
}

func TestUnit_StagedWritesInvisibleUntilCommit(t *testing.T) {
	ctx := context.Background()
	s := memory.New(ledger.FixedClock(now))
	companyID := uuid.New()
	tx := newTx(companyID, 5)

	uow, err := s.Begin(ctx, companyID)
	require.NoError(t, err)
	require.NoError(t, uow.CreateTransactions(ctx, tx))

	_, err = s.GetTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	inside, err := uow.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, inside.ID)

	require.NoError(t, uow.Commit())

	got, err := s.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)
}

func TestUnit_RollbackDiscards(t *testing.T) {
	ctx := context.Background()
	s := memory.New(ledger.FixedClock(now))
	companyID := uuid.New()
	tx := newTx(companyID, 5)

	uow, err := s.Begin(ctx, companyID)
	require.NoError(t, err)
	require.NoError(t, uow.CreateTransactions(ctx, tx))
	require.NoError(t, uow.Rollback())

	_, err = s.GetTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	// The lock was released: a new unit opens immediately.
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	uow, err = s.Begin(ctx, companyID)
	require.NoError(t, err)
	require.NoError(t, uow.Rollback())
}

func TestUnit_StaleUpdateConflicts(t *testing.T) {
	ctx := context.Background()
	s := memory.New(ledger.FixedClock(now))
	companyID := uuid.New()
	tx := newTx(companyID, 5)

	uow, err := s.Begin(ctx, companyID)
	require.NoError(t, err)
	require.NoError(t, uow.CreateTransactions(ctx, tx))
	require.NoError(t, uow.Commit())

	stale, err := s.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)

	fresh := stale.Clone()
	fresh.Description = "first"

	uow, err = s.Begin(ctx, companyID)
	require.NoError(t, err)
	require.NoError(t, uow.UpdateTransactions(ctx, fresh))
	require.NoError(t, uow.Commit())

	stale.Description = "second"

	uow, err = s.Begin(ctx, companyID)
	require.NoError(t, err)
	defer uow.Rollback()

	err = uow.UpdateTransactions(ctx, stale)
	assert.ErrorIs(t, err, ledger.ErrConflict)

	got, err := s.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Description)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestUnit_ForeignCompanyHidden(t *testing.T) {
	ctx := context.Background()
	s := memory.New(ledger.FixedClock(now))
	a, b := uuid.New(), uuid.New()
	tx := newTx(a, 5)

	uow, err := s.Begin(ctx, a)
	require.NoError(t, err)
	require.NoError(t, uow.CreateTransactions(ctx, tx))
	require.NoError(t, uow.Commit())

	uow, err = s.Begin(ctx, b)
	require.NoError(t, err)
	defer uow.Rollback()

	_, err = uow.GetTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	err = uow.CreateTransactions(ctx, newTx(a, 6))
	assert.Error(t, err)
}

func TestUnit_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	s := memory.New(ledger.FixedClock(now))
	companyID := uuid.New()
	keep, drop := newTx(companyID, 20), newTx(companyID, 3)

	uow, err := s.Begin(ctx, companyID)
	require.NoError(t, err)
	require.NoError(t, uow.CreateTransactions(ctx, keep, drop))
	require.NoError(t, uow.Commit())

	uow, err = s.Begin(ctx, companyID)
	require.NoError(t, err)
	require.NoError(t, uow.DeleteTransactions(ctx, drop.ID))

	staged, err := uow.ListTransactions(ctx, transaction.ListFilter{})
	require.NoError(t, err)
	require.Len(t, staged, 1)
	assert.Equal(t, keep.ID, staged[0].ID)

	committed, err := s.ListTransactions(ctx, transaction.ListFilter{CompanyID: companyID})
	require.NoError(t, err)
	assert.Len(t, committed, 2)
	assert.Equal(t, drop.ID, committed[0].ID, "sorted by competência date")

	require.NoError(t, uow.Commit())

	committed, err = s.ListTransactions(ctx, transaction.ListFilter{CompanyID: companyID})
	require.NoError(t, err)
	assert.Len(t, committed, 1)
}

func TestBegin_SerializesWriters(t *testing.T) {
	ctx := context.Background()
	s := memory.New(nil)
	companyID := uuid.New()
	tx := newTx(companyID, 5)
	tx.Amount = 1

	uow, err := s.Begin(ctx, companyID)
	require.NoError(t, err)
	require.NoError(t, uow.CreateTransactions(ctx, tx))
	require.NoError(t, uow.Commit())

	const writers = 20

	var wg sync.WaitGroup

	for range writers {
		wg.Go(func() {
			uow, err := s.Begin(ctx, companyID)
			if !assert.NoError(t, err) {
				return
			}
			defer uow.Rollback()

			cur, err := uow.GetTransaction(ctx, tx.ID)
			if !assert.NoError(t, err) {
				return
			}

			cur.Amount++

			assert.NoError(t, uow.UpdateTransactions(ctx, cur))
			assert.NoError(t, uow.Commit())
		})
	}

	wg.Wait()

	got, err := s.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.EqualValues(t, writers+1, got.Amount)
}

func TestBegin_HonorsContext(t *testing.T) {
	s := memory.New(ledger.FixedClock(now))
	companyID := uuid.New()

	held, err := s.Begin(context.Background(), companyID)
	require.NoError(t, err)
	defer held.Rollback()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = s.Begin(ctx, companyID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Other companies are not blocked.
	other, err := s.Begin(context.Background(), uuid.New())
	require.NoError(t, err)
	require.NoError(t, other.Rollback())
}

func TestCreateAlerts_Dedup(t *testing.T) {
	ctx := context.Background()
	s := memory.New(ledger.FixedClock(now))
	companyID, entity := uuid.New(), uuid.New()

	mk := func(period string) *alert.Alert {
		return &alert.Alert{
			CompanyID: companyID,
			Type:      alert.TypeNegativeBalance,
			Severity:  alert.SeverityHigh,
			EntityID:  entity,
			Period:    period,
			CreatedAt: now,
		}
	}

	created, err := s.CreateAlerts(ctx, mk("2025-03"), mk("2025-03"))
	require.NoError(t, err)
	require.Len(t, created, 1)

	created, err = s.CreateAlerts(ctx, mk("2025-03"), mk("2025-04"))
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "2025-04", created[0].Period)

	require.NoError(t, s.MarkAlertRead(ctx, created[0].ID))

	unread, err := s.ListAlerts(ctx, alert.ListFilter{CompanyID: companyID, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "2025-03", unread[0].Period)

	// Reading an alert does not allow it to be raised again.
	created, err = s.CreateAlerts(ctx, mk("2025-04"))
	require.NoError(t, err)
	assert.Empty(t, created)
}
