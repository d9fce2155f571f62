package transaction_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

func exitTx(status transaction.Status, amount money.Cents) *transaction.Transaction {
	competencia := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	return &transaction.Transaction{
		ID:              uuid.New(),
		CompanyID:       uuid.New(),
		AccountID:       uuid.New(),
		Type:            transaction.TypeExit,
		Direction:       transaction.DirectionOut,
		CategoryID:      uuid.New(),
		Amount:          amount,
		CompetenciaDate: competencia,
		DueDate:         competencia,
		Status:          status,
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to transaction.Status
		want     bool
	}{
		{transaction.StatusPlanned, transaction.StatusConfirmed, true},
		{transaction.StatusPlanned, transaction.StatusOverdue, true},
		{transaction.StatusPlanned, transaction.StatusCanceled, true},
		{transaction.StatusPlanned, transaction.StatusPaid, false},
		{transaction.StatusConfirmed, transaction.StatusPaid, true},
		{transaction.StatusConfirmed, transaction.StatusPartiallyPaid, true},
		{transaction.StatusConfirmed, transaction.StatusPlanned, false},
		{transaction.StatusOverdue, transaction.StatusPaid, true},
		{transaction.StatusOverdue, transaction.StatusConfirmed, false},
		{transaction.StatusPartiallyPaid, transaction.StatusPaid, true},
		{transaction.StatusPartiallyPaid, transaction.StatusOverdue, true},
		{transaction.StatusPaid, transaction.StatusConfirmed, false},
		{transaction.StatusPaid, transaction.StatusCanceled, false},
		{transaction.StatusCanceled, transaction.StatusPlanned, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, transaction.CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransaction_Confirm(t *testing.T) {
	tx := exitTx(transaction.StatusPlanned, 1000)
	require.NoError(t, tx.Confirm())
	assert.Equal(t, transaction.StatusConfirmed, tx.Status)

	paid := exitTx(transaction.StatusPaid, 1000)
	err := paid.Confirm()
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
	assert.Equal(t, transaction.StatusPaid, paid.Status)
}

func TestTransaction_RecordPayment(t *testing.T) {
	paidAt := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	t.Run("PartialThenFull", func(t *testing.T) {
		tx := exitTx(transaction.StatusConfirmed, 100000)

		require.NoError(t, tx.RecordPayment(60000, paidAt))
		assert.Equal(t, transaction.StatusPartiallyPaid, tx.Status)
		assert.Equal(t, money.Cents(40000), tx.RemainingBalance)
		assert.Equal(t, money.Cents(60000), tx.Settled())
		require.NoError(t, validation.Validate(tx))

		err := tx.RecordPayment(50000, paidAt)
		assert.ErrorIs(t, err, ledger.ErrOverpayment)
		assert.Equal(t, money.Cents(40000), tx.RemainingBalance)

		require.NoError(t, tx.RecordPayment(40000, paidAt))
		assert.Equal(t, transaction.StatusPaid, tx.Status)
		assert.Equal(t, money.Cents(0), tx.RemainingBalance)
		require.NotNil(t, tx.PaidDate)
		assert.True(t, tx.PaidDate.Equal(paidAt))
		assert.Equal(t, money.Cents(100000), tx.Settled())
		require.NoError(t, validation.Validate(tx))
	})

	t.Run("PartialStaysPartial", func(t *testing.T) {
		tx := exitTx(transaction.StatusConfirmed, 1000)
		require.NoError(t, tx.RecordPayment(300, paidAt))
		require.NoError(t, tx.RecordPayment(300, paidAt))

		assert.Equal(t, transaction.StatusPartiallyPaid, tx.Status)
		assert.Equal(t, money.Cents(400), tx.RemainingBalance)
	})

	t.Run("OverdueFull", func(t *testing.T) {
		tx := exitTx(transaction.StatusOverdue, 1000)
		require.NoError(t, tx.RecordPayment(1000, paidAt))
		assert.Equal(t, transaction.StatusPaid, tx.Status)
	})

	t.Run("Rejected", func(t *testing.T) {
		tests := []struct {
			name    string
			status  transaction.Status
			amount  money.Cents
			wantErr error
		}{
			{"Zero", transaction.StatusConfirmed, 0, ledger.ErrValidation},
			{"Negative", transaction.StatusConfirmed, -10, ledger.ErrValidation},
			{"Planned", transaction.StatusPlanned, 100, ledger.ErrInvalidTransition},
			{"Canceled", transaction.StatusCanceled, 100, ledger.ErrInvalidTransition},
			{"Paid", transaction.StatusPaid, 100, ledger.ErrOverpayment},
			{"Overpayment", transaction.StatusConfirmed, 1001, ledger.ErrOverpayment},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tx := exitTx(tt.status, 1000)
				assert.ErrorIs(t, tx.RecordPayment(tt.amount, paidAt), tt.wantErr)
				assert.Equal(t, tt.status, tx.Status)
			})
		}
	})
}

func TestTransaction_Cancel(t *testing.T) {
	for _, s := range []transaction.Status{
		transaction.StatusPlanned,
		transaction.StatusConfirmed,
		transaction.StatusOverdue,
	} {
		tx := exitTx(s, 1000)
		require.NoError(t, tx.Cancel(), s)
		assert.Equal(t, transaction.StatusCanceled, tx.Status)
	}

	tx := exitTx(transaction.StatusCanceled, 1000)
	assert.ErrorIs(t, tx.Cancel(), ledger.ErrInvalidTransition)
}

func TestTransaction_Derive(t *testing.T) {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		status      transaction.Status
		now         time.Time
		wantStatus  transaction.Status
		wantChanged bool
		wantDays    int
	}{
		{"DueToday", transaction.StatusConfirmed, due.Add(23 * time.Hour), transaction.StatusConfirmed, false, 0},
		{"NextDay", transaction.StatusConfirmed, due.AddDate(0, 0, 1), transaction.StatusOverdue, true, 1},
		{"PlannedPastDue", transaction.StatusPlanned, due.AddDate(0, 0, 10), transaction.StatusOverdue, true, 10},
		{"PaidStaysPaid", transaction.StatusPaid, due.AddDate(0, 1, 0), transaction.StatusPaid, false, 31},
		{"CanceledStaysCanceled", transaction.StatusCanceled, due.AddDate(0, 1, 0), transaction.StatusCanceled, false, 31},
		{"OverdueLiftedWhenNotPastDue", transaction.StatusOverdue, due, transaction.StatusConfirmed, true, 0},
		{"OverdueStaysWhenPastDue", transaction.StatusOverdue, due.AddDate(0, 0, 3), transaction.StatusOverdue, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := exitTx(tt.status, 1000)
			tx.DueDate = due

			assert.Equal(t, tt.wantChanged, tx.Derive(tt.now))
			assert.Equal(t, tt.wantStatus, tx.Status)
			assert.Equal(t, tt.wantDays, tx.DaysOverdue(tt.now))
		})
	}

	t.Run("PartialKeepsRemaining", func(t *testing.T) {
		tx := exitTx(transaction.StatusPartiallyPaid, 1000)
		tx.RemainingBalance = 400

		assert.True(t, tx.Derive(due.AddDate(0, 0, 2)))
		assert.Equal(t, money.Cents(400), tx.Outstanding())
		assert.Equal(t, money.Cents(600), tx.Settled())
		assert.NoError(t, validation.Validate(tx))
	})

	t.Run("OverduePartialLiftedToPartial", func(t *testing.T) {
		tx := exitTx(transaction.StatusOverdue, 1000)
		tx.DueDate = due
		tx.RemainingBalance = 400

		assert.True(t, tx.Derive(due.AddDate(0, 0, -1)))
		assert.Equal(t, transaction.StatusPartiallyPaid, tx.Status)
		assert.Equal(t, money.Cents(400), tx.Outstanding())
	})
}

func TestTransaction_CrossCheck(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(tx *transaction.Transaction)
		wantField string
	}{
		{"MissingCategory", func(tx *transaction.Transaction) { tx.CategoryID = uuid.Nil }, "categoryID"},
		{"WrongDirection", func(tx *transaction.Transaction) { tx.Direction = transaction.DirectionIn }, "direction"},
		{"ReciprocalOnExit", func(tx *transaction.Transaction) { tx.ReciprocalID = new(uuid.New()) }, "reciprocalID"},
		{"PaidWithoutDate", func(tx *transaction.Transaction) { tx.Status = transaction.StatusPaid }, "paidDate"},
		{"PartialFullRemaining", func(tx *transaction.Transaction) {
			tx.Status = transaction.StatusPartiallyPaid
			tx.RemainingBalance = tx.Amount
		}, "remainingBalance"},
		{"TransferWithoutPair", func(tx *transaction.Transaction) {
			tx.Type = transaction.TypeTransfer
			tx.CategoryID = uuid.Nil
		}, "reciprocalID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := exitTx(transaction.StatusConfirmed, 1000)
			tt.mutate(tx)

			var verr *validation.Error
			require.ErrorAs(t, validation.Validate(tx), &verr)

			fields := make([]string, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				fields = append(fields, f.Field)
			}

			assert.Contains(t, fields, tt.wantField)
		})
	}

	t.Run("AmountBounds", func(t *testing.T) {
		tx := exitTx(transaction.StatusConfirmed, 0)
		assert.ErrorIs(t, validation.Validate(tx), ledger.ErrValidation)

		tx.Amount = validation.MaxAmount + 1
		assert.ErrorIs(t, validation.Validate(tx), ledger.ErrValidation)

		tx.Amount = validation.MaxAmount
		assert.NoError(t, validation.Validate(tx))
	})
}

func TestTransaction_CheckCounterparty(t *testing.T) {
	tx := exitTx(transaction.StatusConfirmed, 1000)
	tx.VendorID = new(uuid.New())
	assert.NoError(t, tx.CheckCounterparty())

	tx.CustomerID = new(uuid.New())
	assert.ErrorIs(t, tx.CheckCounterparty(), ledger.ErrValidation)
}
