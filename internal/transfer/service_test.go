package transfer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/fluxo/internal/account"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/store/memory"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
	"github.com/MrJamesThe3rd/fluxo/internal/transfer"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

var today = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store     *memory.Store
	accounts  *account.Service
	txs       *transaction.Service
	transfers *transfer.Service
	companyID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := memory.New(ledger.FixedClock(today))
	txs := transaction.NewService(s, transaction.WithClock(ledger.FixedClock(today)))

	return &fixture{
		store:     s,
		accounts:  account.NewService(s, s),
		txs:       txs,
		transfers: transfer.NewService(s, txs, s, nil),
		companyID: uuid.New(),
	}
}

func (f *fixture) account(t *testing.T, companyID uuid.UUID, opening money.Cents) *account.Account {
	t.Helper()

	a, err := f.accounts.Create(context.Background(), account.CreateParams{
		CompanyID:      companyID,
		Name:           "Conta " + uuid.NewString()[:8],
		Kind:           account.KindCorrente,
		OpeningBalance: opening,
	})
	require.NoError(t, err)

	return a
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.account(t, f.companyID, 100000)
	dst := f.account(t, f.companyID, 0)

	pair, err := f.transfers.Create(ctx, transfer.Params{
		CompanyID:       f.companyID,
		SourceAccountID: src.ID,
		DestAccountID:   dst.ID,
		Amount:          50000,
		Date:            today,
		Description:     "Reserva",
	})
	require.NoError(t, err)

	assert.Equal(t, src.ID, pair.Exit.AccountID)
	assert.Equal(t, transaction.DirectionOut, pair.Exit.Direction)
	assert.Equal(t, dst.ID, pair.Entry.AccountID)
	assert.Equal(t, transaction.DirectionIn, pair.Entry.Direction)
	assert.Equal(t, pair.ID, *pair.Exit.ReciprocalID)
	assert.Equal(t, pair.ID, *pair.Entry.ReciprocalID)
	assert.Equal(t, transaction.StatusPlanned, pair.Exit.Status)

	got, err := f.transfers.Get(ctx, pair.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, pair.Exit.ID, got.Exit.ID)
	assert.Equal(t, pair.Entry.ID, got.Entry.ID)

	problems, err := f.transfers.Verify(ctx, f.companyID)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestService_CreateRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.account(t, f.companyID, 0)
	dst := f.account(t, f.companyID, 0)
	foreign := f.account(t, uuid.New(), 0)
	inactive := f.account(t, f.companyID, 0)

	_, err := f.accounts.Deactivate(ctx, inactive.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		params transfer.Params
		field  string
	}{
		{name: "SameAccount", params: transfer.Params{SourceAccountID: src.ID, DestAccountID: src.ID, Amount: 100}, field: "destAccountID"},
		{name: "UnknownAccount", params: transfer.Params{SourceAccountID: uuid.New(), DestAccountID: dst.ID, Amount: 100}, field: "sourceAccountID"},
		{name: "OtherCompany", params: transfer.Params{SourceAccountID: src.ID, DestAccountID: foreign.ID, Amount: 100}, field: "destAccountID"},
		{name: "InactiveAccount", params: transfer.Params{SourceAccountID: inactive.ID, DestAccountID: dst.ID, Amount: 100}, field: "sourceAccountID"},
		{name: "ZeroAmount", params: transfer.Params{SourceAccountID: src.ID, DestAccountID: dst.ID}, field: "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.params.CompanyID = f.companyID
			tt.params.Date = today

			_, err := f.transfers.Create(ctx, tt.params)
			require.ErrorIs(t, err, ledger.ErrValidation)

			var verr *validation.Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}

	txs, err := f.store.ListTransactions(ctx, transaction.ListFilter{CompanyID: f.companyID})
	require.NoError(t, err)
	assert.Empty(t, txs, "no leg is stored when creation fails")
}

// entryFailingStore stages the exit leg normally and fails on the entry leg.
type entryFailingStore struct {
	*memory.Store
	rolledBack bool
	committed  bool
}

func (s *entryFailingStore) Begin(ctx context.Context, companyID uuid.UUID) (transaction.UnitOfWork, error) {
	uow, err := s.Store.Begin(ctx, companyID)
	if err != nil {
		return nil, err
	}

	return &entryFailingUnit{UnitOfWork: uow, store: s}, nil
}

type entryFailingUnit struct {
	transaction.UnitOfWork
	store *entryFailingStore
}

func (u *entryFailingUnit) CreateTransactions(ctx context.Context, txs ...*transaction.Transaction) error {
	for _, tx := range txs {
		if tx.Direction == transaction.DirectionIn {
			return errors.New("inserting entry leg: connection reset")
		}

		if err := u.UnitOfWork.CreateTransactions(ctx, tx); err != nil {
			return err
		}
	}

	return nil
}

func (u *entryFailingUnit) Commit() error {
	u.store.committed = true
	return u.UnitOfWork.Commit()
}

func (u *entryFailingUnit) Rollback() error {
	u.store.rolledBack = true
	return u.UnitOfWork.Rollback()
}

func TestService_CreateRollsBackBothLegs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.account(t, f.companyID, 100000)
	dst := f.account(t, f.companyID, 0)

	failing := &entryFailingStore{Store: f.store}
	svc := transfer.NewService(failing, f.txs, f.store, nil)

	_, err := svc.Create(ctx, transfer.Params{
		CompanyID:       f.companyID,
		SourceAccountID: src.ID,
		DestAccountID:   dst.ID,
		Amount:          50000,
		Date:            today,
	})
	require.ErrorIs(t, err, ledger.ErrPairingFailure)

	assert.True(t, failing.rolledBack)
	assert.False(t, failing.committed)

	txs, err := f.store.ListTransactions(ctx, transaction.ListFilter{CompanyID: f.companyID})
	require.NoError(t, err)
	assert.Empty(t, txs, "the staged exit leg is discarded with the failed entry leg")

	balance, err := f.accounts.Get(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(100000), balance.CurrentBalance)
}

func TestService_CreateCommitFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t)
	src := f.account(t, f.companyID, 0)
	dst := f.account(t, f.companyID, 0)

	repo := transaction.NewMockRepository(ctrl)
	uow := transaction.NewMockUnitOfWork(ctrl)

	repo.EXPECT().Begin(gomock.Any(), f.companyID).Return(uow, nil)
	uow.EXPECT().
		CreateTransactions(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, txs ...*transaction.Transaction) error {
			require.Len(t, txs, 2)
			return nil
		})
	uow.EXPECT().Commit().Return(errors.New("serialization failure"))
	uow.EXPECT().Rollback().Return(nil)

	_, err := transfer.NewService(repo, f.txs, f.store, nil).Create(context.Background(), transfer.Params{
		CompanyID:       f.companyID,
		SourceAccountID: src.ID,
		DestAccountID:   dst.ID,
		Amount:          100,
		Date:            today,
	})
	assert.ErrorIs(t, err, ledger.ErrPairingFailure)
}

func TestService_PaymentSettlesBothLegs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.account(t, f.companyID, 100000)
	dst := f.account(t, f.companyID, 0)

	pair, err := f.transfers.Create(ctx, transfer.Params{
		CompanyID:       f.companyID,
		SourceAccountID: src.ID,
		DestAccountID:   dst.ID,
		Amount:          40000,
		Date:            today,
		Confirmed:       true,
	})
	require.NoError(t, err)

	_, err = f.txs.RecordPayment(ctx, pair.Exit.ID, transaction.PaymentParams{Amount: 40000, PaidAt: today}, nil)
	require.NoError(t, err)

	got, err := f.transfers.Get(ctx, pair.Exit.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusPaid, got.Exit.Status)
	assert.Equal(t, transaction.StatusPaid, got.Entry.Status)

	srcNow, err := f.accounts.Get(ctx, src.ID)
	require.NoError(t, err)
	dstNow, err := f.accounts.Get(ctx, dst.ID)
	require.NoError(t, err)

	assert.Equal(t, money.Cents(60000), srcNow.CurrentBalance)
	assert.Equal(t, money.Cents(40000), dstNow.CurrentBalance)
	assert.Equal(t, src.OpeningBalance+dst.OpeningBalance, srcNow.CurrentBalance+dstNow.CurrentBalance)

	_, err = f.transfers.Cancel(ctx, pair.Exit.ID, nil)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition, "paid transfers cannot be canceled")
}

func TestService_CancelCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.account(t, f.companyID, 0)
	dst := f.account(t, f.companyID, 0)

	pair, err := f.transfers.Create(ctx, transfer.Params{
		CompanyID:       f.companyID,
		SourceAccountID: src.ID,
		DestAccountID:   dst.ID,
		Amount:          1500,
		Date:            today,
	})
	require.NoError(t, err)

	got, err := f.transfers.Cancel(ctx, pair.Entry.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCanceled, got.Exit.Status)
	assert.Equal(t, transaction.StatusCanceled, got.Entry.Status)
}

func TestService_UpdateAmountMirrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.account(t, f.companyID, 0)
	dst := f.account(t, f.companyID, 0)

	pair, err := f.transfers.Create(ctx, transfer.Params{
		CompanyID:       f.companyID,
		SourceAccountID: src.ID,
		DestAccountID:   dst.ID,
		Amount:          1500,
		Date:            today,
	})
	require.NoError(t, err)

	got, err := f.transfers.UpdateAmount(ctx, pair.Exit.ID, 2500, nil)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(2500), got.Exit.Amount)
	assert.Equal(t, money.Cents(2500), got.Entry.Amount)

	// A stale version of the exit leg loses.
	_, err = f.transfers.UpdateAmount(ctx, pair.Exit.ID, 3000, &pair.Exit.UpdatedAt)
	assert.ErrorIs(t, err, ledger.ErrConflict)
}

func TestService_DeleteRemovesBothLegs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.account(t, f.companyID, 0)
	dst := f.account(t, f.companyID, 0)

	pair, err := f.transfers.Create(ctx, transfer.Params{
		CompanyID:       f.companyID,
		SourceAccountID: src.ID,
		DestAccountID:   dst.ID,
		Amount:          1500,
		Date:            today,
	})
	require.NoError(t, err)

	require.NoError(t, f.txs.Delete(ctx, pair.Exit.ID, nil))

	_, err = f.txs.Get(ctx, pair.Entry.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestService_VerifyReportsOrphan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.account(t, f.companyID, 0)
	dst := f.account(t, f.companyID, 0)

	pair := transfer.Build(transfer.Params{
		CompanyID:       f.companyID,
		SourceAccountID: src.ID,
		DestAccountID:   dst.ID,
		Amount:          700,
		Date:            today,
	})

	// Store only one leg, bypassing the service.
	uow, err := f.store.Begin(ctx, f.companyID)
	require.NoError(t, err)
	require.NoError(t, uow.CreateTransactions(ctx, pair.Exit))
	require.NoError(t, uow.Commit())

	problems, err := f.transfers.Verify(ctx, f.companyID)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, pair.ID, problems[0].PairID)
	assert.Equal(t, "1 legs", problems[0].Reason)

	_, err = f.transfers.Get(ctx, pair.Exit.ID)
	assert.ErrorIs(t, err, ledger.ErrPairingFailure)
}
