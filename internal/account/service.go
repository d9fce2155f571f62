package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

var ErrNotFound = fmt.Errorf("account %w", ledger.ErrNotFound)

type Repository interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	ListAccounts(ctx context.Context, companyID uuid.UUID) ([]*Account, error)
	CreateAccount(ctx context.Context, a *Account) error
	// UpdateAccount fails with ledger.ErrConflict when a.UpdatedAt is stale.
	UpdateAccount(ctx context.Context, a *Account) error
}

type Service struct {
	repo Repository
	txs  transaction.Lister
}

func NewService(repo Repository, txs transaction.Lister) *Service {
	return &Service{repo: repo, txs: txs}
}

type CreateParams struct {
	CompanyID             uuid.UUID
	Name                  string
	Bank                  string
	Kind                  Kind
	OpeningBalance        money.Cents
	TargetBalance         *money.Cents
	PixEnabled            bool
	BoletoEnabled         bool
	ReconciliationEnabled bool
}

// UpdateParams carries configuration changes; nil leaves a field unchanged.
type UpdateParams struct {
	Name                  *string
	Bank                  *string
	Kind                  *Kind
	TargetBalance         *money.Cents
	ClearTarget           bool
	PixEnabled            *bool
	BoletoEnabled         *bool
	ReconciliationEnabled *bool
	Status                *Status
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Account, error) {
	a := &Account{
		ID:                    uuid.New(),
		CompanyID:             params.CompanyID,
		Name:                  params.Name,
		Bank:                  params.Bank,
		Kind:                  params.Kind,
		OpeningBalance:        params.OpeningBalance,
		CurrentBalance:        params.OpeningBalance,
		TargetBalance:         params.TargetBalance,
		PixEnabled:            params.PixEnabled,
		BoletoEnabled:         params.BoletoEnabled,
		ReconciliationEnabled: params.ReconciliationEnabled,
		Status:                StatusActive,
	}

	if err := validation.Validate(a); err != nil {
		return nil, err
	}

	if err := s.repo.CreateAccount(ctx, a); err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}

	return a, nil
}

// Get returns the account with its balance recomputed from its transactions.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	a, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.refresh(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}

// List returns the company's accounts with recomputed balances.
func (s *Service) List(ctx context.Context, companyID uuid.UUID) ([]*Account, error) {
	accounts, err := s.repo.ListAccounts(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	txs, err := s.txs.ListTransactions(ctx, transaction.ListFilter{CompanyID: companyID})
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	for _, a := range accounts {
		a.CurrentBalance = Balance(a, txs)
	}

	return accounts, nil
}

// Update applies a configuration change. The balance is never written here.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams, ifUnmodified *time.Time) (*Account, error) {
	a, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if ifUnmodified != nil && !a.UpdatedAt.Equal(*ifUnmodified) {
		return nil, fmt.Errorf("%w: account %s", ledger.ErrConflict, id)
	}

	applyUpdate(a, params)

	if err := validation.Validate(a); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateAccount(ctx, a); err != nil {
		return nil, fmt.Errorf("updating account: %w", err)
	}

	if err := s.refresh(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}

// Deactivate marks the account inactive. Accounts are never hard deleted.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.Update(ctx, id, UpdateParams{Status: new(StatusInactive)}, nil)
}

func (s *Service) refresh(ctx context.Context, a *Account) error {
	txs, err := s.txs.ListTransactions(ctx, transaction.ListFilter{CompanyID: a.CompanyID, AccountID: &a.ID})
	if err != nil {
		return fmt.Errorf("listing transactions: %w", err)
	}

	a.CurrentBalance = Balance(a, txs)

	return nil
}

func applyUpdate(a *Account, p UpdateParams) {
	if p.Name != nil {
		a.Name = *p.Name
	}

	if p.Bank != nil {
		a.Bank = *p.Bank
	}

	if p.Kind != nil {
		a.Kind = *p.Kind
	}

	if p.TargetBalance != nil {
		a.TargetBalance = p.TargetBalance
	}

	if p.ClearTarget {
		a.TargetBalance = nil
	}

	if p.PixEnabled != nil {
		a.PixEnabled = *p.PixEnabled
	}

	if p.BoletoEnabled != nil {
		a.BoletoEnabled = *p.BoletoEnabled
	}

	if p.ReconciliationEnabled != nil {
		a.ReconciliationEnabled = *p.ReconciliationEnabled
	}

	if p.Status != nil {
		a.Status = *p.Status
	}
}
