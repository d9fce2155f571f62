// Package transfer moves money between two accounts of the same company as a pair of
// linked transaction legs that are created, paid, edited and canceled together.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/account"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/metrics"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

type AccountGetter interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

type Service struct {
	repo     transaction.Repository
	txs      *transaction.Service
	accounts AccountGetter
	metrics  *metrics.Collector
}

func NewService(repo transaction.Repository, txs *transaction.Service, accounts AccountGetter, m *metrics.Collector) *Service {
	return &Service{repo: repo, txs: txs, accounts: accounts, metrics: m}
}

type Params struct {
	CompanyID       uuid.UUID
	SourceAccountID uuid.UUID
	DestAccountID   uuid.UUID
	Amount          money.Cents
	Date            time.Time
	DueDate         time.Time
	Description     string
	Confirmed       bool
}

// Pair is a transfer seen from its two legs.
type Pair struct {
	ID    uuid.UUID
	Exit  *transaction.Transaction
	Entry *transaction.Transaction
}

// Create books the exit leg on the source account and the entry leg on the destination
// account in one unit of work. Either both legs are committed or neither is.
func (s *Service) Create(ctx context.Context, params Params) (*Pair, error) {
	if err := s.checkAccounts(ctx, params); err != nil {
		return nil, err
	}

	pair := Build(params)

	if err := transaction.ValidatePair(pair.Exit, pair.Entry); err != nil {
		return nil, err
	}

	if err := validation.Merge("transfer", validation.Validate(pair.Exit), validation.Validate(pair.Entry)); err != nil {
		return nil, err
	}

	uow, err := s.repo.Begin(ctx, params.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer uow.Rollback()

	if err := uow.CreateTransactions(ctx, pair.Exit, pair.Entry); err != nil {
		return nil, fmt.Errorf("%w: creating legs: %w", ledger.ErrPairingFailure, err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ledger.ErrPairingFailure, err)
	}

	s.metrics.ObserveTransfer()

	return pair, nil
}

// Build returns the two unsaved legs of a transfer sharing a fresh pair id.
func Build(params Params) *Pair {
	pairID := uuid.New()

	status := transaction.StatusPlanned
	if params.Confirmed {
		status = transaction.StatusConfirmed
	}

	due := params.DueDate
	if due.IsZero() {
		due = params.Date
	}

	leg := func(accountID uuid.UUID, dir transaction.Direction) *transaction.Transaction {
		return &transaction.Transaction{
			ID:              uuid.New(),
			CompanyID:       params.CompanyID,
			AccountID:       accountID,
			Type:            transaction.TypeTransfer,
			Direction:       dir,
			Description:     params.Description,
			Amount:          params.Amount,
			PaymentMethod:   transaction.MethodTED,
			CompetenciaDate: params.Date,
			DueDate:         due,
			Status:          status,
			ReciprocalID:    &pairID,
		}
	}

	return &Pair{
		ID:    pairID,
		Exit:  leg(params.SourceAccountID, transaction.DirectionOut),
		Entry: leg(params.DestAccountID, transaction.DirectionIn),
	}
}

func (s *Service) checkAccounts(ctx context.Context, params Params) error {
	if params.SourceAccountID == params.DestAccountID {
		return validation.Fail("transfer", "destAccountID", "distinct", "must differ from the source account")
	}

	var errs []error

	sides := []struct {
		field string
		id    uuid.UUID
	}{
		{"sourceAccountID", params.SourceAccountID},
		{"destAccountID", params.DestAccountID},
	}

	for _, side := range sides {
		field, id := side.field, side.id

		a, err := s.accounts.GetAccount(ctx, id)
		if errors.Is(err, ledger.ErrNotFound) {
			errs = append(errs, validation.Fail("transfer", field, "exists", "account does not exist"))
			continue
		}

		if err != nil {
			return fmt.Errorf("loading account %s: %w", id, err)
		}

		switch {
		case a.CompanyID != params.CompanyID:
			errs = append(errs, validation.Fail("transfer", field, "company", "belongs to another company"))
		case !a.Usable():
			errs = append(errs, validation.Fail("transfer", field, "status", "account is "+string(a.Status)))
		}
	}

	return validation.Merge("transfer", errs...)
}

// Get returns both legs of the transfer that leg id belongs to.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Pair, error) {
	leg, err := s.txs.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !leg.IsTransferLeg() {
		return nil, fmt.Errorf("transfer %w", ledger.ErrNotFound)
	}

	other, err := transaction.Reciprocal(ctx, s.repo, leg, s.txs.Now())
	if err != nil {
		return nil, err
	}

	return pairOf(leg, other), nil
}

// Cancel cancels both legs.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, ifUnmodified *time.Time) (*Pair, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	if _, err := s.txs.Cancel(ctx, id, ifUnmodified); err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// UpdateAmount changes the amount of both legs and re-validates the pair.
func (s *Service) UpdateAmount(ctx context.Context, id uuid.UUID, amount money.Cents, ifUnmodified *time.Time) (*Pair, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	if _, err := s.txs.Update(ctx, id, transaction.UpdateParams{Amount: &amount}, ifUnmodified); err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Problem is a broken transfer found by Verify.
type Problem struct {
	PairID uuid.UUID   `json:"pairId"`
	LegIDs []uuid.UUID `json:"legIds"`
	Reason string      `json:"reason"`
}

// Verify audits every transfer leg of the company and reports pairs that break the
// transfer invariant.
func (s *Service) Verify(ctx context.Context, companyID uuid.UUID) ([]Problem, error) {
	txs, err := s.repo.ListTransactions(ctx, transaction.ListFilter{CompanyID: companyID})
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	groups := make(map[uuid.UUID][]*transaction.Transaction)

	var order []uuid.UUID

	var problems []Problem

	for _, tx := range txs {
		if !tx.IsTransferLeg() {
			continue
		}

		if tx.ReciprocalID == nil {
			problems = append(problems, Problem{LegIDs: []uuid.UUID{tx.ID}, Reason: "missing reciprocal id"})
			continue
		}

		if _, seen := groups[*tx.ReciprocalID]; !seen {
			order = append(order, *tx.ReciprocalID)
		}

		groups[*tx.ReciprocalID] = append(groups[*tx.ReciprocalID], tx)
	}

	for _, pairID := range order {
		legs := groups[pairID]

		ids := make([]uuid.UUID, len(legs))
		for i, leg := range legs {
			ids[i] = leg.ID
		}

		if len(legs) != 2 {
			problems = append(problems, Problem{PairID: pairID, LegIDs: ids, Reason: fmt.Sprintf("%d legs", len(legs))})
			continue
		}

		if err := transaction.ValidatePair(legs[0], legs[1]); err != nil {
			problems = append(problems, Problem{PairID: pairID, LegIDs: ids, Reason: err.Error()})
		}
	}

	return problems, nil
}

func pairOf(a, b *transaction.Transaction) *Pair {
	p := &Pair{ID: *a.ReciprocalID, Exit: a, Entry: b}
	if a.Direction == transaction.DirectionIn {
		p.Exit, p.Entry = b, a
	}

	return p
}
