package transaction

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/metrics"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

// ErrNotFound is returned when a transaction does not exist.
var ErrNotFound = fmt.Errorf("transaction %w", ledger.ErrNotFound)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)

	// Begin opens a unit of work holding the company's single-writer lock.
	Begin(ctx context.Context, companyID uuid.UUID) (UnitOfWork, error)
}

// UnitOfWork stages writes that become visible together on Commit.
// UpdateTransactions fails with ledger.ErrConflict when a record's UpdatedAt no longer
// matches the stored one, and stamps the new UpdatedAt on success.
type UnitOfWork interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
	CreateTransactions(ctx context.Context, txs ...*Transaction) error
	UpdateTransactions(ctx context.Context, txs ...*Transaction) error
	DeleteTransactions(ctx context.Context, ids ...uuid.UUID) error
	AddAttachment(ctx context.Context, a *Attachment) error
	Commit() error
	Rollback() error
}

// ListFilter selects transactions by the indexes the ledger reads through.
// CompetenciaFrom is inclusive, CompetenciaTo exclusive.
type ListFilter struct {
	CompanyID       uuid.UUID
	AccountID       *uuid.UUID
	CategoryID      *uuid.UUID
	RecurrenceID    *uuid.UUID
	ReciprocalID    *uuid.UUID
	Statuses        []Status
	CompetenciaFrom *time.Time
	CompetenciaTo   *time.Time
	DueBefore       *time.Time
}

type Service struct {
	repo    Repository
	clock   ledger.Clock
	opts    validation.Options
	metrics *metrics.Collector
}

type Option func(*Service)

func WithClock(c ledger.Clock) Option { return func(s *Service) { s.clock = c } }

func WithValidation(o validation.Options) Option { return func(s *Service) { s.opts = o } }

func WithMetrics(m *metrics.Collector) Option { return func(s *Service) { s.metrics = m } }

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, clock: ledger.SystemClock}
	for _, o := range opts {
		o(s)
	}

	return s
}

// Now exposes the service clock to collaborators that derive status the same way.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

type CreateParams struct {
	CompanyID       uuid.UUID
	AccountID       uuid.UUID
	Type            Type
	CategoryID      uuid.UUID
	VendorID        *uuid.UUID
	CustomerID      *uuid.UUID
	Description     string
	Amount          money.Cents
	PaymentMethod   PaymentMethod
	CompetenciaDate time.Time
	DueDate         time.Time
	Status          Status
}

type PaymentParams struct {
	Amount        money.Cents
	PaidAt        time.Time
	PaymentMethod PaymentMethod
}

// UpdateParams carries the editable fields; nil leaves a field unchanged.
type UpdateParams struct {
	Description     *string
	CategoryID      *uuid.UUID
	VendorID        *uuid.UUID
	CustomerID      *uuid.UUID
	Amount          *money.Cents
	PaymentMethod   *PaymentMethod
	CompetenciaDate *time.Time
	DueDate         *time.Time
}

type AttachmentParams struct {
	FileName    string
	ContentType string
	Size        int64
	URL         string
}

// New builds an unsaved transaction from params. Transfers are rejected: they only exist in pairs.
func New(params CreateParams) (*Transaction, error) {
	if params.Type == TypeTransfer {
		return nil, validation.Fail("transaction", "type", "transfer", "transfers are created in pairs by the transfer service")
	}

	status := params.Status
	if status == "" {
		status = StatusPlanned
	}

	if status != StatusPlanned && status != StatusConfirmed {
		return nil, validation.Fail("transaction", "status", "initial", "must start as planned or confirmed")
	}

	dueDate := params.DueDate
	if dueDate.IsZero() {
		dueDate = params.CompetenciaDate
	}

	tx := &Transaction{
		ID:              uuid.New(),
		CompanyID:       params.CompanyID,
		AccountID:       params.AccountID,
		Type:            params.Type,
		Direction:       DirectionOf(params.Type),
		CategoryID:      params.CategoryID,
		VendorID:        params.VendorID,
		CustomerID:      params.CustomerID,
		Description:     params.Description,
		Amount:          params.Amount,
		PaymentMethod:   params.PaymentMethod,
		CompetenciaDate: params.CompetenciaDate,
		DueDate:         dueDate,
		Status:          status,
	}

	return tx, nil
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	tx, err := New(params)
	if err != nil {
		return nil, err
	}

	if err := s.validate(tx); err != nil {
		return nil, err
	}

	uow, err := s.repo.Begin(ctx, tx.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer uow.Rollback()

	if err := uow.CreateTransactions(ctx, tx); err != nil {
		return nil, fmt.Errorf("creating transaction: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}

	tx.Derive(s.clock.Now())

	return tx, nil
}

// Get returns the transaction with its status derived for the current time.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	tx.Derive(s.clock.Now())

	return tx, nil
}

// List returns matching transactions. Status filters apply to the derived status.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	statuses := filter.Statuses
	filter.Statuses = nil

	txs, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	out := txs[:0]

	for _, tx := range txs {
		tx.Derive(now)

		if len(statuses) > 0 && !slices.Contains(statuses, tx.Status) {
			continue
		}

		out = append(out, tx)
	}

	return out, nil
}

// Confirm moves a planned transaction to confirmed. A non-nil ifUnmodified must equal the
// stored UpdatedAt, otherwise ledger.ErrConflict is returned.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, ifUnmodified *time.Time) (*Transaction, error) {
	return s.withUnit(ctx, id, ifUnmodified, func(ctx context.Context, uow UnitOfWork, tx *Transaction) error {
		from := tx.Status
		if err := tx.Confirm(); err != nil {
			return err
		}

		s.metrics.ObserveTransition(string(from), string(tx.Status))

		return s.save(ctx, uow, tx)
	})
}

// RecordPayment applies a payment. On a transfer leg the same payment settles the reciprocal.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, params PaymentParams, ifUnmodified *time.Time) (*Transaction, error) {
	paidAt := params.PaidAt
	if paidAt.IsZero() {
		paidAt = s.clock.Now()
	}

	return s.withUnit(ctx, id, ifUnmodified, func(ctx context.Context, uow UnitOfWork, tx *Transaction) error {
		legs := []*Transaction{tx}

		if tx.IsTransferLeg() {
			other, err := s.reciprocal(ctx, uow, tx)
			if err != nil {
				return err
			}

			legs = append(legs, other)
		}

		for _, leg := range legs {
			from := leg.Status
			if err := leg.RecordPayment(params.Amount, paidAt); err != nil {
				return err
			}

			if params.PaymentMethod != "" {
				leg.PaymentMethod = params.PaymentMethod
			}

			s.metrics.ObserveTransition(string(from), string(leg.Status))
		}

		return s.save(ctx, uow, legs...)
	})
}

// Cancel cancels the transaction and, for a transfer leg, its reciprocal in the same unit.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, ifUnmodified *time.Time) (*Transaction, error) {
	return s.withUnit(ctx, id, ifUnmodified, func(ctx context.Context, uow UnitOfWork, tx *Transaction) error {
		from := tx.Status
		if err := tx.Cancel(); err != nil {
			return err
		}

		s.metrics.ObserveTransition(string(from), string(tx.Status))

		changed := []*Transaction{tx}

		if tx.IsTransferLeg() {
			other, err := s.reciprocal(ctx, uow, tx)
			if err != nil {
				return err
			}

			if other.Status != StatusCanceled {
				if err := other.Cancel(); err != nil {
					return fmt.Errorf("%w: reciprocal %s: %w", ledger.ErrPairingFailure, other.ID, err)
				}

				changed = append(changed, other)
			}
		}

		return s.save(ctx, uow, changed...)
	})
}

// Delete removes a transaction that never moved cash and was never reconciled.
// Transfer legs are deleted together.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, ifUnmodified *time.Time) error {
	_, err := s.withUnit(ctx, id, ifUnmodified, func(ctx context.Context, uow UnitOfWork, tx *Transaction) error {
		legs := []*Transaction{tx}

		if tx.IsTransferLeg() {
			other, err := s.reciprocal(ctx, uow, tx)
			if err != nil {
				return err
			}

			legs = append(legs, other)
		}

		ids := make([]uuid.UUID, 0, len(legs))

		for _, leg := range legs {
			if err := deletable(leg); err != nil {
				return err
			}

			ids = append(ids, leg.ID)
		}

		if err := uow.DeleteTransactions(ctx, ids...); err != nil {
			return fmt.Errorf("deleting transactions: %w", err)
		}

		return nil
	})

	return err
}

func deletable(tx *Transaction) error {
	if tx.Reconciled || tx.Status == StatusPaid || tx.Settled() > 0 {
		return fmt.Errorf("%w: transaction %s moved cash or was reconciled; cancel it instead",
			ledger.ErrInvalidTransition, tx.ID)
	}

	return nil
}

// Update edits a transaction that has not moved cash yet. Amount and date edits on a transfer
// leg are mirrored on the reciprocal and the pair is re-validated.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams, ifUnmodified *time.Time) (*Transaction, error) {
	return s.withUnit(ctx, id, ifUnmodified, func(ctx context.Context, uow UnitOfWork, tx *Transaction) error {
		if tx.Status.Terminal() || tx.Status == StatusPartiallyPaid || tx.Settled() > 0 || tx.Reconciled {
			return fmt.Errorf("%w: %s transaction cannot be edited", ledger.ErrInvalidTransition, tx.Status)
		}

		var other *Transaction

		if tx.IsTransferLeg() {
			if params.CategoryID != nil || params.VendorID != nil || params.CustomerID != nil {
				return validation.Fail("transaction", "categoryID", "transfer", "transfer legs carry no category or counterparty")
			}

			var err error
			if other, err = s.reciprocal(ctx, uow, tx); err != nil {
				return err
			}
		}

		applyUpdate(tx, params)

		now := s.clock.Now()
		tx.Derive(now)

		if other == nil {
			return s.save(ctx, uow, tx)
		}

		other.Amount = tx.Amount
		other.CompetenciaDate = tx.CompetenciaDate
		other.DueDate = tx.DueDate
		other.Derive(now)

		if params.Description != nil {
			other.Description = tx.Description
		}

		if err := ValidatePair(tx, other); err != nil {
			return err
		}

		return s.save(ctx, uow, tx, other)
	})
}

func applyUpdate(tx *Transaction, p UpdateParams) {
	if p.Description != nil {
		tx.Description = *p.Description
	}

	if p.CategoryID != nil {
		tx.CategoryID = *p.CategoryID
	}

	if p.VendorID != nil {
		tx.VendorID = p.VendorID
	}

	if p.CustomerID != nil {
		tx.CustomerID = p.CustomerID
	}

	if p.Amount != nil {
		tx.Amount = *p.Amount
	}

	if p.PaymentMethod != nil {
		tx.PaymentMethod = *p.PaymentMethod
	}

	if p.CompetenciaDate != nil {
		tx.CompetenciaDate = *p.CompetenciaDate
	}

	if p.DueDate != nil {
		tx.DueDate = *p.DueDate
	}
}

// Attach records document metadata on the transaction.
func (s *Service) Attach(ctx context.Context, id uuid.UUID, params AttachmentParams) (*Attachment, error) {
	a := &Attachment{
		ID:            uuid.New(),
		TransactionID: id,
		FileName:      params.FileName,
		ContentType:   params.ContentType,
		Size:          params.Size,
		URL:           params.URL,
	}

	if err := validation.Validate(a); err != nil {
		return nil, err
	}

	_, err := s.withUnit(ctx, id, nil, func(ctx context.Context, uow UnitOfWork, _ *Transaction) error {
		return uow.AddAttachment(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	return a, nil
}

// SweepOverdue persists the derived overdue status for every past-due transaction of the
// company. It returns how many transactions changed.
func (s *Service) SweepOverdue(ctx context.Context, companyID uuid.UUID) (int, error) {
	now := s.clock.Now()
	today := ledger.Day(now)

	uow, err := s.repo.Begin(ctx, companyID)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer uow.Rollback()

	txs, err := uow.ListTransactions(ctx, ListFilter{
		CompanyID: companyID,
		Statuses:  []Status{StatusPlanned, StatusConfirmed, StatusPartiallyPaid},
		DueBefore: &today,
	})
	if err != nil {
		return 0, fmt.Errorf("listing due transactions: %w", err)
	}

	var changed []*Transaction

	for _, tx := range txs {
		from := tx.Status
		if tx.Derive(now) {
			s.metrics.ObserveTransition(string(from), string(tx.Status))
			changed = append(changed, tx)
		}
	}

	if len(changed) == 0 {
		return 0, nil
	}

	if err := uow.UpdateTransactions(ctx, changed...); err != nil {
		return 0, fmt.Errorf("updating overdue transactions: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("commit sweep: %w", err)
	}

	s.metrics.ObserveSwept(len(changed))

	return len(changed), nil
}

// withUnit loads the transaction inside a unit of work on its company, checks the expected
// version, derives its status and runs fn. The unit commits only when fn succeeds.
func (s *Service) withUnit(
	ctx context.Context,
	id uuid.UUID,
	ifUnmodified *time.Time,
	fn func(ctx context.Context, uow UnitOfWork, tx *Transaction) error,
) (*Transaction, error) {
	head, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	uow, err := s.repo.Begin(ctx, head.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer uow.Rollback()

	tx, err := uow.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	if ifUnmodified != nil && !tx.UpdatedAt.Equal(*ifUnmodified) {
		s.metrics.ObserveConflict("transaction")
		return nil, fmt.Errorf("%w: transaction %s", ledger.ErrConflict, id)
	}

	tx.Derive(s.clock.Now())

	if err := fn(ctx, uow, tx); err != nil {
		if errors.Is(err, ledger.ErrConflict) {
			s.metrics.ObserveConflict("transaction")
		}

		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return tx, nil
}

func (s *Service) save(ctx context.Context, uow UnitOfWork, txs ...*Transaction) error {
	for _, tx := range txs {
		if err := s.validate(tx); err != nil {
			return err
		}
	}

	if err := uow.UpdateTransactions(ctx, txs...); err != nil {
		return fmt.Errorf("updating transactions: %w", err)
	}

	return nil
}

func (s *Service) validate(tx *Transaction) error {
	errs := []error{validation.Validate(tx)}
	if s.opts.StrictCounterparty {
		errs = append(errs, tx.CheckCounterparty())
	}

	return validation.Merge("transaction", errs...)
}
