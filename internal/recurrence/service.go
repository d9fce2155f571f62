package recurrence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/metrics"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

var ErrNotFound = fmt.Errorf("recurrence %w", ledger.ErrNotFound)

type Repository interface {
	GetRecurrence(ctx context.Context, id uuid.UUID) (*Recurrence, error)
	ListRecurrences(ctx context.Context, filter ListFilter) ([]*Recurrence, error)
	CreateRecurrence(ctx context.Context, r *Recurrence) error

	// BeginRecurrence opens a unit of work on the company that can write both the rule and
	// the transactions it generates.
	BeginRecurrence(ctx context.Context, companyID uuid.UUID) (UnitOfWork, error)
}

type UnitOfWork interface {
	transaction.UnitOfWork
	GetRecurrence(ctx context.Context, id uuid.UUID) (*Recurrence, error)
	// UpdateRecurrence fails with ledger.ErrConflict when r.UpdatedAt is stale.
	UpdateRecurrence(ctx context.Context, r *Recurrence) error
}

// ListFilter selects rules. A nil CompanyID lists every company.
type ListFilter struct {
	CompanyID  *uuid.UUID
	ActiveOnly bool
	DueBy      *time.Time
}

type Service struct {
	repo    Repository
	logger  *slog.Logger
	metrics *metrics.Collector
	retry   ledger.RetryPolicy
}

func NewService(repo Repository, logger *slog.Logger, m *metrics.Collector, retry ledger.RetryPolicy) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{repo: repo, logger: logger, metrics: m, retry: retry}
}

type CreateParams struct {
	CompanyID   uuid.UUID
	Template    Template
	Frequency   Frequency
	StartDate   time.Time
	EndDate     *time.Time
	Occurrences *int
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Recurrence, error) {
	r := &Recurrence{
		ID:             uuid.New(),
		CompanyID:      params.CompanyID,
		Template:       params.Template,
		Frequency:      params.Frequency,
		StartDate:      params.StartDate,
		EndDate:        params.EndDate,
		Occurrences:    params.Occurrences,
		NextGeneration: params.StartDate,
		Active:         true,
	}

	if err := validation.Validate(r); err != nil {
		return nil, err
	}

	if err := s.repo.CreateRecurrence(ctx, r); err != nil {
		return nil, fmt.Errorf("creating recurrence: %w", err)
	}

	return r, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Recurrence, error) {
	return s.repo.GetRecurrence(ctx, id)
}

func (s *Service) List(ctx context.Context, companyID uuid.UUID) ([]*Recurrence, error) {
	return s.repo.ListRecurrences(ctx, ListFilter{CompanyID: &companyID})
}

// Tick generates the rule's occurrences due by asOf and commits them together with the
// advanced watermark.
func (s *Service) Tick(ctx context.Context, id uuid.UUID, asOf time.Time) (TickResult, error) {
	var res TickResult

	err := s.withUnit(ctx, id, func(ctx context.Context, uow UnitOfWork, r *Recurrence) (bool, error) {
		res = Tick(r, asOf)

		if len(res.Transactions) == 0 && !res.Exhausted {
			return false, nil
		}

		for _, tx := range res.Transactions {
			if err := validation.Validate(tx); err != nil {
				return false, err
			}
		}

		if len(res.Transactions) > 0 {
			if err := uow.CreateTransactions(ctx, res.Transactions...); err != nil {
				return false, fmt.Errorf("creating generated transactions: %w", err)
			}
		}

		if err := uow.UpdateRecurrence(ctx, r); err != nil {
			return false, fmt.Errorf("advancing watermark: %w", err)
		}

		return true, nil
	})
	if err != nil {
		return TickResult{}, err
	}

	s.metrics.ObserveGenerated(len(res.Transactions), res.Exhausted)

	if res.Exhausted {
		s.logger.Info("recurrence deactivated",
			"recurrence_id", id,
			"reason", ledger.ErrRecurrenceExhausted.Error(),
			"generated", len(res.Transactions))
	}

	return res, nil
}

// TickDue ticks every active rule due by asOf. Rules that lose an optimistic race are
// retried; a failing rule does not stop the others. It returns how many transactions were
// generated.
func (s *Service) TickDue(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.repo.ListRecurrences(ctx, ListFilter{ActiveOnly: true, DueBy: &asOf})
	if err != nil {
		return 0, fmt.Errorf("listing due recurrences: %w", err)
	}

	var (
		total int
		errs  []error
	)

	for _, r := range due {
		err := ledger.RetryOnConflict(ctx, s.retry, func(ctx context.Context) error {
			res, err := s.Tick(ctx, r.ID, asOf)
			total += len(res.Transactions)

			return err
		})
		if err != nil {
			s.logger.Error("failed to tick recurrence", "recurrence_id", r.ID, "error", err)
			errs = append(errs, fmt.Errorf("recurrence %s: %w", r.ID, err))
		}
	}

	return total, errors.Join(errs...)
}

// Deactivate stops future generation. Transactions already generated are kept.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*Recurrence, error) {
	var out *Recurrence

	err := s.withUnit(ctx, id, func(ctx context.Context, uow UnitOfWork, r *Recurrence) (bool, error) {
		out = r
		if !r.Active {
			return false, nil
		}

		r.Active = false

		if err := uow.UpdateRecurrence(ctx, r); err != nil {
			return false, fmt.Errorf("deactivating recurrence: %w", err)
		}

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// UpdateTemplate changes what future occurrences look like. Generated transactions keep
// their own values.
func (s *Service) UpdateTemplate(ctx context.Context, id uuid.UUID, amount *money.Cents, description *string) (*Recurrence, error) {
	var out *Recurrence

	err := s.withUnit(ctx, id, func(ctx context.Context, uow UnitOfWork, r *Recurrence) (bool, error) {
		if amount != nil {
			r.Template.Amount = *amount
		}

		if description != nil {
			r.Template.Description = *description
		}

		if err := validation.Validate(r); err != nil {
			return false, err
		}

		if err := uow.UpdateRecurrence(ctx, r); err != nil {
			return false, fmt.Errorf("updating recurrence: %w", err)
		}

		out = r

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// withUnit runs fn on a fresh copy of the rule under the company lock. fn reports whether
// it wrote anything; only then is the unit committed.
func (s *Service) withUnit(
	ctx context.Context,
	id uuid.UUID,
	fn func(ctx context.Context, uow UnitOfWork, r *Recurrence) (bool, error),
) error {
	head, err := s.repo.GetRecurrence(ctx, id)
	if err != nil {
		return err
	}

	uow, err := s.repo.BeginRecurrence(ctx, head.CompanyID)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer uow.Rollback()

	r, err := uow.GetRecurrence(ctx, id)
	if err != nil {
		return err
	}

	wrote, err := fn(ctx, uow, r)
	if err != nil {
		return err
	}

	if !wrote {
		return nil
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}
