package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/fluxo/internal/budget"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
)

const selectBudgetColumns = `id, company_id, category_id, month, amount_planned, alert_threshold, created_at, updated_at`

func scanBudget(s scanner) (*budget.Budget, error) {
	var b budget.Budget

	var planned int64

	if err := s.Scan(&b.ID, &b.CompanyID, &b.CategoryID, &b.Month, &planned, &b.AlertThreshold, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}

	b.AmountPlanned = money.Cents(planned)

	return &b, nil
}

func (s *Store) GetBudget(ctx context.Context, id uuid.UUID) (*budget.Budget, error) {
	b, err := scanBudget(s.db.QueryRowContext(ctx, `SELECT `+selectBudgetColumns+` FROM budgets WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, budget.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting budget: %w", err)
	}

	return b, nil
}

func (s *Store) ListBudgets(ctx context.Context, filter budget.ListFilter) ([]*budget.Budget, error) {
	w := &where{}
	w.add("company_id = $%d", filter.CompanyID)

	if filter.CategoryID != nil {
		w.add("category_id = $%d", *filter.CategoryID)
	}

	if filter.Month != "" {
		w.add("month = $%d", filter.Month)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+selectBudgetColumns+` FROM budgets`+w.String()+` ORDER BY month ASC, created_at ASC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("listing budgets: %w", err)
	}
	defer rows.Close()

	var out []*budget.Budget

	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning budget: %w", err)
		}

		out = append(out, b)
	}

	return out, rows.Err()
}

// uniqueViolation is the SQLSTATE of a unique constraint failure.
const uniqueViolation = "23505"

func (s *Store) CreateBudget(ctx context.Context, b *budget.Budget) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO budgets (id, company_id, category_id, month, amount_planned, alert_threshold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, clock_timestamp(), clock_timestamp())
		RETURNING created_at, updated_at`,
		b.ID, b.CompanyID, b.CategoryID, b.Month, int64(b.AmountPlanned), b.AlertThreshold,
	).Scan(&b.CreatedAt, &b.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: budget for category %s in %s already exists", ledger.ErrConflict, b.CategoryID, b.Month)
	}

	if err != nil {
		return fmt.Errorf("creating budget: %w", err)
	}

	return nil
}

func (s *Store) UpdateBudget(ctx context.Context, b *budget.Budget) error {
	var updatedAt time.Time

	err := s.db.QueryRowContext(ctx, `
		UPDATE budgets
		SET amount_planned = $1, alert_threshold = $2, updated_at = clock_timestamp()
		WHERE id = $3 AND updated_at = $4
		RETURNING updated_at`,
		int64(b.AmountPlanned), b.AlertThreshold, b.ID, b.UpdatedAt,
	).Scan(&updatedAt)
	if isNoRows(err) {
		if _, getErr := s.GetBudget(ctx, b.ID); getErr != nil {
			return getErr
		}

		return fmt.Errorf("%w: budget %s", ledger.ErrConflict, b.ID)
	}

	if err != nil {
		return fmt.Errorf("updating budget: %w", err)
	}

	b.UpdatedAt = updatedAt

	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting budget: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return budget.ErrNotFound
	}

	return nil
}
