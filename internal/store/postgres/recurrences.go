package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/recurrence"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
)

const selectRecurrenceColumns = `
	id, company_id, account_id, type, category_id, vendor_id, customer_id, description, amount,
	payment_method, frequency, start_date, end_date, occurrences, generated, last_generated,
	next_generation, active, created_at, updated_at
`

func scanRecurrence(s scanner) (*recurrence.Recurrence, error) {
	var r recurrence.Recurrence

	var typ, method, freq string

	var amount int64

	var occurrences sql.NullInt64

	if err := s.Scan(
		&r.ID, &r.CompanyID, &r.Template.AccountID, &typ, &r.Template.CategoryID, &r.Template.VendorID,
		&r.Template.CustomerID, &r.Template.Description, &amount, &method, &freq, &r.StartDate, &r.EndDate,
		&occurrences, &r.Generated, &r.LastGenerated, &r.NextGeneration, &r.Active, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	r.Template.Type = transaction.Type(typ)
	r.Template.PaymentMethod = transaction.PaymentMethod(method)
	r.Template.Amount = money.Cents(amount)
	r.Frequency = recurrence.Frequency(freq)

	if occurrences.Valid {
		n := int(occurrences.Int64)
		r.Occurrences = &n
	}

	return &r, nil
}

func (s *Store) GetRecurrence(ctx context.Context, id uuid.UUID) (*recurrence.Recurrence, error) {
	query := `SELECT ` + selectRecurrenceColumns + ` FROM recurrences WHERE id = $1`

	r, err := scanRecurrence(s.db.QueryRowContext(ctx, query, id))
	if isNoRows(err) {
		return nil, recurrence.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting recurrence: %w", err)
	}

	return r, nil
}

func (s *Store) ListRecurrences(ctx context.Context, filter recurrence.ListFilter) ([]*recurrence.Recurrence, error) {
	w := &where{}

	if filter.CompanyID != nil {
		w.add("company_id = $%d", *filter.CompanyID)
	}

	if filter.ActiveOnly {
		w.addRaw("active")
	}

	if filter.DueBy != nil {
		w.add("next_generation <= $%d", *filter.DueBy)
	}

	query := `SELECT ` + selectRecurrenceColumns + ` FROM recurrences` + w.String() +
		` ORDER BY next_generation ASC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("listing recurrences: %w", err)
	}
	defer rows.Close()

	var out []*recurrence.Recurrence

	for rows.Next() {
		r, err := scanRecurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning recurrence: %w", err)
		}

		out = append(out, r)
	}

	return out, rows.Err()
}

func (s *Store) CreateRecurrence(ctx context.Context, r *recurrence.Recurrence) error {
	query := `
		INSERT INTO recurrences (
			id, company_id, account_id, type, category_id, vendor_id, customer_id, description, amount,
			payment_method, frequency, start_date, end_date, occurrences, generated, last_generated,
			next_generation, active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			clock_timestamp(), clock_timestamp())
		RETURNING created_at, updated_at
	`

	var occurrences sql.NullInt64
	if r.Occurrences != nil {
		occurrences = sql.NullInt64{Int64: int64(*r.Occurrences), Valid: true}
	}

	err := s.db.QueryRowContext(ctx, query,
		r.ID, r.CompanyID, r.Template.AccountID, string(r.Template.Type), r.Template.CategoryID,
		r.Template.VendorID, r.Template.CustomerID, r.Template.Description, int64(r.Template.Amount),
		string(r.Template.PaymentMethod), string(r.Frequency), r.StartDate, r.EndDate, occurrences,
		r.Generated, r.LastGenerated, r.NextGeneration, r.Active,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating recurrence: %w", err)
	}

	return nil
}
