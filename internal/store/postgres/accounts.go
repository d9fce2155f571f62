package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/account"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
)

const selectAccountColumns = `
	id, company_id, name, bank, kind, opening_balance, current_balance, target_balance,
	pix_enabled, boleto_enabled, reconciliation_enabled, status, created_at, updated_at
`

func scanAccount(s scanner) (*account.Account, error) {
	var a account.Account

	var kind, status string

	var opening, current int64

	var target sql.NullInt64

	if err := s.Scan(
		&a.ID, &a.CompanyID, &a.Name, &a.Bank, &kind, &opening, &current, &target,
		&a.PixEnabled, &a.BoletoEnabled, &a.ReconciliationEnabled, &status, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}

	a.Kind = account.Kind(kind)
	a.Status = account.Status(status)
	a.OpeningBalance = money.Cents(opening)
	a.CurrentBalance = money.Cents(current)

	if target.Valid {
		a.TargetBalance = new(money.Cents(target.Int64))
	}

	return &a, nil
}

func nullCents(c *money.Cents) sql.NullInt64 {
	if c == nil {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: int64(*c), Valid: true}
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + selectAccountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(s.db.QueryRowContext(ctx, query, id))
	if isNoRows(err) {
		return nil, account.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting account: %w", err)
	}

	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, companyID uuid.UUID) ([]*account.Account, error) {
	query := `SELECT ` + selectAccountColumns + ` FROM accounts WHERE company_id = $1 ORDER BY created_at ASC, name ASC`

	rows, err := s.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var out []*account.Account

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		out = append(out, a)
	}

	return out, rows.Err()
}

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	query := `
		INSERT INTO accounts (
			id, company_id, name, bank, kind, opening_balance, current_balance, target_balance,
			pix_enabled, boleto_enabled, reconciliation_enabled, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7, $8, $9, $10, $11, clock_timestamp(), clock_timestamp())
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		a.ID, a.CompanyID, a.Name, a.Bank, string(a.Kind), int64(a.OpeningBalance), nullCents(a.TargetBalance),
		a.PixEnabled, a.BoletoEnabled, a.ReconciliationEnabled, string(a.Status),
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating account: %w", err)
	}

	return nil
}

// UpdateAccount writes configuration only; the balance columns are left alone.
func (s *Store) UpdateAccount(ctx context.Context, a *account.Account) error {
	query := `
		UPDATE accounts
		SET name = $1, bank = $2, kind = $3, target_balance = $4, pix_enabled = $5, boleto_enabled = $6,
			reconciliation_enabled = $7, status = $8, updated_at = clock_timestamp()
		WHERE id = $9 AND updated_at = $10
		RETURNING updated_at
	`

	var updatedAt time.Time

	err := s.db.QueryRowContext(ctx, query,
		a.Name, a.Bank, string(a.Kind), nullCents(a.TargetBalance), a.PixEnabled, a.BoletoEnabled,
		a.ReconciliationEnabled, string(a.Status), a.ID, a.UpdatedAt,
	).Scan(&updatedAt)
	if isNoRows(err) {
		if _, getErr := s.GetAccount(ctx, a.ID); getErr != nil {
			return getErr
		}

		return fmt.Errorf("%w: account %s", ledger.ErrConflict, a.ID)
	}

	if err != nil {
		return fmt.Errorf("updating account: %w", err)
	}

	a.UpdatedAt = updatedAt

	return nil
}
