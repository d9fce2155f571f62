package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/recurrence"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
)

const selectTransactionColumns = `
	t.id, t.company_id, t.account_id, t.type, t.direction, t.category_id, t.vendor_id, t.customer_id,
	t.description, t.amount, t.remaining_balance, t.payment_method, t.competencia_date, t.due_date,
	t.paid_date, t.status, t.reconciled, t.recurrence_id, t.reciprocal_id, t.created_at, t.updated_at
`

// scanTransaction reads a row in selectTransactionColumns order.
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var typ, dir, method, status string

	var categoryID *uuid.UUID

	var amount, remaining int64

	if err := s.Scan(
		&tx.ID, &tx.CompanyID, &tx.AccountID, &typ, &dir, &categoryID, &tx.VendorID, &tx.CustomerID,
		&tx.Description, &amount, &remaining, &method, &tx.CompetenciaDate, &tx.DueDate,
		&tx.PaidDate, &status, &tx.Reconciled, &tx.RecurrenceID, &tx.ReciprocalID, &tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = transaction.Type(typ)
	tx.Direction = transaction.Direction(dir)
	tx.PaymentMethod = transaction.PaymentMethod(method)
	tx.Status = transaction.Status(status)
	tx.Amount = money.Cents(amount)
	tx.RemainingBalance = money.Cents(remaining)

	if categoryID != nil {
		tx.CategoryID = *categoryID
	}

	return &tx, nil
}

func nullableID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}

	return &id
}

func transactionWhere(filter transaction.ListFilter) *where {
	w := &where{}

	if filter.CompanyID != uuid.Nil {
		w.add("t.company_id = $%d", filter.CompanyID)
	}

	if filter.AccountID != nil {
		w.add("t.account_id = $%d", *filter.AccountID)
	}

	if filter.CategoryID != nil {
		w.add("t.category_id = $%d", *filter.CategoryID)
	}

	if filter.RecurrenceID != nil {
		w.add("t.recurrence_id = $%d", *filter.RecurrenceID)
	}

	if filter.ReciprocalID != nil {
		w.add("t.reciprocal_id = $%d", *filter.ReciprocalID)
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}

		w.add("t.status = ANY($%d)", statuses)
	}

	if filter.CompetenciaFrom != nil {
		w.add("t.competencia_date >= $%d", *filter.CompetenciaFrom)
	}

	if filter.CompetenciaTo != nil {
		w.add("t.competencia_date < $%d", *filter.CompetenciaTo)
	}

	if filter.DueBefore != nil {
		w.add("t.due_date < $%d", *filter.DueBefore)
	}

	return w
}

func getTransaction(ctx context.Context, q querier, id uuid.UUID, extra string, args ...any) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions t WHERE t.id = $1` + extra

	tx, err := scanTransaction(q.QueryRowContext(ctx, query, append([]any{id}, args...)...))
	if isNoRows(err) {
		return nil, transaction.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	if err := loadAttachments(ctx, q, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func listTransactions(ctx context.Context, q querier, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	w := transactionWhere(filter)
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions t` + w.String() +
		` ORDER BY t.competencia_date ASC, t.created_at ASC, t.id ASC`

	rows, err := q.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	if err := loadAttachments(ctx, q, txs...); err != nil {
		return nil, err
	}

	return txs, nil
}

func loadAttachments(ctx context.Context, q querier, txs ...*transaction.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(txs))
	byID := make(map[uuid.UUID]*transaction.Transaction, len(txs))

	for i, tx := range txs {
		ids[i] = tx.ID
		byID[tx.ID] = tx
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, transaction_id, file_name, content_type, size, url, created_at
		FROM attachments
		WHERE transaction_id = ANY($1)
		ORDER BY created_at ASC`, ids)
	if err != nil {
		return fmt.Errorf("loading attachments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a transaction.Attachment
		if err := rows.Scan(&a.ID, &a.TransactionID, &a.FileName, &a.ContentType, &a.Size, &a.URL, &a.CreatedAt); err != nil {
			return fmt.Errorf("scanning attachment: %w", err)
		}

		if tx, ok := byID[a.TransactionID]; ok {
			tx.Attachments = append(tx.Attachments, a)
		}
	}

	return rows.Err()
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return getTransaction(ctx, s.db, id, "")
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	return listTransactions(ctx, s.db, filter)
}

func (s *Store) Begin(ctx context.Context, companyID uuid.UUID) (transaction.UnitOfWork, error) {
	return s.begin(ctx, companyID)
}

func (s *Store) BeginRecurrence(ctx context.Context, companyID uuid.UUID) (recurrence.UnitOfWork, error) {
	return s.begin(ctx, companyID)
}

func (s *Store) begin(ctx context.Context, companyID uuid.UUID) (*unit, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning unit of work: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", companyLockKey(companyID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring company lock: %w", err)
	}

	return &unit{tx: dbTx, companyID: companyID}, nil
}

type unit struct {
	tx        *sql.Tx
	companyID uuid.UUID
}

func (u *unit) Commit() error   { return u.tx.Commit() }
func (u *unit) Rollback() error { return u.tx.Rollback() }

func (u *unit) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return getTransaction(ctx, u.tx, id, " AND t.company_id = $2", u.companyID)
}

func (u *unit) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	filter.CompanyID = u.companyID
	return listTransactions(ctx, u.tx, filter)
}

func (u *unit) CreateTransactions(ctx context.Context, txs ...*transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, company_id, account_id, type, direction, category_id, vendor_id, customer_id,
			description, amount, remaining_balance, payment_method, competencia_date, due_date,
			paid_date, status, reconciled, recurrence_id, reciprocal_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			clock_timestamp(), clock_timestamp())
		RETURNING created_at, updated_at
	`

	for _, tx := range txs {
		if tx.CompanyID != u.companyID {
			return fmt.Errorf("transaction %s belongs to another company", tx.ID)
		}

		if tx.ID == uuid.Nil {
			tx.ID = uuid.New()
		}

		err := u.tx.QueryRowContext(ctx, query,
			tx.ID, tx.CompanyID, tx.AccountID, string(tx.Type), string(tx.Direction), nullableID(tx.CategoryID),
			tx.VendorID, tx.CustomerID, tx.Description, int64(tx.Amount), int64(tx.RemainingBalance),
			string(tx.PaymentMethod), tx.CompetenciaDate, tx.DueDate, tx.PaidDate, string(tx.Status),
			tx.Reconciled, tx.RecurrenceID, tx.ReciprocalID,
		).Scan(&tx.CreatedAt, &tx.UpdatedAt)
		if err != nil {
			return fmt.Errorf("creating transaction: %w", err)
		}
	}

	return nil
}

// UpdateTransactions writes each transaction only if its stored updated_at still matches.
func (u *unit) UpdateTransactions(ctx context.Context, txs ...*transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET category_id = $1, vendor_id = $2, customer_id = $3, description = $4, amount = $5,
			remaining_balance = $6, payment_method = $7, competencia_date = $8, due_date = $9,
			paid_date = $10, status = $11, reconciled = $12, updated_at = clock_timestamp()
		WHERE id = $13 AND company_id = $14 AND updated_at = $15
		RETURNING updated_at
	`

	for _, tx := range txs {
		var updatedAt time.Time

		err := u.tx.QueryRowContext(ctx, query,
			nullableID(tx.CategoryID), tx.VendorID, tx.CustomerID, tx.Description, int64(tx.Amount),
			int64(tx.RemainingBalance), string(tx.PaymentMethod), tx.CompetenciaDate, tx.DueDate,
			tx.PaidDate, string(tx.Status), tx.Reconciled,
			tx.ID, u.companyID, tx.UpdatedAt,
		).Scan(&updatedAt)
		if isNoRows(err) {
			return u.missOrConflict(ctx, "transactions", tx.ID, transaction.ErrNotFound)
		}

		if err != nil {
			return fmt.Errorf("updating transaction: %w", err)
		}

		tx.UpdatedAt = updatedAt
	}

	return nil
}

// missOrConflict tells a vanished row from a stale version after a guarded write hit nothing.
func (u *unit) missOrConflict(ctx context.Context, table string, id uuid.UUID, notFound error) error {
	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM ` + table + ` WHERE id = $1 AND company_id = $2)`
	if err := u.tx.QueryRowContext(ctx, query, id, u.companyID).Scan(&exists); err != nil {
		return fmt.Errorf("checking %s %s: %w", table, id, err)
	}

	if !exists {
		return notFound
	}

	return fmt.Errorf("%w: %s %s", ledger.ErrConflict, table, id)
}

func (u *unit) DeleteTransactions(ctx context.Context, ids ...uuid.UUID) error {
	for _, id := range ids {
		res, err := u.tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1 AND company_id = $2`, id, u.companyID)
		if err != nil {
			return fmt.Errorf("deleting transaction: %w", err)
		}

		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return transaction.ErrNotFound
		}
	}

	return nil
}

func (u *unit) AddAttachment(ctx context.Context, a *transaction.Attachment) error {
	if _, err := u.GetTransaction(ctx, a.TransactionID); err != nil {
		return err
	}

	err := u.tx.QueryRowContext(ctx, `
		INSERT INTO attachments (id, transaction_id, file_name, content_type, size, url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, clock_timestamp())
		RETURNING created_at`,
		a.ID, a.TransactionID, a.FileName, a.ContentType, a.Size, a.URL,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("adding attachment: %w", err)
	}

	return nil
}

func (u *unit) GetRecurrence(ctx context.Context, id uuid.UUID) (*recurrence.Recurrence, error) {
	query := `SELECT ` + selectRecurrenceColumns + ` FROM recurrences WHERE id = $1 AND company_id = $2`

	r, err := scanRecurrence(u.tx.QueryRowContext(ctx, query, id, u.companyID))
	if isNoRows(err) {
		return nil, recurrence.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting recurrence: %w", err)
	}

	return r, nil
}

func (u *unit) UpdateRecurrence(ctx context.Context, r *recurrence.Recurrence) error {
	query := `
		UPDATE recurrences
		SET description = $1, amount = $2, end_date = $3, occurrences = $4, generated = $5,
			last_generated = $6, next_generation = $7, active = $8, updated_at = clock_timestamp()
		WHERE id = $9 AND company_id = $10 AND updated_at = $11
		RETURNING updated_at
	`

	var occurrences sql.NullInt64
	if r.Occurrences != nil {
		occurrences = sql.NullInt64{Int64: int64(*r.Occurrences), Valid: true}
	}

	var updatedAt time.Time

	err := u.tx.QueryRowContext(ctx, query,
		r.Template.Description, int64(r.Template.Amount), r.EndDate, occurrences, r.Generated,
		r.LastGenerated, r.NextGeneration, r.Active,
		r.ID, u.companyID, r.UpdatedAt,
	).Scan(&updatedAt)
	if isNoRows(err) {
		return u.missOrConflict(ctx, "recurrences", r.ID, recurrence.ErrNotFound)
	}

	if err != nil {
		return fmt.Errorf("updating recurrence: %w", err)
	}

	r.UpdatedAt = updatedAt

	return nil
}
