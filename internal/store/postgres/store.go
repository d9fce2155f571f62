// Package postgres implements the ledger repositories on PostgreSQL through database/sql
// and the pgx driver.
//
// A unit of work is one SQL transaction holding a transaction-scoped advisory lock on the
// company, so writers of a company are serialized while readers are not blocked.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/account"
	"github.com/MrJamesThe3rd/fluxo/internal/alert"
	"github.com/MrJamesThe3rd/fluxo/internal/budget"
	"github.com/MrJamesThe3rd/fluxo/internal/recurrence"
	"github.com/MrJamesThe3rd/fluxo/internal/reference"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
)

var (
	_ transaction.Repository = (*Store)(nil)
	_ recurrence.Repository  = (*Store)(nil)
	_ account.Repository     = (*Store)(nil)
	_ reference.Repository   = (*Store)(nil)
	_ budget.Repository      = (*Store)(nil)
	_ alert.Repository       = (*Store)(nil)
	_ recurrence.UnitOfWork  = (*unit)(nil)
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// companyLockKey maps a company to the advisory lock its writers share.
func companyLockKey(companyID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("company"))
	h.Write([]byte{0})
	h.Write(companyID[:])

	return int64(h.Sum64())
}

// where accumulates AND-ed conditions with numbered placeholders.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) addRaw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}

	return " WHERE " + strings.Join(w.conds, " AND ")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
