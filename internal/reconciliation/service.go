// Package reconciliation matches bank statement lines against settled ledger transactions.
package reconciliation

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/account"
	"github.com/MrJamesThe3rd/fluxo/internal/metrics"
	"github.com/MrJamesThe3rd/fluxo/internal/statement"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

type AccountGetter interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

type Options struct {
	// DateWindow is how many days a statement date may be away from the paid date.
	DateWindow int
}

var DefaultOptions = Options{DateWindow: 3}

type Match struct {
	Line          statement.Line `json:"line"`
	TransactionID uuid.UUID      `json:"transactionId"`
}

type Result struct {
	Matched   []Match          `json:"matched"`
	Unmatched []statement.Line `json:"unmatched"`
}

type Service struct {
	repo     transaction.Repository
	accounts AccountGetter
	opts     Options
	metrics  *metrics.Collector
}

func NewService(repo transaction.Repository, accounts AccountGetter, opts Options, m *metrics.Collector) *Service {
	return &Service{repo: repo, accounts: accounts, opts: opts, metrics: m}
}

// ReconcileStatement parses a statement file and reconciles it against the account.
func (s *Service) ReconcileStatement(ctx context.Context, accountID uuid.UUID, r io.Reader) (*Result, error) {
	lines, err := statement.Parse(r)
	if err != nil {
		return nil, validation.Fail("statement", "file", "format", err.Error())
	}

	return s.Reconcile(ctx, accountID, lines)
}

// Reconcile marks as reconciled each paid, unreconciled transaction of the account that
// matches a line by amount, direction and date window. Each transaction matches at most one
// line; the closest date wins. All flags are written in one unit of work.
func (s *Service) Reconcile(ctx context.Context, accountID uuid.UUID, lines []statement.Line) (*Result, error) {
	a, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if !a.ReconciliationEnabled {
		return nil, validation.Fail("account", "reconciliationEnabled", "enabled", "reconciliation is disabled for this account")
	}

	uow, err := s.repo.Begin(ctx, a.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer uow.Rollback()

	txs, err := uow.ListTransactions(ctx, transaction.ListFilter{
		CompanyID: a.CompanyID,
		AccountID: &a.ID,
		Statuses:  []transaction.Status{transaction.StatusPaid},
	})
	if err != nil {
		return nil, fmt.Errorf("listing paid transactions: %w", err)
	}

	res, matched := MatchLines(txs, lines, s.opts)

	if len(matched) > 0 {
		if err := uow.UpdateTransactions(ctx, matched...); err != nil {
			return nil, fmt.Errorf("flagging reconciled transactions: %w", err)
		}

		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
	}

	s.metrics.ObserveReconciliation(len(res.Matched), len(res.Unmatched))

	return res, nil
}

// MatchLines pairs lines with candidate transactions and sets Reconciled on the matched ones,
// which it returns alongside the result.
func MatchLines(txs []*transaction.Transaction, lines []statement.Line, opts Options) (*Result, []*transaction.Transaction) {
	var candidates []*transaction.Transaction

	for _, tx := range txs {
		if tx.Status == transaction.StatusPaid && !tx.Reconciled {
			candidates = append(candidates, tx)
		}
	}

	// Deterministic order: earliest paid first.
	slices.SortStableFunc(candidates, func(a, b *transaction.Transaction) int {
		return settledAt(a).Compare(settledAt(b))
	})

	res := &Result{}
	used := make(map[uuid.UUID]bool)

	var matched []*transaction.Transaction

	window := time.Duration(opts.DateWindow) * 24 * time.Hour

	for _, line := range lines {
		var (
			best     *transaction.Transaction
			bestDist time.Duration
		)

		for _, tx := range candidates {
			if used[tx.ID] || tx.Amount != line.Amount || tx.Direction != line.Direction {
				continue
			}

			dist := settledAt(tx).Sub(line.Date).Abs()
			if dist > window {
				continue
			}

			if best == nil || dist < bestDist {
				best, bestDist = tx, dist
			}
		}

		if best == nil {
			res.Unmatched = append(res.Unmatched, line)
			continue
		}

		used[best.ID] = true
		best.Reconciled = true
		matched = append(matched, best)
		res.Matched = append(res.Matched, Match{Line: line, TransactionID: best.ID})
	}

	return res, matched
}

func settledAt(tx *transaction.Transaction) time.Time {
	if tx.PaidDate != nil {
		return dateOnly(*tx.PaidDate)
	}

	return dateOnly(tx.DueDate)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
