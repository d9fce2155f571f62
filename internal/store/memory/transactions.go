package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/recurrence"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
)

func (s *Store) GetTransaction(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, transaction.ErrNotFound
	}

	return tx.Clone(), nil
}

func (s *Store) ListTransactions(_ context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*transaction.Transaction

	for _, tx := range s.transactions {
		if matchTransaction(tx, filter) {
			out = append(out, tx.Clone())
		}
	}

	sortTransactions(out)

	return out, nil
}

func (s *Store) Begin(ctx context.Context, companyID uuid.UUID) (transaction.UnitOfWork, error) {
	return s.begin(ctx, companyID)
}

func (s *Store) BeginRecurrence(ctx context.Context, companyID uuid.UUID) (recurrence.UnitOfWork, error) {
	return s.begin(ctx, companyID)
}

func (s *Store) begin(ctx context.Context, companyID uuid.UUID) (*Unit, error) {
	release, err := s.locks.acquire(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("acquiring company lock: %w", err)
	}

	return &Unit{
		store:       s,
		companyID:   companyID,
		release:     release,
		txs:         make(map[uuid.UUID]*transaction.Transaction),
		deleted:     make(map[uuid.UUID]bool),
		recurrences: make(map[uuid.UUID]*recurrence.Recurrence),
	}, nil
}

var errUnitClosed = errors.New("unit of work already finished")

// Unit stages writes for one company. Nothing is visible to other readers before Commit.
type Unit struct {
	store       *Store
	companyID   uuid.UUID
	release     func()
	txs         map[uuid.UUID]*transaction.Transaction
	deleted     map[uuid.UUID]bool
	recurrences map[uuid.UUID]*recurrence.Recurrence
	attachments []*transaction.Attachment
	done        bool
}

// current returns the transaction as seen from inside the unit.
func (u *Unit) current(id uuid.UUID) (*transaction.Transaction, bool) {
	if u.deleted[id] {
		return nil, false
	}

	if tx, ok := u.txs[id]; ok {
		return tx, true
	}

	u.store.mu.RLock()
	defer u.store.mu.RUnlock()

	tx, ok := u.store.transactions[id]
	if !ok || tx.CompanyID != u.companyID {
		return nil, false
	}

	return tx, true
}

func (u *Unit) GetTransaction(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	if u.done {
		return nil, errUnitClosed
	}

	tx, ok := u.current(id)
	if !ok {
		return nil, transaction.ErrNotFound
	}

	return tx.Clone(), nil
}

func (u *Unit) ListTransactions(_ context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	if u.done {
		return nil, errUnitClosed
	}

	filter.CompanyID = u.companyID

	u.store.mu.RLock()
	seen := make(map[uuid.UUID]bool, len(u.txs))

	var out []*transaction.Transaction

	for id, tx := range u.store.transactions {
		if u.deleted[id] {
			continue
		}

		if staged, ok := u.txs[id]; ok {
			tx = staged
			seen[id] = true
		}

		if matchTransaction(tx, filter) {
			out = append(out, tx.Clone())
		}
	}
	u.store.mu.RUnlock()

	for id, tx := range u.txs {
		if !seen[id] && matchTransaction(tx, filter) {
			out = append(out, tx.Clone())
		}
	}

	sortTransactions(out)

	return out, nil
}

func (u *Unit) CreateTransactions(_ context.Context, txs ...*transaction.Transaction) error {
	if u.done {
		return errUnitClosed
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	for _, tx := range txs {
		if tx.CompanyID != u.companyID {
			return fmt.Errorf("transaction %s belongs to another company", tx.ID)
		}

		if tx.ID == uuid.Nil {
			tx.ID = uuid.New()
		}

		if _, exists := u.store.transactions[tx.ID]; exists {
			return fmt.Errorf("transaction %s already exists", tx.ID)
		}

		if _, exists := u.txs[tx.ID]; exists {
			return fmt.Errorf("transaction %s already exists", tx.ID)
		}

		now := u.store.stamp()
		tx.CreatedAt = now
		tx.UpdatedAt = now

		u.txs[tx.ID] = tx.Clone()
	}

	return nil
}

func (u *Unit) UpdateTransactions(_ context.Context, txs ...*transaction.Transaction) error {
	if u.done {
		return errUnitClosed
	}

	for _, tx := range txs {
		cur, ok := u.current(tx.ID)
		if !ok {
			return transaction.ErrNotFound
		}

		if !cur.UpdatedAt.Equal(tx.UpdatedAt) {
			return fmt.Errorf("%w: transaction %s", ledger.ErrConflict, tx.ID)
		}
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	for _, tx := range txs {
		tx.UpdatedAt = u.store.stamp()
		u.txs[tx.ID] = tx.Clone()
	}

	return nil
}

func (u *Unit) DeleteTransactions(_ context.Context, ids ...uuid.UUID) error {
	if u.done {
		return errUnitClosed
	}

	for _, id := range ids {
		if _, ok := u.current(id); !ok {
			return transaction.ErrNotFound
		}
	}

	for _, id := range ids {
		delete(u.txs, id)
		u.deleted[id] = true
	}

	return nil
}

func (u *Unit) AddAttachment(_ context.Context, a *transaction.Attachment) error {
	if u.done {
		return errUnitClosed
	}

	if _, ok := u.current(a.TransactionID); !ok {
		return transaction.ErrNotFound
	}

	u.store.mu.Lock()
	a.CreatedAt = u.store.stamp()
	u.store.mu.Unlock()

	u.attachments = append(u.attachments, clone(a))

	return nil
}

func (u *Unit) GetRecurrence(_ context.Context, id uuid.UUID) (*recurrence.Recurrence, error) {
	if u.done {
		return nil, errUnitClosed
	}

	if r, ok := u.recurrences[id]; ok {
		return r.Clone(), nil
	}

	u.store.mu.RLock()
	defer u.store.mu.RUnlock()

	r, ok := u.store.recurrences[id]
	if !ok || r.CompanyID != u.companyID {
		return nil, recurrence.ErrNotFound
	}

	return r.Clone(), nil
}

func (u *Unit) UpdateRecurrence(ctx context.Context, r *recurrence.Recurrence) error {
	cur, err := u.GetRecurrence(ctx, r.ID)
	if err != nil {
		return err
	}

	if !cur.UpdatedAt.Equal(r.UpdatedAt) {
		return fmt.Errorf("%w: recurrence %s", ledger.ErrConflict, r.ID)
	}

	u.store.mu.Lock()
	r.UpdatedAt = u.store.stamp()
	u.store.mu.Unlock()

	u.recurrences[r.ID] = r.Clone()

	return nil
}

// Commit publishes every staged write at once and releases the company lock.
func (u *Unit) Commit() error {
	if u.done {
		return errUnitClosed
	}

	u.done = true
	defer u.release()

	s := u.store

	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range u.deleted {
		delete(s.transactions, id)
	}

	for id, tx := range u.txs {
		s.transactions[id] = tx
	}

	for _, a := range u.attachments {
		if tx, ok := s.transactions[a.TransactionID]; ok {
			tx.Attachments = append(tx.Attachments, *a)
		}
	}

	for id, r := range u.recurrences {
		s.recurrences[id] = r
	}

	return nil
}

// Rollback drops staged writes. It is a no-op after Commit.
func (u *Unit) Rollback() error {
	if u.done {
		return nil
	}

	u.done = true
	u.release()

	return nil
}

func matchTransaction(tx *transaction.Transaction, f transaction.ListFilter) bool {
	switch {
	case f.CompanyID != uuid.Nil && tx.CompanyID != f.CompanyID:
		return false
	case f.AccountID != nil && tx.AccountID != *f.AccountID:
		return false
	case f.CategoryID != nil && tx.CategoryID != *f.CategoryID:
		return false
	case f.RecurrenceID != nil && (tx.RecurrenceID == nil || *tx.RecurrenceID != *f.RecurrenceID):
		return false
	case f.ReciprocalID != nil && (tx.ReciprocalID == nil || *tx.ReciprocalID != *f.ReciprocalID):
		return false
	case len(f.Statuses) > 0 && !slices.Contains(f.Statuses, tx.Status):
		return false
	case f.CompetenciaFrom != nil && tx.CompetenciaDate.Before(*f.CompetenciaFrom):
		return false
	case f.CompetenciaTo != nil && !tx.CompetenciaDate.Before(*f.CompetenciaTo):
		return false
	case f.DueBefore != nil && !tx.DueDate.Before(*f.DueBefore):
		return false
	}

	return true
}

func sortTransactions(txs []*transaction.Transaction) {
	slices.SortFunc(txs, func(a, b *transaction.Transaction) int {
		return cmp.Or(
			a.CompetenciaDate.Compare(b.CompetenciaDate),
			a.CreatedAt.Compare(b.CreatedAt),
			slices.Compare(a.ID[:], b.ID[:]),
		)
	})
}
