// Package memory is an in-process implementation of every ledger repository.
//
// Writers of one company are serialized by a per-company lock taken in Begin; readers never
// block on it and only ever see committed state. Records are cloned at the boundary so
// callers cannot mutate stored state without going through a unit of work.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/account"
	"github.com/MrJamesThe3rd/fluxo/internal/alert"
	"github.com/MrJamesThe3rd/fluxo/internal/budget"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
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
	_ recurrence.UnitOfWork  = (*Unit)(nil)
)

type Store struct {
	mu    sync.RWMutex
	clock ledger.Clock
	last  time.Time

	transactions map[uuid.UUID]*transaction.Transaction
	recurrences  map[uuid.UUID]*recurrence.Recurrence
	accounts     map[uuid.UUID]*account.Account
	companies    map[uuid.UUID]*reference.Company
	categories   map[uuid.UUID]*reference.Category
	parties      map[uuid.UUID]*reference.Party
	budgets      map[uuid.UUID]*budget.Budget
	alerts       map[uuid.UUID]*alert.Alert
	alertKeys    map[alert.Key]uuid.UUID

	locks companyLocks
}

func New(clock ledger.Clock) *Store {
	if clock == nil {
		clock = ledger.SystemClock
	}

	return &Store{
		clock:        clock,
		transactions: make(map[uuid.UUID]*transaction.Transaction),
		recurrences:  make(map[uuid.UUID]*recurrence.Recurrence),
		accounts:     make(map[uuid.UUID]*account.Account),
		companies:    make(map[uuid.UUID]*reference.Company),
		categories:   make(map[uuid.UUID]*reference.Category),
		parties:      make(map[uuid.UUID]*reference.Party),
		budgets:      make(map[uuid.UUID]*budget.Budget),
		alerts:       make(map[uuid.UUID]*alert.Alert),
		alertKeys:    make(map[alert.Key]uuid.UUID),
		locks:        companyLocks{held: make(map[uuid.UUID]chan struct{})},
	}
}

// stamp returns a timestamp strictly after every previous one. Callers hold s.mu.
func (s *Store) stamp() time.Time {
	t := s.clock.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}

	s.last = t

	return t
}

// companyLocks is a set of one-slot semaphores keyed by company.
type companyLocks struct {
	mu   sync.Mutex
	held map[uuid.UUID]chan struct{}
}

func (l *companyLocks) acquire(ctx context.Context, companyID uuid.UUID) (func(), error) {
	l.mu.Lock()
	sem, ok := l.held[companyID]
	if !ok {
		sem = make(chan struct{}, 1)
		l.held[companyID] = sem
	}
	l.mu.Unlock()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once

	return func() { once.Do(func() { <-sem }) }, nil
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}

	return clone(p)
}
