package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/account"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
)

func cloneAccount(a *account.Account) *account.Account {
	c := clone(a)
	c.TargetBalance = clonePtr(a.TargetBalance)

	return c
}

func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}

	return cloneAccount(a), nil
}

func (s *Store) ListAccounts(_ context.Context, companyID uuid.UUID) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*account.Account

	for _, a := range s.accounts {
		if a.CompanyID == companyID {
			out = append(out, cloneAccount(a))
		}
	}

	slices.SortFunc(out, func(a, b *account.Account) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.Name, b.Name))
	})

	return out, nil
}

func (s *Store) CreateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID]; exists {
		return fmt.Errorf("account %s already exists", a.ID)
	}

	now := s.stamp()
	a.CreatedAt, a.UpdatedAt = now, now
	s.accounts[a.ID] = cloneAccount(a)

	return nil
}

func (s *Store) UpdateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.accounts[a.ID]
	if !ok {
		return account.ErrNotFound
	}

	if !cur.UpdatedAt.Equal(a.UpdatedAt) {
		return fmt.Errorf("%w: account %s", ledger.ErrConflict, a.ID)
	}

	a.UpdatedAt = s.stamp()
	stored := cloneAccount(a)
	// The balance column is a cache of the opening balance; the live value is recomputed.
	stored.CurrentBalance = cur.CurrentBalance
	s.accounts[a.ID] = stored

	return nil
}
