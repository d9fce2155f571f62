package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/budget"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
)

func (s *Store) GetBudget(_ context.Context, id uuid.UUID) (*budget.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.budgets[id]
	if !ok {
		return nil, budget.ErrNotFound
	}

	return clone(b), nil
}

func (s *Store) ListBudgets(_ context.Context, filter budget.ListFilter) ([]*budget.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*budget.Budget

	for _, b := range s.budgets {
		switch {
		case b.CompanyID != filter.CompanyID:
			continue
		case filter.CategoryID != nil && b.CategoryID != *filter.CategoryID:
			continue
		case filter.Month != "" && b.Month != filter.Month:
			continue
		}

		out = append(out, clone(b))
	}

	slices.SortFunc(out, func(a, b *budget.Budget) int {
		return cmp.Or(cmp.Compare(a.Month, b.Month), a.CreatedAt.Compare(b.CreatedAt))
	})

	return out, nil
}

func (s *Store) CreateBudget(_ context.Context, b *budget.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.budgets {
		if e.CompanyID == b.CompanyID && e.CategoryID == b.CategoryID && e.Month == b.Month {
			return fmt.Errorf("%w: budget for category %s in %s already exists", ledger.ErrConflict, b.CategoryID, b.Month)
		}
	}

	now := s.stamp()
	b.CreatedAt, b.UpdatedAt = now, now
	s.budgets[b.ID] = clone(b)

	return nil
}

func (s *Store) UpdateBudget(_ context.Context, b *budget.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.budgets[b.ID]
	if !ok {
		return budget.ErrNotFound
	}

	if !cur.UpdatedAt.Equal(b.UpdatedAt) {
		return fmt.Errorf("%w: budget %s", ledger.ErrConflict, b.ID)
	}

	b.UpdatedAt = s.stamp()
	s.budgets[b.ID] = clone(b)

	return nil
}

func (s *Store) DeleteBudget(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.budgets[id]; !ok {
		return budget.ErrNotFound
	}

	delete(s.budgets, id)

	return nil
}
