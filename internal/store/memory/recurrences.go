package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/recurrence"
)

func (s *Store) GetRecurrence(_ context.Context, id uuid.UUID) (*recurrence.Recurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recurrences[id]
	if !ok {
		return nil, recurrence.ErrNotFound
	}

	return r.Clone(), nil
}

func (s *Store) ListRecurrences(_ context.Context, filter recurrence.ListFilter) ([]*recurrence.Recurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*recurrence.Recurrence

	for _, r := range s.recurrences {
		switch {
		case filter.CompanyID != nil && r.CompanyID != *filter.CompanyID:
			continue
		case filter.ActiveOnly && !r.Active:
			continue
		case filter.DueBy != nil && r.NextGeneration.After(*filter.DueBy):
			continue
		}

		out = append(out, r.Clone())
	}

	slices.SortFunc(out, func(a, b *recurrence.Recurrence) int {
		return cmp.Or(a.NextGeneration.Compare(b.NextGeneration), a.CreatedAt.Compare(b.CreatedAt))
	})

	return out, nil
}

func (s *Store) CreateRecurrence(_ context.Context, r *recurrence.Recurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.recurrences[r.ID]; exists {
		return fmt.Errorf("recurrence %s already exists", r.ID)
	}

	now := s.stamp()
	r.CreatedAt, r.UpdatedAt = now, now
	s.recurrences[r.ID] = r.Clone()

	return nil
}
