package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/alert"
)

func (s *Store) GetAlert(_ context.Context, id uuid.UUID) (*alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, alert.ErrNotFound
	}

	return clone(a), nil
}

func (s *Store) ListAlerts(_ context.Context, filter alert.ListFilter) ([]*alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*alert.Alert

	for _, a := range s.alerts {
		if a.CompanyID != filter.CompanyID || (filter.UnreadOnly && a.Read) {
			continue
		}

		out = append(out, clone(a))
	}

	slices.SortFunc(out, func(a, b *alert.Alert) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.Type, b.Type), slices.Compare(a.EntityID[:], b.EntityID[:]))
	})

	return out, nil
}

// CreateAlerts inserts the alerts whose (type, entity, period) key is new.
func (s *Store) CreateAlerts(_ context.Context, alerts ...*alert.Alert) ([]*alert.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var created []*alert.Alert

	for _, a := range alerts {
		if _, exists := s.alertKeys[a.Key()]; exists {
			continue
		}

		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}

		s.alerts[a.ID] = clone(a)
		s.alertKeys[a.Key()] = a.ID
		created = append(created, a)
	}

	return created, nil
}

func (s *Store) MarkAlertRead(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[id]
	if !ok {
		return alert.ErrNotFound
	}

	a.Read = true

	return nil
}
