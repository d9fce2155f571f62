package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/reference"
)

func (s *Store) GetCompany(_ context.Context, id uuid.UUID) (*reference.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.companies[id]
	if !ok {
		return nil, reference.ErrCompanyNotFound
	}

	return clone(c), nil
}

func (s *Store) ListCompanies(_ context.Context) ([]*reference.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*reference.Company, 0, len(s.companies))
	for _, c := range s.companies {
		out = append(out, clone(c))
	}

	slices.SortFunc(out, func(a, b *reference.Company) int { return a.CreatedAt.Compare(b.CreatedAt) })

	return out, nil
}

func (s *Store) CreateCompany(_ context.Context, c *reference.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.stamp()
	c.CreatedAt, c.UpdatedAt = now, now
	s.companies[c.ID] = clone(c)

	return nil
}

func (s *Store) UpdateCompany(_ context.Context, c *reference.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.companies[c.ID]; !ok {
		return reference.ErrCompanyNotFound
	}

	c.UpdatedAt = s.stamp()
	s.companies[c.ID] = clone(c)

	return nil
}

func (s *Store) GetCategory(_ context.Context, id uuid.UUID) (*reference.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, reference.ErrCategoryNotFound
	}

	return clone(c), nil
}

func (s *Store) ListCategories(_ context.Context, companyID uuid.UUID) ([]*reference.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*reference.Category

	for _, c := range s.categories {
		if c.CompanyID == companyID {
			out = append(out, clone(c))
		}
	}

	slices.SortFunc(out, func(a, b *reference.Category) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.Name, b.Name))
	})

	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c *reference.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.stamp()
	c.CreatedAt, c.UpdatedAt = now, now
	s.categories[c.ID] = clone(c)

	return nil
}

func (s *Store) UpdateCategory(_ context.Context, c *reference.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[c.ID]; !ok {
		return reference.ErrCategoryNotFound
	}

	c.UpdatedAt = s.stamp()
	s.categories[c.ID] = clone(c)

	return nil
}

func (s *Store) GetParty(_ context.Context, id uuid.UUID) (*reference.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.parties[id]
	if !ok {
		return nil, reference.ErrPartyNotFound
	}

	return clone(p), nil
}

func (s *Store) ListParties(_ context.Context, companyID uuid.UUID, role reference.Role) ([]*reference.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*reference.Party

	for _, p := range s.parties {
		if p.CompanyID == companyID && p.Role == role {
			out = append(out, clone(p))
		}
	}

	slices.SortFunc(out, func(a, b *reference.Party) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.Name, b.Name))
	})

	return out, nil
}

func (s *Store) CreateParty(_ context.Context, p *reference.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.stamp()
	p.CreatedAt, p.UpdatedAt = now, now
	s.parties[p.ID] = clone(p)

	return nil
}

func (s *Store) UpdateParty(_ context.Context, p *reference.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.parties[p.ID]; !ok {
		return reference.ErrPartyNotFound
	}

	p.UpdatedAt = s.stamp()
	s.parties[p.ID] = clone(p)

	return nil
}
