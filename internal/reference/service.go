package reference

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

var (
	ErrCompanyNotFound  = fmt.Errorf("company %w", ledger.ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ledger.ErrNotFound)
	ErrPartyNotFound    = fmt.Errorf("party %w", ledger.ErrNotFound)
)

type Repository interface {
	GetCompany(ctx context.Context, id uuid.UUID) (*Company, error)
	ListCompanies(ctx context.Context) ([]*Company, error)
	CreateCompany(ctx context.Context, c *Company) error
	UpdateCompany(ctx context.Context, c *Company) error

	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context, companyID uuid.UUID) ([]*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error

	GetParty(ctx context.Context, id uuid.UUID) (*Party, error)
	ListParties(ctx context.Context, companyID uuid.UUID, role Role) ([]*Party, error)
	CreateParty(ctx context.Context, p *Party) error
	UpdateParty(ctx context.Context, p *Party) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateCompany(ctx context.Context, name, cnpj string) (*Company, error) {
	c := &Company{ID: uuid.New(), Name: name, CNPJ: cnpj, Active: true}
	if err := validation.Validate(c); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}

	for _, e := range existing {
		if validation.Digits(e.CNPJ) == validation.Digits(cnpj) {
			return nil, validation.Fail("company", "cnpj", "unique", "is already registered")
		}
	}

	if err := s.repo.CreateCompany(ctx, c); err != nil {
		return nil, fmt.Errorf("creating company: %w", err)
	}

	return c, nil
}

func (s *Service) GetCompany(ctx context.Context, id uuid.UUID) (*Company, error) {
	return s.repo.GetCompany(ctx, id)
}

func (s *Service) ListCompanies(ctx context.Context, includeInactive bool) ([]*Company, error) {
	all, err := s.repo.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}

	return filterActive(all, includeInactive, func(c *Company) bool { return c.Active }), nil
}

func (s *Service) DeactivateCompany(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		return err
	}

	c.Active = false

	return s.repo.UpdateCompany(ctx, c)
}

type CategoryParams struct {
	CompanyID uuid.UUID
	Name      string
	Kind      CategoryKind
}

func (s *Service) CreateCategory(ctx context.Context, params CategoryParams) (*Category, error) {
	c := &Category{
		ID:        uuid.New(),
		CompanyID: params.CompanyID,
		Name:      params.Name,
		Kind:      params.Kind,
		Active:    true,
	}

	if err := validation.Validate(c); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListCategories(ctx, c.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	if duplicate(existing, c.Name, func(e *Category) (string, bool) { return e.Name, e.Active }) {
		return nil, validation.Fail("category", "name", "unique", "already exists")
	}

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	return c, nil
}

func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	return s.repo.GetCategory(ctx, id)
}

// ListCategories returns the company's categories in pt-BR name order.
func (s *Service) ListCategories(ctx context.Context, companyID uuid.UUID, includeInactive bool) ([]*Category, error) {
	all, err := s.repo.ListCategories(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	out := filterActive(all, includeInactive, func(c *Category) bool { return c.Active })
	SortByName(out, func(c *Category) string { return c.Name })

	return out, nil
}

func (s *Service) DeactivateCategory(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return err
	}

	c.Active = false

	return s.repo.UpdateCategory(ctx, c)
}

type PartyParams struct {
	CompanyID uuid.UUID
	Role      Role
	Name      string
	CnpjCpf   string
	Email     string
	Phone     string
}

func (s *Service) CreateParty(ctx context.Context, params PartyParams) (*Party, error) {
	p := &Party{
		ID:        uuid.New(),
		CompanyID: params.CompanyID,
		Role:      params.Role,
		Name:      params.Name,
		CnpjCpf:   params.CnpjCpf,
		Email:     params.Email,
		Phone:     params.Phone,
		Active:    true,
	}

	if err := validation.Validate(p); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListParties(ctx, p.CompanyID, p.Role)
	if err != nil {
		return nil, fmt.Errorf("listing %ss: %w", p.Role, err)
	}

	if duplicate(existing, p.Name, func(e *Party) (string, bool) { return e.Name, e.Active }) {
		return nil, validation.Fail(string(p.Role), "name", "unique", "already exists")
	}

	if err := s.repo.CreateParty(ctx, p); err != nil {
		return nil, fmt.Errorf("creating %s: %w", p.Role, err)
	}

	return p, nil
}

func (s *Service) GetParty(ctx context.Context, id uuid.UUID) (*Party, error) {
	return s.repo.GetParty(ctx, id)
}

func (s *Service) ListParties(ctx context.Context, companyID uuid.UUID, role Role, includeInactive bool) ([]*Party, error) {
	all, err := s.repo.ListParties(ctx, companyID, role)
	if err != nil {
		return nil, fmt.Errorf("listing %ss: %w", role, err)
	}

	out := filterActive(all, includeInactive, func(p *Party) bool { return p.Active })
	SortByName(out, func(p *Party) string { return p.Name })

	return out, nil
}

func (s *Service) DeactivateParty(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.GetParty(ctx, id)
	if err != nil {
		return err
	}

	p.Active = false

	return s.repo.UpdateParty(ctx, p)
}

func duplicate[T any](items []T, name string, key func(T) (string, bool)) bool {
	folded := FoldName(name)

	for _, item := range items {
		n, active := key(item)
		if active && FoldName(n) == folded {
			return true
		}
	}

	return false
}

func filterActive[T any](items []T, includeInactive bool, active func(T) bool) []T {
	if includeInactive {
		return items
	}

	out := make([]T, 0, len(items))

	for _, item := range items {
		if active(item) {
			out = append(out, item)
		}
	}

	return out
}
