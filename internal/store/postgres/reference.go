package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/reference"
)

func (s *Store) GetCompany(ctx context.Context, id uuid.UUID) (*reference.Company, error) {
	var c reference.Company

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, cnpj, active, created_at, updated_at FROM companies WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.CNPJ, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if isNoRows(err) {
		return nil, reference.ErrCompanyNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting company: %w", err)
	}

	return &c, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]*reference.Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, cnpj, active, created_at, updated_at FROM companies ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}
	defer rows.Close()

	var out []*reference.Company

	for rows.Next() {
		var c reference.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CNPJ, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning company: %w", err)
		}

		out = append(out, &c)
	}

	return out, rows.Err()
}

func (s *Store) CreateCompany(ctx context.Context, c *reference.Company) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO companies (id, name, cnpj, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, clock_timestamp(), clock_timestamp())
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.CNPJ, c.Active,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: company %s already registered", ledger.ErrConflict, c.CNPJ)
	}

	if err != nil {
		return fmt.Errorf("creating company: %w", err)
	}

	return nil
}

func (s *Store) UpdateCompany(ctx context.Context, c *reference.Company) error {
	err := s.db.QueryRowContext(ctx, `
		UPDATE companies SET name = $1, active = $2, updated_at = clock_timestamp()
		WHERE id = $3
		RETURNING updated_at`,
		c.Name, c.Active, c.ID,
	).Scan(&c.UpdatedAt)
	if isNoRows(err) {
		return reference.ErrCompanyNotFound
	}

	if err != nil {
		return fmt.Errorf("updating company: %w", err)
	}

	return nil
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (*reference.Category, error) {
	var (
		c    reference.Category
		kind string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, name, kind, active, created_at, updated_at FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.CompanyID, &c.Name, &kind, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if isNoRows(err) {
		return nil, reference.ErrCategoryNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}

	c.Kind = reference.CategoryKind(kind)

	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context, companyID uuid.UUID) ([]*reference.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, name, kind, active, created_at, updated_at
		FROM categories WHERE company_id = $1 ORDER BY created_at ASC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var out []*reference.Category

	for rows.Next() {
		var (
			c    reference.Category
			kind string
		)

		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &kind, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}

		c.Kind = reference.CategoryKind(kind)
		out = append(out, &c)
	}

	return out, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, c *reference.Category) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (id, company_id, name, kind, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, clock_timestamp(), clock_timestamp())
		RETURNING created_at, updated_at`,
		c.ID, c.CompanyID, c.Name, string(c.Kind), c.Active,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating category: %w", err)
	}

	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *reference.Category) error {
	err := s.db.QueryRowContext(ctx, `
		UPDATE categories SET name = $1, kind = $2, active = $3, updated_at = clock_timestamp()
		WHERE id = $4
		RETURNING updated_at`,
		c.Name, string(c.Kind), c.Active, c.ID,
	).Scan(&c.UpdatedAt)
	if isNoRows(err) {
		return reference.ErrCategoryNotFound
	}

	if err != nil {
		return fmt.Errorf("updating category: %w", err)
	}

	return nil
}

const selectPartyColumns = `id, company_id, role, name, cnpj_cpf, email, phone, active, created_at, updated_at`

func scanParty(s scanner) (*reference.Party, error) {
	var (
		p    reference.Party
		role string
	)

	if err := s.Scan(&p.ID, &p.CompanyID, &role, &p.Name, &p.CnpjCpf, &p.Email, &p.Phone, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	p.Role = reference.Role(role)

	return &p, nil
}

func (s *Store) GetParty(ctx context.Context, id uuid.UUID) (*reference.Party, error) {
	p, err := scanParty(s.db.QueryRowContext(ctx, `SELECT `+selectPartyColumns+` FROM parties WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, reference.ErrPartyNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("getting party: %w", err)
	}

	return p, nil
}

func (s *Store) ListParties(ctx context.Context, companyID uuid.UUID, role reference.Role) ([]*reference.Party, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectPartyColumns+` FROM parties WHERE company_id = $1 AND role = $2 ORDER BY created_at ASC`,
		companyID, string(role))
	if err != nil {
		return nil, fmt.Errorf("listing parties: %w", err)
	}
	defer rows.Close()

	var out []*reference.Party

	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning party: %w", err)
		}

		out = append(out, p)
	}

	return out, rows.Err()
}

func (s *Store) CreateParty(ctx context.Context, p *reference.Party) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO parties (id, company_id, role, name, cnpj_cpf, email, phone, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, clock_timestamp(), clock_timestamp())
		RETURNING created_at, updated_at`,
		p.ID, p.CompanyID, string(p.Role), p.Name, p.CnpjCpf, p.Email, p.Phone, p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating party: %w", err)
	}

	return nil
}

func (s *Store) UpdateParty(ctx context.Context, p *reference.Party) error {
	err := s.db.QueryRowContext(ctx, `
		UPDATE parties SET name = $1, cnpj_cpf = $2, email = $3, phone = $4, active = $5, updated_at = clock_timestamp()
		WHERE id = $6
		RETURNING updated_at`,
		p.Name, p.CnpjCpf, p.Email, p.Phone, p.Active, p.ID,
	).Scan(&p.UpdatedAt)
	if isNoRows(err) {
		return reference.ErrPartyNotFound
	}

	if err != nil {
		return fmt.Errorf("updating party: %w", err)
	}

	return nil
}
