// Package reference holds the reference data transactions point at: companies, categories,
// vendors and customers. Records are deactivated, never deleted, so history keeps resolving.
package reference

import (
	"time"

	"github.com/google/uuid"
)

type Company struct {
	ID        uuid.UUID
	Name      string `validate:"required,max=150"`
	CNPJ      string `validate:"required,cnpj"`
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CategoryKind says which side of the cash flow a category classifies.
type CategoryKind string

const (
	CategoryIncome  CategoryKind = "income"
	CategoryExpense CategoryKind = "expense"
)

type Category struct {
	ID        uuid.UUID
	CompanyID uuid.UUID    `validate:"required"`
	Name      string       `validate:"required,max=100"`
	Kind      CategoryKind `validate:"oneof=income expense"`
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Role string

const (
	RoleVendor   Role = "vendor"
	RoleCustomer Role = "customer"
)

// Party is a vendor or a customer.
type Party struct {
	ID        uuid.UUID
	CompanyID uuid.UUID `validate:"required"`
	Role      Role      `validate:"oneof=vendor customer"`
	Name      string    `validate:"required,max=150"`
	CnpjCpf   string    `validate:"omitempty,cnpj_cpf"`
	Email     string    `validate:"omitempty,email,max=254"`
	Phone     string    `validate:"max=30"`
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
