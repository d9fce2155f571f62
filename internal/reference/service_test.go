package reference_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/reference"
	"github.com/MrJamesThe3rd/fluxo/internal/store/memory"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

func TestService_CreateCompany(t *testing.T) {
	ctx := context.Background()
	svc := reference.NewService(memory.New(nil))

	c, err := svc.CreateCompany(ctx, "Padaria Central", "11.222.333/0001-81")
	require.NoError(t, err)
	assert.True(t, c.Active)

	tests := []struct {
		name  string
		cnpj  string
		field string
		code  string
	}{
		{name: "Duplicate", cnpj: "11.222.333/0001-81", field: "cnpj", code: "unique"},
		{name: "Unformatted", cnpj: "11222333000181", field: "cnpj", code: "cnpj"},
		{name: "BadCheckDigit", cnpj: "11222333000182", field: "cnpj", code: "cnpj"},
		{name: "Missing", cnpj: "", field: "cnpj", code: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateCompany(ctx, "Outra", tt.cnpj)
			require.ErrorIs(t, err, ledger.ErrValidation)

			var verr *validation.Error
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Fields)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
			assert.Equal(t, tt.code, verr.Fields[0].Code)
		})
	}

	require.NoError(t, svc.DeactivateCompany(ctx, c.ID))

	got, err := svc.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestService_Categories(t *testing.T) {
	ctx := context.Background()
	svc := reference.NewService(memory.New(nil))
	companyID := uuid.New()

	for _, name := range []string{"Energia", "Água", "aluguel"} {
		_, err := svc.CreateCategory(ctx, reference.CategoryParams{CompanyID: companyID, Name: name, Kind: reference.CategoryExpense})
		require.NoError(t, err)
	}

	_, err := svc.CreateCategory(ctx, reference.CategoryParams{CompanyID: companyID, Name: "  AGUA ", Kind: reference.CategoryExpense})
	assert.ErrorIs(t, err, ledger.ErrValidation, "accent and case insensitive duplicate")

	// Another company may reuse the name.
	_, err = svc.CreateCategory(ctx, reference.CategoryParams{CompanyID: uuid.New(), Name: "Água", Kind: reference.CategoryExpense})
	require.NoError(t, err)

	list, err := svc.ListCategories(ctx, companyID, false)
	require.NoError(t, err)

	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Name
	}

	assert.Equal(t, []string{"Água", "aluguel", "Energia"}, names)

	require.NoError(t, svc.DeactivateCategory(ctx, list[0].ID))

	active, err := svc.ListCategories(ctx, companyID, false)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	all, err := svc.ListCategories(ctx, companyID, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// The deactivated name is free again.
	_, err = svc.CreateCategory(ctx, reference.CategoryParams{CompanyID: companyID, Name: "Agua", Kind: reference.CategoryExpense})
	require.NoError(t, err)
}

func TestService_Parties(t *testing.T) {
	ctx := context.Background()
	svc := reference.NewService(memory.New(nil))
	companyID := uuid.New()

	tests := []struct {
		name    string
		params  reference.PartyParams
		wantErr bool
	}{
		{
			name:   "VendorWithCNPJ",
			params: reference.PartyParams{Role: reference.RoleVendor, Name: "Fornecedor", CnpjCpf: "11.222.333/0001-81"},
		},
		{
			name:   "CustomerWithCPF",
			params: reference.PartyParams{Role: reference.RoleCustomer, Name: "Fornecedor", CnpjCpf: "529.982.247-25"},
		},
		{
			name:    "DuplicateVendor",
			params:  reference.PartyParams{Role: reference.RoleVendor, Name: "fornecedor"},
			wantErr: true,
		},
		{
			name:    "BadTaxID",
			params:  reference.PartyParams{Role: reference.RoleVendor, Name: "X", CnpjCpf: "123"},
			wantErr: true,
		},
		{
			name:    "BadEmail",
			params:  reference.PartyParams{Role: reference.RoleCustomer, Name: "Y", Email: "nope"},
			wantErr: true,
		},
		{
			name:    "UnknownRole",
			params:  reference.PartyParams{Role: "partner", Name: "Z"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.params.CompanyID = companyID

			p, err := svc.CreateParty(ctx, tt.params)
			if tt.wantErr {
				assert.ErrorIs(t, err, ledger.ErrValidation)
				return
			}

			require.NoError(t, err)

			got, err := svc.GetParty(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.params.Role, got.Role)
		})
	}

	vendors, err := svc.ListParties(ctx, companyID, reference.RoleVendor, false)
	require.NoError(t, err)
	assert.Len(t, vendors, 1)

	_, err = svc.GetParty(ctx, uuid.New())
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestFoldName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Água", want: "agua"},
		{in: "  CONTAS   a Pagar ", want: "contas a pagar"},
		{in: "Manutenção", want: "manutencao"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, reference.FoldName(tt.in))
		})
	}
}
