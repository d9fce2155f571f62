package validation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

type company struct {
	Name string `validate:"required,max=120"`
	CNPJ string `validate:"cnpj"`
}

type party struct {
	CnpjCpf string `validate:"cnpj_cpf"`
}

type plan struct {
	Month     string `validate:"yearmonth"`
	Threshold int    `validate:"gte=1,lte=100"`
	Amount    int64  `validate:"gt=0,lte=99999999900"`
	Kind      string `validate:"oneof=corrente poupanca investimento"`
}

type window struct {
	From int
	To   int
}

func (w window) CrossCheck() []validation.FieldError {
	if w.To < w.From {
		return []validation.FieldError{{Field: "to", Code: "range", Message: "must not precede from"}}
	}

	return nil
}

func TestValidate_Company(t *testing.T) {
	assert.NoError(t, validation.Validate(company{Name: "Acme", CNPJ: "11.222.333/0001-81"}))

	err := validation.Validate(company{Name: "Acme", CNPJ: "11222333000181"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrValidation))

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "company", verr.Entity)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "cnpj", verr.Fields[0].Field)
	assert.Equal(t, "cnpj", verr.Fields[0].Code)
}

func TestValidate_RepeatedCNPJRejected(t *testing.T) {
	err := validation.Validate(company{Name: "Acme", CNPJ: "11.111.111/1111-11"})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestValidate_Party(t *testing.T) {
	tests := []struct {
		name    string
		taxID   string
		wantErr bool
	}{
		{name: "CPFDigits", taxID: "52998224725"},
		{name: "CPFFormatted", taxID: "529.982.247-25"},
		{name: "CNPJFormatted", taxID: "11.222.333/0001-81"},
		{name: "CNPJDigitsOnly", taxID: "11222333000181", wantErr: true},
		{name: "BadChecksum", taxID: "52998224726", wantErr: true},
		{name: "Empty", taxID: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(party{CnpjCpf: tt.taxID})
			if tt.wantErr {
				assert.ErrorIs(t, err, ledger.ErrValidation)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestValidate_CollectsEveryField(t *testing.T) {
	err := validation.Validate(plan{Month: "2025-13", Threshold: 0, Amount: 0, Kind: "cripto"})

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)

	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Code
	}

	assert.Equal(t, map[string]string{
		"month":     "yearmonth",
		"threshold": "gte",
		"amount":    "gt",
		"kind":      "oneof",
	}, fields)
}

func TestValidate_CrossCheck(t *testing.T) {
	assert.NoError(t, validation.Validate(window{From: 1, To: 2}))

	err := validation.Validate(window{From: 3, To: 2})

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "to", verr.Fields[0].Field)
}

func TestMerge(t *testing.T) {
	assert.NoError(t, validation.Merge("x", nil, nil))

	err := validation.Merge("x",
		validation.Fail("x", "a", "required", "is required"),
		validation.Fail("x", "b", "gt", "must be greater than 0"),
	)

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)

	boom := errors.New("boom")
	assert.Equal(t, boom, validation.Merge("x", boom))
}
