package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fluxo/internal/money"
)

func TestParseBRL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    money.Cents
		wantErr bool
	}{
		{name: "ThousandsAndDecimals", in: "1.234,56", want: 123456},
		{name: "Negative", in: "-588,74", want: -58874},
		{name: "Symbol", in: "R$ 10,00", want: 1000},
		{name: "Integer", in: "10", want: 1000},
		{name: "Rounding", in: "0,005", want: 1},
		{name: "Empty", in: "  ", wantErr: true},
		{name: "Garbage", in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := money.ParseBRL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCents_String(t *testing.T) {
	s := money.Cents(123456).String()

	assert.Contains(t, s, "R$")
	assert.Contains(t, s, "1.234,56")
}

func TestCents_Decimal(t *testing.T) {
	assert.Equal(t, "1234.56", money.Cents(123456).Decimal().String())
	assert.Equal(t, money.Cents(500), money.FromReais(5))
	assert.Equal(t, money.Cents(700), money.Sum(200, 500))
	assert.Equal(t, money.Cents(30), money.Cents(-30).Abs())
}
