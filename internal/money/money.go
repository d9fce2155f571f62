// Package money holds the fixed-point amount type used across the ledger.
package money

import (
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the only currency the ledger books in.
const Currency = gomoney.BRL

// Cents is an amount in centavos. Balance and budget sums never leave integer arithmetic.
type Cents int64

// FromReais converts a whole-real value into cents.
func FromReais(reais int64) Cents {
	return Cents(reais * 100)
}

// String renders the amount for display using Brazilian Real conventions, e.g. "R$1.234,56".
func (c Cents) String() string {
	return gomoney.New(int64(c), Currency).Display()
}

// Decimal returns the amount in reais as an exact decimal.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}

	return c
}

// ParseBRL parses a Brazilian-formatted amount into cents.
// Accepted forms: "1.234,56" -> 123456, "-588,74" -> -58874, "R$ 10,00" -> 1000, "10" -> 1000.
func ParseBRL(s string) (Cents, error) {
	clean := strings.TrimSpace(s)
	clean = strings.ReplaceAll(clean, "R$", "")
	clean = strings.ReplaceAll(clean, " ", "")
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")

	if clean == "" {
		return 0, fmt.Errorf("parsing amount %q: empty", s)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}

	return Cents(d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()), nil
}

// Sum adds amounts without overflow checks; ledger bounds keep totals far from int64 limits.
func Sum(values ...Cents) Cents {
	var total Cents
	for _, v := range values {
		total += v
	}

	return total
}
