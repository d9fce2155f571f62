package budget

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
)

// Budget is the planned amount of one category in one month. The actual amount is never
// stored; it is computed from transactions on every read.
type Budget struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID   `validate:"required"`
	CategoryID     uuid.UUID   `validate:"required"`
	Month          string      `validate:"yearmonth"`
	AmountPlanned  money.Cents `validate:"gt=0,lte=99999999900"`
	AlertThreshold int         `validate:"gte=1,lte=100"` // Percent
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Month is a calendar month in UTC.
type Month struct {
	Year  int
	Month time.Month
}

func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("parsing month %q: %w", s, err)
	}

	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Start is the first instant of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant of the next month.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0)
}

func (m Month) Contains(t time.Time) bool {
	y, mo, _ := t.Date()
	return y == m.Year && mo == m.Month
}

// counted lists the statuses whose amounts count toward a budget.
var counted = map[transaction.Status]bool{
	transaction.StatusConfirmed:     true,
	transaction.StatusPaid:          true,
	transaction.StatusPartiallyPaid: true,
}

// Actual sums what the category consumed in month: the full amount of confirmed and paid
// transactions and the settled portion of partially paid ones, by competência date.
func Actual(txs []*transaction.Transaction, categoryID uuid.UUID, month Month) money.Cents {
	var sum money.Cents

	for _, tx := range txs {
		if tx.CategoryID != categoryID || !counted[tx.Status] || !month.Contains(tx.CompetenciaDate) {
			continue
		}

		if tx.Status == transaction.StatusPartiallyPaid {
			sum += tx.Amount - tx.RemainingBalance
			continue
		}

		sum += tx.Amount
	}

	return sum
}

// Variance is (actual - planned) / planned * 100, rounded to two places. Positive means
// the plan was exceeded.
func Variance(actual, planned money.Cents) decimal.Decimal {
	if planned == 0 {
		return decimal.Zero
	}

	return actual.Decimal().Sub(planned.Decimal()).
		Div(planned.Decimal()).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

// Breached reports whether |variance| reached the threshold percentage.
func Breached(variance decimal.Decimal, threshold int) bool {
	return variance.Abs().GreaterThanOrEqual(decimal.NewFromInt(int64(threshold)))
}

// Severe reports whether |variance| is more than twice the threshold.
func Severe(variance decimal.Decimal, threshold int) bool {
	return variance.Abs().GreaterThan(decimal.NewFromInt(int64(2 * threshold)))
}
