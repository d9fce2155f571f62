// Package recurrence materializes transactions from recurring rules.
//
// A rule's watermark (NextGeneration, with Generated counting what was produced) is the only
// record of progress: ticking generates forward from it and advances it in the same unit of
// work as the new transactions, so re-running a tick for a date already processed is a no-op.
package recurrence

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

type Frequency string

const (
	Daily      Frequency = "daily"
	Weekly     Frequency = "weekly"
	Monthly    Frequency = "monthly"
	Quarterly  Frequency = "quarterly"
	Semiannual Frequency = "semiannual"
	Annual     Frequency = "annual"
)

// Template holds the fields cloned into every generated transaction.
type Template struct {
	AccountID     uuid.UUID                 `validate:"required"`
	Type          transaction.Type          `validate:"oneof=entry exit"`
	CategoryID    uuid.UUID                 `validate:"required"`
	VendorID      *uuid.UUID
	CustomerID    *uuid.UUID
	Description   string                    `validate:"max=255"`
	Amount        money.Cents               `validate:"gt=0,lte=99999999900"`
	PaymentMethod transaction.PaymentMethod `validate:"omitempty,oneof=pix boleto cartao ted cash check"`
}

type Recurrence struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID `validate:"required"`
	Template       Template
	Frequency      Frequency `validate:"oneof=daily weekly monthly quarterly semiannual annual"`
	StartDate      time.Time `validate:"required"`
	EndDate        *time.Time
	Occurrences    *int `validate:"omitempty,gte=1,lte=10000"`
	Generated      int  `validate:"gte=0"`
	LastGenerated  *time.Time
	NextGeneration time.Time `validate:"required"`
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r *Recurrence) CrossCheck() []validation.FieldError {
	var errs []validation.FieldError

	if r.EndDate != nil && r.Occurrences != nil {
		errs = append(errs, validation.FieldError{
			Field: "endDate", Code: "excluded_with", Message: "cannot be combined with occurrences",
		})
	}

	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		errs = append(errs, validation.FieldError{
			Field: "endDate", Code: "gtefield", Message: "must not be before startDate",
		})
	}

	return errs
}

// Occurrence returns the date of the n-th generation (zero based). Month-based frequencies
// keep StartDate's day of month and clamp it to the length of shorter months.
func (r *Recurrence) Occurrence(n int) time.Time {
	switch r.Frequency {
	case Daily:
		return r.StartDate.AddDate(0, 0, n)
	case Weekly:
		return r.StartDate.AddDate(0, 0, 7*n)
	case Monthly:
		return addMonths(r.StartDate, n)
	case Quarterly:
		return addMonths(r.StartDate, 3*n)
	case Semiannual:
		return addMonths(r.StartDate, 6*n)
	case Annual:
		return addMonths(r.StartDate, 12*n)
	}

	return r.StartDate
}

// exhausted reports whether the stop condition forbids generating at NextGeneration.
func (r *Recurrence) exhausted() bool {
	if r.Occurrences != nil && r.Generated >= *r.Occurrences {
		return true
	}

	return r.EndDate != nil && r.NextGeneration.After(*r.EndDate)
}

func (r *Recurrence) Clone() *Recurrence {
	c := *r
	c.Template.VendorID = clonePtr(r.Template.VendorID)
	c.Template.CustomerID = clonePtr(r.Template.CustomerID)
	c.EndDate = clonePtr(r.EndDate)
	c.Occurrences = clonePtr(r.Occurrences)
	c.LastGenerated = clonePtr(r.LastGenerated)

	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}

	v := *p

	return &v
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()

	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first); d > last {
		d = last
	}

	return first.AddDate(0, 0, d-1)
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
