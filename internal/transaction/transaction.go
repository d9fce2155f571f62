package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

// Type represents the kind of cash movement.
type Type string

const (
	TypeEntry    Type = "entry"
	TypeExit     Type = "exit"
	TypeTransfer Type = "transfer"
)

// Direction is the cash direction on the transaction's account.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// DirectionOf returns the fixed direction of entries and exits. Transfers carry their own.
func DirectionOf(t Type) Direction {
	if t == TypeExit {
		return DirectionOut
	}

	return DirectionIn
}

// Status represents the payment lifecycle state of a transaction.
type Status string

const (
	StatusPlanned       Status = "planned"
	StatusConfirmed     Status = "confirmed"
	StatusPaid          Status = "paid"
	StatusPartiallyPaid Status = "partially-paid"
	StatusOverdue       Status = "overdue"
	StatusCanceled      Status = "canceled"
)

type PaymentMethod string

const (
	MethodPix    PaymentMethod = "pix"
	MethodBoleto PaymentMethod = "boleto"
	MethodCartao PaymentMethod = "cartao"
	MethodTED    PaymentMethod = "ted"
	MethodCash   PaymentMethod = "cash"
	MethodCheck  PaymentMethod = "check"
)

// Transaction represents a single cash-flow entry on one account.
type Transaction struct {
	ID               uuid.UUID
	CompanyID        uuid.UUID     `validate:"required"`
	AccountID        uuid.UUID     `validate:"required"`
	Type             Type          `validate:"oneof=entry exit transfer"`
	Direction        Direction     `validate:"oneof=in out"`
	CategoryID       uuid.UUID
	VendorID         *uuid.UUID
	CustomerID       *uuid.UUID
	Description      string        `validate:"max=255"`
	Amount           money.Cents   `validate:"gt=0,lte=99999999900"` // Amount in cents
	RemainingBalance money.Cents   `validate:"gte=0"`
	PaymentMethod    PaymentMethod `validate:"omitempty,oneof=pix boleto cartao ted cash check"`
	CompetenciaDate  time.Time     `validate:"required"`
	DueDate          time.Time     `validate:"required"`
	PaidDate         *time.Time
	Status           Status `validate:"oneof=planned confirmed paid partially-paid overdue canceled"`
	Reconciled       bool
	RecurrenceID     *uuid.UUID
	ReciprocalID     *uuid.UUID
	Attachments      []Attachment `validate:"dive"` // Loaded with the transaction
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Attachment is the metadata of a document kept alongside a transaction.
type Attachment struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	FileName      string `validate:"required,max=255"`
	ContentType   string `validate:"required,max=127"`
	Size          int64  `validate:"gte=1,lte=10485760"`
	URL           string `validate:"omitempty,url"`
	CreatedAt     time.Time
}

// IsTransferLeg reports whether the transaction is one half of a transfer pair.
func (t *Transaction) IsTransferLeg() bool {
	return t.Type == TypeTransfer
}

// Outstanding is what remains to be paid.
func (t *Transaction) Outstanding() money.Cents {
	switch t.Status {
	case StatusPaid, StatusCanceled:
		return 0
	}

	if t.RemainingBalance > 0 {
		return t.RemainingBalance
	}

	return t.Amount
}

// Settled is the portion of the amount that actually moved cash.
func (t *Transaction) Settled() money.Cents {
	switch t.Status {
	case StatusPaid:
		return t.Amount
	case StatusPartiallyPaid, StatusOverdue, StatusCanceled:
		if t.RemainingBalance > 0 {
			return t.Amount - t.RemainingBalance
		}
	}

	return 0
}

// SignedSettled is Settled with the cash direction applied.
func (t *Transaction) SignedSettled() money.Cents {
	if t.Direction == DirectionOut {
		return -t.Settled()
	}

	return t.Settled()
}

// Clone returns a deep copy.
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.VendorID = clonePtr(t.VendorID)
	c.CustomerID = clonePtr(t.CustomerID)
	c.PaidDate = clonePtr(t.PaidDate)
	c.RecurrenceID = clonePtr(t.RecurrenceID)
	c.ReciprocalID = clonePtr(t.ReciprocalID)

	if t.Attachments != nil {
		c.Attachments = append([]Attachment(nil), t.Attachments...)
	}

	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}

	v := *p

	return &v
}

// CrossCheck enforces the rules that span fields.
func (t *Transaction) CrossCheck() []validation.FieldError {
	var errs []validation.FieldError

	add := func(field, code, msg string) {
		errs = append(errs, validation.FieldError{Field: field, Code: code, Message: msg})
	}

	if t.IsTransferLeg() {
		if t.ReciprocalID == nil || *t.ReciprocalID == uuid.Nil {
			add("reciprocalID", "required", "is required on transfer legs")
		}
	} else {
		if t.CategoryID == uuid.Nil {
			add("categoryID", "required", "is required")
		}

		if t.ReciprocalID != nil {
			add("reciprocalID", "excluded", "is only allowed on transfer legs")
		}

		if t.Direction != DirectionOf(t.Type) {
			add("direction", "mismatch", "does not match the transaction type")
		}
	}

	switch t.Status {
	case StatusPartiallyPaid:
		if t.RemainingBalance <= 0 || t.RemainingBalance >= t.Amount {
			add("remainingBalance", "range", "must be between 0 and amount, exclusive")
		}
	case StatusOverdue, StatusCanceled:
		if t.RemainingBalance >= t.Amount && t.Amount > 0 {
			add("remainingBalance", "range", "must be less than amount")
		}
	default:
		if t.RemainingBalance != 0 {
			add("remainingBalance", "range", "must be zero unless partially paid")
		}
	}

	if t.Status == StatusPaid && t.PaidDate == nil {
		add("paidDate", "required", "is required once paid")
	}

	return errs
}

// CheckCounterparty applies the vendor-on-exit, customer-on-entry convention.
func (t *Transaction) CheckCounterparty() error {
	var errs []error

	if t.VendorID != nil && t.Type != TypeExit {
		errs = append(errs, validation.Fail("transaction", "vendorID", "counterparty", "is only allowed on exits"))
	}

	if t.CustomerID != nil && t.Type != TypeEntry {
		errs = append(errs, validation.Fail("transaction", "customerID", "counterparty", "is only allowed on entries"))
	}

	return validation.Merge("transaction", errs...)
}
