package transaction

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

// transitions lists every allowed status change. Paid and canceled are terminal.
var transitions = map[Status][]Status{
	StatusPlanned:       {StatusConfirmed, StatusOverdue, StatusCanceled},
	StatusConfirmed:     {StatusOverdue, StatusPaid, StatusPartiallyPaid, StatusCanceled},
	StatusOverdue:       {StatusPaid, StatusPartiallyPaid, StatusCanceled},
	StatusPartiallyPaid: {StatusPaid, StatusOverdue, StatusCanceled},
	StatusPaid:          nil,
	StatusCanceled:      nil,
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCanceled
}

func (t *Transaction) transition(to Status) error {
	if !CanTransition(t.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ledger.ErrInvalidTransition, t.Status, to)
	}

	t.Status = to

	return nil
}

// Confirm moves a planned transaction to confirmed.
func (t *Transaction) Confirm() error {
	return t.transition(StatusConfirmed)
}

// Cancel moves any non-terminal transaction to canceled.
func (t *Transaction) Cancel() error {
	return t.transition(StatusCanceled)
}

// RecordPayment applies a payment of amount made at paidAt.
//
// A payment equal to the outstanding amount settles the transaction; a smaller one leaves it
// partially paid with the difference as remaining balance.
func (t *Transaction) RecordPayment(amount money.Cents, paidAt time.Time) error {
	if amount <= 0 {
		return validation.Fail("payment", "amount", "gt", "must be greater than 0")
	}

	if t.Status == StatusCanceled || t.Status == StatusPlanned {
		return fmt.Errorf("%w: cannot record payment on %s transaction", ledger.ErrInvalidTransition, t.Status)
	}

	outstanding := t.Outstanding()
	if amount > outstanding {
		return fmt.Errorf("%w: paying %s with %s outstanding", ledger.ErrOverpayment, amount, outstanding)
	}

	if amount == outstanding {
		if err := t.transition(StatusPaid); err != nil {
			return err
		}

		t.RemainingBalance = 0
		t.PaidDate = &paidAt

		return nil
	}

	if t.Status != StatusPartiallyPaid {
		if err := t.transition(StatusPartiallyPaid); err != nil {
			return err
		}
	}

	t.RemainingBalance = outstanding - amount

	return nil
}

// PastDue reports whether the due date is a calendar day before now.
func (t *Transaction) PastDue(now time.Time) bool {
	return ledger.Day(t.DueDate).Before(ledger.Day(now.In(t.DueDate.Location())))
}

// DaysOverdue counts whole days since the due date, zero when not past due.
func (t *Transaction) DaysOverdue(now time.Time) int {
	if !t.PastDue(now) {
		return 0
	}

	due := ledger.Day(t.DueDate)
	today := ledger.Day(now.In(t.DueDate.Location()))

	return int(math.Round(today.Sub(due).Hours() / 24))
}

// Derive recomputes the overdue status for now. It reports whether the status changed.
//
// Overdue follows the due date both ways: once the due date is no longer past, an overdue
// transaction goes back to partially-paid if part of it was paid and to confirmed otherwise.
func (t *Transaction) Derive(now time.Time) bool {
	if t.PastDue(now) {
		switch t.Status {
		case StatusPlanned, StatusConfirmed, StatusPartiallyPaid:
			t.Status = StatusOverdue
			return true
		}

		return false
	}

	if t.Status != StatusOverdue {
		return false
	}

	if t.RemainingBalance > 0 {
		t.Status = StatusPartiallyPaid
	} else {
		t.Status = StatusConfirmed
	}

	return true
}
