package recurrence

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
)

type TickResult struct {
	Transactions []*transaction.Transaction
	// Exhausted is set when this tick hit the stop condition and deactivated the rule.
	Exhausted bool
}

// Tick generates every occurrence due by asOf and advances r's watermark in place.
// It never generates an occurrence before r.NextGeneration, so ticking twice for the same
// asOf yields nothing the second time.
func Tick(r *Recurrence, asOf time.Time) TickResult {
	var res TickResult

	if !r.Active {
		return res
	}

	for !r.NextGeneration.After(asOf) {
		if r.exhausted() {
			r.Active = false
			res.Exhausted = true

			break
		}

		at := r.NextGeneration
		res.Transactions = append(res.Transactions, r.materialize(at))

		r.LastGenerated = &at
		r.Generated++
		r.NextGeneration = r.Occurrence(r.Generated)
	}

	return res
}

func (r *Recurrence) materialize(at time.Time) *transaction.Transaction {
	id := r.ID

	return &transaction.Transaction{
		ID:              uuid.New(),
		CompanyID:       r.CompanyID,
		AccountID:       r.Template.AccountID,
		Type:            r.Template.Type,
		Direction:       transaction.DirectionOf(r.Template.Type),
		CategoryID:      r.Template.CategoryID,
		VendorID:        clonePtr(r.Template.VendorID),
		CustomerID:      clonePtr(r.Template.CustomerID),
		Description:     r.Template.Description,
		Amount:          r.Template.Amount,
		PaymentMethod:   r.Template.PaymentMethod,
		CompetenciaDate: at,
		DueDate:         at,
		Status:          transaction.StatusPlanned,
		RecurrenceID:    &id,
	}
}
