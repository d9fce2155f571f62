package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
)

// ValidatePair checks the transfer invariant between two legs: same pair id, different
// accounts, equal amounts and competência dates, opposite cash directions.
func ValidatePair(a, b *Transaction) error {
	var problems []error

	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if !a.IsTransferLeg() || !b.IsTransferLeg() {
		fail("both legs must be transfers")
	}

	if a.ID == b.ID {
		fail("a leg cannot be its own reciprocal")
	}

	if a.ReciprocalID == nil || b.ReciprocalID == nil || *a.ReciprocalID != *b.ReciprocalID {
		fail("legs do not share a reciprocal id")
	}

	if a.CompanyID != b.CompanyID {
		fail("legs belong to different companies")
	}

	if a.AccountID == b.AccountID {
		fail("legs must be on different accounts")
	}

	if a.Amount != b.Amount {
		fail("amounts differ: %s vs %s", a.Amount, b.Amount)
	}

	if !a.CompetenciaDate.Equal(b.CompetenciaDate) {
		fail("competência dates differ")
	}

	if a.Direction == b.Direction {
		fail("legs must have opposite directions")
	}

	if len(problems) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ledger.ErrPairingFailure, errors.Join(problems...))
}

// Lister is the read side shared by Repository and UnitOfWork.
type Lister interface {
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
}

// reciprocal loads the other leg of tx inside the unit of work.
func (s *Service) reciprocal(ctx context.Context, uow UnitOfWork, tx *Transaction) (*Transaction, error) {
	return Reciprocal(ctx, uow, tx, s.clock.Now())
}

// Reciprocal loads the other leg of a transfer leg, deriving its status for now.
// Anything other than exactly one valid partner is a pairing failure.
func Reciprocal(ctx context.Context, l Lister, tx *Transaction, now time.Time) (*Transaction, error) {
	if tx.ReciprocalID == nil {
		return nil, fmt.Errorf("%w: transaction %s has no reciprocal id", ledger.ErrPairingFailure, tx.ID)
	}

	legs, err := l.ListTransactions(ctx, ListFilter{CompanyID: tx.CompanyID, ReciprocalID: tx.ReciprocalID})
	if err != nil {
		return nil, fmt.Errorf("loading reciprocal: %w", err)
	}

	var others []*Transaction

	for _, leg := range legs {
		if leg.ID != tx.ID {
			others = append(others, leg)
		}
	}

	if len(others) != 1 {
		return nil, fmt.Errorf("%w: transaction %s has %d reciprocal legs", ledger.ErrPairingFailure, tx.ID, len(others))
	}

	other := others[0]
	other.Derive(now)

	if err := ValidatePair(tx, other); err != nil {
		return nil, err
	}

	return other, nil
}
