// Package ledger holds the cross-cutting pieces every ledger component shares:
// error kinds, the clock and the retry policy for optimistic conflicts.
package ledger

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrValidation is matched by every structured validation failure.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition rejects a status change outside the allowed table.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrOverpayment rejects a payment larger than the outstanding amount.
	ErrOverpayment = errors.New("payment exceeds outstanding amount")

	// ErrConflict reports that a record changed since it was read. Refetch and retry.
	ErrConflict = errors.New("record was modified concurrently")

	// ErrPairingFailure reports that a transfer leg could not be created, changed or canceled
	// together with its reciprocal. Nothing was committed.
	ErrPairingFailure = errors.New("transfer pairing failure")

	// ErrRecurrenceExhausted marks a rule that reached its stop condition. It is logged, not failed.
	ErrRecurrenceExhausted = errors.New("recurrence exhausted")
)

// Kind names the error kind of err for transport layers and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrInvalidTransition):
		return "InvalidTransition"
	case errors.Is(err, ErrOverpayment):
		return "Overpayment"
	case errors.Is(err, ErrConflict):
		return "Conflict"
	case errors.Is(err, ErrPairingFailure):
		return "PairingFailure"
	case errors.Is(err, ErrRecurrenceExhausted):
		return "RecurrenceExhausted"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	default:
		return "Internal"
	}
}
