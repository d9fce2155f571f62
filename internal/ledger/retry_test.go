package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
)

func TestRetryOnConflict(t *testing.T) {
	policy := ledger.RetryPolicy{Attempts: 3, Base: time.Microsecond, Max: time.Millisecond}

	t.Run("SucceedsAfterConflicts", func(t *testing.T) {
		calls := 0
		err := ledger.RetryOnConflict(context.Background(), policy, func(context.Context) error {
			calls++
			if calls < 3 {
				return fmt.Errorf("updating: %w", ledger.ErrConflict)
			}

			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("GivesUp", func(t *testing.T) {
		calls := 0
		err := ledger.RetryOnConflict(context.Background(), policy, func(context.Context) error {
			calls++
			return ledger.ErrConflict
		})

		assert.ErrorIs(t, err, ledger.ErrConflict)
		assert.Equal(t, 3, calls)
	})

	t.Run("OtherErrorsAreNotRetried", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := ledger.RetryOnConflict(context.Background(), policy, func(context.Context) error {
			calls++
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})
}

func TestKind(t *testing.T) {
	assert.Equal(t, "Conflict", ledger.Kind(fmt.Errorf("x: %w", ledger.ErrConflict)))
	assert.Equal(t, "Overpayment", ledger.Kind(ledger.ErrOverpayment))
	assert.Equal(t, "Internal", ledger.Kind(errors.New("disk on fire")))
	assert.Equal(t, "", ledger.Kind(nil))
}

func TestDay(t *testing.T) {
	got := ledger.Day(time.Date(2025, 3, 14, 17, 45, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), got)
}
