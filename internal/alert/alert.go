// Package alert derives notifications from ledger state. Alerts are immutable once stored,
// except for the read flag, and are deduplicated by (type, entity, period).
package alert

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/account"
	"github.com/MrJamesThe3rd/fluxo/internal/budget"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
)

type Type string

const (
	TypeNegativeBalance Type = "negative-balance"
	TypeOverduePayment  Type = "overdue-payment"
	TypeBudgetExceeded  Type = "budget-exceeded"
	TypeGoalAchieved    Type = "goal-achieved"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Alert struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"companyId"`
	Type      Type      `json:"type"`
	Severity  Severity  `json:"severity"`
	EntityID  uuid.UUID `json:"entityId"`
	Period    string    `json:"period"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Key identifies the condition an alert reports.
type Key struct {
	Type     Type
	EntityID uuid.UUID
	Period   string
}

func (a *Alert) Key() Key {
	return Key{Type: a.Type, EntityID: a.EntityID, Period: a.Period}
}

// Snapshot is the ledger state alerts are derived from. Account balances must already be
// recomputed and transaction statuses derived.
type Snapshot struct {
	CompanyID    uuid.UUID
	Accounts     []*account.Account
	Transactions []*transaction.Transaction
	Budgets      []*budget.Line
}

// OverdueSeverity grades how late a payment is.
func OverdueSeverity(days int) Severity {
	switch {
	case days >= 30:
		return SeverityHigh
	case days >= 7:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Derive returns the alerts the snapshot warrants at now, one per key.
func Derive(s Snapshot, now time.Time) []*Alert {
	month := budget.MonthOf(now).String()

	var out []*Alert

	seen := make(map[Key]bool)

	add := func(a *Alert) {
		if seen[a.Key()] {
			return
		}

		seen[a.Key()] = true
		a.CompanyID = s.CompanyID
		out = append(out, a)
	}

	for _, a := range s.Accounts {
		if a.CurrentBalance < 0 {
			add(&Alert{
				Type:     TypeNegativeBalance,
				Severity: SeverityHigh,
				EntityID: a.ID,
				Period:   month,
				Message:  fmt.Sprintf("Account %s balance is %s", a.Name, a.CurrentBalance),
			})
		}

		if a.GoalAchieved() {
			add(&Alert{
				Type:     TypeGoalAchieved,
				Severity: SeverityLow,
				EntityID: a.ID,
				Period:   month,
				Message:  fmt.Sprintf("Account %s reached its target of %s", a.Name, *a.TargetBalance),
			})
		}
	}

	for _, tx := range s.Transactions {
		if tx.Status != transaction.StatusOverdue {
			continue
		}

		days := tx.DaysOverdue(now)

		add(&Alert{
			Type:     TypeOverduePayment,
			Severity: OverdueSeverity(days),
			EntityID: tx.ID,
			Period:   tx.DueDate.Format(time.DateOnly),
			Message:  fmt.Sprintf("%q is %d days overdue with %s outstanding", tx.Description, days, tx.Outstanding()),
		})
	}

	for _, line := range s.Budgets {
		if !line.Breached {
			continue
		}

		severity := SeverityMedium
		if line.Severe {
			severity = SeverityHigh
		}

		add(&Alert{
			Type:     TypeBudgetExceeded,
			Severity: severity,
			EntityID: line.Budget.ID,
			Period:   line.Budget.Month,
			Message: fmt.Sprintf("Budget for %s is at %s of %s (%s%%)",
				line.Budget.Month, line.Actual, line.Budget.AmountPlanned, line.Variance.StringFixed(2)),
		})
	}

	return out
}
