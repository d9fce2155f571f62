package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
)

type Kind string

const (
	KindCorrente     Kind = "corrente"
	KindPoupanca     Kind = "poupanca"
	KindInvestimento Kind = "investimento"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusBlocked  Status = "blocked"
)

// Account is a bank account of one company.
type Account struct {
	ID                    uuid.UUID
	CompanyID             uuid.UUID    `validate:"required"`
	Name                  string       `validate:"required,max=100"`
	Bank                  string       `validate:"max=100"`
	Kind                  Kind         `validate:"oneof=corrente poupanca investimento"`
	OpeningBalance        money.Cents  `validate:"gte=-99999999900,lte=99999999900"`
	CurrentBalance        money.Cents  `validate:"gte=-99999999900,lte=99999999900"` // Recomputed on read
	TargetBalance         *money.Cents `validate:"omitempty,gte=0,lte=99999999900"`
	PixEnabled            bool
	BoletoEnabled         bool
	ReconciliationEnabled bool
	Status                Status `validate:"oneof=active inactive blocked"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Usable reports whether new cash movements may be booked on the account.
func (a *Account) Usable() bool {
	return a.Status == StatusActive
}

// GoalAchieved reports whether the account has a target and the balance reached it.
func (a *Account) GoalAchieved() bool {
	return a.TargetBalance != nil && a.CurrentBalance >= *a.TargetBalance
}

// Balance is opening plus the signed settled portion of every transaction on the account.
// Transactions on other accounts are ignored.
func Balance(a *Account, txs []*transaction.Transaction) money.Cents {
	balance := a.OpeningBalance

	for _, tx := range txs {
		if tx.AccountID != a.ID {
			continue
		}

		balance += tx.SignedSettled()
	}

	return balance
}
