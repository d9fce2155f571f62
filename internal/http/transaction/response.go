package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
)

type transactionResponse struct {
	ID               uuid.UUID                 `json:"id"`
	AccountID        uuid.UUID                 `json:"accountId"`
	Type             transaction.Type          `json:"type"`
	Direction        transaction.Direction     `json:"direction"`
	CategoryID       *uuid.UUID                `json:"categoryId,omitempty"`
	VendorID         *uuid.UUID                `json:"vendorId,omitempty"`
	CustomerID       *uuid.UUID                `json:"customerId,omitempty"`
	Description      string                    `json:"description"`
	Amount           money.Cents               `json:"amount"`
	AmountDisplay    string                    `json:"amountDisplay"`
	RemainingBalance money.Cents               `json:"remainingBalance"`
	PaymentMethod    transaction.PaymentMethod `json:"paymentMethod,omitempty"`
	CompetenciaDate  string                    `json:"competenciaDate"`
	DueDate          string                    `json:"dueDate"`
	PaidDate         *string                   `json:"paidDate,omitempty"`
	Status           transaction.Status        `json:"status"`
	Reconciled       bool                      `json:"reconciled"`
	RecurrenceID     *uuid.UUID                `json:"recurrenceId,omitempty"`
	ReciprocalID     *uuid.UUID                `json:"reciprocalId,omitempty"`
	Attachments      []attachmentResponse      `json:"attachments,omitempty"`
	CreatedAt        time.Time                 `json:"createdAt"`
	UpdatedAt        time.Time                 `json:"updatedAt"`
}

type attachmentResponse struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:               tx.ID,
		AccountID:        tx.AccountID,
		Type:             tx.Type,
		Direction:        tx.Direction,
		VendorID:         tx.VendorID,
		CustomerID:       tx.CustomerID,
		Description:      tx.Description,
		Amount:           tx.Amount,
		AmountDisplay:    tx.Amount.String(),
		RemainingBalance: tx.RemainingBalance,
		PaymentMethod:    tx.PaymentMethod,
		CompetenciaDate:  tx.CompetenciaDate.Format(time.DateOnly),
		DueDate:          tx.DueDate.Format(time.DateOnly),
		Status:           tx.Status,
		Reconciled:       tx.Reconciled,
		RecurrenceID:     tx.RecurrenceID,
		ReciprocalID:     tx.ReciprocalID,
		CreatedAt:        tx.CreatedAt,
		UpdatedAt:        tx.UpdatedAt,
	}

	if tx.CategoryID != uuid.Nil {
		resp.CategoryID = new(tx.CategoryID)
	}

	if tx.PaidDate != nil {
		resp.PaidDate = new(tx.PaidDate.Format(time.DateOnly))
	}

	for _, a := range tx.Attachments {
		resp.Attachments = append(resp.Attachments, toAttachmentResponse(&a))
	}

	return resp
}

func toAttachmentResponse(a *transaction.Attachment) attachmentResponse {
	return attachmentResponse{
		ID:          a.ID,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		Size:        a.Size,
		URL:         a.URL,
		CreatedAt:   a.CreatedAt,
	}
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}
