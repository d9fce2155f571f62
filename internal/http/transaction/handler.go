package transaction

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/account"
	"github.com/MrJamesThe3rd/fluxo/internal/http/auth"
	"github.com/MrJamesThe3rd/fluxo/internal/http/respond"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
)

type AccountGetter interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

type Handler struct {
	svc      *transaction.Service
	accounts AccountGetter
}

func NewHandler(svc *transaction.Service, accounts AccountGetter) *Handler {
	return &Handler{svc: svc, accounts: accounts}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/confirm", h.confirm)
	r.Post("/{id}/payments", h.pay)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/attachments", h.attach)
}

type createTransactionRequest struct {
	AccountID       uuid.UUID                 `json:"accountId"`
	Type            transaction.Type          `json:"type"`
	CategoryID      uuid.UUID                 `json:"categoryId"`
	VendorID        *uuid.UUID                `json:"vendorId"`
	CustomerID      *uuid.UUID                `json:"customerId"`
	Description     string                    `json:"description"`
	Amount          money.Cents               `json:"amount"`
	PaymentMethod   transaction.PaymentMethod `json:"paymentMethod"`
	CompetenciaDate respond.Date              `json:"competenciaDate"`
	DueDate         respond.Date              `json:"dueDate"`
	Status          transaction.Status        `json:"status"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	acc, err := h.accounts.GetAccount(r.Context(), req.AccountID)
	if err == nil {
		err = auth.Owned(r.Context(), "account", acc.CompanyID)
	}

	if err != nil {
		respond.Error(w, r, err)
		return
	}

	tx, err := h.svc.Create(r.Context(), transaction.CreateParams{
		CompanyID:       auth.Company(r),
		AccountID:       req.AccountID,
		Type:            req.Type,
		CategoryID:      req.CategoryID,
		VendorID:        req.VendorID,
		CustomerID:      req.CustomerID,
		Description:     req.Description,
		Amount:          req.Amount,
		PaymentMethod:   req.PaymentMethod,
		CompetenciaDate: req.CompetenciaDate.Time,
		DueDate:         req.DueDate.Time,
		Status:          req.Status,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.SetVersion(w, tx.UpdatedAt)
	respond.JSON(w, http.StatusCreated, toResponse(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := transaction.ListFilter{CompanyID: auth.Company(r)}

	var err error

	if filter.AccountID, err = respond.OptionalID(r, "accountId"); err != nil {
		respond.Error(w, r, err)
		return
	}

	if filter.CategoryID, err = respond.OptionalID(r, "categoryId"); err != nil {
		respond.Error(w, r, err)
		return
	}

	if filter.CompetenciaFrom, err = respond.QueryDate(r, "from"); err != nil {
		respond.Error(w, r, err)
		return
	}

	if filter.CompetenciaTo, err = respond.QueryDate(r, "to"); err != nil {
		respond.Error(w, r, err)
		return
	}

	if s := r.URL.Query().Get("status"); s != "" {
		for st := range strings.SplitSeq(s, ",") {
			filter.Statuses = append(filter.Statuses, transaction.Status(st))
		}
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(txs))
}

// load fetches the transaction in the path and hides it unless the caller's company owns it.
func (h *Handler) load(r *http.Request) (*transaction.Transaction, error) {
	id, err := respond.ID(r)
	if err != nil {
		return nil, err
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}

	if err := auth.Owned(r.Context(), "transaction", tx.CompanyID); err != nil {
		return nil, err
	}

	return tx, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.SetVersion(w, tx.UpdatedAt)
	respond.JSON(w, http.StatusOK, toResponse(tx))
}

type updateTransactionRequest struct {
	Description     *string                    `json:"description,omitempty"`
	CategoryID      *uuid.UUID                 `json:"categoryId,omitempty"`
	VendorID        *uuid.UUID                 `json:"vendorId,omitempty"`
	CustomerID      *uuid.UUID                 `json:"customerId,omitempty"`
	Amount          *money.Cents               `json:"amount,omitempty"`
	PaymentMethod   *transaction.PaymentMethod `json:"paymentMethod,omitempty"`
	CompetenciaDate *respond.Date              `json:"competenciaDate,omitempty"`
	DueDate         *respond.Date              `json:"dueDate,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(tx *transaction.Transaction, version *time.Time) (*transaction.Transaction, error) {
		var req updateTransactionRequest
		if err := respond.Decode(r, &req); err != nil {
			return nil, err
		}

		return h.svc.Update(r.Context(), tx.ID, transaction.UpdateParams{
			Description:     req.Description,
			CategoryID:      req.CategoryID,
			VendorID:        req.VendorID,
			CustomerID:      req.CustomerID,
			Amount:          req.Amount,
			PaymentMethod:   req.PaymentMethod,
			CompetenciaDate: req.CompetenciaDate.Ptr(),
			DueDate:         req.DueDate.Ptr(),
		}, version)
	})
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(tx *transaction.Transaction, version *time.Time) (*transaction.Transaction, error) {
		return h.svc.Confirm(r.Context(), tx.ID, version)
	})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(tx *transaction.Transaction, version *time.Time) (*transaction.Transaction, error) {
		return h.svc.Cancel(r.Context(), tx.ID, version)
	})
}

type paymentRequest struct {
	Amount        money.Cents               `json:"amount"`
	PaidAt        respond.Date              `json:"paidAt"`
	PaymentMethod transaction.PaymentMethod `json:"paymentMethod"`
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(tx *transaction.Transaction, version *time.Time) (*transaction.Transaction, error) {
		var req paymentRequest
		if err := respond.Decode(r, &req); err != nil {
			return nil, err
		}

		return h.svc.RecordPayment(r.Context(), tx.ID, transaction.PaymentParams{
			Amount:        req.Amount,
			PaidAt:        req.PaidAt.Time,
			PaymentMethod: req.PaymentMethod,
		}, version)
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	tx, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	version, err := respond.Version(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), tx.ID, version); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type attachmentRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}

func (h *Handler) attach(w http.ResponseWriter, r *http.Request) {
	tx, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req attachmentRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	a, err := h.svc.Attach(r.Context(), tx.ID, transaction.AttachmentParams{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Size:        req.Size,
		URL:         req.URL,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toAttachmentResponse(a))
}

// mutate loads the transaction in the path for the caller's company and applies op with the
// version from If-Match. The new version is returned in ETag.
func (h *Handler) mutate(
	w http.ResponseWriter,
	r *http.Request,
	op func(tx *transaction.Transaction, version *time.Time) (*transaction.Transaction, error),
) {
	tx, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	version, err := respond.Version(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	out, err := op(tx, version)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.SetVersion(w, out.UpdatedAt)
	respond.JSON(w, http.StatusOK, toResponse(out))
}
