package transfer

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/http/auth"
	"github.com/MrJamesThe3rd/fluxo/internal/http/respond"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
	"github.com/MrJamesThe3rd/fluxo/internal/transfer"
)

// Handler serves transfers. Legs are addressed by either leg's id; payments go through
// /transactions/{id}/payments and settle both legs.
type Handler struct {
	svc *transfer.Service
	txs *transaction.Service
}

func NewHandler(svc *transfer.Service, txs *transaction.Service) *Handler {
	return &Handler{svc: svc, txs: txs}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/verify", h.verify)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.updateAmount)
	r.Post("/{id}/cancel", h.cancel)
	r.Delete("/{id}", h.delete)
}

type legResponse struct {
	ID        uuid.UUID          `json:"id"`
	AccountID uuid.UUID          `json:"accountId"`
	Amount    money.Cents        `json:"amount"`
	Status    transaction.Status `json:"status"`
	DueDate   string             `json:"dueDate"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type pairResponse struct {
	ID          uuid.UUID   `json:"id"`
	Description string      `json:"description"`
	Exit        legResponse `json:"exit"`
	Entry       legResponse `json:"entry"`
}

func toLeg(tx *transaction.Transaction) legResponse {
	return legResponse{
		ID:        tx.ID,
		AccountID: tx.AccountID,
		Amount:    tx.Amount,
		Status:    tx.Status,
		DueDate:   tx.DueDate.Format(time.DateOnly),
		UpdatedAt: tx.UpdatedAt,
	}
}

func toResponse(p *transfer.Pair) pairResponse {
	return pairResponse{ID: p.ID, Description: p.Exit.Description, Exit: toLeg(p.Exit), Entry: toLeg(p.Entry)}
}

type createTransferRequest struct {
	SourceAccountID uuid.UUID    `json:"sourceAccountId"`
	DestAccountID   uuid.UUID    `json:"destAccountId"`
	Amount          money.Cents  `json:"amount"`
	Date            respond.Date `json:"date"`
	DueDate         respond.Date `json:"dueDate"`
	Description     string       `json:"description"`
	Confirmed       bool         `json:"confirmed"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	p, err := h.svc.Create(r.Context(), transfer.Params{
		CompanyID:       auth.Company(r),
		SourceAccountID: req.SourceAccountID,
		DestAccountID:   req.DestAccountID,
		Amount:          req.Amount,
		Date:            req.Date.Time,
		DueDate:         req.DueDate.Time,
		Description:     req.Description,
		Confirmed:       req.Confirmed,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(p))
}

func (h *Handler) load(r *http.Request) (*transfer.Pair, error) {
	id, err := respond.ID(r)
	if err != nil {
		return nil, err
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}

	return p, auth.Owned(r.Context(), "transfer", p.Exit.CompanyID)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(p))
}

type updateAmountRequest struct {
	Amount money.Cents `json:"amount"`
}

func (h *Handler) updateAmount(w http.ResponseWriter, r *http.Request) {
	p, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req updateAmountRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	version, err := respond.Version(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if p, err = h.svc.UpdateAmount(r.Context(), legID(r, p), req.Amount, version); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	p, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	version, err := respond.Version(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if p, err = h.svc.Cancel(r.Context(), legID(r, p), version); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	p, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	version, err := respond.Version(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.txs.Delete(r.Context(), legID(r, p), version); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	problems, err := h.svc.Verify(r.Context(), auth.Company(r))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if problems == nil {
		problems = []transfer.Problem{}
	}

	respond.JSON(w, http.StatusOK, problems)
}

// legID is the leg named in the path. If-Match versions refer to that leg.
func legID(r *http.Request, p *transfer.Pair) uuid.UUID {
	id, _ := respond.ID(r)
	if id == p.Entry.ID {
		return p.Entry.ID
	}

	return p.Exit.ID
}
