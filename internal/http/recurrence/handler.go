package recurrence

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/http/auth"
	"github.com/MrJamesThe3rd/fluxo/internal/http/respond"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
	"github.com/MrJamesThe3rd/fluxo/internal/recurrence"
	"github.com/MrJamesThe3rd/fluxo/internal/transaction"
)

type Handler struct {
	svc   *recurrence.Service
	clock ledger.Clock
}

func NewHandler(svc *recurrence.Service, clock ledger.Clock) *Handler {
	return &Handler{svc: svc, clock: clock}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Post("/{id}/tick", h.tick)
	r.Post("/{id}/deactivate", h.deactivate)
}

type recurrenceResponse struct {
	ID             uuid.UUID                 `json:"id"`
	AccountID      uuid.UUID                 `json:"accountId"`
	Type           transaction.Type          `json:"type"`
	CategoryID     uuid.UUID                 `json:"categoryId"`
	VendorID       *uuid.UUID                `json:"vendorId,omitempty"`
	CustomerID     *uuid.UUID                `json:"customerId,omitempty"`
	Description    string                    `json:"description"`
	Amount         money.Cents               `json:"amount"`
	PaymentMethod  transaction.PaymentMethod `json:"paymentMethod,omitempty"`
	Frequency      recurrence.Frequency      `json:"frequency"`
	StartDate      string                    `json:"startDate"`
	EndDate        *string                   `json:"endDate,omitempty"`
	Occurrences    *int                      `json:"occurrences,omitempty"`
	Generated      int                       `json:"generated"`
	NextGeneration string                    `json:"nextGeneration"`
	Active         bool                      `json:"active"`
	UpdatedAt      time.Time                 `json:"updatedAt"`
}

func toResponse(rec *recurrence.Recurrence) recurrenceResponse {
	resp := recurrenceResponse{
		ID:             rec.ID,
		AccountID:      rec.Template.AccountID,
		Type:           rec.Template.Type,
		CategoryID:     rec.Template.CategoryID,
		VendorID:       rec.Template.VendorID,
		CustomerID:     rec.Template.CustomerID,
		Description:    rec.Template.Description,
		Amount:         rec.Template.Amount,
		PaymentMethod:  rec.Template.PaymentMethod,
		Frequency:      rec.Frequency,
		StartDate:      rec.StartDate.Format(time.DateOnly),
		Occurrences:    rec.Occurrences,
		Generated:      rec.Generated,
		NextGeneration: rec.NextGeneration.Format(time.DateOnly),
		Active:         rec.Active,
		UpdatedAt:      rec.UpdatedAt,
	}

	if rec.EndDate != nil {
		resp.EndDate = new(rec.EndDate.Format(time.DateOnly))
	}

	return resp
}

type createRecurrenceRequest struct {
	AccountID     uuid.UUID                 `json:"accountId"`
	Type          transaction.Type          `json:"type"`
	CategoryID    uuid.UUID                 `json:"categoryId"`
	VendorID      *uuid.UUID                `json:"vendorId"`
	CustomerID    *uuid.UUID                `json:"customerId"`
	Description   string                    `json:"description"`
	Amount        money.Cents               `json:"amount"`
	PaymentMethod transaction.PaymentMethod `json:"paymentMethod"`
	Frequency     recurrence.Frequency      `json:"frequency"`
	StartDate     respond.Date              `json:"startDate"`
	EndDate       *respond.Date             `json:"endDate"`
	Occurrences   *int                      `json:"occurrences"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRecurrenceRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	rec, err := h.svc.Create(r.Context(), recurrence.CreateParams{
		CompanyID: auth.Company(r),
		Template: recurrence.Template{
			AccountID:     req.AccountID,
			Type:          req.Type,
			CategoryID:    req.CategoryID,
			VendorID:      req.VendorID,
			CustomerID:    req.CustomerID,
			Description:   req.Description,
			Amount:        req.Amount,
			PaymentMethod: req.PaymentMethod,
		},
		Frequency:   req.Frequency,
		StartDate:   req.StartDate.Time,
		EndDate:     req.EndDate.Ptr(),
		Occurrences: req.Occurrences,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(rec))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.List(r.Context(), auth.Company(r))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]recurrenceResponse, len(recs))
	for i, rec := range recs {
		resp[i] = toResponse(rec)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) load(r *http.Request) (*recurrence.Recurrence, error) {
	id, err := respond.ID(r)
	if err != nil {
		return nil, err
	}

	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}

	return rec, auth.Owned(r.Context(), "recurrence", rec.CompanyID)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(rec))
}

type updateRecurrenceRequest struct {
	Amount      *money.Cents `json:"amount,omitempty"`
	Description *string      `json:"description,omitempty"`
}

// update changes the template. Transactions generated before keep their values.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	rec, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req updateRecurrenceRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	if rec, err = h.svc.UpdateTemplate(r.Context(), rec.ID, req.Amount, req.Description); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(rec))
}

type tickResponse struct {
	Generated  []uuid.UUID        `json:"generated"`
	Exhausted  bool               `json:"exhausted"`
	Recurrence recurrenceResponse `json:"recurrence"`
}

// tick generates what is due by the asOf query date, today when absent.
func (h *Handler) tick(w http.ResponseWriter, r *http.Request) {
	rec, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	asOf := h.clock.Now()

	if d, err := respond.QueryDate(r, "asOf"); err != nil {
		respond.Error(w, r, err)
		return
	} else if d != nil {
		asOf = *d
	}

	res, err := h.svc.Tick(r.Context(), rec.ID, asOf)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if rec, err = h.svc.Get(r.Context(), rec.ID); err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := tickResponse{Generated: []uuid.UUID{}, Exhausted: res.Exhausted, Recurrence: toResponse(rec)}
	for _, tx := range res.Transactions {
		resp.Generated = append(resp.Generated, tx.ID)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	rec, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if rec, err = h.svc.Deactivate(r.Context(), rec.ID); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(rec))
}
