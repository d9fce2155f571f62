package budget

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fluxo/internal/budget"
	"github.com/MrJamesThe3rd/fluxo/internal/http/auth"
	"github.com/MrJamesThe3rd/fluxo/internal/http/respond"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
)

type Handler struct {
	tracker *budget.Tracker
	clock   ledger.Clock
}

func NewHandler(tracker *budget.Tracker, clock ledger.Clock) *Handler {
	return &Handler{tracker: tracker, clock: clock}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.report)
	r.Get("/{id}", h.get)
	r.Get("/{id}/variance", h.variance)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type budgetResponse struct {
	ID             uuid.UUID   `json:"id"`
	CategoryID     uuid.UUID   `json:"categoryId"`
	Month          string      `json:"month"`
	AmountPlanned  money.Cents `json:"amountPlanned"`
	AlertThreshold int         `json:"alertThreshold"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

type lineResponse struct {
	budgetResponse
	Actual   money.Cents     `json:"actual"`
	Variance decimal.Decimal `json:"variancePercent"`
	Breached bool            `json:"breached"`
	Severe   bool            `json:"severe"`
}

func toResponse(b *budget.Budget) budgetResponse {
	return budgetResponse{
		ID:             b.ID,
		CategoryID:     b.CategoryID,
		Month:          b.Month,
		AmountPlanned:  b.AmountPlanned,
		AlertThreshold: b.AlertThreshold,
		UpdatedAt:      b.UpdatedAt,
	}
}

func toLine(l *budget.Line) lineResponse {
	return lineResponse{
		budgetResponse: toResponse(l.Budget),
		Actual:         l.Actual,
		Variance:       l.Variance,
		Breached:       l.Breached,
		Severe:         l.Severe,
	}
}

type createBudgetRequest struct {
	CategoryID     uuid.UUID   `json:"categoryId"`
	Month          string      `json:"month"`
	AmountPlanned  money.Cents `json:"amountPlanned"`
	AlertThreshold int         `json:"alertThreshold"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	b, err := h.tracker.Create(r.Context(), budget.CreateParams{
		CompanyID:      auth.Company(r),
		CategoryID:     req.CategoryID,
		Month:          req.Month,
		AmountPlanned:  req.AmountPlanned,
		AlertThreshold: req.AlertThreshold,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.SetVersion(w, b.UpdatedAt)
	respond.JSON(w, http.StatusCreated, toResponse(b))
}

// report lists the budgets of the month query parameter (YYYY-MM, current month when absent)
// with their figures.
func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	month := budget.MonthOf(h.clock.Now())

	if s := r.URL.Query().Get("month"); s != "" {
		m, err := budget.ParseMonth(s)
		if err != nil {
			respond.Error(w, r, respond.BadRequest("invalid month %q", s))
			return
		}

		month = m
	}

	lines, err := h.tracker.Report(r.Context(), auth.Company(r), month)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]lineResponse, len(lines))
	for i, l := range lines {
		resp[i] = toLine(l)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) load(r *http.Request) (*budget.Budget, error) {
	id, err := respond.ID(r)
	if err != nil {
		return nil, err
	}

	b, err := h.tracker.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}

	return b, auth.Owned(r.Context(), "budget", b.CompanyID)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	b, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.SetVersion(w, b.UpdatedAt)
	respond.JSON(w, http.StatusOK, toResponse(b))
}

func (h *Handler) variance(w http.ResponseWriter, r *http.Request) {
	b, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	line, err := h.tracker.Variance(r.Context(), b.ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toLine(line))
}

type updateBudgetRequest struct {
	AmountPlanned  *money.Cents `json:"amountPlanned,omitempty"`
	AlertThreshold *int         `json:"alertThreshold,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	b, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req updateBudgetRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	version, err := respond.Version(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if b, err = h.tracker.Update(r.Context(), b.ID, req.AmountPlanned, req.AlertThreshold, version); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.SetVersion(w, b.UpdatedAt)
	respond.JSON(w, http.StatusOK, toResponse(b))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	b, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.tracker.Delete(r.Context(), b.ID); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
