package account

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/account"
	"github.com/MrJamesThe3rd/fluxo/internal/http/auth"
	"github.com/MrJamesThe3rd/fluxo/internal/http/respond"
	"github.com/MrJamesThe3rd/fluxo/internal/money"
)

type Handler struct {
	svc *account.Service
}

func NewHandler(svc *account.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Post("/{id}/deactivate", h.deactivate)
}

type accountResponse struct {
	ID                    uuid.UUID      `json:"id"`
	Name                  string         `json:"name"`
	Bank                  string         `json:"bank"`
	Kind                  account.Kind   `json:"kind"`
	OpeningBalance        money.Cents    `json:"openingBalance"`
	CurrentBalance        money.Cents    `json:"currentBalance"`
	BalanceDisplay        string         `json:"balanceDisplay"`
	TargetBalance         *money.Cents   `json:"targetBalance,omitempty"`
	GoalAchieved          bool           `json:"goalAchieved"`
	PixEnabled            bool           `json:"pixEnabled"`
	BoletoEnabled         bool           `json:"boletoEnabled"`
	ReconciliationEnabled bool           `json:"reconciliationEnabled"`
	Status                account.Status `json:"status"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

func toResponse(a *account.Account) accountResponse {
	return accountResponse{
		ID:                    a.ID,
		Name:                  a.Name,
		Bank:                  a.Bank,
		Kind:                  a.Kind,
		OpeningBalance:        a.OpeningBalance,
		CurrentBalance:        a.CurrentBalance,
		BalanceDisplay:        a.CurrentBalance.String(),
		TargetBalance:         a.TargetBalance,
		GoalAchieved:          a.GoalAchieved(),
		PixEnabled:            a.PixEnabled,
		BoletoEnabled:         a.BoletoEnabled,
		ReconciliationEnabled: a.ReconciliationEnabled,
		Status:                a.Status,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}

type createAccountRequest struct {
	Name                  string       `json:"name"`
	Bank                  string       `json:"bank"`
	Kind                  account.Kind `json:"kind"`
	OpeningBalance        money.Cents  `json:"openingBalance"`
	TargetBalance         *money.Cents `json:"targetBalance"`
	PixEnabled            bool         `json:"pixEnabled"`
	BoletoEnabled         bool         `json:"boletoEnabled"`
	ReconciliationEnabled bool         `json:"reconciliationEnabled"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	a, err := h.svc.Create(r.Context(), account.CreateParams{
		CompanyID:             auth.Company(r),
		Name:                  req.Name,
		Bank:                  req.Bank,
		Kind:                  req.Kind,
		OpeningBalance:        req.OpeningBalance,
		TargetBalance:         req.TargetBalance,
		PixEnabled:            req.PixEnabled,
		BoletoEnabled:         req.BoletoEnabled,
		ReconciliationEnabled: req.ReconciliationEnabled,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.SetVersion(w, a.UpdatedAt)
	respond.JSON(w, http.StatusCreated, toResponse(a))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.List(r.Context(), auth.Company(r))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		resp[i] = toResponse(a)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) load(r *http.Request) (*account.Account, error) {
	id, err := respond.ID(r)
	if err != nil {
		return nil, err
	}

	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}

	return a, auth.Owned(r.Context(), "account", a.CompanyID)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	a, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.SetVersion(w, a.UpdatedAt)
	respond.JSON(w, http.StatusOK, toResponse(a))
}

type updateAccountRequest struct {
	Name                  *string         `json:"name,omitempty"`
	Bank                  *string         `json:"bank,omitempty"`
	Kind                  *account.Kind   `json:"kind,omitempty"`
	TargetBalance         *money.Cents    `json:"targetBalance,omitempty"`
	ClearTarget           bool            `json:"clearTarget,omitempty"`
	PixEnabled            *bool           `json:"pixEnabled,omitempty"`
	BoletoEnabled         *bool           `json:"boletoEnabled,omitempty"`
	ReconciliationEnabled *bool           `json:"reconciliationEnabled,omitempty"`
	Status                *account.Status `json:"status,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	a, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req updateAccountRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	version, err := respond.Version(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	a, err = h.svc.Update(r.Context(), a.ID, account.UpdateParams{
		Name:                  req.Name,
		Bank:                  req.Bank,
		Kind:                  req.Kind,
		TargetBalance:         req.TargetBalance,
		ClearTarget:           req.ClearTarget,
		PixEnabled:            req.PixEnabled,
		BoletoEnabled:         req.BoletoEnabled,
		ReconciliationEnabled: req.ReconciliationEnabled,
		Status:                req.Status,
	}, version)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.SetVersion(w, a.UpdatedAt)
	respond.JSON(w, http.StatusOK, toResponse(a))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	a, err := h.load(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if a, err = h.svc.Deactivate(r.Context(), a.ID); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.SetVersion(w, a.UpdatedAt)
	respond.JSON(w, http.StatusOK, toResponse(a))
}
