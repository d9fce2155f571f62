package reference

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/http/auth"
	"github.com/MrJamesThe3rd/fluxo/internal/http/respond"
	"github.com/MrJamesThe3rd/fluxo/internal/reference"
)

type Handler struct {
	svc *reference.Service
}

func NewHandler(svc *reference.Service) *Handler {
	return &Handler{svc: svc}
}

// CompanyRoutes is mounted behind authentication only, so a token without a company can
// register one.
func (h *Handler) CompanyRoutes(r chi.Router) {
	r.Post("/", h.createCompany)
	r.Get("/{id}", h.getCompany)
	r.Post("/{id}/deactivate", h.deactivateCompany)
}

func (h *Handler) CategoryRoutes(r chi.Router) {
	r.Post("/", h.createCategory)
	r.Get("/", h.listCategories)
	r.Get("/{id}", h.getCategory)
	r.Post("/{id}/deactivate", h.deactivateCategory)
}

// PartyRoutes serves vendors or customers, depending on role.
func (h *Handler) PartyRoutes(role reference.Role) func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) { h.createParty(w, r, role) })
		r.Get("/", func(w http.ResponseWriter, r *http.Request) { h.listParties(w, r, role) })
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) { h.getParty(w, r, role) })
		r.Post("/{id}/deactivate", func(w http.ResponseWriter, r *http.Request) { h.deactivateParty(w, r, role) })
	}
}

type companyResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CNPJ      string    `json:"cnpj"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

type categoryResponse struct {
	ID     uuid.UUID              `json:"id"`
	Name   string                 `json:"name"`
	Kind   reference.CategoryKind `json:"kind"`
	Active bool                   `json:"active"`
}

type partyResponse struct {
	ID      uuid.UUID      `json:"id"`
	Role    reference.Role `json:"role"`
	Name    string         `json:"name"`
	CnpjCpf string         `json:"cnpjCpf,omitempty"`
	Email   string         `json:"email,omitempty"`
	Phone   string         `json:"phone,omitempty"`
	Active  bool           `json:"active"`
}

func toCompany(c *reference.Company) companyResponse {
	return companyResponse{ID: c.ID, Name: c.Name, CNPJ: c.CNPJ, Active: c.Active, CreatedAt: c.CreatedAt}
}

func toCategory(c *reference.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Kind: c.Kind, Active: c.Active}
}

func toParty(p *reference.Party) partyResponse {
	return partyResponse{
		ID: p.ID, Role: p.Role, Name: p.Name, CnpjCpf: p.CnpjCpf, Email: p.Email, Phone: p.Phone, Active: p.Active,
	}
}

type createCompanyRequest struct {
	Name string `json:"name"`
	CNPJ string `json:"cnpj"`
}

func (h *Handler) createCompany(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	c, err := h.svc.CreateCompany(r.Context(), req.Name, req.CNPJ)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toCompany(c))
}

func (h *Handler) loadCompany(r *http.Request) (*reference.Company, error) {
	id, err := respond.ID(r)
	if err != nil {
		return nil, err
	}

	if err := auth.Owned(r.Context(), "company", id); err != nil {
		return nil, err
	}

	return h.svc.GetCompany(r.Context(), id)
}

func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	c, err := h.loadCompany(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toCompany(c))
}

func (h *Handler) deactivateCompany(w http.ResponseWriter, r *http.Request) {
	c, err := h.loadCompany(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.DeactivateCompany(r.Context(), c.ID); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type createCategoryRequest struct {
	Name string                 `json:"name"`
	Kind reference.CategoryKind `json:"kind"`
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	c, err := h.svc.CreateCategory(r.Context(), reference.CategoryParams{
		CompanyID: auth.Company(r),
		Name:      req.Name,
		Kind:      req.Kind,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toCategory(c))
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context(), auth.Company(r), respond.Bool(r, "includeInactive"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = toCategory(c)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) loadCategory(r *http.Request) (*reference.Category, error) {
	id, err := respond.ID(r)
	if err != nil {
		return nil, err
	}

	c, err := h.svc.GetCategory(r.Context(), id)
	if err != nil {
		return nil, err
	}

	return c, auth.Owned(r.Context(), "category", c.CompanyID)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.loadCategory(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toCategory(c))
}

func (h *Handler) deactivateCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.loadCategory(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.DeactivateCategory(r.Context(), c.ID); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type createPartyRequest struct {
	Name    string `json:"name"`
	CnpjCpf string `json:"cnpjCpf"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

func (h *Handler) createParty(w http.ResponseWriter, r *http.Request, role reference.Role) {
	var req createPartyRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	p, err := h.svc.CreateParty(r.Context(), reference.PartyParams{
		CompanyID: auth.Company(r),
		Role:      role,
		Name:      req.Name,
		CnpjCpf:   req.CnpjCpf,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toParty(p))
}

func (h *Handler) listParties(w http.ResponseWriter, r *http.Request, role reference.Role) {
	parties, err := h.svc.ListParties(r.Context(), auth.Company(r), role, respond.Bool(r, "includeInactive"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]partyResponse, len(parties))
	for i, p := range parties {
		resp[i] = toParty(p)
	}

	respond.JSON(w, http.StatusOK, resp)
}

// loadParty also hides parties of the other role, so /vendors/{id} never serves a customer.
func (h *Handler) loadParty(r *http.Request, role reference.Role) (*reference.Party, error) {
	id, err := respond.ID(r)
	if err != nil {
		return nil, err
	}

	p, err := h.svc.GetParty(r.Context(), id)
	if err != nil {
		return nil, err
	}

	if p.Role != role {
		return nil, reference.ErrPartyNotFound
	}

	return p, auth.Owned(r.Context(), string(role), p.CompanyID)
}

func (h *Handler) getParty(w http.ResponseWriter, r *http.Request, role reference.Role) {
	p, err := h.loadParty(r, role)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toParty(p))
}

func (h *Handler) deactivateParty(w http.ResponseWriter, r *http.Request, role reference.Role) {
	p, err := h.loadParty(r, role)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.DeactivateParty(r.Context(), p.ID); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
