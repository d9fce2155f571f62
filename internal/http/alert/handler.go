package alert

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/fluxo/internal/alert"
	"github.com/MrJamesThe3rd/fluxo/internal/http/auth"
	"github.com/MrJamesThe3rd/fluxo/internal/http/respond"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
)

type Handler struct {
	engine *alert.Engine
	clock  ledger.Clock
}

func NewHandler(engine *alert.Engine, clock ledger.Clock) *Handler {
	return &Handler{engine: engine, clock: clock}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/evaluate", h.evaluate)
	r.Post("/{id}/read", h.markRead)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.engine.List(r.Context(), alert.ListFilter{
		CompanyID:  auth.Company(r),
		UnreadOnly: respond.Bool(r, "unread"),
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if alerts == nil {
		alerts = []*alert.Alert{}
	}

	respond.JSON(w, http.StatusOK, alerts)
}

// evaluate derives the company's alerts now and returns the ones raised for the first time.
func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	created, err := h.engine.Evaluate(r.Context(), auth.Company(r), h.clock.Now())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if created == nil {
		created = []*alert.Alert{}
	}

	respond.JSON(w, http.StatusOK, created)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	a, err := h.engine.Get(r.Context(), id)
	if err == nil {
		err = auth.Owned(r.Context(), "alert", a.CompanyID)
	}

	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if a, err = h.engine.MarkRead(r.Context(), id); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, a)
}
