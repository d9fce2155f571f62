package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/fluxo/internal/http/account"
	"github.com/MrJamesThe3rd/fluxo/internal/http/alert"
	"github.com/MrJamesThe3rd/fluxo/internal/http/auth"
	"github.com/MrJamesThe3rd/fluxo/internal/http/budget"
	"github.com/MrJamesThe3rd/fluxo/internal/http/reconciliation"
	"github.com/MrJamesThe3rd/fluxo/internal/http/recurrence"
	"github.com/MrJamesThe3rd/fluxo/internal/http/reference"
	"github.com/MrJamesThe3rd/fluxo/internal/http/transaction"
	"github.com/MrJamesThe3rd/fluxo/internal/http/transfer"
	refdomain "github.com/MrJamesThe3rd/fluxo/internal/reference"
)

type Handlers struct {
	Accounts       *account.Handler
	Reference      *reference.Handler
	Transactions   *transaction.Handler
	Transfers      *transfer.Handler
	Recurrences    *recurrence.Handler
	Budgets        *budget.Handler
	Alerts         *alert.Handler
	Reconciliation *reconciliation.Handler
}

type Options struct {
	AllowedOrigins []string
	Timeout        time.Duration
	// Metrics is served unauthenticated at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
}

func New(authn *auth.Authenticator, h Handlers, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "If-Match"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         300,
	}))

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if opts.Metrics != nil {
		router.Method(http.MethodGet, opts.MetricsPath, opts.Metrics)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(authn.Authenticate)

		r.Route("/companies", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Reference.CompanyRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireCompany)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))

				r.Route("/accounts", h.Accounts.Routes)
				r.Route("/categories", h.Reference.CategoryRoutes)
				r.Route("/vendors", h.Reference.PartyRoutes(refdomain.RoleVendor))
				r.Route("/customers", h.Reference.PartyRoutes(refdomain.RoleCustomer))
				r.Route("/transactions", h.Transactions.Routes)
				r.Route("/transfers", h.Transfers.Routes)
				r.Route("/recurrences", h.Recurrences.Routes)
				r.Route("/budgets", h.Budgets.Routes)
				r.Route("/alerts", h.Alerts.Routes)
			})

			r.Route("/reconciliation", func(r chi.Router) {
				r.Use(middleware.AllowContentType("multipart/form-data"))
				h.Reconciliation.Routes(r)
			})
		})
	})

	return router
}
