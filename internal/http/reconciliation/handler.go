package reconciliation

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/account"
	"github.com/MrJamesThe3rd/fluxo/internal/http/auth"
	"github.com/MrJamesThe3rd/fluxo/internal/http/respond"
	"github.com/MrJamesThe3rd/fluxo/internal/reconciliation"
	"github.com/MrJamesThe3rd/fluxo/internal/statement"
)

type AccountGetter interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

type Handler struct {
	svc      *reconciliation.Service
	accounts AccountGetter
	maxBytes int64
}

func NewHandler(svc *reconciliation.Service, accounts AccountGetter, maxBytes int64) *Handler {
	return &Handler{svc: svc, accounts: accounts, maxBytes: maxBytes}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.reconcile)
}

type reconcileResponse struct {
	Matched        int                    `json:"matched"`
	Unmatched      int                    `json:"unmatched"`
	Matches        []reconciliation.Match `json:"matches"`
	UnmatchedLines []statement.Line       `json:"unmatchedLines"`
}

// reconcile takes a multipart upload with the statement in "file" and the account in
// "accountId".
func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		respond.Error(w, r, respond.BadRequest("failed to parse form: %v", err))
		return
	}

	accountID, err := respond.ParseID(r.FormValue("accountId"), "accountId")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	acc, err := h.accounts.GetAccount(r.Context(), accountID)
	if err == nil {
		err = auth.Owned(r.Context(), "account", acc.CompanyID)
	}

	if err != nil {
		respond.Error(w, r, err)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, r, respond.BadRequest("file field is required"))
		return
	}
	defer file.Close()

	res, err := h.svc.ReconcileStatement(r.Context(), acc.ID, file)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := reconcileResponse{
		Matched:        len(res.Matched),
		Unmatched:      len(res.Unmatched),
		Matches:        res.Matched,
		UnmatchedLines: res.Unmatched,
	}

	if resp.Matches == nil {
		resp.Matches = []reconciliation.Match{}
	}

	if resp.UnmatchedLines == nil {
		resp.UnmatchedLines = []statement.Line{}
	}

	respond.JSON(w, http.StatusOK, resp)
}
