// Package respond holds the JSON plumbing shared by the HTTP handlers and the single
// translation of ledger errors into status codes:
//
//	ValidationError, Overpayment      422
//	NotFound                          404
//	Conflict                          409 (stale version, refetch and retry)
//	InvalidTransition, PairingFailure 409
//	malformed request                 400
//	anything else                     500
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
	"github.com/MrJamesThe3rd/fluxo/internal/validation"
)

// ErrBadRequest marks input that could not be read at all, before any ledger rule ran.
var ErrBadRequest = errors.New("bad request")

func BadRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

type errorBody struct {
	Kind    string                  `json:"kind"`
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func Status(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, ledger.ErrOverpayment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrConflict),
		errors.Is(err, ledger.ErrInvalidTransition),
		errors.Is(err, ledger.ErrPairingFailure):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)

	body := errorBody{Kind: ledger.Kind(err), Message: err.Error()}

	switch {
	case status == http.StatusInternalServerError:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)

		body.Message = "internal error"
	case status == http.StatusBadRequest:
		body.Kind = "BadRequest"
	}

	var verr *validation.Error
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}

	JSON(w, status, errorResponse{Error: body})
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Decode reads a JSON body into v, rejecting unknown fields.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return BadRequest("decoding body: %v", err)
	}

	return nil
}

func ID(r *http.Request) (uuid.UUID, error) {
	return ParseID(chi.URLParam(r, "id"), "id")
}

func ParseID(s, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, BadRequest("invalid %s %q", name, s)
	}

	return id, nil
}

// OptionalID parses the query parameter name when present.
func OptionalID(r *http.Request, name string) (*uuid.UUID, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}

	id, err := ParseID(s, name)
	if err != nil {
		return nil, err
	}

	return &id, nil
}

func Bool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// Version reads the expected record version from If-Match. Versions are the record's
// UpdatedAt in RFC 3339 with nanoseconds, as sent back in ETag.
func Version(r *http.Request) (*time.Time, error) {
	s := r.Header.Get("If-Match")
	if s == "" {
		return nil, nil
	}

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, BadRequest("invalid If-Match version %q", s)
	}

	return &t, nil
}

func SetVersion(w http.ResponseWriter, updatedAt time.Time) {
	w.Header().Set("ETag", strconv.Quote(updatedAt.UTC().Format(time.RFC3339Nano)))
}
