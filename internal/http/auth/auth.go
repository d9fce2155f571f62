// Package auth scopes API requests to a company. Requests carry a bearer JWT signed with
// HS256 whose company_id claim names the company every read and write is confined to.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fluxo/internal/http/respond"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
)

type Claims struct {
	CompanyID string `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

// Authenticator verifies tokens issued with the shared secret.
type Authenticator struct {
	secret []byte
	issuer string
}

func New(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

var errUnauthorized = errors.New("unauthorized")

// Issue signs a token for companyID. A nil company yields a token that may only create
// companies.
func (a *Authenticator) Issue(subject string, companyID uuid.UUID, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	if companyID != uuid.Nil {
		claims.CompanyID = companyID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}

func (a *Authenticator) parse(header string) (*Claims, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, fmt.Errorf("%w: missing bearer token", errUnauthorized)
	}

	var claims Claims

	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(a.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUnauthorized, err)
	}

	return &claims, nil
}

// Authenticate rejects requests without a valid token.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.parse(r.Header.Get("Authorization"))
		if err != nil {
			unauthorized(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
	})
}

// RequireCompany rejects authenticated requests whose token names no company.
func RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CompanyID(r.Context()); !ok {
			unauthorized(w, fmt.Errorf("%w: token carries no company", errUnauthorized))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="fluxo"`)
	respond.JSON(w, http.StatusUnauthorized, map[string]any{
		"error": map[string]string{"kind": "Unauthorized", "message": err.Error()},
	})
}

// WithCompany scopes ctx to companyID the way a verified token does.
func WithCompany(ctx context.Context, companyID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, &Claims{CompanyID: companyID.String()})
}

func CompanyID(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := ctx.Value(ctxKey{}).(*Claims)
	if !ok || claims.CompanyID == "" {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(claims.CompanyID)
	if err != nil {
		return uuid.Nil, false
	}

	return id, true
}

// Owned returns ErrNotFound, wrapped with what, unless the record belongs to the request's
// company. Records of other companies are indistinguishable from missing ones.
func Owned(ctx context.Context, what string, companyID uuid.UUID) error {
	if id, ok := CompanyID(ctx); ok && id == companyID {
		return nil
	}

	return fmt.Errorf("%s %w", what, ledger.ErrNotFound)
}

// Company returns the request's company. Routes are mounted behind RequireCompany, so a
// missing claim is a wiring bug.
func Company(r *http.Request) uuid.UUID {
	id, _ := CompanyID(r.Context())
	return id
}
