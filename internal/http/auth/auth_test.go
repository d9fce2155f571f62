package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fluxo/internal/http/auth"
	"github.com/MrJamesThe3rd/fluxo/internal/ledger"
)

func TestAuthenticator(t *testing.T) {
	a := auth.New("s3cret", "fluxo")
	companyID := uuid.New()
	now := time.Now()

	valid, err := a.Issue("maria", companyID, time.Hour, now)
	require.NoError(t, err)

	noCompany, err := a.Issue("admin", uuid.Nil, time.Hour, now)
	require.NoError(t, err)

	expired, err := a.Issue("maria", companyID, time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)

	foreign, err := auth.New("other", "fluxo").Issue("maria", companyID, time.Hour, now)
	require.NoError(t, err)

	wrongIssuer, err := auth.New("s3cret", "someone-else").Issue("maria", companyID, time.Hour, now)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{CompanyID: companyID.String()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "Valid", header: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "Missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "Not bearer", header: "Basic " + valid, wantStatus: http.StatusUnauthorized},
		{name: "No company claim", header: "Bearer " + noCompany, wantStatus: http.StatusUnauthorized},
		{name: "Expired", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "Wrong secret", header: "Bearer " + foreign, wantStatus: http.StatusUnauthorized},
		{name: "Wrong issuer", header: "Bearer " + wrongIssuer, wantStatus: http.StatusUnauthorized},
		{name: "Unsigned", header: "Bearer " + none, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got uuid.UUID

			h := a.Authenticate(auth.RequireCompany(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = auth.Company(r)
			})))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, companyID, got)
			}
		})
	}
}

func TestOwned(t *testing.T) {
	mine, theirs := uuid.New(), uuid.New()
	ctx := auth.WithCompany(t.Context(), mine)

	assert.NoError(t, auth.Owned(ctx, "account", mine))
	assert.ErrorIs(t, auth.Owned(ctx, "account", theirs), ledger.ErrNotFound)
	assert.ErrorIs(t, auth.Owned(t.Context(), "account", mine), ledger.ErrNotFound)
}
