package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-wallet-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func gateRequest(identity *domain.Identity) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if identity != nil {
		req = req.WithContext(context.WithValue(req.Context(), IdentityKey, identity))
	}
	return req
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireEmailVerified(t *testing.T) {
	cases := []struct {
		name     string
		identity *domain.Identity
		status   int
	}{
		{"no identity", nil, http.StatusUnauthorized},
		{"email unverified", &domain.Identity{SMSVerified: true}, http.StatusForbidden},
		{"email verified", &domain.Identity{SMSVerified: true, EmailVerified: true}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			rec := httptest.NewRecorder()
			RequireEmailVerified(okHandler(&called)).ServeHTTP(rec, gateRequest(tc.identity))

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.status == http.StatusOK, called)
		})
	}
}

func TestRequireFullyVerified(t *testing.T) {
	cases := []struct {
		name     string
		identity *domain.Identity
		status   int
	}{
		{"no identity", nil, http.StatusUnauthorized},
		{"sms only", &domain.Identity{SMSVerified: true}, http.StatusForbidden},
		{"email verified but not fully", &domain.Identity{EmailVerified: true}, http.StatusForbidden},
		{"fully verified", &domain.Identity{SMSVerified: true, EmailVerified: true, FullyVerified: true}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			rec := httptest.NewRecorder()
			RequireFullyVerified(okHandler(&called)).ServeHTTP(rec, gateRequest(tc.identity))

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.status == http.StatusOK, called)
		})
	}
}
