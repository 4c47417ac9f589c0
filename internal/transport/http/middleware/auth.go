package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-wallet-api/internal/domain"
	jwtinfra "github.com/go-wallet-api/internal/infrastructure/jwt"
)

type contextKey string

const IdentityKey contextKey = "identity"

// AccountResolver looks up the live account behind a token's phone number.
type AccountResolver interface {
	Get(ctx context.Context, phoneNumber string) (*domain.Account, error)
}

// Auth validates the Bearer JWT, re-reads the account and injects an
// Identity snapshot into the request context. Authorization always reflects
// the persisted flags, not the flags frozen into the token at issuance.
// A token for a deleted account or an unverified phone is rejected.
func Auth(provider *jwtinfra.Provider, accounts AccountResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := provider.Verify(tokenStr)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			a, err := accounts.Get(r.Context(), claims.PhoneNumber)
			if err != nil {
				// Only a confirmed missing account is an auth failure; a
				// store outage must not read as a revoked credential.
				if errors.Is(err, domain.ErrNotFound) {
					writeJSONError(w, http.StatusUnauthorized, "account no longer exists")
					return
				}
				writeJSONError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
				return
			}
			if !a.SMSVerified {
				writeJSONError(w, http.StatusUnauthorized, "phone not verified")
				return
			}
			identity := &domain.Identity{
				AccountID:     a.AccountID,
				PhoneNumber:   a.PhoneNumber,
				SMSVerified:   a.SMSVerified,
				EmailVerified: a.EmailVerified,
				FullyVerified: a.FullyVerified,
				KYCStatus:     a.KYCStatus,
			}
			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext extracts the resolved identity from the request context.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(*domain.Identity)
	return id, ok
}
