package middleware

import "net/http"

// Capability gates. Distinct from Auth: a gate failure means "we know who
// you are, but your verification tier is insufficient" — 403, not 401.

// RequireEmailVerified allows only accounts with a proven email.
func RequireEmailVerified(next http.Handler) http.Handler {
	return requireFlag(next, func(emailVerified, _ bool) bool { return emailVerified },
		"email verification required")
}

// RequireFullyVerified allows only accounts with both channels proven.
func RequireFullyVerified(next http.Handler) http.Handler {
	return requireFlag(next, func(_, fullyVerified bool) bool { return fullyVerified },
		"full verification required")
}

func requireFlag(next http.Handler, allowed func(emailVerified, fullyVerified bool) bool, msg string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !allowed(identity.EmailVerified, identity.FullyVerified) {
			writeJSONError(w, http.StatusForbidden, msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}
