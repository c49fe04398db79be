package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/schoolhub/membership/internal/metrics"
)

type Middleware struct {
	tokens *TokenService
}

func NewMiddleware(tokens *TokenService) *Middleware {
	return &Middleware{tokens: tokens}
}

// Authenticate attaches the caller identity when a valid bearer token is
// present. Requests without one continue anonymously; operations that need
// an identity fail later with ErrAuthenticationRequired.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractBearerToken(r)
		if tokenStr == "" {
			next.ServeHTTP(w, r)
			return
		}

		cred, err := m.tokens.Verify(tokenStr)
		if err != nil {
			metrics.AuthAttempts.WithLabelValues("invalid").Inc()
			slog.Debug("rejected bearer token", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		metrics.AuthAttempts.WithLabelValues("ok").Inc()

		ctx := WithIdentity(r.Context(), &Identity{UserID: cred.Subject, SystemRole: cred.SystemRole})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuthenticated rejects anonymous requests with 401.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			metrics.RecordAuthzDecision("authenticated", "unauthenticated")
			writeError(w, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", ErrAuthenticationRequired.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"code": code, "error": msg})
}
