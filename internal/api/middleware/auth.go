package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ailab-bots/caloriebot/internal/api/response"
)

// Auth validates the shared tokens presented by the bot adapter and by
// operators. Tokens come from config, not the database; the access keys in
// the store belong to end users and never reach this layer.
type Auth struct {
	serviceToken string
	adminToken   string
}

// NewAuth creates a new Auth middleware.
func NewAuth(serviceToken, adminToken string) *Auth {
	return &Auth{serviceToken: serviceToken, adminToken: adminToken}
}

// Authenticate validates the Bearer token and records the caller role in the
// request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		switch {
		case tokenEqual(token, a.serviceToken):
			r = r.WithContext(setRole(r.Context(), RoleService))
		case a.adminToken != "" && tokenEqual(token, a.adminToken):
			r = r.WithContext(setRole(r.Context(), RoleAdmin))
		default:
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid token", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAdmin restricts a route to callers holding the admin token.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := GetRole(r)
		if !ok || role != RoleAdmin {
			response.Error(w, http.StatusForbidden,
				"FORBIDDEN", "Admin token required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
