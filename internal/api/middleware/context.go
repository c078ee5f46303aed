package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const roleKey contextKey = "role"

const (
	RoleService = "service"
	RoleAdmin   = "admin"
)

func setRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

// GetRole returns the authenticated caller role set by Authenticate.
func GetRole(r *http.Request) (string, bool) {
	role, ok := r.Context().Value(roleKey).(string)
	return role, ok
}
