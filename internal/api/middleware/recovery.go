package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/ailab-bots/caloriebot/internal/api/response"
)

// Recovery converts panics into 500 responses. http.ErrAbortHandler is
// re-raised so the server can abort the connection as usual.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("panic recovered",
				"error", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"stack", string(debug.Stack()),
			)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "An unexpected error occurred", nil)
		}()
		next.ServeHTTP(w, r)
	})
}
