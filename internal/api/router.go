package api

import (
	"net/http"

	mw "github.com/ailab-bots/caloriebot/internal/api/middleware"
	"github.com/ailab-bots/caloriebot/internal/api/response"
	"github.com/go-chi/chi/v5"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	ActivateHandler     http.HandlerFunc
	AccessHandler       http.HandlerFunc
	AnalyzePhotoHandler http.HandlerFunc
	AnalyzeTextHandler  http.HandlerFunc
	StatsHandler        http.HandlerFunc
	ListMealsHandler    http.HandlerFunc
	ResetMealsHandler   http.HandlerFunc
	SetTargetHandler    http.HandlerFunc

	GenerateKeysHandler http.HandlerFunc
	ListKeysHandler     http.HandlerFunc
	ExportKeysHandler   http.HandlerFunc
	UsageTotalsHandler  http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)

		r.Route("/api/v1/users/{userID}", func(r chi.Router) {
			r.Use(deps.RateLimit.Limit)

			r.Post("/activate", orNotImplemented(deps.ActivateHandler))
			r.Get("/access", orNotImplemented(deps.AccessHandler))

			r.Post("/analyze/photo", orNotImplemented(deps.AnalyzePhotoHandler))
			r.Post("/analyze/text", orNotImplemented(deps.AnalyzeTextHandler))

			r.Get("/stats", orNotImplemented(deps.StatsHandler))
			r.Get("/meals", orNotImplemented(deps.ListMealsHandler))
			r.Delete("/meals", orNotImplemented(deps.ResetMealsHandler))
			r.Put("/target", orNotImplemented(deps.SetTargetHandler))
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireAdmin)

			r.Post("/api/v1/admin/keys/generate", orNotImplemented(deps.GenerateKeysHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Get("/api/v1/admin/keys/export", orNotImplemented(deps.ExportKeysHandler))
			r.Get("/api/v1/admin/usage", orNotImplemented(deps.UsageTotalsHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
