// Package handler contains the HTTP handlers serving the bot adapter and
// operator tooling.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ailab-bots/caloriebot/internal/access"
	"github.com/ailab-bots/caloriebot/internal/ai"
	"github.com/ailab-bots/caloriebot/internal/api/response"
	"github.com/ailab-bots/caloriebot/internal/store"
	"github.com/ailab-bots/caloriebot/pkg/models"
	"github.com/go-chi/chi/v5"
)

// userID extracts the platform user id from the URL.
func userID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	return id, err == nil && id > 0
}

// ensureUser upserts the user row so foreign keys on meals, usage, and the
// request log always resolve.
func ensureUser(ctx context.Context, st store.Store, id int64, username, firstName string) error {
	return st.UpsertUser(ctx, &models.User{
		ID:                 id,
		Username:           username,
		FirstName:          firstName,
		DailyCalorieTarget: models.DefaultDailyCalorieTarget,
		CreatedAt:          time.Now().UTC(),
	})
}

// writeError maps the typed domain errors onto HTTP statuses and stable
// error codes. Unknown errors surface generically; detail stays in the logs.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, access.ErrEmptyCode):
		response.Error(w, http.StatusBadRequest, "INVALID_KEY", "Access key must not be empty", nil)
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "KEY_NOT_FOUND", "Access key not found", nil)
	case errors.Is(err, store.ErrKeyAlreadyActivated):
		response.Error(w, http.StatusConflict, "KEY_ALREADY_ACTIVATED", "This key was already activated by another user", nil)
	case errors.Is(err, store.ErrUserAlreadyBound):
		response.Error(w, http.StatusConflict, "ALREADY_BOUND", "You already have an activated key", nil)
	case errors.Is(err, access.ErrNotActivated):
		response.Error(w, http.StatusForbidden, "NOT_ACTIVATED", "Activate an access key first", nil)
	case errors.Is(err, access.ErrQuotaExhausted):
		response.Error(w, http.StatusForbidden, "QUOTA_EXHAUSTED", "Image analysis limit reached for this key", nil)
	case errors.Is(err, access.ErrRateLimited):
		response.Error(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, slow down", nil)
	case errors.Is(err, ai.ErrAnalysisTimeout):
		response.Error(w, http.StatusGatewayTimeout, "ANALYSIS_TIMEOUT", "Analysis took too long, try again", nil)
	case errors.Is(err, ai.ErrProviderUnavailable), errors.Is(err, ai.ErrInvalidResponse):
		response.Error(w, http.StatusBadGateway, "ANALYSIS_FAILED", "Could not analyze the food, try again", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong, try again", nil)
	}
}
