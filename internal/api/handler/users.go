package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ailab-bots/caloriebot/internal/access"
	"github.com/ailab-bots/caloriebot/internal/api/response"
	"github.com/ailab-bots/caloriebot/internal/store"
	"github.com/ailab-bots/caloriebot/pkg/models"
)

// Activator binds an access key to a user.
type Activator interface {
	Activate(ctx context.Context, rawCode string, userID int64) (*models.ActivationResult, error)
}

// Evaluator computes the current entitlement of a user.
type Evaluator interface {
	Evaluate(ctx context.Context, userID int64) (*access.State, error)
}

// NewActivateHandler returns the handler for POST /api/v1/users/{userID}/activate.
func NewActivateHandler(svc Activator, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid user id", nil)
			return
		}

		var req struct {
			Code      string `json:"code"`
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if err := ensureUser(r.Context(), st, id, req.Username, req.FirstName); err != nil {
			writeError(w, err)
			return
		}

		result, err := svc.Activate(r.Context(), req.Code, id)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, result)
	}
}

// NewAccessHandler returns the handler for GET /api/v1/users/{userID}/access.
func NewAccessHandler(svc Evaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid user id", nil)
			return
		}

		state, err := svc.Evaluate(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, state)
	}
}

// NewStatsHandler returns the handler for GET /api/v1/users/{userID}/stats.
// The optional date query parameter selects a day other than today.
func NewStatsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid user id", nil)
			return
		}

		day := time.Now().UTC()
		if d := r.URL.Query().Get("date"); d != "" {
			parsed, err := time.Parse("2006-01-02", d)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "date must be YYYY-MM-DD", nil)
				return
			}
			day = parsed
		}

		summary, err := st.GetDailySummary(r.Context(), id, day)
		if err != nil {
			writeError(w, err)
			return
		}

		target := models.DefaultDailyCalorieTarget
		if user, err := st.GetUser(r.Context(), id); err == nil {
			target = user.DailyCalorieTarget
		}

		response.JSON(w, map[string]any{
			"summary":              summary,
			"daily_calorie_target": target,
		})
	}
}

// NewListMealsHandler returns the handler for GET /api/v1/users/{userID}/meals.
func NewListMealsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid user id", nil)
			return
		}

		meals, err := st.ListMealsForDay(r.Context(), id, time.Now().UTC())
		if err != nil {
			writeError(w, err)
			return
		}
		if meals == nil {
			meals = []*models.Meal{}
		}
		response.JSON(w, meals)
	}
}

// NewResetMealsHandler returns the handler for DELETE /api/v1/users/{userID}/meals.
// It clears today's meal log, matching the bot's /reset command.
func NewResetMealsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid user id", nil)
			return
		}

		deleted, err := st.DeleteMealsForDay(r.Context(), id, time.Now().UTC())
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, map[string]any{"deleted": deleted})
	}
}

// NewSetTargetHandler returns the handler for PUT /api/v1/users/{userID}/target.
func NewSetTargetHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid user id", nil)
			return
		}

		var req struct {
			DailyCalorieTarget int `json:"daily_calorie_target"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.DailyCalorieTarget < 500 || req.DailyCalorieTarget > 10000 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "daily_calorie_target must be between 500 and 10000", nil)
			return
		}

		if err := ensureUser(r.Context(), st, id, "", ""); err != nil {
			writeError(w, err)
			return
		}
		if err := st.SetDailyCalorieTarget(r.Context(), id, req.DailyCalorieTarget); err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, map[string]any{"daily_calorie_target": req.DailyCalorieTarget})
	}
}
