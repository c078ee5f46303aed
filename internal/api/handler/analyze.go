package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/ailab-bots/caloriebot/internal/ai"
	"github.com/ailab-bots/caloriebot/internal/api/response"
	"github.com/ailab-bots/caloriebot/internal/store"
)

// 10 MiB of JPEG is comfortably above what the messaging platform delivers.
const maxImageBytes = 10 << 20

// Analyzer runs nutrition analyses.
type Analyzer interface {
	AnalyzePhoto(ctx context.Context, userID int64, image []byte, caption string) (*ai.Analysis, error)
	AnalyzeText(ctx context.Context, userID int64, text string) (*ai.Analysis, error)
}

// NewAnalyzePhotoHandler returns the handler for
// POST /api/v1/users/{userID}/analyze/photo. The adapter relays the photo as
// base64 JPEG together with its caption.
func NewAnalyzePhotoHandler(svc Analyzer, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid user id", nil)
			return
		}

		var req struct {
			Image     string `json:"image"`
			Caption   string `json:"caption"`
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImageBytes*2)).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Image == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "image is required", nil)
			return
		}

		image, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "image must be base64", nil)
			return
		}
		if len(image) > maxImageBytes {
			response.Error(w, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", "image exceeds the size limit", nil)
			return
		}

		if err := ensureUser(r.Context(), st, id, req.Username, req.FirstName); err != nil {
			writeError(w, err)
			return
		}

		result, err := svc.AnalyzePhoto(r.Context(), id, image, req.Caption)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, result)
	}
}

// NewAnalyzeTextHandler returns the handler for
// POST /api/v1/users/{userID}/analyze/text.
func NewAnalyzeTextHandler(svc Analyzer, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid user id", nil)
			return
		}

		var req struct {
			Text      string `json:"text"`
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Text == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "text is required", nil)
			return
		}

		if err := ensureUser(r.Context(), st, id, req.Username, req.FirstName); err != nil {
			writeError(w, err)
			return
		}

		result, err := svc.AnalyzeText(r.Context(), id, req.Text)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, result)
	}
}
