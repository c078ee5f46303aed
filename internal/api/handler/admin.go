package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ailab-bots/caloriebot/internal/api/response"
	"github.com/ailab-bots/caloriebot/internal/keys"
	"github.com/ailab-bots/caloriebot/internal/store"
	"github.com/ailab-bots/caloriebot/pkg/models"
)

// keyView is the admin listing shape; codes are shown in display form.
type keyView struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Tier        string  `json:"tier"`
	Quota       *int    `json:"quota,omitempty"`
	Active      bool    `json:"active"`
	ActivatedBy *int64  `json:"activated_by,omitempty"`
	ActivatedAt *string `json:"activated_at,omitempty"`
}

// NewGenerateKeysHandler returns the handler for POST /api/v1/admin/keys/generate.
// With an empty body it runs the default catalog; a JSON body may override
// the targets.
func NewGenerateKeysHandler(catalog *keys.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targets := keys.DefaultCatalog()

		var req struct {
			Targets []struct {
				Tier  string `json:"tier"`
				Quota *int   `json:"quota"`
				Count int    `json:"count"`
			} `json:"targets"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Targets) > 0 {
			targets = targets[:0]
			for _, t := range req.Targets {
				tier := models.KeyTier(t.Tier)
				if tier != models.TierUnlimited && tier != models.TierLimited {
					response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "tier must be unlimited or limited", nil)
					return
				}
				if tier == models.TierLimited && (t.Quota == nil || *t.Quota <= 0) {
					response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limited keys need a positive quota", nil)
					return
				}
				if tier == models.TierUnlimited {
					t.Quota = nil
				}
				targets = append(targets, keys.Target{Tier: tier, Quota: t.Quota, Count: t.Count})
			}
		}

		added, err := catalog.Ensure(r.Context(), targets)
		if err != nil {
			if errors.Is(err, keys.ErrGenerationExhausted) {
				response.Error(w, http.StatusConflict, "GENERATION_EXHAUSTED",
					"Could not find unique codes; catalog partially updated", map[string]any{"added": added})
				return
			}
			writeError(w, err)
			return
		}
		response.JSON(w, map[string]any{"added": added})
	}
}

// NewListKeysHandler returns the handler for GET /api/v1/admin/keys.
func NewListKeysHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := st.ListAccessKeys(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		views := make([]keyView, 0, len(all))
		for _, k := range all {
			v := keyView{
				ID:          k.ID.String(),
				Code:        keys.Display(k),
				Tier:        string(k.Tier),
				Quota:       k.Quota,
				Active:      k.Active,
				ActivatedBy: k.ActivatedBy,
			}
			if k.ActivatedAt != nil {
				s := k.ActivatedAt.UTC().Format("2006-01-02T15:04:05Z")
				v.ActivatedAt = &s
			}
			views = append(views, v)
		}
		response.JSON(w, views)
	}
}

// NewExportKeysHandler returns the handler for GET /api/v1/admin/keys/export,
// serving the distribution listing as plain text.
func NewExportKeysHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := st.ListAccessKeys(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		var buf bytes.Buffer
		if err := keys.WriteExport(&buf, all); err != nil {
			writeError(w, err)
			return
		}
		response.Text(w, buf.Bytes())
	}
}

// NewUsageTotalsHandler returns the handler for GET /api/v1/admin/usage.
func NewUsageTotalsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		totals, err := st.GetAPIUsageTotals(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, totals)
	}
}
