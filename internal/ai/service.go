package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ailab-bots/caloriebot/internal/access"
	"github.com/ailab-bots/caloriebot/internal/store"
	"github.com/ailab-bots/caloriebot/pkg/models"
	"github.com/google/uuid"
)

// Analysis is the outcome of one analysis request: the estimate, the logged
// meal, the day's running totals, and the user's entitlement recomputed after
// any usage was charged.
type Analysis struct {
	Estimate *models.NutritionEstimate `json:"estimate"`
	Meal     *models.Meal              `json:"meal"`
	Daily    *models.DailySummary      `json:"daily"`
	Access   *access.State             `json:"access"`
}

// Service orchestrates metered nutrition analysis: entitlement check, rate
// admission, the provider call, meal logging, and usage recording.
type Service struct {
	provider models.NutritionProvider
	access   *access.Service
	store    store.Store
	timeout  time.Duration
}

// NewService creates a new analysis Service.
func NewService(provider models.NutritionProvider, ac *access.Service, st store.Store, timeout time.Duration) *Service {
	return &Service{provider: provider, access: ac, store: st, timeout: timeout}
}

// AnalyzePhoto runs the full metered flow for a food photo. Usage is charged
// against the key strictly after the provider call succeeded: a failed
// analysis never consumes quota.
func (s *Service) AnalyzePhoto(ctx context.Context, userID int64, image []byte, caption string) (*Analysis, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidResponse)
	}

	st, err := s.access.Evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}
	switch st.Status {
	case access.StatusUnbound:
		return nil, access.ErrNotActivated
	case access.StatusExhausted:
		return nil, access.ErrQuotaExhausted
	}

	if err := s.access.Admit(ctx, userID, models.RequestKindImage); err != nil {
		return nil, err
	}

	analysisCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	estimate, err := s.provider.AnalyzeImage(analysisCtx, image, caption)
	if err != nil {
		if errors.Is(analysisCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrAnalysisTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	s.trackCost(ctx, userID, estimate.Usage)

	meal := mealFromEstimate(userID, estimate, true)
	if err := s.store.AddMeal(ctx, meal); err != nil {
		return nil, err
	}

	if err := s.access.RecordImageUse(ctx, userID, st.KeyID); err != nil {
		return nil, err
	}

	return s.finishAnalysis(ctx, userID, estimate, meal)
}

// AnalyzeText handles a food description. Text analysis requires an activated
// key but is never charged against the quota, so an exhausted key still
// works.
func (s *Service) AnalyzeText(ctx context.Context, userID int64, text string) (*Analysis, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty description", ErrInvalidResponse)
	}

	st, err := s.access.Evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st.Status == access.StatusUnbound {
		return nil, access.ErrNotActivated
	}

	if err := s.access.Admit(ctx, userID, models.RequestKindText); err != nil {
		return nil, err
	}

	analysisCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	estimate, err := s.provider.AnalyzeText(analysisCtx, text)
	if err != nil {
		if errors.Is(analysisCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrAnalysisTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	s.trackCost(ctx, userID, estimate.Usage)

	meal := mealFromEstimate(userID, estimate, false)
	if err := s.store.AddMeal(ctx, meal); err != nil {
		return nil, err
	}

	return s.finishAnalysis(ctx, userID, estimate, meal)
}

func (s *Service) finishAnalysis(ctx context.Context, userID int64, estimate *models.NutritionEstimate, meal *models.Meal) (*Analysis, error) {
	daily, err := s.store.GetDailySummary(ctx, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	st, err := s.access.Evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Analysis{Estimate: estimate, Meal: meal, Daily: daily, Access: st}, nil
}

// trackCost persists token accounting for the upstream call. Best effort:
// a failed write must not fail the analysis the user already paid quota for.
func (s *Service) trackCost(ctx context.Context, userID int64, usage models.TokenUsage) {
	if usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
		return
	}
	record := &models.APIUsage{
		ID:               uuid.New(),
		UserID:           userID,
		Provider:         s.provider.Name(),
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		CostUSD:          EstimateCost(usage),
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.store.RecordAPIUsage(ctx, record); err != nil {
		slog.Error("failed to record api usage", "error", err, "user_id", userID)
	}
}

func mealFromEstimate(userID int64, e *models.NutritionEstimate, fromPhoto bool) *models.Meal {
	name := e.ProductName
	if name == "" {
		if fromPhoto {
			name = "Dish from photo"
		} else {
			name = "Described dish"
		}
	}
	return &models.Meal{
		ID:          uuid.New(),
		UserID:      userID,
		ProductName: name,
		WeightGrams: e.WeightGrams,
		Calories:    e.Calories,
		Protein:     e.Protein,
		Fat:         e.Fat,
		Carbs:       e.Carbs,
		FromPhoto:   fromPhoto,
		EatenAt:     time.Now().UTC(),
	}
}
