package mock

import (
	"context"

	"github.com/ailab-bots/caloriebot/pkg/models"
)

// MockProvider satisfies models.NutritionProvider for testing.
type MockProvider struct {
	Name_            string
	AnalyzeImageFunc func(ctx context.Context, image []byte, hint string) (*models.NutritionEstimate, error)
	AnalyzeTextFunc  func(ctx context.Context, text string) (*models.NutritionEstimate, error)
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) AnalyzeImage(ctx context.Context, image []byte, hint string) (*models.NutritionEstimate, error) {
	if m.AnalyzeImageFunc != nil {
		return m.AnalyzeImageFunc(ctx, image, hint)
	}
	return defaultEstimate(), nil
}

func (m *MockProvider) AnalyzeText(ctx context.Context, text string) (*models.NutritionEstimate, error) {
	if m.AnalyzeTextFunc != nil {
		return m.AnalyzeTextFunc(ctx, text)
	}
	return defaultEstimate(), nil
}

// NewMockProvider returns a MockProvider with sensible default responses.
func NewMockProvider() *MockProvider {
	return &MockProvider{Name_: "mock"}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		AnalyzeImageFunc: func(_ context.Context, _ []byte, _ string) (*models.NutritionEstimate, error) {
			return nil, err
		},
		AnalyzeTextFunc: func(_ context.Context, _ string) (*models.NutritionEstimate, error) {
			return nil, err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		AnalyzeImageFunc: func(ctx context.Context, _ []byte, _ string) (*models.NutritionEstimate, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
		AnalyzeTextFunc: func(ctx context.Context, _ string) (*models.NutritionEstimate, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
}

func defaultEstimate() *models.NutritionEstimate {
	weight := 250.0
	return &models.NutritionEstimate{
		ProductName:     "Grilled chicken with rice",
		WeightGrams:     &weight,
		Calories:        420,
		Protein:         35,
		Fat:             9,
		Carbs:           48,
		Comparison:      "About the same as two sandwiches",
		Recommendations: "Good choice for lunch",
		Benefits:        "High protein, moderate calories",
		Usage: models.TokenUsage{
			Model:            "mock-v1",
			PromptTokens:     120,
			CompletionTokens: 80,
		},
	}
}

var _ models.NutritionProvider = (*MockProvider)(nil)
