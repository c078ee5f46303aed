package ai

import (
	"context"
	"fmt"

	"github.com/ailab-bots/caloriebot/internal/ai/gemini"
	"github.com/ailab-bots/caloriebot/internal/ai/openai"
	"github.com/ailab-bots/caloriebot/internal/config"
	"github.com/ailab-bots/caloriebot/pkg/models"
)

// NewProvider constructs the appropriate AI provider based on config.
// Called once at server startup.
func NewProvider(ctx context.Context, cfg config.AIConfig) (models.NutritionProvider, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "gemini":
		return gemini.NewProvider(ctx, cfg.Gemini)
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of openai, gemini", cfg.Provider)
	}
}
