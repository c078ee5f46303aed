// Package models contains shared data models used across the caloriebot codebase.
package models

import "context"

// NutritionProvider is the core interface that all AI integrations must
// implement. Never call specific AI providers directly — always inject this
// interface.
type NutritionProvider interface {
	// AnalyzeImage estimates the nutrition of the food in a photo. The hint
	// is optional free text from the user (the photo caption).
	AnalyzeImage(ctx context.Context, image []byte, hint string) (*NutritionEstimate, error)
	// AnalyzeText estimates the nutrition of a food description.
	AnalyzeText(ctx context.Context, text string) (*NutritionEstimate, error)
	// Name returns the provider identifier (e.g., "openai", "gemini").
	Name() string
}

// NutritionEstimate is the structured result of an AI analysis call.
type NutritionEstimate struct {
	ProductName     string   `json:"product_name"`
	WeightGrams     *float64 `json:"weight,omitempty"`
	Calories        float64  `json:"calories"`
	Protein         float64  `json:"protein"`
	Fat             float64  `json:"fat"`
	Carbs           float64  `json:"carbs"`
	Comparison      string   `json:"comparison,omitempty"`
	Recommendations string   `json:"recommendations,omitempty"`
	Benefits        string   `json:"benefits,omitempty"`
	Warnings        string   `json:"warnings,omitempty"`
	QualityWarning  string   `json:"quality_warning,omitempty"`

	// Token accounting for the upstream call, when the provider reports it.
	Usage TokenUsage `json:"-"`
}

// TokenUsage captures upstream token consumption for cost accounting.
type TokenUsage struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
}
