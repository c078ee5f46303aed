package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ailab-bots/caloriebot/internal/ai/prompt"
	"github.com/ailab-bots/caloriebot/internal/config"
	"github.com/ailab-bots/caloriebot/pkg/models"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Provider implements models.NutritionProvider using Google Gemini. Gemini
// models are multimodal, so the same model serves text and image analysis.
type Provider struct {
	client *genai.Client
	model  string
}

func NewProvider(ctx context.Context, cfg config.GeminiConfig) (*Provider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Provider{client: client, model: cfg.Model}, nil
}

func (p *Provider) Name() string { return "gemini" }

// Close releases the underlying gRPC connection.
func (p *Provider) Close() error {
	return p.client.Close()
}

func (p *Provider) AnalyzeText(ctx context.Context, text string) (*models.NutritionEstimate, error) {
	resp, err := p.generate(ctx, prompt.SystemText, genai.Text(prompt.TextUser(text)))
	if err != nil {
		return nil, fmt.Errorf("gemini text analysis: %w", err)
	}
	return p.parseResponse(resp)
}

func (p *Provider) AnalyzeImage(ctx context.Context, image []byte, hint string) (*models.NutritionEstimate, error) {
	resp, err := p.generate(ctx, prompt.SystemImage,
		genai.ImageData("jpeg", image),
		genai.Text(prompt.ImageUser(hint)))
	if err != nil {
		return nil, fmt.Errorf("gemini image analysis: %w", err)
	}
	return p.parseResponse(resp)
}

func (p *Provider) generate(ctx context.Context, system string, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	model := p.client.GenerativeModel(p.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	model.ResponseMIMEType = "application/json"
	return model.GenerateContent(ctx, parts...)
}

func (p *Provider) parseResponse(resp *genai.GenerateContentResponse) (*models.NutritionEstimate, error) {
	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	var est models.NutritionEstimate
	if err := json.Unmarshal([]byte(text), &est); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	est.Usage = models.TokenUsage{Model: p.model}
	if resp.UsageMetadata != nil {
		est.Usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		est.Usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return &est, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text parts")
	}
	return b.String(), nil
}

var _ models.NutritionProvider = (*Provider)(nil)
