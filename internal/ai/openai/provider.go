package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/ailab-bots/caloriebot/internal/ai/prompt"
	"github.com/ailab-bots/caloriebot/internal/config"
	"github.com/ailab-bots/caloriebot/pkg/models"
	goopenai "github.com/sashabaranov/go-openai"
)

const maxResponseTokens = 1000

// Provider implements models.NutritionProvider using the OpenAI chat API
// with JSON response mode; image analysis goes through the vision model.
type Provider struct {
	client      *goopenai.Client
	model       string
	visionModel string
}

func NewProvider(cfg config.OpenAIConfig) *Provider {
	return &Provider{
		client:      goopenai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
	}
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) AnalyzeText(ctx context.Context, text string) (*models.NutritionEstimate, error) {
	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: p.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: prompt.SystemText},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt.TextUser(text)},
		},
		Temperature: 0.7,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai text analysis: %w", err)
	}
	return parseResponse(&resp)
}

func (p *Provider) AnalyzeImage(ctx context.Context, image []byte, hint string) (*models.NutritionEstimate, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: p.visionModel,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: prompt.SystemImage},
			{
				Role: goopenai.ChatMessageRoleUser,
				MultiContent: []goopenai.ChatMessagePart{
					{Type: goopenai.ChatMessagePartTypeText, Text: prompt.ImageUser(hint)},
					{
						Type: goopenai.ChatMessagePartTypeImageURL,
						ImageURL: &goopenai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: goopenai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		Temperature: 0.7,
		MaxTokens:   maxResponseTokens,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai image analysis: %w", err)
	}
	return parseResponse(&resp)
}

func parseResponse(resp *goopenai.ChatCompletionResponse) (*models.NutritionEstimate, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	var est models.NutritionEstimate
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &est); err != nil {
		return nil, fmt.Errorf("parse openai response: %w", err)
	}

	est.Usage = models.TokenUsage{
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	return &est, nil
}

var _ models.NutritionProvider = (*Provider)(nil)
