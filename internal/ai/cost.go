package ai

import "github.com/ailab-bots/caloriebot/pkg/models"

// Per-1K-token prices in USD. Used when the provider does not report cost.
type modelPricing struct {
	input  float64
	output float64
}

var pricing = map[string]modelPricing{
	"gpt-4o":           {input: 0.005, output: 0.015},
	"gpt-4o-mini":      {input: 0.00015, output: 0.0006},
	"gemini-1.5-flash": {input: 0.000075, output: 0.0003},
	"gemini-1.5-pro":   {input: 0.00125, output: 0.005},
}

// defaultPricing is applied to unknown models so totals stay conservative.
var defaultPricing = modelPricing{input: 0.005, output: 0.015}

// EstimateCost converts token counts into an approximate USD cost.
func EstimateCost(u models.TokenUsage) float64 {
	p, ok := pricing[u.Model]
	if !ok {
		p = defaultPricing
	}
	return float64(u.PromptTokens)/1000*p.input + float64(u.CompletionTokens)/1000*p.output
}
