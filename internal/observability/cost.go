package observability

import "github.com/sajangpost/caption-api/internal/llm"

// Pricing constants (USD per 1K tokens)
const (
	tokensPerKilo = 1000.0

	gpt4oInputPrice  = 0.005
	gpt4oOutputPrice = 0.015

	gpt4oMiniInputPrice  = 0.00015
	gpt4oMiniOutputPrice = 0.0006

	gemini25FlashInputPrice  = 0.0003
	gemini25FlashOutputPrice = 0.0025
)

// ModelPricing contains pricing information per 1K tokens
type ModelPricing struct {
	InputPricePer1K  float64 // Price per 1K input tokens in USD
	OutputPricePer1K float64 // Price per 1K output tokens in USD
}

// PricingTable contains pricing for all allowed models
var PricingTable = map[string]ModelPricing{
	"gpt-4o": {
		InputPricePer1K:  gpt4oInputPrice,
		OutputPricePer1K: gpt4oOutputPrice,
	},
	"gpt-4o-mini": {
		InputPricePer1K:  gpt4oMiniInputPrice,
		OutputPricePer1K: gpt4oMiniOutputPrice,
	},
	"gemini-2.5-flash": {
		InputPricePer1K:  gemini25FlashInputPrice,
		OutputPricePer1K: gemini25FlashOutputPrice,
	},
}

// CalculateCost returns the USD cost of a provider call, 0 for unknown models
func CalculateCost(model string, usage llm.Usage) float64 {
	pricing, ok := PricingTable[model]
	if !ok {
		return 0
	}
	return float64(usage.InputTokens)/tokensPerKilo*pricing.InputPricePer1K +
		float64(usage.OutputTokens)/tokensPerKilo*pricing.OutputPricePer1K
}
