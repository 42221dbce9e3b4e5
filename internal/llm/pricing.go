package llm

import "strings"

// ModelCost holds per-million-token pricing for a model in USD.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost calculates the total USD cost for the given token counts.
func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*c.InputPerMTok/1_000_000 +
		float64(outputTokens)*c.OutputPerMTok/1_000_000
}

// LookupCost returns the pricing for a model ID, or nil if unknown.
// OpenRouter IDs carry a vendor prefix ("google/gemini-2.5-flash"),
// which is stripped before the lookup.
func LookupCost(modelID string) *ModelCost {
	if c, ok := modelCosts[modelID]; ok {
		return &c
	}
	if _, bare, ok := strings.Cut(modelID, "/"); ok {
		if c, ok := modelCosts[bare]; ok {
			return &c
		}
	}
	return nil
}

// EstimateCost returns the USD cost of a call, and false when the model
// has no known price.
func EstimateCost(modelID string, inputTokens, outputTokens int) (float64, bool) {
	c := LookupCost(modelID)
	if c == nil {
		return 0, false
	}
	return c.Cost(inputTokens, outputTokens), true
}

// modelCosts covers the models the providers resolve to by default plus
// common overrides. Prices from models.dev.
var modelCosts = map[string]ModelCost{
	// Anthropic
	"claude-3-5-haiku-latest":    {0.8, 4},
	"claude-3-7-sonnet-latest":   {3, 15},
	"claude-haiku-4-5":           {1, 5},
	"claude-haiku-4-5-20251001":  {1, 5},
	"claude-opus-4-1":            {15, 75},
	"claude-sonnet-4-0":          {3, 15},
	"claude-sonnet-4-20250514":   {3, 15},
	"claude-sonnet-4-5":          {3, 15},
	"claude-sonnet-4-5-20250929": {3, 15},

	// OpenAI
	"gpt-4.1":      {2, 8},
	"gpt-4.1-mini": {0.4, 1.6},
	"gpt-4.1-nano": {0.1, 0.4},
	"gpt-4o":       {2.5, 10},
	"gpt-4o-mini":  {0.15, 0.6},
	"gpt-5":        {1.25, 10},
	"gpt-5-mini":   {0.25, 2},
	"gpt-5-nano":   {0.05, 0.4},
	"o4-mini":      {1.1, 4.4},

	// Google
	"gemini-2.0-flash":      {0.1, 0.4},
	"gemini-2.5-flash":      {0.3, 2.5},
	"gemini-2.5-flash-lite": {0.1, 0.4},
	"gemini-2.5-pro":        {1.25, 10},
}
