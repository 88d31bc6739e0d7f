// Package pricing converts token counts into approximate monetary cost.
package pricing

import (
	"strings"
)

// ModelPricing defines the pricing for a model.
type ModelPricing struct {
	Model       string  // model name, supports trailing-* wildcards
	CostPer1K   float64 // blended price per 1000 tokens (USD)
	InputPer1K  float64 // price per 1000 input tokens (USD)
	OutputPer1K float64 // price per 1000 output tokens (USD)
}

// DefaultFallbackPer1K is the conservative rate applied to unknown models
// so cost estimates err on the high side rather than under-reporting.
const DefaultFallbackPer1K = 0.002

// DefaultPricing contains default pricing for common models.
// Prices are in USD per 1000 tokens.
var DefaultPricing = []ModelPricing{
	// Google Gemini models
	{Model: "gemini-1.5-pro*", CostPer1K: 0.0025, InputPer1K: 0.00125, OutputPer1K: 0.005},
	{Model: "gemini-1.5-flash*", CostPer1K: 0.00015, InputPer1K: 0.000075, OutputPer1K: 0.0003},
	{Model: "gemini-pro*", CostPer1K: 0.001, InputPer1K: 0.0005, OutputPer1K: 0.0015},
	{Model: "text-embedding-004", CostPer1K: 0.00001, InputPer1K: 0.00001, OutputPer1K: 0},

	// OpenAI models
	{Model: "gpt-4o", CostPer1K: 0.01, InputPer1K: 0.005, OutputPer1K: 0.015},
	{Model: "gpt-4o-mini", CostPer1K: 0.0004, InputPer1K: 0.00015, OutputPer1K: 0.0006},
	{Model: "gpt-4*", CostPer1K: 0.045, InputPer1K: 0.03, OutputPer1K: 0.06},
	{Model: "gpt-3.5-turbo", CostPer1K: 0.001, InputPer1K: 0.0005, OutputPer1K: 0.0015},
	{Model: "text-embedding-3-small", CostPer1K: 0.00002, InputPer1K: 0.00002, OutputPer1K: 0},

	// Anthropic Claude models
	{Model: "claude-3-5-sonnet*", CostPer1K: 0.009, InputPer1K: 0.003, OutputPer1K: 0.015},
	{Model: "claude-3-haiku*", CostPer1K: 0.00075, InputPer1K: 0.00025, OutputPer1K: 0.00125},
}

// Estimator calculates the approximate cost of API usage.
// It is a pure lookup with no I/O.
type Estimator struct {
	pricing  map[string]ModelPricing
	fallback float64
}

// NewEstimator creates a new cost estimator.
// If no pricing is provided, DefaultPricing is used.
func NewEstimator(pricing []ModelPricing) *Estimator {
	if pricing == nil {
		pricing = DefaultPricing
	}

	e := &Estimator{
		pricing:  make(map[string]ModelPricing),
		fallback: DefaultFallbackPer1K,
	}

	for _, p := range pricing {
		e.pricing[p.Model] = p
	}

	return e
}

// Estimate returns the approximate cost in USD for the given total token
// count and model. Unknown models use the conservative fallback rate.
// The result is monotonically non-decreasing in tokens for a fixed model.
func (e *Estimator) Estimate(tokens int, model string) float64 {
	if tokens <= 0 {
		return 0
	}

	rate := e.fallback
	if p, ok := e.findPricing(model); ok {
		rate = p.CostPer1K
	}

	return float64(tokens) / 1000.0 * rate
}

// EstimateUsage returns the cost split by input/output token counts,
// used for metrics labelling when the upstream reports a full usage block.
func (e *Estimator) EstimateUsage(model string, inputTokens, outputTokens int) float64 {
	p, ok := e.findPricing(model)
	if !ok {
		return e.Estimate(inputTokens+outputTokens, model)
	}

	inputCost := float64(inputTokens) / 1000.0 * p.InputPer1K
	outputCost := float64(outputTokens) / 1000.0 * p.OutputPer1K
	return inputCost + outputCost
}

// findPricing finds the pricing for a model, supporting wildcards.
// Tries exact match first, then longest-prefix wildcard matching.
func (e *Estimator) findPricing(model string) (ModelPricing, bool) {
	modelLower := strings.ToLower(model)

	for pattern, p := range e.pricing {
		if strings.EqualFold(pattern, model) {
			return p, true
		}
	}

	var bestMatch *ModelPricing
	var bestMatchLen int

	for pattern, p := range e.pricing {
		if strings.HasSuffix(pattern, "*") {
			prefix := strings.ToLower(strings.TrimSuffix(pattern, "*"))
			if strings.HasPrefix(modelLower, prefix) {
				if len(prefix) > bestMatchLen {
					pCopy := p
					bestMatch = &pCopy
					bestMatchLen = len(prefix)
				}
			}
		}
	}

	if bestMatch != nil {
		return *bestMatch, true
	}

	return ModelPricing{}, false
}

// AddPricing adds or updates pricing for a specific model.
func (e *Estimator) AddPricing(p ModelPricing) {
	e.pricing[p.Model] = p
}

// GetPricing retrieves the pricing for a model.
func (e *Estimator) GetPricing(model string) (ModelPricing, bool) {
	return e.findPricing(model)
}
