// Package usage tracks language-model token consumption and cost for the
// single active reviewer. Limits are advisory: the meter computes display
// ratios and never blocks an operation.
package usage

import "sync"

// Rate is the price per 1,000 tokens for one model.
type Rate struct {
	Input  float64
	Output float64
}

// Pricing maps model names to token rates, with a fallback tier for
// models it has never heard of.
type Pricing struct {
	rates    map[string]Rate
	fallback Rate
}

// DefaultPricing returns the built-in pricing table.
func DefaultPricing() *Pricing {
	return &Pricing{
		rates: map[string]Rate{
			"claude-sonnet-4-20250514": {Input: 0.003, Output: 0.015},
			"claude-opus-4-20250514":   {Input: 0.015, Output: 0.075},
			"claude-3-5-haiku-latest":  {Input: 0.0008, Output: 0.004},
			"gpt-4o-mini":              {Input: 0.0005, Output: 0.0015},
		},
		fallback: Rate{Input: 0.003, Output: 0.015},
	}
}

// NewPricing builds a table from explicit rates. The fallback applies to
// unknown models.
func NewPricing(rates map[string]Rate, fallback Rate) *Pricing {
	cp := make(map[string]Rate, len(rates))
	for k, v := range rates {
		cp[k] = v
	}
	return &Pricing{rates: cp, fallback: fallback}
}

// Rate returns the rate for a model, falling back to the default tier.
func (p *Pricing) Rate(model string) Rate {
	if r, ok := p.rates[model]; ok {
		return r
	}
	return p.fallback
}

// Cost computes the monetary cost of one completion. Pure and linear:
// Cost(a+b) == Cost(a) + Cost(b) for a fixed model.
func (p *Pricing) Cost(model string, promptTokens, completionTokens int) float64 {
	r := p.Rate(model)
	return float64(promptTokens)/1000*r.Input + float64(completionTokens)/1000*r.Output
}

// Limits are soft ceilings used only for display percentages.
type Limits struct {
	MaxTokens int
	MaxCost   float64
}

// Snapshot is a point-in-time view of accumulated usage.
type Snapshot struct {
	Tokens       int     `json:"tokens"`
	Cost         float64 `json:"cost"`
	UsagePercent float64 `json:"usage_percent"`
	CostPercent  float64 `json:"cost_percent"`
}

// Meter accumulates token and cost totals. Totals only ever grow.
type Meter struct {
	mu      sync.Mutex
	pricing *Pricing
	limits  Limits
	tokens  int
	cost    float64
}

// NewMeter creates a meter over the given pricing table and soft limits.
func NewMeter(pricing *Pricing, limits Limits) *Meter {
	if pricing == nil {
		pricing = DefaultPricing()
	}
	return &Meter{pricing: pricing, limits: limits}
}

// Record adds one completion's tokens and cost to the running totals and
// returns the cost of that completion.
func (m *Meter) Record(model string, promptTokens, completionTokens int) float64 {
	c := m.pricing.Cost(model, promptTokens, completionTokens)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens += promptTokens + completionTokens
	m.cost += c
	return c
}

// Snapshot returns current totals and display ratios against the soft
// limits. A zero limit yields a zero percentage.
func (m *Meter) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{Tokens: m.tokens, Cost: m.cost}
	if m.limits.MaxTokens > 0 {
		s.UsagePercent = float64(m.tokens) / float64(m.limits.MaxTokens) * 100
	}
	if m.limits.MaxCost > 0 {
		s.CostPercent = m.cost / m.limits.MaxCost * 100
	}
	return s
}
