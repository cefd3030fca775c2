// Package costs tracks provider spend from token usage.
// Per-request cost is computed from per-1K-token rates; aggregates are kept
// by provider, stage, and day for the operator's cost summary endpoint.
package costs

import (
	"log/slog"
	"sync"
	"time"
)

// Rates are USD per 1K tokens for one model.
type Rates struct {
	InputPer1K  float64 `toml:"input_per_1k"`
	OutputPer1K float64 `toml:"output_per_1k"`
}

// Summary is a snapshot of accumulated spend.
type Summary struct {
	TotalCostUSD      float64            `json:"total_cost_usd"`
	TotalRequests     int64              `json:"total_requests"`
	TotalInputTokens  int64              `json:"total_input_tokens"`
	TotalOutputTokens int64              `json:"total_output_tokens"`
	ByProvider        map[string]float64 `json:"by_provider"`
	ByStage           map[string]float64 `json:"by_stage"`
	ByDay             map[string]float64 `json:"by_day"`
}

// Tracker accumulates per-request costs in memory.
type Tracker struct {
	mu             sync.Mutex
	rates          map[string]Rates // keyed by model id
	defaultRates   Rates
	alertThreshold float64 // daily USD threshold, 0 disables
	alertedDays    map[string]bool

	totalCost    float64
	requests     int64
	inputTokens  int64
	outputTokens int64
	byProvider   map[string]float64
	byStage      map[string]float64
	byDay        map[string]float64

	log *slog.Logger
}

// NewTracker creates a cost tracker. Unknown models fall back to
// defaultRates; alertThreshold of 0 disables daily alerts.
func NewTracker(rates map[string]Rates, defaultRates Rates, alertThreshold float64) *Tracker {
	if rates == nil {
		rates = map[string]Rates{}
	}
	return &Tracker{
		rates:          rates,
		defaultRates:   defaultRates,
		alertThreshold: alertThreshold,
		alertedDays:    map[string]bool{},
		byProvider:     map[string]float64{},
		byStage:        map[string]float64{},
		byDay:          map[string]float64{},
		log:            slog.Default(),
	}
}

// Cost computes the USD cost for one request without recording it.
func (t *Tracker) Cost(model string, inputTokens, outputTokens int) float64 {
	t.mu.Lock()
	r, ok := t.rates[model]
	t.mu.Unlock()
	if !ok {
		r = t.defaultRates
	}
	return float64(inputTokens)/1000*r.InputPer1K + float64(outputTokens)/1000*r.OutputPer1K
}

// Record accumulates one request's usage and returns its cost.
func (t *Tracker) Record(provider, model, stage string, inputTokens, outputTokens int) float64 {
	cost := t.Cost(model, inputTokens, outputTokens)
	day := time.Now().UTC().Format(time.DateOnly)

	t.mu.Lock()
	t.totalCost += cost
	t.requests++
	t.inputTokens += int64(inputTokens)
	t.outputTokens += int64(outputTokens)
	t.byProvider[provider] += cost
	t.byStage[stage] += cost
	t.byDay[day] += cost

	alert := t.alertThreshold > 0 && t.byDay[day] >= t.alertThreshold && !t.alertedDays[day]
	if alert {
		t.alertedDays[day] = true
	}
	daily := t.byDay[day]
	t.mu.Unlock()

	if alert {
		t.log.Warn("daily cost alert threshold reached",
			"day", day, "daily_cost_usd", daily, "threshold_usd", t.alertThreshold)
	}
	return cost
}

// Summary returns a copy of the accumulated aggregates.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Summary{
		TotalCostUSD:      t.totalCost,
		TotalRequests:     t.requests,
		TotalInputTokens:  t.inputTokens,
		TotalOutputTokens: t.outputTokens,
		ByProvider:        copyMap(t.byProvider),
		ByStage:           copyMap(t.byStage),
		ByDay:             copyMap(t.byDay),
	}
}

func copyMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
