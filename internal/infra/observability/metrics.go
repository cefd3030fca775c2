// Package observability exposes Prometheus metrics for the credit ledger
// and the generation pipeline. Metrics are registered via promauto at init
// and served from the API's /metrics endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Credit Metrics ─────────────────────────────────────────────────────────

// CreditDebits counts successful debits by source (domain/personal).
var CreditDebits = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "listinggopher",
	Subsystem: "credits",
	Name:      "debits_total",
	Help:      "Successful credit debits by source balance.",
}, []string{"source"})

// CreditDenials counts debit attempts rejected for insufficient balance.
var CreditDenials = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "listinggopher",
	Subsystem: "credits",
	Name:      "denials_total",
	Help:      "Generation requests denied for insufficient credits.",
})

// CreditRefunds counts refunds, split by whether the refund was a replay.
var CreditRefunds = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "listinggopher",
	Subsystem: "credits",
	Name:      "refunds_total",
	Help:      "Credit refunds by outcome (new or already_refunded).",
}, []string{"outcome"})

// CreditGrants counts credits granted through the fulfillment hook.
var CreditGrants = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "listinggopher",
	Subsystem: "credits",
	Name:      "grants_total",
	Help:      "Credit grant operations recorded.",
})

// ─── Provider Metrics ───────────────────────────────────────────────────────

// ProviderRequests counts provider calls by provider and outcome
// (success, infrastructure, content).
var ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "listinggopher",
	Subsystem: "provider",
	Name:      "requests_total",
	Help:      "Generation requests per provider and outcome.",
}, []string{"provider", "outcome"})

// ProviderFallbacks counts primary→fallback switches.
var ProviderFallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "listinggopher",
	Subsystem: "provider",
	Name:      "fallbacks_total",
	Help:      "Times the fallback provider was invoked after a primary infrastructure failure.",
})

// GenerationLatency observes wall-clock provider latency per stage.
var GenerationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "listinggopher",
	Subsystem: "provider",
	Name:      "generation_seconds",
	Help:      "Provider generation latency per stage.",
	Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
}, []string{"stage"})

// ─── Pipeline Metrics ───────────────────────────────────────────────────────

// AttemptsInFlight gauges currently running generation attempts.
var AttemptsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "listinggopher",
	Subsystem: "pipeline",
	Name:      "attempts_in_flight",
	Help:      "Generation attempts currently running.",
})

// AttemptsCompleted counts finished attempts by terminal status.
var AttemptsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "listinggopher",
	Subsystem: "pipeline",
	Name:      "attempts_total",
	Help:      "Generation attempts by terminal status (denied, failed, completed).",
}, []string{"status"})

// ComplianceViolations counts fair-housing violations caught in output.
var ComplianceViolations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "listinggopher",
	Subsystem: "compliance",
	Name:      "violations_total",
	Help:      "Fair-housing violations detected in generated output, by category.",
}, []string{"category"})
