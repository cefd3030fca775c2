package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/listinggopher/listinggopher/internal/domain"
	"github.com/listinggopher/listinggopher/internal/infra/observability"
)

// Result is the gateway's structured outcome for one stage execution.
// The orchestrator inspects fields to decide state transitions; errors are
// never used for control flow across this boundary.
type Result struct {
	Success    bool
	Generation *domain.GenerationResult
	Provider   string
	IsFallback bool
	Class      domain.FailureClass // set when Success is false
	Err        error
}

// Gateway executes generation stages against a primary provider, falling
// back to a secondary provider only for infrastructure-class failures.
//
// Content-class failures stem from the request or prompt itself and would
// reproduce identically on the fallback, wasting cost and masking a real
// bug — they are surfaced as-is after exactly one provider call.
type Gateway struct {
	primary  domain.Provider
	fallback domain.Provider // may be nil
	log      *slog.Logger
}

// NewGateway creates a gateway. fallback may be nil to disable fallback.
func NewGateway(primary, fallback domain.Provider) *Gateway {
	return &Gateway{primary: primary, fallback: fallback, log: slog.Default()}
}

// Execute runs one named stage. At most two provider calls are made:
// the primary, then — for infrastructure failures only — the fallback once.
func (g *Gateway) Execute(ctx context.Context, stage string, req domain.GenerationRequest) *Result {
	if g.primary == nil {
		return &Result{Class: domain.FailureInfrastructure, Err: domain.ErrNoProviders}
	}

	start := time.Now()
	defer func() {
		observability.GenerationLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}()

	res, err := g.call(ctx, stage, g.primary, req)
	if err == nil {
		return &Result{Success: true, Generation: res, Provider: g.primary.Name()}
	}

	class := Classify(err)
	if class != domain.FailureInfrastructure || g.fallback == nil {
		g.log.Warn("stage failed, no fallback",
			"stage", stage, "provider", g.primary.Name(), "class", class, "error", err)
		return &Result{Provider: g.primary.Name(), Class: class, Err: err}
	}

	g.log.Warn("primary provider infrastructure failure, trying fallback",
		"stage", stage, "primary", g.primary.Name(),
		"fallback", g.fallback.Name(), "error", err)
	observability.ProviderFallbacks.Inc()

	res, ferr := g.call(ctx, stage, g.fallback, req)
	if ferr == nil {
		return &Result{
			Success:    true,
			Generation: res,
			Provider:   g.fallback.Name(),
			IsFallback: true,
		}
	}

	g.log.Error("both providers failed",
		"stage", stage, "primary_error", err, "fallback_error", ferr)
	return &Result{
		Provider:   g.fallback.Name(),
		IsFallback: true,
		Class:      Classify(ferr),
		Err:        ferr,
	}
}

// call invokes one provider and normalizes its outcome. Empty output despite
// a successful response is a content-class failure: the provider answered,
// so retrying elsewhere would not help.
func (g *Gateway) call(ctx context.Context, stage string, p domain.Provider, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	res, err := p.Generate(ctx, req)
	if err != nil {
		observability.ProviderRequests.WithLabelValues(p.Name(), string(Classify(err))).Inc()
		return nil, err
	}
	if res.Content == "" {
		observability.ProviderRequests.WithLabelValues(p.Name(), string(domain.FailureContent)).Inc()
		return nil, &Error{
			Provider: p.Name(),
			Class:    domain.FailureContent,
			Message:  "empty output",
			Err:      domain.ErrEmptyOutput,
		}
	}
	observability.ProviderRequests.WithLabelValues(p.Name(), "success").Inc()
	g.log.Info("stage generated",
		"stage", stage, "provider", p.Name(),
		"input_tokens", res.InputTokens, "output_tokens", res.OutputTokens,
		"elapsed_ms", res.ElapsedMS)
	return res, nil
}
