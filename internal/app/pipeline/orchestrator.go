// Package pipeline orchestrates one credit-gated generation attempt.
//
// State machine per attempt:
//
//	START → CREDIT_CHECK → [insufficient → END(denied)]
//	CREDIT_CHECK → CRITICAL_STAGE → [failure → REFUND → END(failed)]
//	CRITICAL_STAGE → [success → BACKGROUND_STAGES → END(completed)]
//
// Exactly one stage is critical: its failure voids the attempt and refunds
// the debited credit. The remaining stages run independently — a failure in
// one is recorded against that stage only.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/listinggopher/listinggopher/internal/app/accountant"
	"github.com/listinggopher/listinggopher/internal/app/costs"
	"github.com/listinggopher/listinggopher/internal/domain"
	"github.com/listinggopher/listinggopher/internal/infra/observability"
	"github.com/listinggopher/listinggopher/internal/infra/provider"
)

// Executor is the provider gateway contract the orchestrator depends on.
type Executor interface {
	Execute(ctx context.Context, stage string, req domain.GenerationRequest) *provider.Result
}

// Orchestrator sequences generation stages, gated on a successful debit.
// It owns the attempt lifecycle and never touches balances directly — all
// credit movement goes through the accountant.
type Orchestrator struct {
	accountant *accountant.Accountant
	gateway    Executor
	costs      *costs.Tracker // may be nil
	log        *slog.Logger
}

// New creates an orchestrator. tracker may be nil to disable cost tracking.
func New(acct *accountant.Accountant, gateway Executor, tracker *costs.Tracker) *Orchestrator {
	return &Orchestrator{
		accountant: acct,
		gateway:    gateway,
		costs:      tracker,
		log:        slog.Default(),
	}
}

// Run executes one generation attempt for the given owner identities.
//
// A denial (insufficient credits) returns a result, not an error: nothing
// was debited and nothing ran. An error return means the attempt could not
// be coordinated at all (store failure, bad arguments) — no stage has run
// unless the result says so.
func (o *Orchestrator) Run(ctx context.Context, personal, domainOwner string, req Request, stages []Stage, criticalIndex int) (*domain.AttemptResult, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("no stages to run")
	}
	if criticalIndex < 0 || criticalIndex >= len(stages) {
		return nil, fmt.Errorf("critical index %d out of range for %d stages", criticalIndex, len(stages))
	}

	// Fresh attempt id per request. The id scopes exactly one debit and at
	// most one refund; it is never reused across generation requests.
	attemptID := uuid.NewString()

	observability.AttemptsInFlight.Inc()
	defer observability.AttemptsInFlight.Dec()

	o.log.Info("attempt started",
		"attempt_id", attemptID, "personal", personal, "domain", domainOwner,
		"stages", len(stages), "critical", stages[criticalIndex].Name)

	debit, err := o.accountant.CheckAndDebit(ctx, personal, domainOwner, attemptID)
	if err != nil {
		return nil, fmt.Errorf("credit check: %w", err)
	}
	if !debit.Success {
		observability.AttemptsCompleted.WithLabelValues(string(domain.AttemptDenied)).Inc()
		o.log.Info("attempt denied", "attempt_id", attemptID)
		return &domain.AttemptResult{
			AttemptID: attemptID,
			Status:    domain.AttemptDenied,
			Message:   debit.Message,
		}, nil
	}

	critical := stages[criticalIndex]
	criticalRes := o.runStage(ctx, critical, req, true)
	if !criticalRes.Success {
		// The credit was spent on a deliverable that did not materialize.
		// Refund before the background stages would even be considered:
		// running costly background work after the primary deliverable
		// failed wastes the credit's value and the provider budget.
		return o.fail(ctx, attemptID, debit, criticalRes), nil
	}

	results := make([]domain.StageResult, len(stages))
	results[criticalIndex] = criticalRes

	var wg sync.WaitGroup
	for i, stage := range stages {
		if i == criticalIndex {
			continue
		}
		wg.Add(1)
		go func(i int, stage Stage) {
			defer wg.Done()
			results[i] = o.runStage(ctx, stage, req, false)
		}(i, stage)
	}
	wg.Wait()

	observability.AttemptsCompleted.WithLabelValues(string(domain.AttemptCompleted)).Inc()
	o.log.Info("attempt completed", "attempt_id", attemptID)
	return &domain.AttemptResult{
		AttemptID: attemptID,
		Status:    domain.AttemptCompleted,
		Source:    debit.Source,
		Remaining: debit.Remaining,
		Stages:    results,
	}, nil
}

// fail refunds the attempt and builds the failed result. The user-visible
// "credit refunded" message is only produced after the refund call itself
// reported success or already-refunded; if the refund could not be applied
// the attempt id is surfaced for manual reconciliation instead.
func (o *Orchestrator) fail(ctx context.Context, attemptID string, debit *domain.DebitResult, criticalRes domain.StageResult) *domain.AttemptResult {
	observability.AttemptsCompleted.WithLabelValues(string(domain.AttemptFailed)).Inc()

	res := &domain.AttemptResult{
		AttemptID: attemptID,
		Status:    domain.AttemptFailed,
		Source:    debit.Source,
		Stages:    []domain.StageResult{criticalRes},
	}

	// The debit already happened, so the refund must not be lost to the
	// caller's cancellation — a cancelled or timed-out critical stage still
	// ends with the credit returned.
	refund, err := o.accountant.Refund(context.WithoutCancel(ctx), attemptID)
	if err != nil {
		// Debited but not refunded — a recoverable state, never a silent
		// loss: reconciliation can replay Refund(attemptID) safely.
		o.log.Error("refund failed, attempt needs reconciliation",
			"attempt_id", attemptID, "error", err)
		res.Message = fmt.Sprintf("generation failed; refund pending, quote attempt %s to support", attemptID)
		return res
	}

	res.Refunded = true
	res.Remaining = refund.Remaining
	res.Message = "generation failed, credit refunded"
	o.log.Info("attempt failed and refunded",
		"attempt_id", attemptID, "already_refunded", refund.AlreadyRefunded)
	return res
}

// runStage executes one stage through the gateway and validates its output.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, req Request, critical bool) domain.StageResult {
	genReq := domain.GenerationRequest{
		SystemPrompt:    stage.System,
		UserPrompt:      stage.Prompt(req),
		PhotoURLs:       req.PhotoURLs,
		Temperature:     stage.Temperature,
		MaxOutputTokens: stage.MaxOutputTokens,
	}

	res := o.gateway.Execute(ctx, stage.Name, genReq)
	if !res.Success {
		return domain.StageResult{
			Stage:      stage.Name,
			Critical:   critical,
			Provider:   res.Provider,
			IsFallback: res.IsFallback,
			Class:      res.Class,
			Error:      res.Err.Error(),
		}
	}

	gen := res.Generation
	if o.costs != nil {
		o.costs.Record(gen.Provider, gen.Model, stage.Name, gen.InputTokens, gen.OutputTokens)
	}

	output := gen.Content
	if stage.Validate != nil {
		cleaned, err := stage.Validate(output)
		if err != nil {
			// Invalid output from a provider that answered successfully:
			// content-class by definition, no fallback.
			o.log.Warn("stage output rejected",
				"stage", stage.Name, "provider", gen.Provider, "error", err)
			return domain.StageResult{
				Stage:      stage.Name,
				Critical:   critical,
				Provider:   gen.Provider,
				IsFallback: res.IsFallback,
				Class:      domain.FailureContent,
				Error:      err.Error(),
			}
		}
		output = cleaned
	}

	return domain.StageResult{
		Stage:      stage.Name,
		Success:    true,
		Critical:   critical,
		Output:     output,
		Provider:   gen.Provider,
		IsFallback: res.IsFallback,
	}
}
