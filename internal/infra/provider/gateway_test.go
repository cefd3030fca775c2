package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/listinggopher/listinggopher/internal/domain"
)

// fakeProvider scripts one provider outcome and counts calls.
type fakeProvider struct {
	name  string
	res   *domain.GenerationResult
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	res := *f.res
	res.Provider = f.name
	return &res, nil
}

func okResult() *domain.GenerationResult {
	return &domain.GenerationResult{Content: "A stunning four-bedroom home.", Model: "test-model"}
}

var testReq = domain.GenerationRequest{SystemPrompt: "sys", UserPrompt: "user"}

func TestExecutePrimarySuccess(t *testing.T) {
	primary := &fakeProvider{name: "openai", res: okResult()}
	fallback := &fakeProvider{name: "gemini", res: okResult()}
	gw := NewGateway(primary, fallback)

	res := gw.Execute(context.Background(), "public_remarks", testReq)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Provider != "openai" || res.IsFallback {
		t.Errorf("provider = %q fallback=%v, want openai/false", res.Provider, res.IsFallback)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times on primary success", fallback.calls)
	}
}

// Scenario: primary 503 → fallback invoked once, result tagged as fallback.
func TestExecuteInfrastructureFailureFallsBack(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: &Error{
		Provider: "openai", Status: 503, Class: domain.FailureInfrastructure, Message: "overloaded",
	}}
	fallback := &fakeProvider{name: "gemini", res: okResult()}
	gw := NewGateway(primary, fallback)

	res := gw.Execute(context.Background(), "public_remarks", testReq)
	if !res.Success {
		t.Fatalf("expected fallback success, got %+v", res)
	}
	if res.Provider != "gemini" || !res.IsFallback {
		t.Errorf("provider = %q fallback=%v, want gemini/true", res.Provider, res.IsFallback)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("calls primary=%d fallback=%d, want 1/1", primary.calls, fallback.calls)
	}
}

// Scenario: content-class failure → fallback never invoked, original error
// surfaced with its classification.
func TestExecuteContentFailureNoFallback(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: &Error{
		Provider: "openai", Status: 400, Class: domain.FailureContent, Message: "schema-invalid payload",
	}}
	fallback := &fakeProvider{name: "gemini", res: okResult()}
	gw := NewGateway(primary, fallback)

	res := gw.Execute(context.Background(), "mls_data", testReq)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Class != domain.FailureContent {
		t.Errorf("class = %q, want content", res.Class)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times for content failure", fallback.calls)
	}
	if primary.calls != 1 {
		t.Errorf("primary called %d times, want exactly 1", primary.calls)
	}
}

// Empty output despite a successful response is content-class: the provider
// answered, so another provider would not help.
func TestExecuteEmptyOutputIsContentFailure(t *testing.T) {
	primary := &fakeProvider{name: "openai", res: &domain.GenerationResult{Content: ""}}
	fallback := &fakeProvider{name: "gemini", res: okResult()}
	gw := NewGateway(primary, fallback)

	res := gw.Execute(context.Background(), "features", testReq)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Class != domain.FailureContent {
		t.Errorf("class = %q, want content", res.Class)
	}
	if !errors.Is(res.Err, domain.ErrEmptyOutput) {
		t.Errorf("err = %v, want ErrEmptyOutput", res.Err)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times", fallback.calls)
	}
}

func TestExecuteBothProvidersFail(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: &Error{
		Provider: "openai", Status: 500, Class: domain.FailureInfrastructure, Message: "boom",
	}}
	fallback := &fakeProvider{name: "gemini", err: &Error{
		Provider: "gemini", Status: 503, Class: domain.FailureInfrastructure, Message: "also down",
	}}
	gw := NewGateway(primary, fallback)

	res := gw.Execute(context.Background(), "public_remarks", testReq)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Class != domain.FailureInfrastructure {
		t.Errorf("class = %q, want infrastructure", res.Class)
	}
	if !res.IsFallback {
		t.Error("expected IsFallback on the final failure report")
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("calls primary=%d fallback=%d, want 1/1 (at most two calls)", primary.calls, fallback.calls)
	}
}

func TestExecuteNoFallbackConfigured(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: &Error{
		Provider: "openai", Status: 503, Class: domain.FailureInfrastructure, Message: "down",
	}}
	gw := NewGateway(primary, nil)

	res := gw.Execute(context.Background(), "public_remarks", testReq)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Class != domain.FailureInfrastructure {
		t.Errorf("class = %q, want infrastructure", res.Class)
	}
}

// A cancelled or timed-out call without a classified result is treated
// as an infrastructure failure of the in-flight provider.
func TestExecuteTimeoutTriggersFallback(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: context.DeadlineExceeded}
	fallback := &fakeProvider{name: "gemini", res: okResult()}
	gw := NewGateway(primary, fallback)

	res := gw.Execute(context.Background(), "public_remarks", testReq)
	if !res.Success || !res.IsFallback {
		t.Fatalf("expected fallback success, got %+v", res)
	}
}
