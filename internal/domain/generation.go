package domain

// ─── Generation Types ───────────────────────────────────────────────────────

// FailureClass is a closed classification of provider failures.
// It is a first-class return value, never inferred from error text.
type FailureClass string

const (
	// FailureInfrastructure covers network errors, timeouts, rate limits
	// (HTTP 429) and server errors (HTTP 5xx). Eligible for fallback: the
	// same request on another provider may well succeed.
	FailureInfrastructure FailureClass = "infrastructure"

	// FailureContent covers everything tied to the request or output itself:
	// other 4xx responses, unparseable or empty output, compliance
	// violations. Not eligible for fallback — the failure would reproduce
	// identically on any provider.
	FailureContent FailureClass = "content"
)

// GenerationRequest is the payload handed to a provider for one stage.
type GenerationRequest struct {
	SystemPrompt    string   `json:"system_prompt"`
	UserPrompt      string   `json:"user_prompt"`
	PhotoURLs       []string `json:"photo_urls,omitempty"`
	Temperature     float64  `json:"temperature"`
	MaxOutputTokens int      `json:"max_output_tokens"`
}

// GenerationResult is a successful provider response.
type GenerationResult struct {
	Content      string `json:"content"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	ElapsedMS    int64  `json:"elapsed_ms"`
}

// StageResult records the outcome of one pipeline stage.
// Ephemeral: stage results are returned to the caller, never persisted.
type StageResult struct {
	Stage      string       `json:"stage"`
	Success    bool         `json:"success"`
	Critical   bool         `json:"critical"`
	Output     string       `json:"output,omitempty"`
	Provider   string       `json:"provider,omitempty"`
	IsFallback bool         `json:"is_fallback,omitempty"`
	Class      FailureClass `json:"error_class,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// AttemptStatus is the terminal state of one generation attempt.
type AttemptStatus string

const (
	AttemptDenied    AttemptStatus = "denied"    // insufficient credits, nothing ran
	AttemptFailed    AttemptStatus = "failed"    // critical stage failed, credit refunded
	AttemptCompleted AttemptStatus = "completed" // possibly with partial background errors
)

// AttemptResult is the orchestrator's report for one generation attempt.
// The attempt id is surfaced for audit and manual reconciliation.
type AttemptResult struct {
	AttemptID string        `json:"attempt_id"`
	Status    AttemptStatus `json:"status"`
	Message   string        `json:"message,omitempty"`
	Source    Source        `json:"credit_source,omitempty"`
	Remaining int64         `json:"credits_remaining"`
	Refunded  bool          `json:"refunded"`
	Stages    []StageResult `json:"stages,omitempty"`
}
