package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/listinggopher/listinggopher/internal/app/compliance"
	"github.com/listinggopher/listinggopher/internal/domain"
)

// Request is the caller's input for one generation attempt.
type Request struct {
	PropertyDetails string   `json:"property_details"`
	Notes           string   `json:"notes,omitempty"`
	PhotoURLs       []string `json:"photo_urls,omitempty"`
	MaxWords        int      `json:"max_words,omitempty"`
}

// Stage is one generation step. Validate normalizes and checks the raw
// provider output; any error it returns is a content-class failure (the
// output itself is wrong — another provider would produce the same class
// of problem).
type Stage struct {
	Name            string
	System          string
	Prompt          func(Request) string
	Temperature     float64
	MaxOutputTokens int
	Validate        func(output string) (string, error)
}

// Stage names. PublicRemarks is the critical stage by convention; the
// orchestrator takes the critical index as a parameter so that convention
// can change without touching control flow.
const (
	StagePublicRemarks       = "public_remarks"
	StageFeatures            = "features"
	StageMLSData             = "mls_data"
	StagePhotoCategorization = "photo_categorization"
)

// DefaultStages returns the standard pipeline: public remarks first
// (critical), then the independent background stages.
func DefaultStages() []Stage {
	return []Stage{
		{
			Name:            StagePublicRemarks,
			System:          publicRemarksSystem,
			Prompt:          publicRemarksPrompt,
			Temperature:     0.7, // slightly higher for marketing copy
			MaxOutputTokens: 1200,
			Validate:        validateRemarks,
		},
		{
			Name:            StageFeatures,
			System:          featuresSystem,
			Prompt:          featuresPrompt,
			Temperature:     0.3,
			MaxOutputTokens: 2300,
			Validate:        validateJSONArray,
		},
		{
			Name:            StageMLSData,
			System:          mlsDataSystem,
			Prompt:          mlsDataPrompt,
			Temperature:     0.2,
			MaxOutputTokens: 2000,
			Validate:        validateJSONObject,
		},
		{
			Name:            StagePhotoCategorization,
			System:          photoCategorizationSystem,
			Prompt:          photoCategorizationPrompt,
			Temperature:     0.3,
			MaxOutputTokens: 1500,
			Validate:        validateJSONArray,
		},
	}
}

// DefaultCriticalIndex is the position of the critical stage in DefaultStages.
const DefaultCriticalIndex = 0

// StageByName looks a stage up in DefaultStages.
func StageByName(name string) (Stage, error) {
	for _, s := range DefaultStages() {
		if s.Name == name {
			return s, nil
		}
	}
	return Stage{}, fmt.Errorf("%w: %q", domain.ErrBadStageName, name)
}

// ─── Output Validation ──────────────────────────────────────────────────────

// CleanJSON strips a markdown code fence from model output if present.
// Models frequently wrap JSON in ```json fences despite instructions.
func CleanJSON(output string) string {
	text := strings.TrimSpace(output)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// validateRemarks screens listing copy for fair-housing violations.
func validateRemarks(output string) (string, error) {
	text := strings.TrimSpace(output)
	if res := compliance.Check(text); !res.Compliant {
		return "", fmt.Errorf("compliance check failed: %s", res.Message)
	}
	return text, nil
}

func validateJSONArray(output string) (string, error) {
	text := CleanJSON(output)
	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(text), &arr); err != nil {
		return "", fmt.Errorf("output is not a JSON array: %w", err)
	}
	return text, nil
}

func validateJSONObject(output string) (string, error) {
	text := CleanJSON(output)
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return "", fmt.Errorf("output is not a JSON object: %w", err)
	}
	return text, nil
}
