package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/listinggopher/listinggopher/internal/domain"
)

const (
	openaiBaseURL        = "https://api.openai.com/v1/responses"
	openaiDefaultModel   = "gpt-5.2"
	openaiDefaultTimeout = 60 * time.Second
)

// OpenAI is the primary generation provider, speaking the Responses API.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAI creates an OpenAI provider. An empty model selects the default.
func NewOpenAI(apiKey, model string, timeout time.Duration) *OpenAI {
	if model == "" {
		model = openaiDefaultModel
	}
	if timeout <= 0 {
		timeout = openaiDefaultTimeout
	}
	return &OpenAI{
		apiKey:  apiKey,
		model:   model,
		baseURL: openaiBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name implements domain.Provider.
func (o *OpenAI) Name() string { return "openai" }

// ─── Wire Types ─────────────────────────────────────────────────────────────
// The Responses API takes input as a list of message objects whose content
// parts are typed (input_text / input_image), and uses max_output_tokens.

type openaiRequest struct {
	Model           string          `json:"model"`
	Instructions    string          `json:"instructions,omitempty"`
	Input           []openaiMessage `json:"input"`
	Temperature     float64         `json:"temperature,omitempty"`
	MaxOutputTokens int             `json:"max_output_tokens,omitempty"`
}

type openaiMessage struct {
	Role    string          `json:"role"`
	Content []openaiContent `json:"content"`
}

type openaiContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

type openaiResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type openaiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Generate implements domain.Provider.
func (o *OpenAI) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	if o.apiKey == "" {
		return nil, &Error{
			Provider: o.Name(),
			Class:    domain.FailureInfrastructure,
			Message:  "API key not configured",
		}
	}

	content := []openaiContent{{Type: "input_text", Text: req.UserPrompt}}
	for _, u := range req.PhotoURLs {
		content = append(content, openaiContent{Type: "input_image", ImageURL: u, Detail: "high"})
	}

	body, err := json.Marshal(openaiRequest{
		Model:           o.model,
		Instructions:    req.SystemPrompt,
		Input:           []openaiMessage{{Role: "user", Content: content}},
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	start := time.Now()
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Provider: o.Name(), Class: domain.FailureInfrastructure, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Provider: o.Name(), Class: domain.FailureInfrastructure, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr openaiErrorBody
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, &Error{
			Provider: o.Name(),
			Status:   resp.StatusCode,
			Class:    classifyStatus(resp.StatusCode),
			Message:  msg,
		}
	}

	var parsed openaiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &Error{
			Provider: o.Name(),
			Class:    domain.FailureContent,
			Message:  "unparseable response body",
			Err:      err,
		}
	}

	var sb strings.Builder
	for _, item := range parsed.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				sb.WriteString(part.Text)
			}
		}
	}

	return &domain.GenerationResult{
		Content:      strings.TrimSpace(sb.String()),
		Provider:     o.Name(),
		Model:        o.model,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
		ElapsedMS:    time.Since(start).Milliseconds(),
	}, nil
}
