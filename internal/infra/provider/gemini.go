package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/listinggopher/listinggopher/internal/domain"
)

const (
	geminiBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel   = "gemini-2.0-flash"
	geminiDefaultTimeout = 60 * time.Second
)

// Gemini is the fallback generation provider. It is only called when the
// primary fails with an infrastructure-class error.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// NewGemini creates a Gemini provider. An empty model selects the default.
func NewGemini(apiKey, model string, timeout time.Duration) *Gemini {
	if model == "" {
		model = geminiDefaultModel
	}
	if timeout <= 0 {
		timeout = geminiDefaultTimeout
	}
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		client:  &http.Client{Timeout: timeout},
		log:     slog.Default(),
	}
}

// Name implements domain.Provider.
func (g *Gemini) Name() string { return "gemini" }

// ─── Wire Types ─────────────────────────────────────────────────────────────

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Generate implements domain.Provider.
//
// Gemini has no separate system role in this API shape, so the system and
// user prompts are concatenated. Photos must be inlined as base64; a photo
// that cannot be fetched is skipped rather than failing the whole request.
func (g *Gemini) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	if g.apiKey == "" {
		return nil, &Error{
			Provider: g.Name(),
			Class:    domain.FailureInfrastructure,
			Message:  "API key not configured",
		}
	}

	var parts []geminiPart
	for _, u := range req.PhotoURLs {
		data, mime, err := g.fetchImage(ctx, u)
		if err != nil {
			g.log.Warn("skipping photo for fallback provider", "url", u, "error", err)
			continue
		}
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: mime, Data: data}})
	}
	parts = append(parts, geminiPart{Text: req.SystemPrompt + "\n\n" + req.UserPrompt})

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: parts}},
		GenerationConfig: geminiGenConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxOutputTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Provider: g.Name(), Class: domain.FailureInfrastructure, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Provider: g.Name(), Class: domain.FailureInfrastructure, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Provider: g.Name(),
			Status:   resp.StatusCode,
			Class:    classifyStatus(resp.StatusCode),
			Message:  strings.TrimSpace(string(raw)),
		}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &Error{
			Provider: g.Name(),
			Class:    domain.FailureContent,
			Message:  "unparseable response body",
			Err:      err,
		}
	}

	var sb strings.Builder
	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
	}

	return &domain.GenerationResult{
		Content:      strings.TrimSpace(sb.String()),
		Provider:     g.Name(),
		Model:        g.model,
		InputTokens:  parsed.UsageMetadata.PromptTokenCount,
		OutputTokens: parsed.UsageMetadata.CandidatesTokenCount,
		ElapsedMS:    time.Since(start).Milliseconds(),
	}, nil
}

// fetchImage downloads a photo and returns it base64-encoded with its MIME
// type. Data URLs (data:<mime>;base64,<data>) are decoded locally.
func (g *Gemini) fetchImage(ctx context.Context, url string) (data, mime string, err error) {
	url = strings.TrimSpace(url)
	if strings.HasPrefix(url, "data:") {
		header, b64, ok := strings.Cut(url, ",")
		if !ok {
			return "", "", fmt.Errorf("malformed data URL")
		}
		mime = strings.TrimPrefix(strings.SplitN(header, ";", 2)[0], "data:")
		if mime == "" {
			mime = "image/jpeg"
		}
		return b64, mime, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("HTTP %d fetching image", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}
	mime = resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	return base64.StdEncoding.EncodeToString(raw), mime, nil
}
