// Package providers implements provider adapters that translate normalized
// requests into provider-specific HTTP calls. Adapters are deliberately thin:
// build one request, issue it, parse one response. No retries, no caching;
// this client is a single-attempt transport.
package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tallyvote/go-tallyeval/internal/llm/transport"
)

// Provider names accepted in requests and configuration.
const (
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
)

// Config holds one provider's endpoint and credentials.
type Config struct {
	Endpoint string            `json:"endpoint"`
	APIKey   string            `json:"-"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// GoogleAdapter implements the adapter for Google Gemini models via the
// generateContent API: multimodal inline_data parts, JSON-constrained output
// through responseMimeType + responseJsonSchema, API-key authentication.
type GoogleAdapter struct {
	config Config
}

// NewGoogleAdapter creates a Google adapter with the default endpoint when
// none is configured.
func NewGoogleAdapter(cfg Config) *GoogleAdapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GoogleAdapter{config: cfg}
}

// Name returns the provider name.
func (a *GoogleAdapter) Name() string { return ProviderGoogle }

// Build constructs a generateContent request carrying every page image and
// text part of the normalized request in order.
func (a *GoogleAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		a.config.Endpoint, req.Model, a.config.APIKey)

	parts := make([]map[string]any, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.IsImage() {
			parts = append(parts, map[string]any{
				"inline_data": map[string]any{
					"mime_type": p.MIME,
					"data":      base64.StdEncoding.EncodeToString(p.Data),
				},
			})
			continue
		}
		parts = append(parts, map[string]any{"text": p.Text})
	}

	generationConfig := map[string]any{
		"temperature":     req.Temperature,
		"maxOutputTokens": req.MaxTokens,
	}
	if req.ResponseSchema != nil {
		generationConfig["responseMimeType"] = "application/json"
		generationConfig["responseJsonSchema"] = req.ResponseSchema
	}

	body := map[string]any{
		"contents":         []map[string]any{{"parts": parts}},
		"generationConfig": generationConfig,
	}
	if req.SystemPrompt != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": req.SystemPrompt}},
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// Parse extracts normalized data from a generateContent response.
func (a *GoogleAdapter) Parse(httpResp *http.Response, req *transport.Request) (*transport.Response, error) {
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, parseProviderError(ProviderGoogle, req.Model, httpResp, body)
	}

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, &transport.ProviderError{
			Provider: ProviderGoogle,
			Model:    req.Model,
			Type:     transport.ErrorTypeProvider,
			Message:  "response contained no candidates",
		}
	}

	var content string
	for _, part := range resp.Candidates[0].Content.Parts {
		content += part.Text
	}

	return &transport.Response{
		Content:      content,
		FinishReason: resp.Candidates[0].FinishReason,
		Provider:     ProviderGoogle,
		Model:        req.Model,
		Usage: transport.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}
