package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tallyvote/go-tallyeval/internal/llm/transport"
)

// Adapter translates one normalized request into a provider HTTP call and
// parses the provider's response back into normalized form.
type Adapter interface {
	Name() string
	Build(ctx context.Context, req *transport.Request) (*http.Request, error)
	Parse(resp *http.Response, req *transport.Request) (*transport.Response, error)
}

// Router dispatches requests to the adapter registered for the request's
// provider and executes them over a shared HTTP client. It is the terminal
// handler of the client's middleware chain.
type Router struct {
	adapters        map[string]Adapter
	httpClient      *http.Client
	defaultProvider string
}

// NewRouter builds a router from provider configurations. The first
// configured provider (in the fixed order google, openai) becomes the
// default for requests that do not name one.
func NewRouter(configs map[string]Config, httpClient *http.Client) (*Router, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	r := &Router{adapters: make(map[string]Adapter, len(configs)), httpClient: httpClient}
	for name, cfg := range configs {
		switch name {
		case ProviderGoogle:
			r.adapters[name] = NewGoogleAdapter(cfg)
		case ProviderOpenAI:
			r.adapters[name] = NewOpenAIAdapter(cfg)
		default:
			return nil, fmt.Errorf("%w: %q", transport.ErrUnknownProvider, name)
		}
	}
	for _, name := range []string{ProviderGoogle, ProviderOpenAI} {
		if _, ok := r.adapters[name]; ok {
			r.defaultProvider = name
			break
		}
	}
	return r, nil
}

// Handle implements transport.Handler: one request, one provider call.
func (r *Router) Handle(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	provider := req.Provider
	if provider == "" {
		provider = r.defaultProvider
	}
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", transport.ErrUnknownProvider, provider)
	}

	httpReq, err := adapter.Build(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := r.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &transport.ProviderError{
				Provider: provider,
				Model:    req.Model,
				Type:     transport.ErrorTypeTimeout,
				Message:  err.Error(),
			}
		}
		return nil, &transport.ProviderError{
			Provider: provider,
			Model:    req.Model,
			Type:     transport.ErrorTypeNetwork,
			Message:  err.Error(),
		}
	}
	defer httpResp.Body.Close()

	return adapter.Parse(httpResp, req)
}

// parseProviderError builds a classified error from a non-200 provider
// response, extracting the provider's message and Retry-After hint when
// present.
func parseProviderError(provider, model string, resp *http.Response, body []byte) error {
	msg := extractErrorMessage(body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	retryAfter := 0
	if s := resp.Header.Get("Retry-After"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			retryAfter = v
		}
	}

	return &transport.ProviderError{
		Provider:          provider,
		Model:             model,
		StatusCode:        resp.StatusCode,
		Type:              transport.ClassifyStatus(resp.StatusCode),
		Message:           msg,
		RetryAfterSeconds: retryAfter,
	}
}

// extractErrorMessage pulls the human-readable message out of the common
// provider error envelopes: {"error": {"message": ...}} and {"error": "..."}.
func extractErrorMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Error != "" {
		return flat.Error
	}
	return ""
}
