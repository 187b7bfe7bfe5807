// Package llm provides the injected LLM transport client used by the
// extraction task and the judge evaluator: a provider-agnostic, multimodal,
// schema-constrained generation call behind a middleware chain.
//
// The client is intentionally a single-attempt adapter. Retry policy belongs
// to the caller; the orchestrator's bounded worker pool is what respects
// provider rate limits. One client is constructed per batch run and injected
// into both the extractor and the judge.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tallyvote/go-tallyeval/internal/llm/providers"
	"github.com/tallyvote/go-tallyeval/internal/llm/transport"
)

// Type aliases re-export the transport types so most callers only import llm.
type (
	Request     = transport.Request
	Response    = transport.Response
	ContentPart = transport.ContentPart
	Usage       = transport.Usage
)

// TextPart builds a text content part.
func TextPart(text string) ContentPart { return transport.TextPart(text) }

// ImagePart builds an image content part.
func ImagePart(data []byte, mime string) ContentPart { return transport.ImagePart(data, mime) }

// IsTransient reports whether err is a transient provider failure.
func IsTransient(err error) bool { return transport.IsTransient(err) }

// CleanJSONResponse applies minimal transport-level fixes to a raw response.
func CleanJSONResponse(raw string) string { return transport.CleanJSONResponse(raw) }

// Client issues normalized generation requests. Implementations must be safe
// for concurrent use: one client is shared by all workers of a batch run.
type Client interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
}

type client struct {
	handler        transport.Handler
	defaultTimeout time.Duration
}

// NewClient builds a production client from configuration: a provider router
// wrapped in the logging middleware.
func NewClient(cfg *Config, logger *slog.Logger) (Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	router, err := providers.NewRouter(cfg.Providers, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider router: %w", err)
	}

	handler := transport.Chain(router,
		NewLoggingMiddleware(cfg.Observability, logger),
	)

	return &client{handler: handler, defaultTimeout: cfg.DefaultTimeout}, nil
}

// Generate issues exactly one provider call with a single bounded timeout
// covering the whole request, however many pages it carries.
func (c *client) Generate(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Model == "" {
		return nil, fmt.Errorf("request has no model")
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return c.handler.Handle(ctx, req)
}
