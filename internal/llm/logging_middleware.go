package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tallyvote/go-tallyeval/internal/llm/transport"
)

// NewLoggingMiddleware wraps a handler with structured request lifecycle
// logging: model, provider, part counts, latency, token usage, and error
// classification. Prompt text is redacted unless configured otherwise.
func NewLoggingMiddleware(cfg ObservabilityConfig, logger *slog.Logger) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if req.TraceID == "" {
				req.TraceID = uuid.NewString()
			}

			images, texts := partCounts(req.Parts)
			attrs := []any{
				"trace_id", req.TraceID,
				"provider", req.Provider,
				"model", req.Model,
				"temperature", req.Temperature,
				"max_tokens", req.MaxTokens,
				"image_parts", images,
				"text_parts", texts,
			}
			if !cfg.RedactPrompts {
				attrs = append(attrs, "system_prompt", req.SystemPrompt)
			}
			logger.Debug("llm request started", attrs...)

			start := time.Now()
			resp, err := next.Handle(ctx, req)
			elapsed := time.Since(start)

			if err != nil {
				errAttrs := []any{
					"trace_id", req.TraceID,
					"model", req.Model,
					"duration_ms", elapsed.Milliseconds(),
					"error", err,
					"transient", transport.IsTransient(err),
				}
				var pe *transport.ProviderError
				if errors.As(err, &pe) {
					errAttrs = append(errAttrs, "error_type", string(pe.Type), "status_code", pe.StatusCode)
				}
				logger.Error("llm request failed", errAttrs...)
				return nil, err
			}

			doneAttrs := []any{
				"trace_id", req.TraceID,
				"provider", resp.Provider,
				"model", resp.Model,
				"duration_ms", elapsed.Milliseconds(),
				"finish_reason", resp.FinishReason,
				"prompt_tokens", resp.Usage.PromptTokens,
				"completion_tokens", resp.Usage.CompletionTokens,
			}
			if cfg.LogRawResponses {
				doneAttrs = append(doneAttrs, "raw_response", resp.Content)
			}
			logger.Info("llm request completed", doneAttrs...)
			return resp, nil
		})
	}
}

func partCounts(parts []transport.ContentPart) (images, texts int) {
	for _, p := range parts {
		if p.IsImage() {
			images++
		} else {
			texts++
		}
	}
	return images, texts
}
