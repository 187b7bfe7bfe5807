// Package extraction implements the task function of the evaluation
// pipeline: one schema-constrained multimodal LLM call per dataset record,
// producing a structured extraction result.
//
// The extractor is a pure single-attempt adapter. It never retries and never
// substitutes partial data; any failure is returned to the orchestrator,
// which owns retry and failure policy.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tallyvote/go-tallyeval/internal/domain"
	"github.com/tallyvote/go-tallyeval/internal/imagery"
	"github.com/tallyvote/go-tallyeval/internal/llm"
)

// Defaults for extraction calls. MaxTokens is sized generously: a party-list
// form can carry on the order of a hundred tally entries.
const (
	DefaultMaxTokens = 8192
	DefaultTimeout   = 120 * time.Second
)

// Extractor issues extraction calls for dataset records.
type Extractor struct {
	client llm.Client
	pages  *imagery.Aggregator
	logger *slog.Logger
}

// NewExtractor builds an extractor. The client is injected, constructed once
// per batch run by the caller; a nil logger falls back to slog.Default.
func NewExtractor(client llm.Client, pages *imagery.Aggregator, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{client: client, pages: pages, logger: logger}
}

// Extract runs the task function for one record under one configuration:
// load all resolvable pages, issue exactly one schema-constrained multimodal
// call bounded by a single timeout, and parse the structured result.
//
// Every failure (missing pages, transport error, timeout, schema violation)
// is returned as an error; output is never partial.
func (e *Extractor) Extract(
	ctx context.Context,
	input domain.FormInput,
	cfg domain.ModelConfig,
) (*domain.ExtractionResult, error) {
	pages, err := e.pages.LoadPages(ctx, input)
	if err != nil {
		return nil, err
	}

	schema, err := ResultSchema()
	if err != nil {
		return nil, err
	}

	parts := make([]llm.ContentPart, 0, len(pages)+1)
	for _, page := range pages {
		parts = append(parts, llm.ImagePart(page.Data, page.MIME))
	}
	parts = append(parts, llm.TextPart(buildUserContext(input, len(pages))))

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	resp, err := e.client.Generate(ctx, &llm.Request{
		Provider:       cfg.Provider,
		Model:          cfg.Model,
		Temperature:    cfg.Temperature,
		MaxTokens:      maxTokens,
		SystemPrompt:   systemPrompt,
		Parts:          parts,
		ResponseSchema: schema,
		Timeout:        DefaultTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction call for %q: %w", input.FormSetName, err)
	}

	result, err := ParseResult(resp.Content)
	if err != nil {
		e.logger.Error("extraction response rejected",
			"form_set", input.FormSetName,
			"model", cfg.Model,
			"finish_reason", resp.FinishReason,
			"error", err)
		return nil, err
	}

	e.logger.Info("extraction completed",
		"form_set", input.FormSetName,
		"model", cfg.Model,
		"pages", len(pages),
		"vote_entries", len(result.VoteResults),
		"total_tokens", resp.Usage.TotalTokens)
	return result, nil
}

// TaskFunc adapts the extractor to the orchestrator's task function contract.
func (e *Extractor) TaskFunc() func(context.Context, domain.FormInput, domain.ModelConfig) (*domain.ExtractionResult, error) {
	return e.Extract
}
