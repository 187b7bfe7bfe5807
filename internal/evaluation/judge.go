package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/tallyvote/go-tallyeval/internal/llm"
)

// Judge call defaults. The token budget is independent from the extraction
// call's and larger: reasoning text runs long.
const (
	DefaultJudgeMaxTokens = 16384
	DefaultJudgeTimeout   = 60 * time.Second
)

// JudgeConfig configures the judge's secondary model call.
type JudgeConfig struct {
	Provider  string        `json:"provider,omitempty"`
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Timeout   time.Duration `json:"timeout"`
}

// DefaultJudgeConfig returns judge defaults for the given model.
func DefaultJudgeConfig(model string) JudgeConfig {
	return JudgeConfig{
		Model:     model,
		MaxTokens: DefaultJudgeMaxTokens,
		Timeout:   DefaultJudgeTimeout,
	}
}

// JudgeError is one structured discrepancy reported by the judge.
type JudgeError struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Severity string `json:"severity"`
}

// judgeVerdict is the structured response requested from the judge model.
type judgeVerdict struct {
	Score     float64      `json:"score"`
	Reasoning string       `json:"reasoning"`
	Errors    []JudgeError `json:"errors"`
	Summary   string       `json:"summary"`
}

var (
	judgeSchemaOnce sync.Once
	judgeSchema     *jsonschema.Schema
	judgeSchemaErr  error
)

func verdictSchema() (*jsonschema.Schema, error) {
	judgeSchemaOnce.Do(func() {
		judgeSchema, judgeSchemaErr = jsonschema.For[judgeVerdict](nil)
	})
	return judgeSchema, judgeSchemaErr
}

// Judge is the LLM-as-judge evaluator: a secondary model call producing a
// holistic 0-1 quality score with structured diagnostics.
//
// The judge must never abort an experiment. Every failure path (missing
// client, transport error, unparsable response, out-of-range score) degrades
// to a 0.0 score with full diagnostics logged, including the raw response.
type Judge struct {
	client llm.Client
	cfg    JudgeConfig
	logger *slog.Logger
}

// NewJudge builds a judge evaluator. The client is the same injected
// transport client the extractor uses, scoped to the batch run.
func NewJudge(client llm.Client, cfg JudgeConfig, logger *slog.Logger) *Judge {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultJudgeMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultJudgeTimeout
	}
	return &Judge{client: client, cfg: cfg, logger: logger}
}

// Evaluate implements the evaluator contract. It never fails; see Judge.
func (j *Judge) Evaluate(ctx context.Context, s Sample) float64 {
	if j.client == nil {
		j.logger.Error("judge has no transport client configured", "record_id", s.RecordID)
		return 0
	}
	if s.Output == nil || s.Expected == nil {
		j.logger.Error("judge called without output or expected output", "record_id", s.RecordID)
		return 0
	}

	prompt, err := buildJudgePrompt(s)
	if err != nil {
		j.logger.Error("judge prompt construction failed", "record_id", s.RecordID, "error", err)
		return 0
	}

	schema, err := verdictSchema()
	if err != nil {
		j.logger.Error("judge verdict schema unavailable", "record_id", s.RecordID, "error", err)
		return 0
	}

	resp, err := j.client.Generate(ctx, &llm.Request{
		Provider:       j.cfg.Provider,
		Model:          j.cfg.Model,
		Temperature:    0,
		MaxTokens:      j.cfg.MaxTokens,
		SystemPrompt:   judgeSystemPrompt,
		Parts:          []llm.ContentPart{llm.TextPart(prompt)},
		ResponseSchema: schema,
		Timeout:        j.cfg.Timeout,
	})
	if err != nil {
		j.logger.Error("judge call failed",
			"record_id", s.RecordID,
			"model", j.cfg.Model,
			"error", err,
			"transient", llm.IsTransient(err))
		return 0
	}

	verdict, err := parseVerdict(resp.Content)
	if err != nil {
		j.logger.Error("judge response unparsable, scoring 0",
			"record_id", s.RecordID,
			"model", j.cfg.Model,
			"error", err,
			"raw_response", resp.Content)
		return 0
	}

	j.logger.Info("judge verdict",
		"record_id", s.RecordID,
		"score", verdict.Score,
		"errors", len(verdict.Errors),
		"summary", verdict.Summary)
	return verdict.Score
}

// parseVerdict parses the judge's raw response with transport-level cleanup
// applied first, and bounds-checks the score.
func parseVerdict(raw string) (*judgeVerdict, error) {
	cleaned := llm.CleanJSONResponse(raw)

	var verdict judgeVerdict
	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		return nil, fmt.Errorf("verdict is not valid JSON: %w", err)
	}
	if verdict.Score < 0 || verdict.Score > 1 {
		return nil, fmt.Errorf("verdict score %v outside [0,1]", verdict.Score)
	}
	return &verdict, nil
}
