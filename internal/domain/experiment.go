package domain

import (
	"fmt"
	"time"
)

// ModelConfig describes one model/temperature configuration under test.
type ModelConfig struct {
	// Model is the provider-side model identifier.
	Model string `json:"model" validate:"required"`

	// Provider routes the request (e.g. "google", "openai"). Empty selects
	// the transport client's default provider.
	Provider string `json:"provider,omitempty"`

	// Temperature defaults to 0 for deterministic extraction.
	Temperature float64 `json:"temperature" validate:"min=0,max=2"`

	// MaxTokens caps the extraction response size; 0 uses the extraction
	// default.
	MaxTokens int `json:"max_tokens,omitempty" validate:"min=0"`

	// NameSuffix disambiguates runs of the same model within one batch.
	NameSuffix string `json:"name_suffix,omitempty"`

	// Metadata is carried through to run results untouched.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Name returns the configuration's display name within a batch.
func (c ModelConfig) Name() string {
	if c.NameSuffix != "" {
		return c.Model + "-" + c.NameSuffix
	}
	return c.Model
}

// Validate checks the configuration's shape.
func (c ModelConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidModelConfig, err)
	}
	return nil
}

// RunState is the lifecycle state of one configuration's run.
type RunState string

const (
	RunStateCreated   RunState = "CREATED"
	RunStateRunning   RunState = "RUNNING"
	RunStateCompleted RunState = "COMPLETED"
	RunStateFailed    RunState = "FAILED"
)

// EvaluationResult maps evaluator name to its score for one
// (record, configuration) pair. Boolean evaluators report 0 or 1.
type EvaluationResult map[string]float64

// RecordResult ties one record's task output, validation report, and
// evaluator scores back to the originating record ID.
type RecordResult struct {
	RecordID   string            `json:"record_id"`
	Output     *ExtractionResult `json:"output"`
	Validation ValidationReport  `json:"validation"`
	Scores     EvaluationResult  `json:"scores"`
}

// RecordFailure itemizes one record whose task invocation failed.
type RecordFailure struct {
	RecordID     string `json:"record_id"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
}

// ExperimentRunResult is the outcome of running one configuration over the
// dataset. It is created when the run starts and finalized when all records
// complete or the run is aborted.
type ExperimentRunResult struct {
	RunID          string                `json:"run_id"`
	Config         ModelConfig           `json:"config"`
	State          RunState              `json:"state"`
	TotalRecords   int                   `json:"total_records"`
	Successful     int                   `json:"successful_records"`
	Failed         int                   `json:"failed_records"`
	Records        []RecordResult        `json:"per_record_results"`
	SummaryMetrics map[string]float64    `json:"summary_metrics"`
	Failures       []RecordFailure       `json:"failures"`
	StartedAt      time.Time             `json:"started_at"`
	CompletedAt    time.Time             `json:"completed_at"`
}

// Summary returns the named summary metric, or 0 when absent (e.g. on a
// FAILED run whose summaries never ran).
func (r *ExperimentRunResult) Summary(name string) float64 {
	return r.SummaryMetrics[name]
}

// ComparisonRow is one line of the cross-configuration comparison table.
type ComparisonRow struct {
	Config            string  `json:"config"`
	OverallAccuracy   float64 `json:"overall_accuracy"`
	SuccessRate       float64 `json:"success_rate"`
	AvgBallotAccuracy float64 `json:"avg_ballot_accuracy"`
}

// ExperimentBatchResult is the final, read-only outcome of one batch:
// one run per configuration plus the derived comparison and best pointer.
type ExperimentBatchResult struct {
	Runs       []ExperimentRunResult `json:"runs"`
	Comparison []ComparisonRow       `json:"comparison"`

	// BestConfig names the configuration with the highest overall accuracy
	// among completed runs, ties broken by first-seen order. Empty when no
	// run completed.
	BestConfig string `json:"best_config"`
}
