// Package experiment orchestrates extraction experiments: it runs the task
// function across dataset records under one or more model configurations,
// invokes evaluators and summary evaluators, manages concurrency and failure
// policy, and produces comparable batch-level results.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tallyvote/go-tallyeval/internal/dataset"
	"github.com/tallyvote/go-tallyeval/internal/domain"
	"github.com/tallyvote/go-tallyeval/internal/evaluation"
	"github.com/tallyvote/go-tallyeval/internal/llm"
	"github.com/tallyvote/go-tallyeval/pkg/activity"
	"github.com/tallyvote/go-tallyeval/pkg/events"
)

// DefaultJobs bounds the worker pool when no size is configured. The bound
// exists to respect upstream provider rate limits, not to maximize
// throughput.
const DefaultJobs = 2

// Summary metric keys the orchestrator computes itself, alongside the
// registered summary evaluators.
const (
	MetricSuccessRate       = "success_rate"
	MetricAvgBallotAccuracy = "avg_ballot_accuracy"
)

// Failure classification values reported in a run's failure list.
const (
	FailureMissingResource   = "missing_resource"
	FailureSchemaViolation   = "schema_violation"
	FailureTransientProvider = "transient_provider"
	FailureCancelled         = "cancelled"
	FailureTask              = "task_error"
)

// TaskFunc is the unit of work invoked once per dataset record: extract one
// form set under one configuration. Implementations must honor ctx
// cancellation and must not retry internally.
type TaskFunc func(ctx context.Context, input domain.FormInput, cfg domain.ModelConfig) (*domain.ExtractionResult, error)

// Options tunes one batch run.
type Options struct {
	// SampleSize limits the run to a deterministic prefix of the dataset;
	// <= 0 runs every record.
	SampleSize int `json:"sample_size"`

	// Jobs bounds the per-configuration worker pool; <= 0 means DefaultJobs.
	Jobs int `json:"jobs"`

	// RaiseErrors aborts a configuration's run on the first task failure.
	// When false, failures are collected and the run still completes.
	RaiseErrors bool `json:"raise_errors"`
}

// DefaultOptions returns the standard run options: 2 jobs, abort on first
// failure.
func DefaultOptions() Options {
	return Options{Jobs: DefaultJobs, RaiseErrors: true}
}

// Orchestrator is the single orchestration entry point of the pipeline.
type Orchestrator struct {
	task     TaskFunc
	registry *evaluation.Registry
	logger   *slog.Logger
	emitter  activity.Base
}

// New builds an orchestrator. The registry's evaluator set is fixed for the
// orchestrator's lifetime; role binding already failed fast at registration
// time. A nil logger falls back to slog.Default, a nil sink discards events.
func New(task TaskFunc, registry *evaluation.Registry, logger *slog.Logger, sink events.EventSink) (*Orchestrator, error) {
	if task == nil {
		return nil, fmt.Errorf("orchestrator requires a task function")
	}
	if registry == nil {
		return nil, fmt.Errorf("orchestrator requires an evaluator registry")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = events.NewNoOpEventSink()
	}
	return &Orchestrator{
		task:     task,
		registry: registry,
		logger:   logger,
		emitter:  activity.NewBase(sink),
	}, nil
}

// Run executes every configuration over the dataset and returns the batch
// result with the cross-configuration comparison.
//
// Configurations run one after another and share no mutable state; a FAILED
// run never affects its siblings. Run returns an error only for
// configuration problems (bad configs, empty dataset) or when ctx is
// cancelled between runs. Per-record failures live in the run results.
func (o *Orchestrator) Run(
	ctx context.Context,
	configs []domain.ModelConfig,
	ds dataset.Dataset,
	opts Options,
) (*domain.ExperimentBatchResult, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: no model configurations", domain.ErrInvalidModelConfig)
	}
	names := make(map[string]struct{}, len(configs))
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		name := cfg.Name()
		if _, dup := names[name]; dup {
			return nil, fmt.Errorf("%w: duplicate configuration name %q", domain.ErrInvalidModelConfig, name)
		}
		names[name] = struct{}{}
	}
	if ds == nil {
		return nil, fmt.Errorf("%w: nil dataset", domain.ErrEmptyDataset)
	}

	records, err := dataset.Records(ds, opts.SampleSize)
	if err != nil {
		return nil, err
	}

	runs := make([]domain.ExperimentRunResult, 0, len(configs))
	for _, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return BuildBatch(runs), err
		}
		runs = append(runs, o.RunConfig(ctx, cfg, records, opts))
	}
	return BuildBatch(runs), nil
}

// RunConfig executes one configuration over the given records with a bounded
// worker pool. It always returns a finalized run result; task failures are
// reflected in the run's state and failure list, never as an error.
func (o *Orchestrator) RunConfig(
	ctx context.Context,
	cfg domain.ModelConfig,
	records []domain.DatasetRecord,
	opts Options,
) domain.ExperimentRunResult {
	run := domain.ExperimentRunResult{
		RunID:        uuid.NewString(),
		Config:       cfg,
		State:        domain.RunStateCreated,
		TotalRecords: len(records),
		StartedAt:    time.Now(),
	}
	o.emit(ctx, events.Envelope{
		Type: events.TypeRunStarted, RunID: run.RunID, ConfigName: cfg.Name(),
		Fields: map[string]any{"total_records": len(records), "jobs": opts.Jobs},
	}, "run started")

	run.State = domain.RunStateRunning
	collected := o.processRecords(ctx, cfg, records, opts, run.RunID)

	run.Records = collected.results
	run.Failures = collected.failures
	run.Successful = len(collected.results)
	run.Failed = len(collected.failures)
	run.CompletedAt = time.Now()

	if collected.aborted {
		run.State = domain.RunStateFailed
	} else {
		run.State = domain.RunStateCompleted
		// Summary evaluators run exactly once, over the complete lists.
		run.SummaryMetrics = o.registry.Summarize(ctx, collected.samples, collected.scores)
		run.SummaryMetrics[MetricSuccessRate] = successRate(run)
		run.SummaryMetrics[MetricAvgBallotAccuracy] = evaluation.MeanOf(evaluation.NameBallotAccuracy)(ctx, collected.samples, collected.scores)
	}

	o.emit(ctx, events.Envelope{
		Type: events.TypeRunFinished, RunID: run.RunID, ConfigName: cfg.Name(),
		Fields: map[string]any{
			"state":      string(run.State),
			"successful": run.Successful,
			"failed":     run.Failed,
		},
	}, "run finished")
	o.logger.Info("experiment run finished",
		"run_id", run.RunID,
		"config", cfg.Name(),
		"state", run.State,
		"successful", run.Successful,
		"failed", run.Failed)
	return run
}

// collectedRun accumulates worker output for one configuration. The samples
// and scores slices stay index-aligned: they are appended under one lock
// acquisition and consumed together by the summary evaluators.
type collectedRun struct {
	mu       sync.Mutex
	samples  []evaluation.Sample
	scores   []domain.EvaluationResult
	results  []domain.RecordResult
	failures []domain.RecordFailure
	aborted  bool
}

// processRecords drives the bounded worker pool for one configuration.
// Completion order across records is unspecified; the only ordering
// guarantee is that a record's evaluators run strictly after its task output
// is available, which holds because both happen in the record's worker.
func (o *Orchestrator) processRecords(
	ctx context.Context,
	cfg domain.ModelConfig,
	records []domain.DatasetRecord,
	opts Options,
	runID string,
) *collectedRun {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = DefaultJobs
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	collected := &collectedRun{}
	sem := make(chan struct{}, jobs)
	var wg sync.WaitGroup

	for _, rec := range records {
		wg.Add(1)
		go func(rec domain.DatasetRecord) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-runCtx.Done():
				collected.fail(domain.RecordFailure{
					RecordID:     rec.ID,
					ErrorType:    FailureCancelled,
					ErrorMessage: "run aborted before this record started",
				})
				return
			}
			defer func() { <-sem }()

			if runCtx.Err() != nil {
				collected.fail(domain.RecordFailure{
					RecordID:     rec.ID,
					ErrorType:    FailureCancelled,
					ErrorMessage: "run aborted before this record started",
				})
				return
			}
			o.processOne(runCtx, cfg, rec, opts, runID, collected, cancel)
		}(rec)
	}
	wg.Wait()

	// Deterministic output regardless of completion order.
	sort.Slice(collected.results, func(i, j int) bool {
		return collected.results[i].RecordID < collected.results[j].RecordID
	})
	sort.Slice(collected.failures, func(i, j int) bool {
		return collected.failures[i].RecordID < collected.failures[j].RecordID
	})
	return collected
}

// processOne runs the task and, on success, validation plus every registered
// evaluator for a single record.
func (o *Orchestrator) processOne(
	runCtx context.Context,
	cfg domain.ModelConfig,
	rec domain.DatasetRecord,
	opts Options,
	runID string,
	collected *collectedRun,
	abort context.CancelFunc,
) {
	output, err := o.task(runCtx, rec.Input, cfg)
	if err != nil {
		failure := domain.RecordFailure{
			RecordID:     rec.ID,
			ErrorType:    classifyFailure(err),
			ErrorMessage: err.Error(),
		}
		collected.fail(failure)
		o.emit(runCtx, events.Envelope{
			Type: events.TypeRecordFailed, RunID: runID, ConfigName: cfg.Name(), RecordID: rec.ID,
			Fields: map[string]any{"error_type": failure.ErrorType, "error": failure.ErrorMessage},
		}, "record failed")
		o.logger.Warn("record task failed",
			"run_id", runID, "record_id", rec.ID, "error_type", failure.ErrorType, "error", err)
		if opts.RaiseErrors {
			collected.markAborted()
			abort()
		}
		return
	}

	// A cancelled task that still returned output completed fully; count it.
	report := domain.ValidateExtraction(output)
	sample := evaluation.Sample{
		RecordID:   rec.ID,
		Input:      rec.Input,
		Output:     output,
		Expected:   &rec.Expected,
		Validation: report,
	}
	scores := o.registry.Evaluate(runCtx, sample)

	collected.succeed(sample, scores, domain.RecordResult{
		RecordID:   rec.ID,
		Output:     output,
		Validation: report,
		Scores:     scores,
	})
	o.emit(runCtx, events.Envelope{
		Type: events.TypeRecordCompleted, RunID: runID, ConfigName: cfg.Name(), RecordID: rec.ID,
		Fields: map[string]any{"validation_score": report.Score},
	}, "record completed")
}

func (c *collectedRun) succeed(s evaluation.Sample, scores domain.EvaluationResult, r domain.RecordResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, s)
	c.scores = append(c.scores, scores)
	c.results = append(c.results, r)
}

func (c *collectedRun) fail(f domain.RecordFailure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, f)
}

func (c *collectedRun) markAborted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aborted = true
}

// emit stamps and sends a progress event through the shared best-effort
// emitter.
func (o *Orchestrator) emit(ctx context.Context, envelope events.Envelope, description string) {
	envelope.ID = uuid.NewString()
	envelope.Timestamp = time.Now()
	o.emitter.EmitEventSafe(ctx, envelope, description)
}

// classifyFailure maps a task error onto the failure taxonomy.
func classifyFailure(err error) string {
	var missing *domain.MissingResourceError
	if errors.As(err, &missing) {
		return FailureMissingResource
	}
	var schema *domain.SchemaViolationError
	if errors.As(err, &schema) {
		return FailureSchemaViolation
	}
	if errors.Is(err, context.Canceled) {
		return FailureCancelled
	}
	if llm.IsTransient(err) {
		return FailureTransientProvider
	}
	return FailureTask
}

func successRate(run domain.ExperimentRunResult) float64 {
	if run.TotalRecords == 0 {
		return 0
	}
	return float64(run.Successful) / float64(run.TotalRecords)
}

// BuildBatch derives the comparison table and best-configuration pointer
// from finished runs. The best configuration is the completed run with the
// highest overall accuracy; ties keep the earlier configuration.
func BuildBatch(runs []domain.ExperimentRunResult) *domain.ExperimentBatchResult {
	batch := &domain.ExperimentBatchResult{
		Runs:       runs,
		Comparison: make([]domain.ComparisonRow, 0, len(runs)),
	}

	bestScore := -1.0
	for _, run := range runs {
		row := domain.ComparisonRow{
			Config:            run.Config.Name(),
			OverallAccuracy:   run.Summary(evaluation.NameOverallAccuracy),
			SuccessRate:       run.Summary(MetricSuccessRate),
			AvgBallotAccuracy: run.Summary(MetricAvgBallotAccuracy),
		}
		batch.Comparison = append(batch.Comparison, row)

		if run.State == domain.RunStateCompleted && row.OverallAccuracy > bestScore {
			batch.BestConfig = row.Config
			bestScore = row.OverallAccuracy
		}
	}
	return batch
}
