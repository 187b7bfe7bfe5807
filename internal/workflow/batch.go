// Package workflow defines the Temporal workflow that fans one experiment
// batch out across model configurations. Each configuration becomes one
// RunExperiment activity; the workflow only validates input, coordinates the
// fan-out, and assembles the comparison, so it stays deterministic.
package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/tallyvote/go-tallyeval/internal/domain"
	"github.com/tallyvote/go-tallyeval/internal/experiment"
)

// runExperimentActivity matches the registered method name on
// experiment.Activities.
const runExperimentActivity = "RunExperiment"

// BatchRequest is the workflow input: the configurations to compare and the
// dataset snapshot reference. Records are loaded activity-side to keep
// workflow history small.
type BatchRequest struct {
	Configs        []domain.ModelConfig `json:"configs"`
	DatasetName    string               `json:"dataset_name"`
	DatasetVersion int                  `json:"dataset_version"`
	Options        experiment.Options   `json:"options"`
}

// Validate checks the request before any activity is scheduled.
func (r BatchRequest) Validate() error {
	if len(r.Configs) == 0 {
		return fmt.Errorf("%w: no model configurations", domain.ErrInvalidModelConfig)
	}
	names := make(map[string]struct{}, len(r.Configs))
	for _, cfg := range r.Configs {
		if err := cfg.Validate(); err != nil {
			return err
		}
		name := cfg.Name()
		if _, dup := names[name]; dup {
			return fmt.Errorf("%w: duplicate configuration name %q", domain.ErrInvalidModelConfig, name)
		}
		names[name] = struct{}{}
	}
	if r.DatasetName == "" {
		return fmt.Errorf("%w: missing dataset name", domain.ErrEmptyDataset)
	}
	return nil
}

// ExperimentBatchWorkflow runs every configuration's experiment as a
// parallel activity and returns the assembled batch result. A failed
// activity (dataset unavailable, worker lost) fails the whole batch; task
// failures inside a run never reach this level, they are part of the run
// result.
func ExperimentBatchWorkflow(
	ctx workflow.Context,
	req BatchRequest,
) (*domain.ExperimentBatchResult, error) {
	// Version gate enables safe evolution of the fan-out logic.
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "experiment-batch.v", workflow.DefaultVersion, currentVersion)

	if err := req.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"invalid batch request",
			"Validation",
			err,
		)
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		HeartbeatTimeout:    5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	futures := make([]workflow.Future, len(req.Configs))
	for i, cfg := range req.Configs {
		input := experiment.RunExperimentInput{
			Config:         cfg,
			DatasetName:    req.DatasetName,
			DatasetVersion: req.DatasetVersion,
			Options:        req.Options,
		}
		futures[i] = workflow.ExecuteActivity(ctx, runExperimentActivity, input)
	}

	runs := make([]domain.ExperimentRunResult, 0, len(req.Configs))
	for i, future := range futures {
		var run domain.ExperimentRunResult
		if err := future.Get(ctx, &run); err != nil {
			return nil, fmt.Errorf("experiment run for %q: %w", req.Configs[i].Name(), err)
		}
		runs = append(runs, run)
	}

	return experiment.BuildBatch(runs), nil
}
