package experiment

import (
	"context"
	"fmt"

	"github.com/tallyvote/go-tallyeval/internal/dataset"
	"github.com/tallyvote/go-tallyeval/internal/domain"
	"github.com/tallyvote/go-tallyeval/pkg/activity"
	"github.com/tallyvote/go-tallyeval/pkg/events"
)

// DatasetLoader fetches a versioned dataset snapshot at activity time, so
// workflow inputs stay small and replay-safe: the workflow passes a name and
// version, never record payloads.
type DatasetLoader interface {
	Load(ctx context.Context, name string, version int) (dataset.Memory, error)
}

// RunExperimentInput carries everything one activity invocation needs to run
// a single configuration.
type RunExperimentInput struct {
	Config         domain.ModelConfig `json:"config"`
	DatasetName    string             `json:"dataset_name"`
	DatasetVersion int                `json:"dataset_version"`
	Options        Options            `json:"options"`
}

// Activities exposes the per-configuration experiment run as a Temporal
// activity. One activity invocation equals one configuration's full run;
// fan-out across configurations is the workflow's job.
type Activities struct {
	activity.Base

	orchestrator *Orchestrator
	loader       DatasetLoader
}

// NewActivities wires the orchestrator and dataset loader into the activity
// surface registered on workers.
func NewActivities(orchestrator *Orchestrator, loader DatasetLoader, sink events.EventSink) (*Activities, error) {
	if orchestrator == nil {
		return nil, fmt.Errorf("activities require an orchestrator")
	}
	if loader == nil {
		return nil, fmt.Errorf("activities require a dataset loader")
	}
	return &Activities{
		Base:         activity.NewBase(sink),
		orchestrator: orchestrator,
		loader:       loader,
	}, nil
}

// RunExperiment loads the dataset snapshot and runs one configuration over
// it. Per-record failures land in the returned run result; only dataset and
// configuration problems surface as activity errors.
func (a *Activities) RunExperiment(ctx context.Context, in RunExperimentInput) (*domain.ExperimentRunResult, error) {
	if err := in.Config.Validate(); err != nil {
		return nil, err
	}

	ds, err := a.loader.Load(ctx, in.DatasetName, in.DatasetVersion)
	if err != nil {
		return nil, fmt.Errorf("loading dataset %s v%d: %w", in.DatasetName, in.DatasetVersion, err)
	}
	records, err := dataset.Records(ds, in.Options.SampleSize)
	if err != nil {
		return nil, err
	}

	activity.SafeLog(ctx, "starting experiment run",
		"config", in.Config.Name(),
		"dataset", in.DatasetName,
		"records", len(records))
	a.RecordHeartbeat(ctx, "run started")

	run := a.orchestrator.RunConfig(ctx, in.Config, records, in.Options)
	return &run, nil
}
