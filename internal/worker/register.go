// Package worker wires the experiment workflow and activities onto a
// Temporal worker and assembles their dependency graph from configuration.
package worker

import (
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/tallyvote/go-tallyeval/internal/experiment"
	"github.com/tallyvote/go-tallyeval/internal/workflow"
)

// RegisterAll registers the batch workflow and its activities. Call once
// during worker startup, before the worker is started.
func RegisterAll(w sdkworker.Worker, activities *experiment.Activities) {
	w.RegisterWorkflow(workflow.ExperimentBatchWorkflow)
	w.RegisterActivity(activities.RunExperiment)
}
