package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tallyvote/go-tallyeval/internal/config"
	"github.com/tallyvote/go-tallyeval/internal/dataset"
	"github.com/tallyvote/go-tallyeval/internal/evaluation"
	"github.com/tallyvote/go-tallyeval/internal/experiment"
	"github.com/tallyvote/go-tallyeval/internal/extraction"
	"github.com/tallyvote/go-tallyeval/internal/imagery"
	"github.com/tallyvote/go-tallyeval/internal/llm"
	"github.com/tallyvote/go-tallyeval/internal/paths"
	"github.com/tallyvote/go-tallyeval/internal/sink"
	"github.com/tallyvote/go-tallyeval/pkg/events"
)

// InitializeLLMClient creates the transport client shared by the extractor
// and the judge. Returned for injection rather than stored globally.
func InitializeLLMClient(cfg *llm.Config, logger *slog.Logger) (llm.Client, error) {
	client, err := llm.NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing llm client: %w", err)
	}
	return client, nil
}

// BuildActivities assembles the full activity dependency graph for one
// experiment configuration: page aggregation, extraction task, evaluator
// registry with optional judge, orchestrator, dataset loader, and event
// sink.
func BuildActivities(
	ctx context.Context,
	expCfg *config.Experiment,
	client llm.Client,
	logger *slog.Logger,
) (*experiment.Activities, error) {
	if expCfg == nil {
		return nil, fmt.Errorf("experiment configuration required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	aggregator := imagery.NewAggregator(paths.NewResolver(nil), logger)
	extractor := extraction.NewExtractor(client, aggregator, logger)

	var judge *evaluation.Judge
	if expCfg.Judge != nil {
		judgeCfg := evaluation.DefaultJudgeConfig(expCfg.Judge.Model)
		judgeCfg.Provider = expCfg.Judge.Provider
		judge = evaluation.NewJudge(client, judgeCfg, logger)
	}
	registry, err := evaluation.DefaultRegistry(judge, expCfg.EvalWeights())
	if err != nil {
		return nil, err
	}

	eventSink, err := buildEventSink(expCfg)
	if err != nil {
		return nil, err
	}

	orchestrator, err := experiment.New(extractor.TaskFunc(), registry, logger, eventSink)
	if err != nil {
		return nil, err
	}

	loader, err := buildDatasetLoader(ctx, expCfg.Dataset)
	if err != nil {
		return nil, err
	}
	return experiment.NewActivities(orchestrator, loader, eventSink)
}

func buildEventSink(expCfg *config.Experiment) (events.EventSink, error) {
	if expCfg.Output.EventsPath == "" {
		return events.NewNoOpEventSink(), nil
	}
	return sink.NewFileEventSink(expCfg.Output.EventsPath)
}

// fileLoader serves versioned snapshots from a local dataset root.
type fileLoader struct {
	root string
}

func (l fileLoader) Load(_ context.Context, name string, version int) (dataset.Memory, error) {
	return dataset.OpenVersion(l.root, name, version)
}

// pathLoader serves one fixed snapshot file regardless of name and version.
type pathLoader struct {
	path string
}

func (l pathLoader) Load(context.Context, string, int) (dataset.Memory, error) {
	return dataset.Open(l.path)
}

func buildDatasetLoader(ctx context.Context, ds config.Dataset) (experiment.DatasetLoader, error) {
	switch {
	case ds.Bucket != "":
		return dataset.NewS3Store(ctx, ds.Bucket)
	case ds.Path != "":
		return pathLoader{path: ds.Path}, nil
	case ds.Root != "":
		return fileLoader{root: ds.Root}, nil
	default:
		return nil, fmt.Errorf("dataset configuration needs a path, root, or bucket")
	}
}
