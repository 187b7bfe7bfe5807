package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tallyvote/go-tallyeval/internal/config"
	"github.com/tallyvote/go-tallyeval/internal/domain"
	"github.com/tallyvote/go-tallyeval/internal/experiment"
	"github.com/tallyvote/go-tallyeval/internal/sink"
	"github.com/tallyvote/go-tallyeval/internal/worker"
)

var (
	flagJobs       int
	flagSampleSize int
	flagKeepGoing  bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured experiment batch in-process",
		RunE:  runBatch,
	}
	cmd.Flags().IntVar(&flagJobs, "jobs", 0, "override worker pool size")
	cmd.Flags().IntVar(&flagSampleSize, "sample-size", 0, "override dataset sample size")
	cmd.Flags().BoolVar(&flagKeepGoing, "keep-going", false, "collect task failures instead of aborting a run")
	return cmd
}

func runBatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	expCfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	opts := expCfg.Options()
	if flagJobs > 0 {
		opts.Jobs = flagJobs
	}
	if flagSampleSize > 0 {
		opts.SampleSize = flagSampleSize
	}
	if flagKeepGoing {
		opts.RaiseErrors = false
	}

	client, err := worker.InitializeLLMClient(buildLLMConfig(), logger)
	if err != nil {
		return err
	}
	activities, err := worker.BuildActivities(ctx, expCfg, client, logger)
	if err != nil {
		return err
	}

	runs := make([]domain.ExperimentRunResult, 0, len(expCfg.Models))
	for _, modelCfg := range expCfg.ModelConfigs() {
		run, err := activities.RunExperiment(ctx, experiment.RunExperimentInput{
			Config:         modelCfg,
			DatasetName:    expCfg.Dataset.Name,
			DatasetVersion: expCfg.Dataset.Version,
			Options:        opts,
		})
		if err != nil {
			return fmt.Errorf("run for %q: %w", modelCfg.Name(), err)
		}
		runs = append(runs, *run)
	}
	batch := experiment.BuildBatch(runs)

	if err := writeBatch(ctx, expCfg, batch); err != nil {
		return err
	}
	printComparison(batch)
	return nil
}

func writeBatch(ctx context.Context, expCfg *config.Experiment, batch *domain.ExperimentBatchResult) error {
	if path := expCfg.Output.Path; path != "" {
		fileSink, err := sink.NewFileSink(path)
		if err != nil {
			return err
		}
		if err := fileSink.WriteBatch(ctx, batch); err != nil {
			return err
		}
		fmt.Printf("Results written to %s\n", path)
	}

	if dsn := expCfg.Output.PostgresDSN; dsn != "" {
		pgSink, err := sink.NewPostgresSink(ctx, dsn)
		if err != nil {
			return err
		}
		defer pgSink.Close()
		if err := pgSink.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := pgSink.WriteBatch(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func printComparison(batch *domain.ExperimentBatchResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CONFIG\tOVERALL\tSUCCESS RATE\tBALLOT ACCURACY")
	for _, row := range batch.Comparison {
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\n",
			row.Config, row.OverallAccuracy, row.SuccessRate, row.AvgBallotAccuracy)
	}
	w.Flush()
	if batch.BestConfig != "" {
		fmt.Printf("\nBest config: %s\n", batch.BestConfig)
	}
}
