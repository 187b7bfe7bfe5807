package main

import (
	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/tallyvote/go-tallyeval/internal/config"
	"github.com/tallyvote/go-tallyeval/internal/worker"
)

// DefaultTaskQueue is the Temporal task queue experiment workers poll.
const DefaultTaskQueue = "tallyeval-experiments"

var (
	flagTemporalAddr string
	flagTaskQueue    string
)

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Start a Temporal worker serving experiment runs",
		RunE:  runWorker,
	}
	cmd.Flags().StringVar(&flagTemporalAddr, "temporal-address", temporalclient.DefaultHostPort, "Temporal frontend address")
	cmd.Flags().StringVar(&flagTaskQueue, "task-queue", DefaultTaskQueue, "task queue to poll")
	return cmd
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	expCfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	client, err := worker.InitializeLLMClient(buildLLMConfig(), logger)
	if err != nil {
		return err
	}
	activities, err := worker.BuildActivities(ctx, expCfg, client, logger)
	if err != nil {
		return err
	}

	tc, err := temporalclient.Dial(temporalclient.Options{HostPort: flagTemporalAddr})
	if err != nil {
		return err
	}
	defer tc.Close()

	w := sdkworker.New(tc, flagTaskQueue, sdkworker.Options{})
	worker.RegisterAll(w, activities)

	logger.Info("worker starting", "task_queue", flagTaskQueue, "temporal", flagTemporalAddr)
	return w.Run(sdkworker.InterruptCh())
}
