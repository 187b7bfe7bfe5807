package workflow

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/tallyvote/go-tallyeval/internal/dataset"
	"github.com/tallyvote/go-tallyeval/internal/domain"
	"github.com/tallyvote/go-tallyeval/internal/evaluation"
	"github.com/tallyvote/go-tallyeval/internal/experiment"
)

func expectedResult() domain.ExtractionResult {
	return domain.ExtractionResult{
		FormInfo: domain.FormInfo{
			FormType:             domain.FormTypeConstituency,
			Date:                 "2026-02-01",
			Province:             "เชียงใหม่",
			District:             "เมืองเชียงใหม่",
			SubDistrict:          "ศรีภูมิ",
			ConstituencyNumber:   1,
			PollingStationNumber: "12",
		},
		VoterStatistics: domain.VoterStatistics{EligibleVoters: 950, VotersPresent: 520},
		BallotStatistics: domain.BallotStatistics{
			BallotsAllocated: 1000,
			BallotsUsed:      520,
			GoodBallots:      500,
			BadBallots:       12,
			NoVoteBallots:    8,
			BallotsRemaining: 480,
		},
		VoteResults: []domain.VoteEntry{
			domain.NewConstituencyEntry(1, "สมชาย ใจดี", "พรรคหนึ่ง", 260, ""),
			domain.NewConstituencyEntry(2, "สมหญิง รักเรียน", "พรรคสอง", 240, ""),
		},
	}
}

type memoryLoader struct {
	ds  dataset.Memory
	err error
}

func (l memoryLoader) Load(context.Context, string, int) (dataset.Memory, error) {
	return l.ds, l.err
}

func testActivities(t *testing.T, loader experiment.DatasetLoader) *experiment.Activities {
	t.Helper()

	// gpt-5 loses one ballot field per record so the comparison has a
	// clear winner.
	task := func(_ context.Context, _ domain.FormInput, cfg domain.ModelConfig) (*domain.ExtractionResult, error) {
		out := expectedResult()
		out.VoteResults = append([]domain.VoteEntry(nil), out.VoteResults...)
		if cfg.Model == "gpt-5" {
			out.BallotStatistics.BallotsRemaining++
		}
		return &out, nil
	}
	registry, err := evaluation.DefaultRegistry(nil, evaluation.DefaultWeights())
	require.NoError(t, err)
	orchestrator, err := experiment.New(task, registry, slog.New(slog.DiscardHandler), nil)
	require.NoError(t, err)
	acts, err := experiment.NewActivities(orchestrator, loader, nil)
	require.NoError(t, err)
	return acts
}

func testBatchRequest() BatchRequest {
	return BatchRequest{
		Configs: []domain.ModelConfig{
			{Model: "gpt-5"},
			{Model: "gemini-2.5-pro"},
		},
		DatasetName:    "tally-forms",
		DatasetVersion: 3,
		Options:        experiment.DefaultOptions(),
	}
}

func TestExperimentBatchWorkflow(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}

	records := dataset.Memory{{
		ID: "r1",
		Input: domain.FormInput{
			FormSetName: "set-r1",
			PagePaths:   []string{"/data/assets/r1/p1.jpg"},
			PageCount:   1,
		},
		Expected: expectedResult(),
	}}

	t.Run("fans out one run per config and picks the best", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()
		env.RegisterActivity(testActivities(t, memoryLoader{ds: records}).RunExperiment)

		env.ExecuteWorkflow(ExperimentBatchWorkflow, testBatchRequest())

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var batch domain.ExperimentBatchResult
		require.NoError(t, env.GetWorkflowResult(&batch))

		require.Len(t, batch.Runs, 2)
		assert.Equal(t, domain.RunStateCompleted, batch.Runs[0].State)
		assert.Equal(t, domain.RunStateCompleted, batch.Runs[1].State)
		require.Len(t, batch.Comparison, 2)
		assert.Equal(t, "gemini-2.5-pro", batch.BestConfig)
	})

	t.Run("invalid request fails validation without scheduling activities", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()

		env.ExecuteWorkflow(ExperimentBatchWorkflow, BatchRequest{})

		require.True(t, env.IsWorkflowCompleted())
		err := env.GetWorkflowError()
		require.Error(t, err)

		var appErr *temporal.ApplicationError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "Validation", appErr.Type())
		assert.True(t, appErr.NonRetryable())
	})

	t.Run("duplicate config names rejected", func(t *testing.T) {
		req := testBatchRequest()
		req.Configs = []domain.ModelConfig{{Model: "gpt-5"}, {Model: "gpt-5"}}

		env := testSuite.NewTestWorkflowEnvironment()
		env.ExecuteWorkflow(ExperimentBatchWorkflow, req)

		require.True(t, env.IsWorkflowCompleted())
		assert.Error(t, env.GetWorkflowError())
	})

	t.Run("activity failure fails the batch", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()
		loader := memoryLoader{err: errors.New("snapshot missing")}
		env.RegisterActivity(testActivities(t, loader).RunExperiment)

		env.ExecuteWorkflow(ExperimentBatchWorkflow, testBatchRequest())

		require.True(t, env.IsWorkflowCompleted())
		err := env.GetWorkflowError()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "snapshot missing")
	})
}
