package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyvote/go-tallyeval/internal/evaluation"
)

const sampleConfig = `
dataset:
  name: tally-forms
  version: 3
  root: /data/datasets

models:
  - model: gemini-2.5-pro
    provider: google
  - model: gpt-5
    provider: openai
    temperature: 1
    max_tokens: 4096
    name_suffix: t1

run:
  sample_size: 50
  jobs: 4
  raise_errors: false

weights:
  exact_form_match: 0.25
  ballot_accuracy: 0.25
  vote_results_quality: 0.25
  llm_judge: 0.25

judge:
  model: gemini-2.5-pro
  provider: google

output:
  path: results/batch.json
  events_path: results/events.jsonl
`

func TestParse(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		cfg, err := Parse([]byte(sampleConfig))
		require.NoError(t, err)

		assert.Equal(t, "tally-forms", cfg.Dataset.Name)
		assert.Equal(t, 3, cfg.Dataset.Version)

		configs := cfg.ModelConfigs()
		require.Len(t, configs, 2)
		assert.Equal(t, "gemini-2.5-pro", configs[0].Name())
		assert.Equal(t, "gpt-5-t1", configs[1].Name())
		assert.Equal(t, 1.0, configs[1].Temperature)
		assert.Equal(t, 4096, configs[1].MaxTokens)
		assert.Equal(t, 0, configs[0].MaxTokens, "unset max_tokens left to the extraction default")

		opts := cfg.Options()
		assert.Equal(t, 50, opts.SampleSize)
		assert.Equal(t, 4, opts.Jobs)
		assert.False(t, opts.RaiseErrors)

		assert.Equal(t, evaluation.Weights{
			ExactFormMatch:     0.25,
			BallotAccuracy:     0.25,
			VoteResultsQuality: 0.25,
			Judge:              0.25,
		}, cfg.EvalWeights())

		require.NotNil(t, cfg.Judge)
		assert.Equal(t, "gemini-2.5-pro", cfg.Judge.Model)
		assert.Equal(t, "results/batch.json", cfg.Output.Path)
	})

	t.Run("defaults applied to minimal config", func(t *testing.T) {
		cfg, err := Parse([]byte("dataset:\n  path: snap.jsonl\nmodels:\n  - model: gpt-5\n"))
		require.NoError(t, err)

		opts := cfg.Options()
		assert.Equal(t, 2, opts.Jobs)
		assert.True(t, opts.RaiseErrors)
		assert.Equal(t, 0, opts.SampleSize)
		assert.Equal(t, evaluation.DefaultWeights(), cfg.EvalWeights())
		assert.Nil(t, cfg.Judge)
	})

	t.Run("no models rejected", func(t *testing.T) {
		_, err := Parse([]byte("dataset:\n  path: snap.jsonl\nmodels: []\n"))
		assert.Error(t, err)
	})

	t.Run("missing dataset rejected", func(t *testing.T) {
		_, err := Parse([]byte("models:\n  - model: gpt-5\n"))
		assert.Error(t, err)
	})

	t.Run("bad weights rejected", func(t *testing.T) {
		bad := `
dataset:
  path: snap.jsonl
models:
  - model: gpt-5
weights:
  exact_form_match: 0.9
  ballot_accuracy: 0.9
  vote_results_quality: 0.0
  llm_judge: 0.0
`
		_, err := Parse([]byte(bad))
		assert.Error(t, err)
	})

	t.Run("temperature out of range rejected", func(t *testing.T) {
		_, err := Parse([]byte("dataset:\n  path: snap.jsonl\nmodels:\n  - model: gpt-5\n    temperature: 3\n"))
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Models, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
