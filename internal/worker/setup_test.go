package worker

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyvote/go-tallyeval/internal/config"
)

func TestBuildDatasetLoader(t *testing.T) {
	ctx := context.Background()

	t.Run("fixed path wins over root", func(t *testing.T) {
		loader, err := buildDatasetLoader(ctx, config.Dataset{Path: "snap.jsonl", Root: "/data"})
		require.NoError(t, err)
		assert.IsType(t, pathLoader{}, loader)
	})

	t.Run("root yields versioned loader", func(t *testing.T) {
		loader, err := buildDatasetLoader(ctx, config.Dataset{Root: "/data/datasets"})
		require.NoError(t, err)
		assert.IsType(t, fileLoader{}, loader)
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := buildDatasetLoader(ctx, config.Dataset{})
		assert.Error(t, err)
	})
}

func TestBuildActivities(t *testing.T) {
	expCfg, err := config.Parse([]byte(`
dataset:
  path: snap.jsonl
models:
  - model: gemini-2.5-pro
judge:
  model: gemini-2.5-pro
`))
	require.NoError(t, err)

	activities, err := BuildActivities(context.Background(), expCfg, nil, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.NotNil(t, activities)

	_, err = BuildActivities(context.Background(), nil, nil, nil)
	assert.Error(t, err)
}
