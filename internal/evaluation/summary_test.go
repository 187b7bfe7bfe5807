package evaluation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyvote/go-tallyeval/internal/domain"
)

func TestWeights(t *testing.T) {
	t.Run("defaults sum to 1", func(t *testing.T) {
		require.NoError(t, DefaultWeights().Validate())
	})

	t.Run("non-unit sum rejected", func(t *testing.T) {
		w := DefaultWeights()
		w.Judge = 0.5
		assert.ErrorIs(t, w.Validate(), domain.ErrInvalidWeights)
	})

	t.Run("negative weight rejected", func(t *testing.T) {
		w := Weights{ExactFormMatch: -0.1, BallotAccuracy: 0.4, VoteResultsQuality: 0.4, Judge: 0.3}
		assert.ErrorIs(t, w.Validate(), domain.ErrInvalidWeights)
	})
}

func TestOverallAccuracy(t *testing.T) {
	ctx := context.Background()
	summary := OverallAccuracy(DefaultWeights())

	result := func(form, ballot, quality, judge float64) domain.EvaluationResult {
		return domain.EvaluationResult{
			NameExactFormMatch:     form,
			NameBallotAccuracy:     ballot,
			NameVoteResultsQuality: quality,
			NameJudge:              judge,
		}
	}

	t.Run("perfect scores compose to 1", func(t *testing.T) {
		got := summary(ctx, nil, []domain.EvaluationResult{result(1, 1, 1, 1)})
		assert.InDelta(t, 1.0, got, 1e-12)
	})

	t.Run("weighted composition", func(t *testing.T) {
		got := summary(ctx, nil, []domain.EvaluationResult{result(1, 0, 1, 0)})
		assert.InDelta(t, 0.15+0.30, got, 1e-12)
	})

	t.Run("blends across records", func(t *testing.T) {
		got := summary(ctx, nil, []domain.EvaluationResult{
			result(1, 1.0, 1, 1),
			result(1, 5.0/6.0, 1, 1),
		})
		// ballot mean is 11/12; everything else is 1.
		assert.InDelta(t, 0.15+0.25*(11.0/12.0)+0.30+0.30, got, 1e-12)
	})

	t.Run("monotone in every component", func(t *testing.T) {
		base := result(0.5, 0.5, 0.5, 0.5)
		baseline := summary(ctx, nil, []domain.EvaluationResult{base})

		for _, name := range []string{NameExactFormMatch, NameBallotAccuracy, NameVoteResultsQuality, NameJudge} {
			bumped := result(0.5, 0.5, 0.5, 0.5)
			bumped[name] = 0.9
			got := summary(ctx, nil, []domain.EvaluationResult{bumped})
			assert.GreaterOrEqual(t, got, baseline, "raising %s must not lower the composite", name)
		}
	})

	t.Run("empty run scores 0", func(t *testing.T) {
		assert.Equal(t, 0.0, summary(ctx, nil, nil))
	})
}

func TestMeanOf(t *testing.T) {
	ctx := context.Background()
	fn := MeanOf(NameBallotAccuracy)

	got := fn(ctx, nil, []domain.EvaluationResult{
		{NameBallotAccuracy: 1.0},
		{NameBallotAccuracy: 0.5},
	})
	assert.InDelta(t, 0.75, got, 1e-12)
	assert.Equal(t, 0.0, fn(ctx, nil, nil))
}
