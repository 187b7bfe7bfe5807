package evaluation

import (
	"context"
	"fmt"
	"math"

	"github.com/tallyvote/go-tallyeval/internal/domain"
)

// weightTolerance absorbs float accumulation when checking the weight sum.
const weightTolerance = 1e-9

// Weights configures the overall_accuracy composition. The four components
// must form a convex combination: non-negative, summing to 1.
type Weights struct {
	ExactFormMatch     float64 `json:"exact_form_match"     yaml:"exact_form_match"`
	BallotAccuracy     float64 `json:"ballot_accuracy"      yaml:"ballot_accuracy"`
	VoteResultsQuality float64 `json:"vote_results_quality" yaml:"vote_results_quality"`
	Judge              float64 `json:"llm_judge"            yaml:"llm_judge"`
}

// DefaultWeights returns the default composition. The split has no deeper
// rationale than emphasizing tally and judge quality; it is configurable.
func DefaultWeights() Weights {
	return Weights{
		ExactFormMatch:     0.15,
		BallotAccuracy:     0.25,
		VoteResultsQuality: 0.30,
		Judge:              0.30,
	}
}

// Validate checks the weights form a convex combination.
func (w Weights) Validate() error {
	for _, v := range []float64{w.ExactFormMatch, w.BallotAccuracy, w.VoteResultsQuality, w.Judge} {
		if v < 0 {
			return fmt.Errorf("%w: negative weight", domain.ErrInvalidWeights)
		}
	}
	sum := w.ExactFormMatch + w.BallotAccuracy + w.VoteResultsQuality + w.Judge
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %v, want 1", domain.ErrInvalidWeights, sum)
	}
	return nil
}

// OverallAccuracy returns the summary evaluator composing the weighted sum
// of the per-record evaluator means:
//
//	exact_form_match*W1 + ballot_accuracy_score*W2 +
//	vote_results_quality*W3 + llm_judge_evaluator*W4
//
// Records missing a component (e.g. no judge registered) contribute 0 for
// that component. An empty run scores 0.
func OverallAccuracy(w Weights) SummaryFunc {
	return func(_ context.Context, _ []Sample, results []domain.EvaluationResult) float64 {
		if len(results) == 0 {
			return 0
		}
		return w.ExactFormMatch*mean(results, NameExactFormMatch) +
			w.BallotAccuracy*mean(results, NameBallotAccuracy) +
			w.VoteResultsQuality*mean(results, NameVoteResultsQuality) +
			w.Judge*mean(results, NameJudge)
	}
}

// MeanOf returns a summary evaluator reporting the mean of one per-record
// evaluator across the run, 0 for an empty run.
func MeanOf(evaluator string) SummaryFunc {
	return func(_ context.Context, _ []Sample, results []domain.EvaluationResult) float64 {
		if len(results) == 0 {
			return 0
		}
		return mean(results, evaluator)
	}
}

func mean(results []domain.EvaluationResult, name string) float64 {
	total := 0.0
	for _, r := range results {
		total += r[name]
	}
	return total / float64(len(results))
}
