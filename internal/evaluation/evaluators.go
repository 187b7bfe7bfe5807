// Package evaluation scores extraction output against ground truth. It
// provides the deterministic rule-based evaluators, the LLM-as-judge
// evaluator, summary evaluators that aggregate a whole run, and the registry
// that binds evaluator functions to their roles.
package evaluation

import (
	"context"

	"github.com/tallyvote/go-tallyeval/internal/domain"
)

// Canonical evaluator names. They key per-record evaluation results and the
// summary weights, so they are part of the output contract.
const (
	NameExactFormMatch     = "exact_form_match"
	NameBallotAccuracy     = "ballot_accuracy_score"
	NameVoteResultsQuality = "vote_results_quality"
	NameHasNoErrors        = "has_no_errors"
	NameJudge              = "llm_judge_evaluator"
	NameOverallAccuracy    = "overall_accuracy"
)

// Sample is one record's evaluation input: the task's output alongside the
// record's input and expected output, plus the validation report computed
// from the output. Evaluators treat all of it as read-only.
type Sample struct {
	RecordID   string
	Input      domain.FormInput
	Output     *domain.ExtractionResult
	Expected   *domain.ExtractionResult
	Validation domain.ValidationReport

	// TaskErr is the task function's error for this record, nil on success.
	// Evaluators only run for successful records during experiments, but the
	// field keeps has_no_errors meaningful when called standalone.
	TaskErr error
}

// Func is the fixed contract of a per-record evaluator: score one sample in
// [0,1]. Boolean evaluators return 0 or 1. Evaluators must not mutate the
// sample and must not panic; the judge evaluator additionally must not fail
// (it degrades to 0 internally).
type Func func(ctx context.Context, s Sample) float64

// ExactFormMatch scores 1 when the whole form_info sub-object matches the
// expected output exactly, 0 otherwise.
func ExactFormMatch(_ context.Context, s Sample) float64 {
	if s.Output == nil || s.Expected == nil {
		return 0
	}
	if s.Output.FormInfo == s.Expected.FormInfo {
		return 1
	}
	return 0
}

// BallotAccuracy scores the fraction of the six ballot statistics fields
// that match the expected output exactly.
func BallotAccuracy(_ context.Context, s Sample) float64 {
	if s.Output == nil || s.Expected == nil {
		return 0
	}
	got, want := s.Output.BallotStatistics, s.Expected.BallotStatistics
	matches := 0
	pairs := [][2]int{
		{got.BallotsAllocated, want.BallotsAllocated},
		{got.BallotsUsed, want.BallotsUsed},
		{got.GoodBallots, want.GoodBallots},
		{got.BadBallots, want.BadBallots},
		{got.NoVoteBallots, want.NoVoteBallots},
		{got.BallotsRemaining, want.BallotsRemaining},
	}
	for _, p := range pairs {
		if p[0] == p[1] {
			matches++
		}
	}
	return float64(matches) / float64(len(pairs))
}

// VoteResultsQuality joins output and expected vote entries on their number
// key and scores matching (number, vote_count) pairs over the union of
// number keys present on either side.
//
// The score is invariant to the ordering of either list, and symmetric: an
// unmatched extra entry on either side enlarges the union identically. Two
// empty lists are identical and score 1.
func VoteResultsQuality(_ context.Context, s Sample) float64 {
	if s.Output == nil || s.Expected == nil {
		return 0
	}

	got := tallyByNumber(s.Output.VoteResults)
	want := tallyByNumber(s.Expected.VoteResults)

	union := make(map[int]struct{}, len(got)+len(want))
	for n := range got {
		union[n] = struct{}{}
	}
	for n := range want {
		union[n] = struct{}{}
	}
	if len(union) == 0 {
		return 1
	}

	matches := 0
	for n, votes := range got {
		if wantVotes, ok := want[n]; ok && votes == wantVotes {
			matches++
		}
	}
	return float64(matches) / float64(len(union))
}

// HasNoErrors scores 1 iff the task function did not fail and every
// validation check on its output passed.
func HasNoErrors(_ context.Context, s Sample) float64 {
	if s.TaskErr == nil && s.Validation.Passed() {
		return 1
	}
	return 0
}

func tallyByNumber(entries []domain.VoteEntry) map[int]int {
	m := make(map[int]int, len(entries))
	for _, e := range entries {
		m[e.Number] = e.VoteCount
	}
	return m
}
