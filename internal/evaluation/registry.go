package evaluation

import (
	"context"
	"errors"
	"fmt"

	"github.com/tallyvote/go-tallyeval/internal/domain"
)

// Registration errors. Role binding fails fast at configuration time rather
// than deep inside a running batch.
var (
	// ErrEmptyName indicates a registration without a name.
	ErrEmptyName = errors.New("evaluator name must not be empty")

	// ErrNilFunc indicates a registration without a function.
	ErrNilFunc = errors.New("evaluator function must not be nil")

	// ErrDuplicateName indicates a name already bound in this registry.
	ErrDuplicateName = errors.New("evaluator name already registered")
)

// SummaryFunc is the fixed contract of a summary evaluator: aggregate one
// configuration's complete per-record results into a single batch-level
// metric. It is invoked exactly once per run, after every record finished.
type SummaryFunc func(ctx context.Context, samples []Sample, results []domain.EvaluationResult) float64

type namedEvaluator struct {
	name string
	fn   Func
}

type namedSummary struct {
	name string
	fn   SummaryFunc
}

// Registry binds evaluator and summary-evaluator functions to their roles.
// Registration order is preserved; it determines evaluation order and the
// order of keys reported in summaries.
type Registry struct {
	evaluators []namedEvaluator
	summaries  []namedSummary
	names      map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// RegisterEvaluator binds a per-record evaluator under a unique name.
func (r *Registry) RegisterEvaluator(name string, fn Func) error {
	if err := r.checkBinding(name, fn == nil); err != nil {
		return err
	}
	r.evaluators = append(r.evaluators, namedEvaluator{name: name, fn: fn})
	r.names[name] = struct{}{}
	return nil
}

// RegisterSummary binds a summary evaluator under a unique name.
func (r *Registry) RegisterSummary(name string, fn SummaryFunc) error {
	if err := r.checkBinding(name, fn == nil); err != nil {
		return err
	}
	r.summaries = append(r.summaries, namedSummary{name: name, fn: fn})
	r.names[name] = struct{}{}
	return nil
}

func (r *Registry) checkBinding(name string, nilFn bool) error {
	if name == "" {
		return ErrEmptyName
	}
	if nilFn {
		return fmt.Errorf("%w: %q", ErrNilFunc, name)
	}
	if _, exists := r.names[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	return nil
}

// Evaluate runs every registered evaluator over one sample and returns the
// scores keyed by evaluator name.
func (r *Registry) Evaluate(ctx context.Context, s Sample) domain.EvaluationResult {
	scores := make(domain.EvaluationResult, len(r.evaluators))
	for _, e := range r.evaluators {
		scores[e.name] = e.fn(ctx, s)
	}
	return scores
}

// Summarize runs every registered summary evaluator exactly once over the
// complete collected lists and returns the metrics keyed by name.
func (r *Registry) Summarize(
	ctx context.Context,
	samples []Sample,
	results []domain.EvaluationResult,
) map[string]float64 {
	metrics := make(map[string]float64, len(r.summaries))
	for _, s := range r.summaries {
		metrics[s.name] = s.fn(ctx, samples, results)
	}
	return metrics
}

// EvaluatorNames returns the registered evaluator names in order.
func (r *Registry) EvaluatorNames() []string {
	names := make([]string, len(r.evaluators))
	for i, e := range r.evaluators {
		names[i] = e.name
	}
	return names
}

// DefaultRegistry builds the standard registry: the four rule-based
// evaluators, the judge when one is provided, and the overall_accuracy
// summary with the given weights.
func DefaultRegistry(judge *Judge, weights Weights) (*Registry, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	r := NewRegistry()
	bindings := []struct {
		name string
		fn   Func
	}{
		{NameExactFormMatch, ExactFormMatch},
		{NameBallotAccuracy, BallotAccuracy},
		{NameVoteResultsQuality, VoteResultsQuality},
		{NameHasNoErrors, HasNoErrors},
	}
	for _, b := range bindings {
		if err := r.RegisterEvaluator(b.name, b.fn); err != nil {
			return nil, err
		}
	}
	if judge != nil {
		if err := r.RegisterEvaluator(NameJudge, judge.Evaluate); err != nil {
			return nil, err
		}
	}
	if err := r.RegisterSummary(NameOverallAccuracy, OverallAccuracy(weights)); err != nil {
		return nil, err
	}
	return r, nil
}
