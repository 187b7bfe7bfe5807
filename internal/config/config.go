// Package config loads experiment configuration from YAML files and converts
// it into the typed configuration the pipeline consumes.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/tallyvote/go-tallyeval/internal/domain"
	"github.com/tallyvote/go-tallyeval/internal/evaluation"
	"github.com/tallyvote/go-tallyeval/internal/experiment"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Dataset selects the snapshot to run over, either a direct file path or a
// named version resolved against a dataset root or S3 bucket.
type Dataset struct {
	Path    string `yaml:"path"`
	Name    string `yaml:"name"`
	Version int    `yaml:"version"`

	// Root is the local dataset root for name/version lookups; Bucket selects
	// S3 instead. At most one applies.
	Root   string `yaml:"root"`
	Bucket string `yaml:"bucket"`
}

// Model is one configuration under test.
type Model struct {
	Model       string            `yaml:"model" validate:"required"`
	Provider    string            `yaml:"provider"`
	Temperature float64           `yaml:"temperature" validate:"min=0,max=2"`
	MaxTokens   int               `yaml:"max_tokens" validate:"min=0"`
	NameSuffix  string            `yaml:"name_suffix"`
	Metadata    map[string]string `yaml:"metadata"`
}

// Run tunes orchestration.
type Run struct {
	SampleSize  int   `yaml:"sample_size"`
	Jobs        int   `yaml:"jobs"`
	RaiseErrors *bool `yaml:"raise_errors"`
}

// Judge enables the LLM-as-judge evaluator.
type Judge struct {
	Model    string `yaml:"model" validate:"required"`
	Provider string `yaml:"provider"`
}

// Output selects result destinations. Path and PostgresDSN may both be set;
// results then go to both sinks.
type Output struct {
	Path        string `yaml:"path"`
	EventsPath  string `yaml:"events_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Experiment is the root of one experiment configuration file.
type Experiment struct {
	Dataset Dataset             `yaml:"dataset"`
	Models  []Model             `yaml:"models" validate:"min=1,dive"`
	Run     Run                 `yaml:"run"`
	Weights *evaluation.Weights `yaml:"weights"`
	Judge   *Judge              `yaml:"judge"`
	Output  Output              `yaml:"output"`
}

// Load reads and validates an experiment configuration file.
func Load(path string) (*Experiment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates raw YAML configuration.
func Parse(raw []byte) (*Experiment, error) {
	var cfg Experiment
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Dataset.Path == "" && cfg.Dataset.Name == "" {
		return nil, fmt.Errorf("invalid config: dataset needs a path or a name")
	}
	if w := cfg.Weights; w != nil {
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	return &cfg, nil
}

// ModelConfigs converts the configured models into domain configurations.
func (e *Experiment) ModelConfigs() []domain.ModelConfig {
	configs := make([]domain.ModelConfig, len(e.Models))
	for i, m := range e.Models {
		configs[i] = domain.ModelConfig{
			Model:       m.Model,
			Provider:    m.Provider,
			Temperature: m.Temperature,
			MaxTokens:   m.MaxTokens,
			NameSuffix:  m.NameSuffix,
			Metadata:    m.Metadata,
		}
	}
	return configs
}

// Options converts the run section into orchestrator options, applying the
// defaults for anything unset.
func (e *Experiment) Options() experiment.Options {
	opts := experiment.DefaultOptions()
	opts.SampleSize = e.Run.SampleSize
	if e.Run.Jobs > 0 {
		opts.Jobs = e.Run.Jobs
	}
	if e.Run.RaiseErrors != nil {
		opts.RaiseErrors = *e.Run.RaiseErrors
	}
	return opts
}

// EvalWeights returns the configured weights, or the defaults.
func (e *Experiment) EvalWeights() evaluation.Weights {
	if e.Weights != nil {
		return *e.Weights
	}
	return evaluation.DefaultWeights()
}
