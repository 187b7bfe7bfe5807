package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tallyvote/go-tallyeval/internal/llm"
	"github.com/tallyvote/go-tallyeval/internal/llm/providers"
)

var (
	cfgFile string
	verbose bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tallyeval",
		Short: "Structured-extraction experiments over scanned election tally forms",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "experiment.yaml", "experiment config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newWorkerCmd())
	return root
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildLLMConfig fills provider credentials from the environment. Only
// providers with a key present are registered; requests routed to an
// unconfigured provider fail with a clear error.
func buildLLMConfig() *llm.Config {
	cfg := llm.DefaultConfig()
	cfg.Providers = map[string]llm.ProviderConfig{}

	googleKey := os.Getenv("GEMINI_API_KEY")
	if googleKey == "" {
		googleKey = os.Getenv("GOOGLE_API_KEY")
	}
	if googleKey != "" {
		cfg.Providers[providers.ProviderGoogle] = llm.ProviderConfig{APIKey: googleKey}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Providers[providers.ProviderOpenAI] = llm.ProviderConfig{APIKey: key}
	}
	return cfg
}
