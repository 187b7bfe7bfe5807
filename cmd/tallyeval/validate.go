package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tallyvote/go-tallyeval/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the experiment config without running anything",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			fmt.Printf("%s: ok\n", cfgFile)
			for _, m := range cfg.ModelConfigs() {
				fmt.Printf("  model %s (provider %q, temperature %v)\n",
					m.Name(), m.Provider, m.Temperature)
			}
			opts := cfg.Options()
			fmt.Printf("  jobs=%d sample_size=%d raise_errors=%v\n",
				opts.Jobs, opts.SampleSize, opts.RaiseErrors)
			if cfg.Judge != nil {
				fmt.Printf("  judge: %s\n", cfg.Judge.Model)
			}
			return nil
		},
	}
}
