package engram

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one consolidation sweep for a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			eng, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			defer eng.close()

			summary, err := eng.manager.Sweep(cmd.Context(), tenant)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "default", "tenant to sweep")
	return cmd
}

func newSynthesizeCmd() *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "synthesize",
		Short: "Condense long-term clusters into reflective memories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			eng, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			defer eng.close()

			summary, err := eng.manager.Synthesize(cmd.Context(), tenant)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "default", "tenant to synthesize")
	return cmd
}
