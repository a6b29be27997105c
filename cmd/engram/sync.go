package engram

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	sync := &cobra.Command{
		Use:   "sync",
		Short: "Exchange encrypted memory batches with peers",
	}
	sync.AddCommand(newSyncExportCmd(), newSyncImportCmd())
	return sync
}

func newSyncExportCmd() *cobra.Command {
	var (
		tenant string
		out    string
		since  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Seal a tenant snapshot for a peer",
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

			if eng.syncer == nil {
				return fmt.Errorf("sync requires a key, set sync.key or --sync-key")
			}

			var cutoff time.Time
			if since > 0 {
				cutoff = time.Now().UTC().Add(-since)
			}

			payload, err := eng.syncer.Export(cmd.Context(), tenant, cutoff)
			if err != nil {
				return err
			}
			return os.WriteFile(out, payload, 0o600)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "default", "tenant to export")
	cmd.Flags().StringVar(&out, "out", "engram-sync.bin", "output file")
	cmd.Flags().DurationVar(&since, "since", 0, "only export records modified within this window")

	return cmd
}

func newSyncImportCmd() *cobra.Command {
	var (
		tenant string
		peer   string
		in     string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Merge a peer's sealed snapshot into local memory",
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

			if eng.syncer == nil {
				return fmt.Errorf("sync requires a key, set sync.key or --sync-key")
			}

			payload, err := os.ReadFile(in)
			if err != nil {
				return err
			}

			summary, err := eng.syncer.Merge(cmd.Context(), tenant, peer, payload)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "default", "tenant to merge into")
	cmd.Flags().StringVar(&peer, "peer", "peer", "peer node identifier")
	cmd.Flags().StringVar(&in, "in", "engram-sync.bin", "input file")

	return cmd
}
