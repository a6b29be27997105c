package engram

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/pkg/layers"
)

func newIngestCmd() *cobra.Command {
	var (
		tenant     string
		importance float64
		memType    string
		tags       []string
		source     string
		project    string
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ingest <content>",
		Short: "Store a new memory in the sensory layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			eng, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			defer eng.close()

			rec, err := eng.manager.Ingest(cmd.Context(), layers.IngestRequest{
				TenantID:   tenant,
				Content:    args[0],
				Importance: importance,
				Type:       memType,
				Tags:       tags,
				Source:     source,
				Project:    project,
				TTL:        ttl,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "default", "tenant the memory belongs to")
	cmd.Flags().Float64Var(&importance, "importance", 0.5, "intrinsic importance in [0,1]")
	cmd.Flags().StringVar(&memType, "type", "", "memory type (episodic, semantic, ...)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tags (repeatable)")
	cmd.Flags().StringVar(&source, "source", "", "where the memory came from")
	cmd.Flags().StringVar(&project, "project", "", "project grouping key")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "override the sensory layer TTL")

	return cmd
}
