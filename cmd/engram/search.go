package engram

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/pkg/search"
	"github.com/papercomputeco/engram/pkg/search/hybrid"
)

func newSearchCmd() *cobra.Command {
	var (
		tenant     string
		tags       []string
		strategies []string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid search across all retrieval strategies",
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

			results, err := eng.search.Search(cmd.Context(), hybrid.Query{
				Request: search.Request{
					TenantID: tenant,
					Query:    args[0],
					Tags:     tags,
					Limit:    limit,
				},
				Strategies: strategies,
			})
			if err != nil {
				return err
			}

			type row struct {
				ID         string  `json:"id"`
				Content    string  `json:"content"`
				Layer      string  `json:"layer"`
				FusedScore float64 `json:"fused_score"`
				FinalScore float64 `json:"final_score"`
				Strategies int     `json:"strategies"`
			}
			rows := make([]row, 0, len(results))
			for _, r := range results {
				rows = append(rows, row{
					ID:         r.Record.ID,
					Content:    r.Record.Content,
					Layer:      r.Record.Layer.String(),
					FusedScore: r.FusedScore,
					FinalScore: r.FinalScore,
					Strategies: r.Strategies,
				})
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "default", "tenant to search")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tags steering the graph strategy")
	cmd.Flags().StringSliceVar(&strategies, "strategy", nil, "restrict the search to the named strategies")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results")

	return cmd
}
