package engram

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/pkg/scheduler"
)

func newServeCmd() *cobra.Command {
	var (
		tenants         []string
		sweepEvery      time.Duration
		synthesizeEvery time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the maintenance scheduler until interrupted",
		Long:  "Runs consolidation sweeps and synthesis passes on a cadence for the listed tenants. Intended for deployments where the engine is embedded elsewhere and only maintenance runs standalone.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if sweepEvery > 0 {
				cfg.Scheduler.SweepEvery = sweepEvery
			}
			if synthesizeEvery > 0 {
				cfg.Scheduler.SynthesizeEvery = synthesizeEvery
			}

			eng, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			defer eng.close()

			lister := func(context.Context) ([]string, error) {
				return tenants, nil
			}

			sched := scheduler.New(eng.manager, lister, scheduler.Config{
				SweepEvery:      cfg.Scheduler.SweepEvery,
				SynthesizeEvery: cfg.Scheduler.SynthesizeEvery,
			}, eng.logger)

			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-stop:
				eng.logger.Info("shutting down")
			case <-cmd.Context().Done():
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tenants, "tenant", []string{"default"}, "tenants to maintain (repeatable)")
	cmd.Flags().DurationVar(&sweepEvery, "sweep-every", 0, "override the sweep cadence")
	cmd.Flags().DurationVar(&synthesizeEvery, "synthesize-every", 0, "override the synthesis cadence")

	return cmd
}
