// Package engram is the command-line interface to the memory engine.
package engram

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/pkg/config"
)

var configFile string

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "engram",
		Short:         "Layered memory engine for autonomous agents",
		Long:          "engram stores, consolidates, retrieves, and synchronizes agent memories across sensory, working, long-term, and reflective layers.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newIngestCmd(),
		newSearchCmd(),
		newSweepCmd(),
		newSynthesizeCmd(),
		newSyncCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig resolves the effective configuration for a command.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configFile, cmd.Flags())
}
