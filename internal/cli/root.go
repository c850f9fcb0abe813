// Package cli provides the command-line interface for algorun.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/sylva-labs/algorun/internal/cli/commands"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "algorun",
		Short: "algorun - dockerized algorithm run orchestrator",
		Long: `algorun executes third-party, dockerized scientific algorithms against
datasets staged by an external data-provisioning service.

Run orders are ingested from a defining repository, every execution
attempt is tracked durably in a local ledger, and runs that find their
dataset not yet provided are parked and resumed by later scheduling
passes.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./algorun.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(commands.NewExecuteCommand())
	rootCmd.AddCommand(commands.NewScheduleCommand())
	rootCmd.AddCommand(commands.NewIngestCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewOrdersCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit))

	return rootCmd
}
