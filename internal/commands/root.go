package commands

import (
	"github.com/spf13/cobra"

	"github.com/homeledger/homeledger/internal/buildinfo"
	"github.com/homeledger/homeledger/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "homeledger",
		Short:   "Household budget tracker with statement reconciliation",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.FileName, "path to homeledger.yaml")

	rootCmd.AddCommand(
		newInitCommand(),
		newServeCommand(&configPath),
		newSyncCommand(&configPath),
		newSweepCommand(&configPath),
		newExportCommand(&configPath),
		newRunsCommand(&configPath),
	)

	return rootCmd
}
