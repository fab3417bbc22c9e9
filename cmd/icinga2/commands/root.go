package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	settingsPath string
	verbose      bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "icinga2",
		Short: "Icinga 2 - Configuration Object Lifecycle Engine",
		Long: `The configuration object lifecycle engine of the Icinga 2 monitoring
platform. It ingests declarative config item files and drives them
through commit, validation and activation, producing a live set of
typed config objects.

Features:
  - Typed item declarations via CUE
  - Object expressions in Starlark
  - Dependency-ordered commit pipeline
  - SQLite-backed object snapshots
  - Transactional object reload with rollback`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "settings", "s", "", "engine settings file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newRunCommand())

	return rootCmd
}
