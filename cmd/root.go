// Package cmd assembles the kitabu command line interface.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kitabu/kitabu-go/cmd/migrate"
	"github.com/kitabu/kitabu-go/cmd/probe"
	"github.com/kitabu/kitabu-go/internal/conf"
	"github.com/kitabu/kitabu-go/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kitabu",
		Short: "Kitabu library migration CLI",
		Long:  `Kitabu migrates legacy library database files into a normalized library store.`,
	}

	// Set up the global flags for the root command.
	rootCmd.PersistentFlags().BoolVar(&settings.Debug, "debug", settings.Debug, "Enable debug output")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if settings.Debug {
			logging.SetLevel(slog.LevelDebug)
		}
	}

	subcommands := []*cobra.Command{
		probe.Command(settings),
		migrate.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}
