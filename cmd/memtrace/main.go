// Package main provides the entry point for the memtrace CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonahbeckford/memtrace/cmd/memtrace/commands"
	"github.com/jonahbeckford/memtrace/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "memtrace",
		Short: "Memtrace - memory allocation hotspot profiler",
		Long: `Memtrace analyzes binary allocation traces and reports which backtrace
suffixes account for more than a chosen fraction of the sampled allocation
weight.

Commands:
  hotspots  Analyze a trace and print the heavy allocation suffixes
  plot      Analyze a trace and write an HTML chart`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands.
	rootCmd.AddCommand(commands.NewHotspotsCommand())
	rootCmd.AddCommand(commands.NewPlotCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "memtrace %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
