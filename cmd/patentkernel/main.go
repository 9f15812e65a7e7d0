// Package main provides the entry point for the patentkernel CLI driver.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/patentlens/kernel/cmd/patentkernel/commands"
)

var (
	verbose bool
	quiet   bool
)

const (
	version    = "0.1.0"
	commitHash = "unknown"
	buildDate  = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "patentkernel",
		Short: "Patent analysis orchestration kernel",
		Long: `patentkernel is a library plus a thin CLI driver for a multi-agent
patent analysis orchestration kernel.

Commands:
  run     Wire every component and run one analysis-to-report pipeline
  mcp     Start an MCP server exposing assign_task/collaboration_status/generate_report
  config  Print the resolved configuration
  metrics Run a synthetic request and print the in-process metrics snapshot`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewMetricsCommand())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "patentkernel %s (commit: %s, built: %s)\n", version, commitHash, buildDate)
		},
	}
}
